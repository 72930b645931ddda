/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "PARTYROOMS"

type Config struct {
	bind           string
	databaseURL    string
	metrics        bool
	playerTimeout  time.Duration
	port           int
	prefix         string
	profile        bool
	redisAddr      string
	redisDB        int
	redisPassword  string
	roomTTL        time.Duration
	seed           uint64
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool

	log *logrus.Logger
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.playerTimeout < 0 || c.sessionTimeout < 0 || c.roomTTL < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.redisAddr == "" && (c.redisPassword != "" || c.redisDB != 0) {
		return errors.New("--redis-password and --redis-db require --redis-addr")
	}
	if c.redisDB < 0 {
		return fmt.Errorf("invalid redis database: %d", c.redisDB)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func envName(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "partyrooms",
		Short:         "Rooms for turn-based and simultaneous party games, served over websockets.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.log = newLogger(cfg)
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to")
	fs.StringVar(&cfg.databaseURL, "database-url", "", "postgres url for the finished game archive (disabled if empty)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "serve prometheus metrics at /metrics")
	fs.DurationVar(&cfg.playerTimeout, "player-timeout", 10*time.Minute, "time before disconnected players are removed from a lobby")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for room state (in-memory if empty)")
	fs.IntVar(&cfg.redisDB, "redis-db", 0, "redis database number")
	fs.StringVar(&cfg.redisPassword, "redis-password", "", "redis password")
	fs.DurationVar(&cfg.roomTTL, "room-ttl", 24*time.Hour, "time before untouched rooms are dropped from the store")
	fs.Uint64Var(&cfg.seed, "seed", 0, "fixed random seed, for reproducible games (crypto-random if 0)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle rooms are ended")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit")

	fs.VisitAll(func(f *pflag.Flag) {
		f.Usage += " (env: " + envName(f.Name) + ")"

		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("partyrooms v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
