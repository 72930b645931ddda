/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/partyrooms/engine"
	"github.com/Seednode/partyrooms/history"
	"github.com/Seednode/partyrooms/room"
	"github.com/Seednode/partyrooms/store"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Embedder-Policy", "require-corp")
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("partyrooms v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// openStore picks Redis when an address is configured and the in-memory
// store otherwise.
func openStore(ctx context.Context, cfg *Config) (store.Store, *store.Memory, error) {
	if cfg.redisAddr == "" {
		mem := store.NewMemory()
		logf(cfg, "STORE: Using in-memory room store")
		return mem, mem, nil
	}

	rdb, err := store.NewRedis(ctx, store.RedisOptions{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
		TTL:      cfg.roomTTL,
	})
	if err != nil {
		return nil, nil, err
	}
	logf(cfg, "STORE: Using redis at %s", cfg.redisAddr)

	return rdb, nil, nil
}

func openArchive(ctx context.Context, cfg *Config) (*history.Archive, error) {
	if cfg.databaseURL == "" {
		return nil, nil
	}

	archive, err := history.Open(ctx, cfg.databaseURL)
	if err != nil {
		return nil, err
	}
	if err := archive.Migrate(ctx); err != nil {
		archive.Close()
		return nil, err
	}
	logf(cfg, "HISTORY: Archiving finished games")

	return archive, nil
}

func randomSource(cfg *Config) engine.Source {
	if cfg.seed != 0 {
		return engine.NewSeeded(cfg.seed)
	}

	return engine.NewCrypto()
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: partyrooms v%s", releaseVersion)

	st, mem, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	archive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		defer archive.Close()
	}

	m := newMetrics()

	manager := room.NewManager(room.Options{
		Store:  st,
		Source: randomSource(cfg),
		Hooks:  m.hooks(cfg, archive),
	})

	g, ctx := errgroup.WithContext(ctx)

	rooms := newRoomHubs(ctx, cfg, manager, mem, m)

	mux := httprouter.New()

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      timeout,
	}

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		errorf(cfg, "PANIC: %v serving %s to %s", i, r.URL.Path, realIP(r))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage(cfg, "Server Error", "An error has occurred. Please try again."))
	}

	errs := make(chan error, 64)

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	mux.GET(cfg.prefix+"/", serveHomePage(cfg, manager.Registry(), errs))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if archive != nil {
		mux.GET(cfg.prefix+"/history/:game", serveHistory(cfg, archive, manager.Registry(), errs))
	}

	if cfg.metrics {
		registerMetrics(cfg, m, mux)
	}

	if cfg.profile {
		registerProfileHandlers(cfg, mux)
	}

	rooms.register(mux)

	g.Go(func() error {
		logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return rooms.reap(ctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-errs:
				logf(cfg, "SERVE: %v", err)
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
