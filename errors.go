/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func newLogger(cfg *Config) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: logDate,
	})

	l.SetLevel(logrus.WarnLevel)
	if cfg.verbose {
		l.SetLevel(logrus.DebugLevel)
	}

	return l
}

func logger(cfg *Config) *logrus.Logger {
	if cfg.log == nil {
		cfg.log = newLogger(cfg)
	}

	return cfg.log
}

// logf prints verbose output. Messages follow the "CATEGORY: message"
// convention used throughout.
func logf(cfg *Config, format string, args ...any) {
	logger(cfg).Infof(format, args...)
}

func errorf(cfg *Config, format string, args ...any) {
	logger(cfg).Errorf(format, args...)
}

func newPage(cfg *Config, title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(getFavicon(cfg))
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"%s/\">%s</a></body></html>", cfg.prefix, body))

	return htmlBody.String()
}
