/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/partyrooms/history"
	"github.com/Seednode/partyrooms/room"
	"github.com/julienschmidt/httprouter"
)

const historyLimit = 20

//go:embed assets/*
var assets embed.FS

func homePage(cfg *Config, games []string) string {
	var body strings.Builder

	body.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	body.WriteString(getFavicon(cfg))
	body.WriteString(fmt.Sprintf(`<link rel="stylesheet" href="%s/assets/room.css">`, cfg.prefix))
	body.WriteString(`<title>partyrooms</title></head><body><main><h1>partyrooms</h1><ul class="games">`)
	for _, game := range games {
		body.WriteString(fmt.Sprintf(`<li><a href="%s/%s">%s</a></li>`,
			cfg.prefix, html.EscapeString(game), html.EscapeString(game)))
	}
	body.WriteString(`</ul></main></body></html>`)

	return body.String()
}

func serveHomePage(cfg *Config, registry *room.Registry, errs chan<- error) httprouter.Handle {
	page := homePage(cfg, registry.Names())

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(page)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(page))
		if err != nil {
			errs <- err
		}
	}
}

func serveHistory(cfg *Config, archive *history.Archive, registry *room.Registry, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		game := p.ByName("game")
		if _, ok := registry.Get(game); !ok {
			http.Error(w, "unknown game", http.StatusNotFound)
			return
		}

		entries, err := archive.Recent(r.Context(), game, historyLimit)
		if err != nil {
			errorf(cfg, "HISTORY: %v", err)
			http.Error(w, "unable to load history", http.StatusInternalServerError)
			return
		}

		data, err := json.Marshal(entries)
		if err != nil {
			errs <- err
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := "assets/" + strings.TrimPrefix(p.ByName("asset"), "/")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		ext := strings.ToLower(filepath.Ext(fname))
		switch ext {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		case ".html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: Amazonbot
Disallow: /

User-agent: Applebot-Extended
Disallow: /

User-agent: Bytespider
Disallow: /

User-agent: CCBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: Google-Extended
Disallow: /

User-agent: GPTBot
Disallow: /

User-agent: meta-externalagent
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
