/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"

	"github.com/Seednode/partyrooms/engine"
	"github.com/Seednode/partyrooms/history"
	"github.com/Seednode/partyrooms/room"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry

	applied  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	failed   *prometheus.CounterVec
	finished *prometheus.CounterVec
	created  *prometheus.CounterVec
	clients  prometheus.Gauge
	rooms    prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partyrooms",
			Name:      "intents_applied_total",
			Help:      "Intents that changed a room.",
		}, []string{"game", "kind"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partyrooms",
			Name:      "intents_rejected_total",
			Help:      "Intents refused by the game rules.",
		}, []string{"game", "kind"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partyrooms",
			Name:      "intents_failed_total",
			Help:      "Intents that could not be applied for reasons other than the rules.",
		}, []string{"game", "kind"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partyrooms",
			Name:      "games_finished_total",
			Help:      "Games played to the end.",
		}, []string{"game"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "partyrooms",
			Name:      "rooms_created_total",
			Help:      "Rooms opened.",
		}, []string{"game"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "partyrooms",
			Name:      "clients_connected",
			Help:      "Open websocket connections.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "partyrooms",
			Name:      "rooms_active",
			Help:      "Rooms with a running hub in this process.",
		}),
	}

	m.registry.MustRegister(
		m.applied, m.rejected, m.failed, m.finished, m.created, m.clients, m.rooms,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// hooks feeds room manager events into the counters and, when one is
// configured, the history archive.
func (m *metrics) hooks(cfg *Config, archive *history.Archive) room.Hooks {
	return room.Hooks{
		Applied: func(game, kind string) {
			m.applied.WithLabelValues(game, kind).Inc()
		},
		Rejected: func(game, kind string, err error) {
			if engine.IsRejection(err) {
				m.rejected.WithLabelValues(game, kind).Inc()
				return
			}
			if !errors.Is(err, room.ErrNotPlaying) && !errors.Is(err, room.ErrNotInRoom) {
				m.failed.WithLabelValues(game, kind).Inc()
			}
		},
		Finished: func(_ context.Context, s room.Summary) {
			m.finished.WithLabelValues(s.Game).Inc()
			logf(cfg, "GAMES: Finished %s in room %s", s.Game, s.Room)

			if archive == nil {
				return
			}
			go record(cfg, archive, s)
		},
	}
}

func record(cfg *Config, archive *history.Archive, s room.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	id, _ := uuid.Parse(s.ID)

	err := archive.Record(ctx, history.Entry{
		ID:        id,
		Room:      s.Room,
		Game:      s.Game,
		Roster:    s.Roster,
		Standings: s.Standings,
		Finished:  s.Finished,
	})
	if err != nil {
		errorf(cfg, "HISTORY: %v", err)
	}
}

func registerMetrics(cfg *Config, m *metrics, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
