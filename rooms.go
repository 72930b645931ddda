/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Rooms over websockets.
//
// Every room gets a hub while at least one client is connected to it. The
// hub subscribes to the room's document in the store, renders a per-player
// view of every snapshot and forwards client requests to the room manager,
// which is the only thing that ever writes room state.
//
// Routes, per registered game:
//   - $game               → creates a room and redirects to it
//   - $game/:room         → HTML client
//   - $game/:room/state   → JSON snapshot as the caller may see it
//   - $game/:room/ws      → websocket
//   - $game/:room/qr      → PNG QR code for the room URL

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/partyrooms/engine"
	"github.com/Seednode/partyrooms/patch"
	"github.com/Seednode/partyrooms/room"
	"github.com/Seednode/partyrooms/store"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	playerCookieName = "partyrooms_id"
	sendBuffer       = 16
)

// Messages coming from clients
type clientMessage struct {
	Type    string          `json:"type"`              // "join", "leave", "start", "intent", "reset"
	Name    string          `json:"name,omitempty"`    // join
	Kind    string          `json:"kind,omitempty"`    // intent
	Payload json.RawMessage `json:"payload,omitempty"` // intent
	Lobby   bool            `json:"lobby,omitempty"`   // reset
}

// Messages sent to clients
type serverMessage struct {
	Type    string         `json:"type"` // "session", "state", "error"
	Player  string         `json:"player,omitempty"`
	State   patch.Document `json:"state,omitempty"`
	Message string         `json:"message,omitempty"`
}

type client struct {
	conn     *websocket.Conn
	send     chan serverMessage
	playerID string
}

// deliver never blocks the hub; a client that cannot keep up is dropped.
func (c *client) deliver(msg serverMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

type request struct {
	client *client
	msg    clientMessage
}

type hub struct {
	game  string
	code  string
	rooms *roomHubs

	clients map[*client]bool
	latest  patch.Document

	register chan *client
	unreg    chan *client
	requests chan request
	removals chan string
	done     chan struct{}
}

func newHub(rooms *roomHubs, game, code string) *hub {
	return &hub{
		game:     game,
		code:     code,
		rooms:    rooms,
		clients:  make(map[*client]bool),
		register: make(chan *client),
		unreg:    make(chan *client),
		requests: make(chan request),
		removals: make(chan string),
		done:     make(chan struct{}),
	}
}

func (h *hub) run(ctx context.Context) {
	cfg := h.rooms.cfg

	defer func() {
		h.closeAll()
		h.rooms.remove(h)
		close(h.done)
	}()

	updates, stop, err := h.rooms.manager.Subscribe(ctx, h.code)
	if err != nil {
		errorf(cfg, "ROOMS: Subscribing to %s/%s: %v", h.game, h.code, err)
		return
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c] = true
			h.rooms.metrics.clients.Inc()

			c.deliver(serverMessage{Type: "session", Player: c.playerID})
			if h.latest != nil {
				h.sendView(c, h.latest)
			}

		case c := <-h.unreg:
			if !h.clients[c] {
				continue
			}
			h.drop(c)

			if !h.connected(c.playerID) && cfg.playerTimeout > 0 {
				h.scheduleRemoval(c.playerID, cfg.playerTimeout)
			}

		case id := <-h.removals:
			if !h.connected(id) {
				h.removeIdle(ctx, id)
			}

		case req := <-h.requests:
			h.handle(ctx, req)

		case doc, ok := <-updates:
			if !ok {
				logf(cfg, "ROOMS: Room %s/%s closed", h.game, h.code)
				return
			}
			h.latest = doc

			for c := range h.clients {
				h.sendView(c, doc)
			}
		}
	}
}

func (h *hub) connected(playerID string) bool {
	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}

	return false
}

func (h *hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
	h.rooms.metrics.clients.Dec()
}

func (h *hub) sendView(c *client, doc patch.Document) {
	view, err := h.rooms.manager.View(doc, c.playerID)
	if err != nil {
		errorf(h.rooms.cfg, "ROOMS: Rendering %s/%s for %s: %v", h.game, h.code, c.playerID, err)
		return
	}

	if !c.deliver(serverMessage{Type: "state", State: view}) {
		h.drop(c)
		_ = c.conn.Close()
	}
}

// scheduleRemoval waits for d, then asks the hub to drop playerID from
// the lobby unless they reconnected in the meantime.
func (h *hub) scheduleRemoval(playerID string, d time.Duration) {
	time.AfterFunc(d, func() {
		select {
		case h.removals <- playerID:
		case <-h.done:
		}
	})
}

// removeIdle only ever empties lobbies; a seat in a running game is kept
// so the player can reconnect.
func (h *hub) removeIdle(ctx context.Context, playerID string) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l, err := h.rooms.manager.Lobby(ctx, h.code)
	if err != nil || l.Status != room.StatusWaiting {
		return
	}

	_, err = h.rooms.manager.Leave(ctx, h.code, playerID)
	switch {
	case errors.Is(err, room.ErrInGame):
		return
	case err != nil && !errors.Is(err, room.ErrNotInRoom):
		errorf(h.rooms.cfg, "ROOMS: Removing %s from %s/%s: %v", playerID, h.game, h.code, err)
		return
	}

	logf(h.rooms.cfg, "ROOMS: Removed idle player %s from %s/%s", playerID, h.game, h.code)
}

func (h *hub) handle(ctx context.Context, req request) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m := h.rooms.manager
	actor := req.client.playerID
	msg := req.msg

	var err error
	switch msg.Type {
	case "join":
		_, err = m.Join(ctx, h.code, engine.Player{ID: actor, Name: msg.Name})
	case "leave":
		_, err = m.Leave(ctx, h.code, actor)
	case "start":
		_, err = m.Start(ctx, h.code, actor)
	case "intent":
		_, err = m.Submit(ctx, h.code, engine.Intent{Actor: actor, Kind: msg.Kind, Payload: msg.Payload})
	case "reset":
		_, err = m.Reset(ctx, h.code, actor, msg.Lobby)
	default:
		return
	}

	switch {
	case err == nil:
		logf(h.rooms.cfg, "ROOMS: %s %s in %s/%s", actor, msg.Type, h.game, h.code)
	case engine.IsRejection(err):
		logf(h.rooms.cfg, "ROOMS: Rejected %s from %s in %s/%s: %v", msg.Type, actor, h.game, h.code, err)
	default:
		req.client.deliver(serverMessage{Type: "error", Message: err.Error()})
	}
}

// closeAll disconnects every client of this hub.
func (h *hub) closeAll() {
	for c := range h.clients {
		h.drop(c)
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func getOrSetPlayerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     cfg.prefix + "/",
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// roomHubs holds the hubs of every room with connected clients in this
// process.
type roomHubs struct {
	cfg     *Config
	ctx     context.Context
	manager *room.Manager
	memory  *store.Memory
	metrics *metrics

	mu   sync.Mutex
	hubs map[string]*hub
}

func newRoomHubs(ctx context.Context, cfg *Config, manager *room.Manager, memory *store.Memory, m *metrics) *roomHubs {
	return &roomHubs{
		cfg:     cfg,
		ctx:     ctx,
		manager: manager,
		memory:  memory,
		metrics: m,
		hubs:    make(map[string]*hub),
	}
}

func (rh *roomHubs) getHub(game, code string) *hub {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	if h, ok := rh.hubs[code]; ok {
		return h
	}

	h := newHub(rh, game, code)
	rh.hubs[code] = h
	rh.metrics.rooms.Inc()
	go h.run(rh.ctx)

	return h
}

func (rh *roomHubs) remove(h *hub) {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	if rh.hubs[h.code] == h {
		delete(rh.hubs, h.code)
		rh.metrics.rooms.Dec()
	}
}

// reap ends rooms idle longer than the session timeout and, for the
// in-memory store, drops rooms past their retention window. Redis expires
// rooms on its own.
func (rh *roomHubs) reap(ctx context.Context) error {
	if rh.cfg.sessionTimeout <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(rh.cfg.sessionTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			reaped, err := rh.manager.Reap(ctx, now.Add(-rh.cfg.sessionTimeout))
			for _, code := range reaped {
				logf(rh.cfg, "ROOMS: Reaped idle room %s", code)
			}
			if err != nil {
				errorf(rh.cfg, "ROOMS: %v", err)
			}

			if rh.memory != nil && rh.cfg.roomTTL > 0 {
				for _, code := range rh.memory.Expire(now.Add(-rh.cfg.roomTTL)) {
					logf(rh.cfg, "ROOMS: Expired room %s", code)
				}
			}
		}
	}
}

// lobbyFor loads the room named in the route and checks it belongs to game.
func (rh *roomHubs) lobbyFor(ctx context.Context, game string, ps httprouter.Params) (room.Lobby, bool) {
	l, err := rh.manager.Lobby(ctx, ps.ByName("room"))
	if err != nil || l.Game != game {
		return room.Lobby{}, false
	}

	return l, true
}

func notFound(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(http.StatusNotFound)

	_, _ = w.Write([]byte(newPage(cfg, "Not Found", "That room does not exist. Back to the start?")))
}

func (rh *roomHubs) serveWS(game string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		l, ok := rh.lobbyFor(r.Context(), game, ps)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		playerID := getOrSetPlayerID(rh.cfg, w, r)

		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			logf(rh.cfg, "ROOMS: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		c := &client{
			conn:     conn,
			send:     make(chan serverMessage, sendBuffer),
			playerID: playerID,
		}

		h := rh.getHub(game, l.Code)

		select {
		case h.register <- c:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go c.writePump()
		c.readPump(h)
	}
}

func (c *client) readPump(h *hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.requests <- request{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// redirectNewRoom handles GET /$game by opening a room and redirecting to
// it.
func (rh *roomHubs) redirectNewRoom(game string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code, err := rh.manager.Create(r.Context(), game)
		if err != nil {
			errorf(rh.cfg, "ROOMS: Creating %s room: %v", game, err)
			http.Error(w, "unable to create room", http.StatusServiceUnavailable)
			return
		}

		rh.metrics.created.WithLabelValues(game).Inc()
		logf(rh.cfg, "ROOMS: Created room %s/%s for %s", game, code, realIP(r))

		http.Redirect(w, r, rh.cfg.prefix+"/"+game+"/"+code, http.StatusTemporaryRedirect)
	}
}

func (rh *roomHubs) serveRoomPage(game string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := rh.lobbyFor(r.Context(), game, ps); !ok {
			notFound(rh.cfg, w)
			return
		}

		data, err := assets.ReadFile("assets/room.html")
		if err != nil {
			http.Error(w, "missing client", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(rh.cfg, w)

		_ = getOrSetPlayerID(rh.cfg, w, r)

		_, _ = w.Write(data)
	}
}

func (rh *roomHubs) serveSnapshot(game string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		l, ok := rh.lobbyFor(r.Context(), game, ps)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		doc, err := rh.manager.Snapshot(r.Context(), l.Code, getOrSetPlayerID(rh.cfg, w, r))
		if err != nil {
			errorf(rh.cfg, "ROOMS: Snapshot of %s/%s: %v", game, l.Code, err)
			http.Error(w, "unable to load room", http.StatusInternalServerError)
			return
		}

		data, err := json.Marshal(doc)
		if err != nil {
			http.Error(w, "unable to encode room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(rh.cfg, w)

		written, _ := w.Write(data)

		logf(rh.cfg, "SERVE: Snapshot of %s/%s (%s) to %s in %s",
			game, l.Code,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// qrHandler generates a PNG QR code for the room URL.
func (rh *roomHubs) qrHandler(game string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := rh.lobbyFor(r.Context(), game, ps); !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(rh.cfg, w)
		_, _ = w.Write(png)
	}
}

func (rh *roomHubs) register(mux *httprouter.Router) {
	for _, game := range rh.manager.Registry().Names() {
		path := rh.cfg.prefix + "/" + game

		mux.GET(path, rh.redirectNewRoom(game))
		mux.GET(path+"/:room", rh.serveRoomPage(game))
		mux.GET(path+"/:room/state", rh.serveSnapshot(game))
		mux.GET(path+"/:room/ws", rh.serveWS(game))
		mux.GET(path+"/:room/qr", rh.qrHandler(game))
	}
}
