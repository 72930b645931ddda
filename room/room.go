/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package room runs the lifecycle around a game: lobby, start, intents,
// play again. It is the only writer of room documents, and every write
// is a diff against the stored document made while holding the room's
// authority lease.
package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Seednode/partyrooms/engine"
	"github.com/Seednode/partyrooms/patch"
	"github.com/Seednode/partyrooms/store"
	"github.com/google/uuid"
)

var (
	ErrUnknownGame  = errors.New("unknown game")
	ErrNotFound     = errors.New("room not found")
	ErrNotHost      = errors.New("only the host can do that")
	ErrLobbyClosed  = errors.New("game already started")
	ErrNotPlaying   = errors.New("no game in progress")
	ErrNotInRoom    = errors.New("not in this room")
	ErrInGame       = errors.New("cannot leave a game in progress")
	ErrRoomFull     = errors.New("room is full")
	ErrBadName      = errors.New("invalid display name")
	ErrNameTaken    = errors.New("display name already taken")
	ErrNotAuthority = errors.New("another process holds this room")
)

// LobbyField is the top-level document field holding the Lobby. Every
// other field belongs to the running game.
const LobbyField = "lobby"

const (
	codeLength    = 8
	codeAlphabet  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxNameLength = 24
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Lobby is the room's own bookkeeping, stored next to the game state.
type Lobby struct {
	Code    string          `json:"code"`
	Game    string          `json:"game"`
	Host    *string         `json:"host"`
	Status  Status          `json:"status"`
	Roster  []engine.Player `json:"roster"`
	Played  int             `json:"played"`
	Created time.Time       `json:"created"`
	Updated time.Time       `json:"updated"`
}

// Summary describes a finished game.
type Summary struct {
	ID        string
	Room      string
	Game      string
	Roster    []engine.Player
	Standings []engine.Standing
	Finished  time.Time
}

// Hooks are optional callbacks fired after writes.
type Hooks struct {
	Applied  func(game, kind string)
	Rejected func(game, kind string, err error)
	Finished func(ctx context.Context, s Summary)
}

type Options struct {
	Store    store.Store
	Registry *Registry
	Source   engine.Source
	Hooks    Hooks

	// Lease is how long a write keeps this manager authoritative for a
	// room; defaults to a minute.
	Lease time.Duration

	// Owner identifies this manager to the lease; defaults to a random id.
	Owner string
}

type Manager struct {
	store    store.Store
	registry *Registry
	src      engine.Source
	hooks    Hooks
	lease    time.Duration
	owner    string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	active map[string]time.Time

	now func() time.Time
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		store:    opts.Store,
		registry: opts.Registry,
		src:      opts.Source,
		hooks:    opts.Hooks,
		lease:    opts.Lease,
		owner:    opts.Owner,
		locks:    make(map[string]*sync.Mutex),
		active:   make(map[string]time.Time),
		now:      time.Now,
	}
	if m.registry == nil {
		m.registry = DefaultRegistry()
	}
	if m.src == nil {
		m.src = engine.NewCrypto()
	}
	if m.lease <= 0 {
		m.lease = time.Minute
	}
	if m.owner == "" {
		m.owner = uuid.NewString()
	}

	return m
}

func (m *Manager) Registry() *Registry { return m.registry }

func (m *Manager) lock(code string) func() {
	m.mu.Lock()
	l, ok := m.locks[code]
	if !ok {
		l = &sync.Mutex{}
		m.locks[code] = l
	}
	m.active[code] = m.now()
	m.mu.Unlock()

	l.Lock()

	return l.Unlock
}

func (m *Manager) forget(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, code)
	delete(m.active, code)
}

// newCode draws a random room code, retrying on collision with an
// existing room.
func (m *Manager) newCode(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, codeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating room code: %w", err)
		}
		out := make([]byte, codeLength)
		for i := range out {
			out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(out)

		_, err := m.store.Load(ctx, code)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return code, nil
		case err != nil:
			return "", err
		}
	}
}

func splitDoc(doc patch.Document) (Lobby, patch.Document, error) {
	var l Lobby
	raw, ok := doc[LobbyField]
	if !ok {
		return l, nil, ErrNotFound
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		return l, nil, fmt.Errorf("decoding lobby: %w", err)
	}
	if l.Roster == nil {
		l.Roster = []engine.Player{}
	}

	game := maps.Clone(doc)
	delete(game, LobbyField)
	for k, v := range game {
		if string(v) == string(patch.Null) {
			delete(game, k)
		}
	}

	return l, game, nil
}

func joinDoc(l Lobby, game patch.Document) (patch.Document, error) {
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encoding lobby: %w", err)
	}

	doc := maps.Clone(game)
	if doc == nil {
		doc = patch.Document{}
	}
	doc[LobbyField] = raw

	return doc, nil
}

// mutate runs fn against the current room under the process-local lock and
// the store lease, then writes whatever changed.
func (m *Manager) mutate(ctx context.Context, code string, fn func(l *Lobby, game patch.Document) (patch.Document, error)) (Lobby, error) {
	unlock := m.lock(code)
	defer unlock()

	ok, err := m.store.Claim(ctx, code, m.owner, m.lease)
	if err != nil {
		return Lobby{}, err
	}
	if !ok {
		return Lobby{}, ErrNotAuthority
	}

	prev, err := m.store.Load(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return Lobby{}, ErrNotFound
	}
	if err != nil {
		return Lobby{}, err
	}

	l, game, err := splitDoc(prev)
	if err != nil {
		return Lobby{}, err
	}

	game, err = fn(&l, game)
	if err != nil {
		return l, err
	}
	l.Updated = m.now()

	next, err := joinDoc(l, game)
	if err != nil {
		return l, err
	}

	if p := patch.Diff(prev, next); !p.Empty() {
		if err := m.store.Apply(ctx, code, p); err != nil {
			return l, err
		}
	}

	return l, nil
}

// Create opens a new lobby for game and returns its code.
func (m *Manager) Create(ctx context.Context, game string) (string, error) {
	if _, ok := m.registry.Get(game); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, game)
	}

	code, err := m.newCode(ctx)
	if err != nil {
		return "", err
	}

	unlock := m.lock(code)
	defer unlock()

	if ok, err := m.store.Claim(ctx, code, m.owner, m.lease); err != nil || !ok {
		return "", errors.Join(ErrNotAuthority, err)
	}

	now := m.now()
	doc, err := joinDoc(Lobby{
		Code:    code,
		Game:    game,
		Status:  StatusWaiting,
		Roster:  []engine.Player{},
		Created: now,
		Updated: now,
	}, nil)
	if err != nil {
		return "", err
	}

	if err := m.store.Apply(ctx, code, patch.Patch(doc)); err != nil {
		return "", err
	}

	return code, nil
}

// Lobby returns the room's bookkeeping.
func (m *Manager) Lobby(ctx context.Context, code string) (Lobby, error) {
	doc, err := m.store.Load(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return Lobby{}, ErrNotFound
	}
	if err != nil {
		return Lobby{}, err
	}

	l, _, err := splitDoc(doc)

	return l, err
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}

	return name, nil
}

// Join adds p to the lobby. A player already in the roster may rejoin at
// any time and rename while the lobby is open.
func (m *Manager) Join(ctx context.Context, code string, p engine.Player) (Lobby, error) {
	name, err := cleanName(p.Name)
	if err != nil {
		return Lobby{}, err
	}
	if p.ID == "" {
		return Lobby{}, fmt.Errorf("%w: empty player id", ErrBadName)
	}

	return m.mutate(ctx, code, func(l *Lobby, game patch.Document) (patch.Document, error) {
		i := slices.IndexFunc(l.Roster, func(q engine.Player) bool { return q.ID == p.ID })

		if i >= 0 && l.Status != StatusWaiting {
			return game, nil
		}
		if i < 0 && l.Status != StatusWaiting {
			return nil, ErrLobbyClosed
		}

		for j, q := range l.Roster {
			if j != i && strings.EqualFold(q.Name, name) {
				return nil, fmt.Errorf("%w: %q", ErrNameTaken, name)
			}
		}

		if i >= 0 {
			l.Roster[i].Name = name
			return game, nil
		}

		e, _ := m.registry.Get(l.Game)
		if e != nil && len(l.Roster) >= e.MaxPlayers() {
			return nil, ErrRoomFull
		}

		l.Roster = append(l.Roster, engine.Player{ID: p.ID, Name: name})
		if l.Host == nil {
			host := p.ID
			l.Host = &host
		}

		return game, nil
	})
}

// Leave removes id from the roster, hands the host role to the next
// player in line and deletes the room once nobody is left. A running game
// holds every seat, so leaving it fails with ErrInGame.
func (m *Manager) Leave(ctx context.Context, code, id string) (Lobby, error) {
	l, err := m.mutate(ctx, code, func(l *Lobby, game patch.Document) (patch.Document, error) {
		i := slices.IndexFunc(l.Roster, func(q engine.Player) bool { return q.ID == id })
		if i < 0 {
			return nil, ErrNotInRoom
		}
		if l.Status == StatusPlaying {
			return nil, ErrInGame
		}
		l.Roster = slices.Delete(l.Roster, i, i+1)

		if l.Host != nil && *l.Host == id {
			l.Host = nil
			if len(l.Roster) > 0 {
				next := l.Roster[0].ID
				l.Host = &next
			}
		}

		return game, nil
	})
	if err != nil {
		return l, err
	}

	if len(l.Roster) == 0 {
		if err := m.Delete(ctx, code); err != nil {
			return l, err
		}
	}

	return l, nil
}

func (m *Manager) requireHost(l *Lobby, actor string) error {
	if l.Host == nil || *l.Host != actor {
		return ErrNotHost
	}

	return nil
}

func (m *Manager) engineFor(l *Lobby) (Engine, error) {
	e, ok := m.registry.Get(l.Game)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, l.Game)
	}

	return e, nil
}

// Start deals a new game for the current roster. Only the host may start.
func (m *Manager) Start(ctx context.Context, code, actor string) (Lobby, error) {
	return m.mutate(ctx, code, func(l *Lobby, _ patch.Document) (patch.Document, error) {
		if err := m.requireHost(l, actor); err != nil {
			return nil, err
		}
		if l.Status != StatusWaiting {
			return nil, ErrLobbyClosed
		}

		return m.deal(l)
	})
}

func (m *Manager) deal(l *Lobby) (patch.Document, error) {
	e, err := m.engineFor(l)
	if err != nil {
		return nil, err
	}

	game, err := e.Start(slices.Clone(l.Roster), m.src)
	if err != nil {
		return nil, err
	}
	l.Status = StatusPlaying

	return game, nil
}

// Submit runs one intent through the game's rules. Rejected intents leave
// the room untouched and come back as errors wrapping
// engine.ErrInvalidIntent.
func (m *Manager) Submit(ctx context.Context, code string, in engine.Intent) (Lobby, error) {
	var (
		game    string
		summary *Summary
	)

	l, err := m.mutate(ctx, code, func(l *Lobby, doc patch.Document) (patch.Document, error) {
		game = l.Game

		if l.Status != StatusPlaying {
			return nil, ErrNotPlaying
		}
		if !slices.ContainsFunc(l.Roster, func(q engine.Player) bool { return q.ID == in.Actor }) {
			return nil, ErrNotInRoom
		}

		e, err := m.engineFor(l)
		if err != nil {
			return nil, err
		}

		next, out, err := e.Apply(doc, in, m.src)
		if err != nil {
			return nil, err
		}

		if out.Over {
			l.Status = StatusFinished
			l.Played++
			summary = &Summary{
				ID:        uuid.NewString(),
				Room:      l.Code,
				Game:      l.Game,
				Roster:    slices.Clone(l.Roster),
				Standings: out.Standings,
				Finished:  m.now(),
			}
		}

		return next, nil
	})

	switch {
	case err != nil:
		if m.hooks.Rejected != nil {
			m.hooks.Rejected(game, in.Kind, err)
		}
		return l, err
	case m.hooks.Applied != nil:
		m.hooks.Applied(game, in.Kind)
	}

	if summary != nil && m.hooks.Finished != nil {
		m.hooks.Finished(ctx, *summary)
	}

	return l, nil
}

// Reset is play again: a fresh deal for the same roster. With lobby set
// it instead clears the game and reopens the lobby.
func (m *Manager) Reset(ctx context.Context, code, actor string, lobby bool) (Lobby, error) {
	return m.mutate(ctx, code, func(l *Lobby, _ patch.Document) (patch.Document, error) {
		if err := m.requireHost(l, actor); err != nil {
			return nil, err
		}

		if lobby {
			l.Status = StatusWaiting
			return patch.Document{}, nil
		}

		return m.deal(l)
	})
}

// Delete drops the room from the store.
func (m *Manager) Delete(ctx context.Context, code string) error {
	defer m.forget(code)

	return m.store.Delete(ctx, code)
}

// Snapshot returns the whole room document as viewer may see it.
func (m *Manager) Snapshot(ctx context.Context, code, viewer string) (patch.Document, error) {
	doc, err := m.store.Load(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return m.View(doc, viewer)
}

// View redacts a full room document for viewer.
func (m *Manager) View(doc patch.Document, viewer string) (patch.Document, error) {
	l, game, err := splitDoc(doc)
	if err != nil {
		return nil, err
	}
	if len(game) == 0 {
		return doc, nil
	}

	e, err := m.engineFor(&l)
	if err != nil {
		return nil, err
	}

	view, err := e.View(game, viewer)
	if err != nil {
		return nil, err
	}

	return joinDoc(l, view)
}

// Subscribe forwards the store subscription for a room.
func (m *Manager) Subscribe(ctx context.Context, code string) (<-chan patch.Document, func(), error) {
	return m.store.Subscribe(ctx, code)
}

// Reap deletes every room this manager has not touched since cutoff and
// returns the codes it removed. Rooms the store fails to delete stay
// tracked for the next pass and their errors are joined.
func (m *Manager) Reap(ctx context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	var idle []string
	for code, last := range m.active {
		if last.Before(cutoff) {
			idle = append(idle, code)
		}
	}
	m.mu.Unlock()
	slices.Sort(idle)

	var (
		reaped []string
		errs   []error
	)
	for _, code := range idle {
		if err := m.store.Delete(ctx, code); err != nil {
			errs = append(errs, fmt.Errorf("reaping room %s: %w", code, err))
			continue
		}
		m.forget(code)
		reaped = append(reaped, code)
	}

	return reaped, errors.Join(errs...)
}
