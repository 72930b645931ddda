/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Seednode/partyrooms/patch"
)

type memRoom struct {
	doc        patch.Document
	updated    time.Time
	subs       map[int]chan patch.Document
	owner      string
	leaseUntil time.Time
}

// Memory keeps every room in process. It is the default backend when no
// Redis address is configured, and the one tests use.
type Memory struct {
	mu      sync.Mutex
	rooms   map[string]*memRoom
	nextSub int
	closed  bool

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]*memRoom),
		now:   time.Now,
	}
}

func (m *Memory) room(name string) *memRoom {
	r, ok := m.rooms[name]
	if !ok {
		r = &memRoom{subs: make(map[int]chan patch.Document)}
		m.rooms[name] = r
	}

	return r
}

func (m *Memory) Load(_ context.Context, room string) (patch.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	r, ok := m.rooms[room]
	if !ok || r.doc == nil {
		return nil, ErrNotFound
	}

	return maps.Clone(r.doc), nil
}

func (m *Memory) Apply(_ context.Context, room string, p patch.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	r := m.room(room)
	r.doc = patch.Merge(r.doc, p)
	r.updated = m.now()

	for _, ch := range r.subs {
		offer(ch, maps.Clone(r.doc))
	}

	return nil
}

func (m *Memory) Subscribe(ctx context.Context, room string) (<-chan patch.Document, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nil, ErrClosed
	}

	r := m.room(room)
	id := m.nextSub
	m.nextSub++

	ch := make(chan patch.Document, subscriberBuffer)
	r.subs[id] = ch
	if r.doc != nil {
		ch <- maps.Clone(r.doc)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()

			if cur, ok := m.rooms[room]; ok {
				if sub, ok := cur.subs[id]; ok {
					delete(cur.subs, id)
					close(sub)
				}
			}
		})
	}
	stop := context.AfterFunc(ctx, cancel)

	return ch, func() { stop(); cancel() }, nil
}

func (m *Memory) Delete(_ context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.drop(room)

	return nil
}

func (m *Memory) drop(room string) {
	r, ok := m.rooms[room]
	if !ok {
		return
	}
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
	delete(m.rooms, room)
}

func (m *Memory) Claim(_ context.Context, room, owner string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, ErrClosed
	}

	r := m.room(room)
	now := m.now()
	if r.owner != "" && r.owner != owner && now.Before(r.leaseUntil) {
		return false, nil
	}
	r.owner = owner
	r.leaseUntil = now.Add(ttl)

	return true, nil
}

// Expire drops every room last written before cutoff and returns their
// names. Entries left behind by a Subscribe or Claim on a room that was
// never written are dropped as well once nobody listens and no lease is
// held, but they are not reported.
func (m *Memory) Expire(cutoff time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	var dropped []string
	for name, r := range m.rooms {
		switch {
		case r.doc != nil && r.updated.Before(cutoff):
			dropped = append(dropped, name)
		case r.doc == nil && len(r.subs) == 0 && !now.Before(r.leaseUntil):
			delete(m.rooms, name)
		}
	}
	for _, name := range dropped {
		m.drop(name)
	}

	return dropped
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	for name := range m.rooms {
		m.drop(name)
	}
	m.closed = true

	return nil
}
