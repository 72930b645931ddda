/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Seednode/partyrooms/engine"
	"github.com/Seednode/partyrooms/games/bluff"
	"github.com/Seednode/partyrooms/games/dice"
	"github.com/Seednode/partyrooms/games/gems"
	"github.com/Seednode/partyrooms/games/wordhunt"
	"github.com/Seednode/partyrooms/patch"
	"github.com/Seednode/partyrooms/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, s store.Store, hooks Hooks) *Manager {
	t.Helper()
	return NewManager(Options{
		Store:  s,
		Source: engine.NewSeeded(7),
		Hooks:  hooks,
		Owner:  t.Name(),
	})
}

func lobby(t *testing.T, m *Manager, game string, ids ...string) string {
	t.Helper()
	ctx := context.Background()

	code, err := m.Create(ctx, game)
	require.NoError(t, err)
	for _, id := range ids {
		_, err := m.Join(ctx, code, engine.Player{ID: id, Name: "name-" + id})
		require.NoError(t, err)
	}

	return code
}

func wordState(t *testing.T, m *Manager, code string) wordhunt.State {
	t.Helper()
	doc, err := m.store.Load(context.Background(), code)
	require.NoError(t, err)
	_, game, err := splitDoc(doc)
	require.NoError(t, err)

	var s wordhunt.State
	require.NoError(t, patch.Decode(game, &s))
	return s
}

func TestCreateRejectsUnknownGame(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	_, err := m.Create(context.Background(), "chess")
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestJoinAndHost(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "dice", "a", "b")

	l, err := m.Lobby(ctx, code)
	require.NoError(t, err)
	assert.Len(t, code, codeLength)
	assert.Equal(t, StatusWaiting, l.Status)
	require.NotNil(t, l.Host)
	assert.Equal(t, "a", *l.Host, "first player in becomes host")

	_, err = m.Join(ctx, code, engine.Player{ID: "c", Name: "NAME-A"})
	assert.ErrorIs(t, err, ErrNameTaken)
	_, err = m.Join(ctx, code, engine.Player{ID: "c", Name: "   "})
	assert.ErrorIs(t, err, ErrBadName)

	l, err = m.Join(ctx, code, engine.Player{ID: "b", Name: "bee"})
	require.NoError(t, err)
	assert.Len(t, l.Roster, 2, "rejoin renames in place")
	assert.Equal(t, "bee", l.Roster[1].Name)

	_, err = m.Join(ctx, "NOPE", engine.Player{ID: "x", Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomFull(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	code := lobby(t, m, "blocks", "a", "b", "c", "d")

	_, err := m.Join(context.Background(), code, engine.Player{ID: "e", Name: "e"})
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestLeaveReassignsHostAndDeletesEmptyRoom(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "dice", "a", "b")

	l, err := m.Leave(ctx, code, "a")
	require.NoError(t, err)
	require.NotNil(t, l.Host)
	assert.Equal(t, "b", *l.Host)

	_, err = m.Leave(ctx, code, "a")
	assert.ErrorIs(t, err, ErrNotInRoom)

	_, err = m.Leave(ctx, code, "b")
	require.NoError(t, err)
	_, err = m.Lobby(ctx, code)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaveMidGameKeepsSeat(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "dice", "a", "b", "c")

	_, err := m.Start(ctx, code, "a")
	require.NoError(t, err)

	state := func() dice.State {
		doc, err := m.store.Load(ctx, code)
		require.NoError(t, err)
		return gameOf[dice.State](t, doc)
	}

	cur := *state().Current
	_, err = m.Leave(ctx, code, cur)
	assert.ErrorIs(t, err, ErrInGame)

	l, err := m.Lobby(ctx, code)
	require.NoError(t, err)
	assert.Len(t, l.Roster, 3)

	for range 500 {
		s := state()
		if s.Over() {
			break
		}

		in := engine.NewIntent("", dice.KindNextRound, nil)
		if s.Phase == dice.PhaseRolling {
			in = engine.NewIntent(*s.Current, dice.KindRoll, nil)
		} else {
			for _, p := range s.Players {
				if !p.Eliminated {
					in.Actor = p.ID
					break
				}
			}
		}
		_, err = m.Submit(ctx, code, in)
		require.NoError(t, err)
	}

	l, err = m.Lobby(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, l.Status)

	_, err = m.Leave(ctx, code, cur)
	assert.NoError(t, err, "a finished game releases its seats")
}

func TestStartRules(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "dice", "a", "b")

	_, err := m.Start(ctx, code, "b")
	assert.ErrorIs(t, err, ErrNotHost)

	_, err = m.Submit(ctx, code, engine.NewIntent("a", "roll", nil))
	assert.ErrorIs(t, err, ErrNotPlaying)

	l, err := m.Start(ctx, code, "a")
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, l.Status)

	_, err = m.Start(ctx, code, "a")
	assert.ErrorIs(t, err, ErrLobbyClosed)

	_, err = m.Join(ctx, code, engine.Player{ID: "c", Name: "c"})
	assert.ErrorIs(t, err, ErrLobbyClosed)

	_, err = m.Join(ctx, code, engine.Player{ID: "a", Name: "renamed"})
	assert.NoError(t, err, "players already seated may reconnect")
}

func TestStartNeedsEnoughPlayers(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	code := lobby(t, m, "dice", "a")

	_, err := m.Start(context.Background(), code, "a")
	assert.ErrorIs(t, err, engine.ErrBadRoster)
}

func TestSubmitPlaysToTheEnd(t *testing.T) {
	var (
		applied  []string
		rejected []error
		finished []Summary
	)
	m := newManager(t, store.NewMemory(), Hooks{
		Applied:  func(_, kind string) { applied = append(applied, kind) },
		Rejected: func(_, _ string, err error) { rejected = append(rejected, err) },
		Finished: func(_ context.Context, s Summary) { finished = append(finished, s) },
	})
	ctx := context.Background()
	code := lobby(t, m, "wordhunt", "a", "b")

	_, err := m.Start(ctx, code, "a")
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		_, err := m.Submit(ctx, code, engine.NewIntent(id, wordhunt.KindWord, map[string]string{"word": "ab"}))
		require.NoError(t, err)
	}

	s := wordState(t, m, code)
	require.Equal(t, wordhunt.PhaseHunting, s.Phase)
	require.NotNil(t, s.Current)
	caller := *s.Current
	other := "a"
	if caller == "a" {
		other = "b"
	}

	before, err := m.store.Load(ctx, code)
	require.NoError(t, err)
	_, err = m.Submit(ctx, code, engine.NewIntent(other, wordhunt.KindCall, map[string]string{"char": "a"}))
	assert.ErrorIs(t, err, engine.ErrInvalidIntent)
	after, err := m.store.Load(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected intents leave the room untouched")

	_, err = m.Submit(ctx, code, engine.NewIntent("zed", wordhunt.KindCall, map[string]string{"char": "a"}))
	assert.ErrorIs(t, err, ErrNotInRoom)

	_, err = m.Submit(ctx, code, engine.NewIntent(caller, wordhunt.KindCall, map[string]string{"char": "a"}))
	require.NoError(t, err)
	l, err := m.Submit(ctx, code, engine.NewIntent(caller, wordhunt.KindCall, map[string]string{"char": "b"}))
	require.NoError(t, err)

	assert.Equal(t, StatusFinished, l.Status)
	assert.Equal(t, 1, l.Played)
	assert.Equal(t, []string{"word", "word", "call", "call"}, applied)
	assert.Len(t, rejected, 2)
	require.Len(t, finished, 1)
	assert.Equal(t, "wordhunt", finished[0].Game)
	assert.Equal(t, code, finished[0].Room)
	assert.Len(t, finished[0].Standings, 2)

	_, err = m.Submit(ctx, code, engine.NewIntent(caller, wordhunt.KindCall, map[string]string{"char": "c"}))
	assert.ErrorIs(t, err, ErrNotPlaying)
}

func TestResetDealsAgainOrReopensLobby(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "wordhunt", "a", "b")

	_, err := m.Start(ctx, code, "a")
	require.NoError(t, err)
	_, err = m.Submit(ctx, code, engine.NewIntent("a", wordhunt.KindWord, map[string]string{"word": "ab"}))
	require.NoError(t, err)

	_, err = m.Reset(ctx, code, "b", false)
	assert.ErrorIs(t, err, ErrNotHost)

	l, err := m.Reset(ctx, code, "a", false)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, l.Status)
	s := wordState(t, m, code)
	assert.False(t, s.Players[0].Ready, "a fresh deal forgets old words")

	l, err = m.Reset(ctx, code, "a", true)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, l.Status)

	doc, err := m.Snapshot(ctx, code, "a")
	require.NoError(t, err)
	_, game, err := splitDoc(doc)
	require.NoError(t, err)
	assert.Empty(t, game, "lobby holds no game state")

	_, err = m.Join(ctx, code, engine.Player{ID: "c", Name: "c"})
	assert.NoError(t, err)
}

func TestSnapshotRedactsForViewer(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "wordhunt", "a", "b")

	_, err := m.Start(ctx, code, "a")
	require.NoError(t, err)
	_, err = m.Submit(ctx, code, engine.NewIntent("a", wordhunt.KindWord, map[string]string{"word": "secret"}))
	require.NoError(t, err)

	view := func(viewer string) wordhunt.State {
		doc, err := m.Snapshot(ctx, code, viewer)
		require.NoError(t, err)
		_, game, err := splitDoc(doc)
		require.NoError(t, err)
		var s wordhunt.State
		require.NoError(t, patch.Decode(game, &s))
		return s
	}

	assert.Equal(t, "secret", view("a").Players[0].Word)
	assert.NotContains(t, view("b").Players[0].Word, "s")
}

func gameOf[S any](t *testing.T, doc patch.Document) S {
	t.Helper()
	_, game, err := splitDoc(doc)
	require.NoError(t, err)

	var s S
	require.NoError(t, patch.Decode(game, &s))
	return s
}

func TestSnapshotHidesOwnBluffCardAndPile(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "bluff", "a", "b")

	_, err := m.Start(ctx, code, "a")
	require.NoError(t, err)

	stored, err := m.store.Load(ctx, code)
	require.NoError(t, err)
	raw := gameOf[bluff.State](t, stored)
	require.NotEmpty(t, raw.Pile)

	doc, err := m.Snapshot(ctx, code, "a")
	require.NoError(t, err)
	view := gameOf[bluff.State](t, doc)

	assert.Nil(t, view.Players[0].Card, "a cannot see their own card")
	require.NotNil(t, view.Players[1].Card, "a sees b's card")
	assert.Equal(t, *raw.Players[1].Card, *view.Players[1].Card)
	assert.Empty(t, view.Pile)
	assert.Empty(t, view.Discard)
	assert.Equal(t, len(raw.Pile), view.PileSize)

	doc, err = m.Snapshot(ctx, code, "b")
	require.NoError(t, err)
	view = gameOf[bluff.State](t, doc)
	assert.NotNil(t, view.Players[0].Card)
	assert.Nil(t, view.Players[1].Card)
}

func TestSnapshotHidesGemBag(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx := context.Background()
	code := lobby(t, m, "gems", "a", "b")

	_, err := m.Start(ctx, code, "a")
	require.NoError(t, err)

	stored, err := m.store.Load(ctx, code)
	require.NoError(t, err)
	raw := gameOf[gems.State](t, stored)
	require.NotEmpty(t, raw.Bag)

	doc, err := m.Snapshot(ctx, code, "a")
	require.NoError(t, err)
	view := gameOf[gems.State](t, doc)
	assert.Empty(t, view.Bag)
	assert.Equal(t, len(raw.Bag), view.BagSize)
	assert.Equal(t, raw.Market, view.Market)
}

func TestLeaseKeepsOtherManagersOut(t *testing.T) {
	s := store.NewMemory()
	one := NewManager(Options{Store: s, Owner: "one"})
	two := NewManager(Options{Store: s, Owner: "two"})
	ctx := context.Background()

	code, err := one.Create(ctx, "dice")
	require.NoError(t, err)

	_, err = two.Join(ctx, code, engine.Player{ID: "a", Name: "a"})
	assert.ErrorIs(t, err, ErrNotAuthority)

	_, err = one.Join(ctx, code, engine.Player{ID: "a", Name: "a"})
	assert.NoError(t, err)
}

func TestSubscribeSeesWrites(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	code := lobby(t, m, "dice")

	ch, stop, err := m.Subscribe(ctx, code)
	require.NoError(t, err)
	defer stop()
	<-ch

	_, err = m.Join(ctx, code, engine.Player{ID: "a", Name: "a"})
	require.NoError(t, err)

	select {
	case doc := <-ch:
		l, _, err := splitDoc(doc)
		require.NoError(t, err)
		assert.Len(t, l.Roster, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered")
	}
}

func TestReap(t *testing.T) {
	m := newManager(t, store.NewMemory(), Hooks{})
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	old := lobby(t, m, "dice", "a")
	now = now.Add(time.Hour)
	fresh := lobby(t, m, "dice", "a")

	reaped, err := m.Reap(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{old}, reaped)

	_, err = m.Lobby(ctx, old)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Lobby(ctx, fresh)
	assert.NoError(t, err)
}

type brokenDeletes struct {
	store.Store
	fail bool
}

var errDeleteFailed = errors.New("delete failed")

func (b *brokenDeletes) Delete(ctx context.Context, code string) error {
	if b.fail {
		return errDeleteFailed
	}
	return b.Store.Delete(ctx, code)
}

func TestReapReportsAndRetriesFailedDeletes(t *testing.T) {
	s := &brokenDeletes{Store: store.NewMemory(), fail: true}
	m := newManager(t, s, Hooks{})
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	code := lobby(t, m, "dice", "a")
	now = now.Add(time.Hour)

	reaped, err := m.Reap(ctx, now)
	assert.ErrorIs(t, err, errDeleteFailed)
	assert.Contains(t, err.Error(), code)
	assert.Empty(t, reaped)

	s.fail = false
	reaped, err = m.Reap(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{code}, reaped)
}

func TestRegistryNames(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{"blocks", "bluff", "dice", "gems", "wordhunt"}, r.Names())

	for _, name := range r.Names() {
		e, ok := r.Get(name)
		require.True(t, ok)
		doc, err := e.Start([]engine.Player{{ID: "a", Name: "a"}, {ID: "b", Name: "b"}}, engine.NewSeeded(1))
		require.NoError(t, err, fmt.Sprintf("starting %s", name))
		assert.NotEmpty(t, doc)
	}
}
