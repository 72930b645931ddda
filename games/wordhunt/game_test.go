/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package wordhunt

import (
	"testing"

	"github.com/Seednode/partyrooms/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(ids ...string) []engine.Player {
	out := make([]engine.Player, len(ids))
	for i, id := range ids {
		out[i] = engine.Player{ID: id, Name: id}
	}
	return out
}

// hunting starts a game in roster order with the given words already chosen.
func hunting(t *testing.T, ids []string, words []string) State {
	t.Helper()
	s, err := Start(roster(ids...), DefaultConfig(), engine.NewSeeded(4))
	require.NoError(t, err)
	s.TurnOrder = append([]string{}, ids...)

	for i, id := range ids {
		s, err = SubmitWord(s, id, words[i])
		require.NoError(t, err)
	}
	require.Equal(t, PhaseHunting, s.Phase)
	return s
}

func call(t *testing.T, s State, actor, c string) State {
	t.Helper()
	s, _, err := CallChar(s, actor, c)
	require.NoError(t, err)
	return s
}

func TestNormalizeWord(t *testing.T) {
	w, err := NormalizeWord("ＡＢＣ", 2, 7)
	require.NoError(t, err)
	assert.Equal(t, "abc", w)

	w, err = NormalizeWord("  Hello ", 2, 7)
	require.NoError(t, err)
	assert.Equal(t, "hello", w)

	_, err = NormalizeWord("ab1", 2, 7)
	assert.ErrorIs(t, err, ErrNotLetters)

	_, err = NormalizeWord("a", 2, 7)
	assert.ErrorIs(t, err, ErrLength)

	_, err = NormalizeWord("abcdefgh", 2, 7)
	assert.ErrorIs(t, err, ErrLength)
}

func TestNormalizeChar(t *testing.T) {
	c, err := NormalizeChar("Ｑ")
	require.NoError(t, err)
	assert.Equal(t, "q", c)

	_, err = NormalizeChar("ab")
	assert.Error(t, err)

	_, err = NormalizeChar("?")
	assert.ErrorIs(t, err, ErrNotLetters)
}

func TestHuntingStartsOnceEveryoneChose(t *testing.T) {
	s, err := Start(roster("a", "b"), DefaultConfig(), engine.NewSeeded(1))
	require.NoError(t, err)
	s.TurnOrder = []string{"b", "a"}

	s, err = SubmitWord(s, "a", "cat")
	require.NoError(t, err)
	assert.Equal(t, PhaseChoosing, s.Phase)

	_, err = SubmitWord(s, "a", "dog")
	assert.ErrorIs(t, err, engine.ErrAlreadyActed)

	_, err = SubmitWord(s, "b", "x1")
	assert.ErrorIs(t, err, engine.ErrBadPayload)

	s, err = SubmitWord(s, "b", "dog")
	require.NoError(t, err)
	assert.Equal(t, PhaseHunting, s.Phase)
	assert.Equal(t, "b", *s.Current)
	assert.Len(t, s.Players[0].Revealed, 3)
}

func TestCallRevealsEveryWordIncludingCaller(t *testing.T) {
	s := hunting(t, []string{"a", "b"}, []string{"apple", "pear"})

	s = call(t, s, "a", "p")
	assert.Equal(t, []bool{false, true, true, false, false}, s.Players[0].Revealed)
	assert.Equal(t, []bool{true, false, false, false}, s.Players[1].Revealed)
	assert.Equal(t, map[string][]int{"a": {1, 2}, "b": {0}}, s.LastCall.Hits)
	assert.True(t, s.LastCall.Again)
	assert.Equal(t, "a", *s.Current, "hitting another word keeps the turn")
}

func TestMissOrSelfHitPassesTurn(t *testing.T) {
	s := hunting(t, []string{"a", "b", "c"}, []string{"dog", "cat", "emu"})

	s = call(t, s, "a", "z")
	assert.Equal(t, "b", *s.Current)

	s = call(t, s, "b", "t")
	assert.Equal(t, "c", *s.Current, "only the caller's own word was hit")
	assert.False(t, s.LastCall.Again)
}

func TestCallRejections(t *testing.T) {
	s := hunting(t, []string{"a", "b"}, []string{"dog", "cat"})

	_, _, err := CallChar(s, "b", "x")
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)

	s = call(t, s, "a", "x")
	_, _, err = CallChar(s, "b", "X")
	assert.ErrorIs(t, err, engine.ErrBadPayload, "calls are compared after folding")

	_, _, err = CallChar(s, "b", "")
	assert.ErrorIs(t, err, engine.ErrBadPayload)
}

func TestEliminationAndWinner(t *testing.T) {
	s := hunting(t, []string{"a", "b", "c"}, []string{"ab", "cd", "ce"})

	s = call(t, s, "a", "c")
	assert.Equal(t, "a", *s.Current)

	s = call(t, s, "a", "d")
	require.True(t, s.Players[1].Eliminated)
	assert.Equal(t, 1, s.Players[1].EliminatedAt)
	assert.Equal(t, []string{"b"}, s.LastCall.Eliminated)
	assert.Equal(t, "a", *s.Current)

	s, res, err := CallChar(s, "a", "e")
	require.NoError(t, err)
	assert.True(t, s.Over())
	require.NotNil(t, s.Winner)
	assert.Equal(t, "a", *s.Winner)
	assert.Equal(t, []string{"a"}, res.Winners)
	assert.Nil(t, s.Current)

	standings := s.Standings()
	assert.Equal(t, []string{"a", "c", "b"}, []string{standings[0].ID, standings[1].ID, standings[2].ID})
}

func TestCallerCanKnockThemselvesOut(t *testing.T) {
	s := hunting(t, []string{"a", "b", "c"}, []string{"ab", "xyz", "bq"})

	s = call(t, s, "a", "a")
	assert.Equal(t, "b", *s.Current)

	s = call(t, s, "b", "b")
	assert.True(t, s.Players[0].Eliminated)
	assert.Equal(t, "b", *s.Current)

	s = call(t, s, "b", "q")
	assert.True(t, s.Players[2].Eliminated)
	assert.True(t, s.Over())
	assert.Equal(t, "b", *s.Winner)
}

func TestSimultaneousEliminationDraw(t *testing.T) {
	s := hunting(t, []string{"a", "b"}, []string{"aa", "aa"})

	s = call(t, s, "a", "a")
	assert.True(t, s.Over())
	assert.Nil(t, s.Winner)
	assert.Equal(t, s.Players[0].EliminatedAt, s.Players[1].EliminatedAt)
}

func TestRedactMasksOtherWords(t *testing.T) {
	s := hunting(t, []string{"a", "b"}, []string{"dog", "cat"})
	s = call(t, s, "a", "a")

	view := s.Redact("a")
	assert.Equal(t, "dog", view.Players[0].Word)
	assert.Equal(t, "_a_", view.Players[1].Word)
	assert.Equal(t, "cat", s.Players[1].Word)
}

func TestApplyDispatch(t *testing.T) {
	s, err := Start(roster("a", "b"), DefaultConfig(), engine.NewSeeded(1))
	require.NoError(t, err)
	s.TurnOrder = []string{"a", "b"}

	s, err = Apply(s, engine.NewIntent("a", KindWord, map[string]string{"word": "owl"}), nil)
	require.NoError(t, err)
	s, err = Apply(s, engine.NewIntent("b", KindWord, map[string]string{"word": "bee"}), nil)
	require.NoError(t, err)

	s, err = Apply(s, engine.NewIntent("a", KindCall, map[string]string{"char": "e"}), nil)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, true}, s.Players[1].Revealed)

	_, err = Apply(s, engine.NewIntent("a", "shout", nil), nil)
	assert.ErrorIs(t, err, engine.ErrBadPayload)
}
