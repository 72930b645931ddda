/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package dice

import (
	"testing"

	"github.com/Seednode/partyrooms/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster(ids ...string) []engine.Player {
	out := make([]engine.Player, len(ids))
	for i, id := range ids {
		out[i] = engine.Player{ID: id, Name: "name-" + id}
	}
	return out
}

// newGame starts a game whose turn order is exactly the roster order.
func newGame(t *testing.T, ids ...string) State {
	t.Helper()
	s, err := Start(roster(ids...), DefaultConfig(), engine.NewSeeded(1))
	require.NoError(t, err)
	s.TurnOrder = append([]string{}, ids...)
	first := ids[0]
	s.Current = &first
	return s
}

func mustRoll(t *testing.T, s State, actor string, a, b int) State {
	t.Helper()
	next, err := Roll(s, actor, [2]int{a, b})
	require.NoError(t, err)
	return next
}

func TestRankIsOrderIndependent(t *testing.T) {
	for a := MinFace; a <= MaxFace; a++ {
		for b := MinFace; b <= MaxFace; b++ {
			ra, err := RankRoll(a, b)
			require.NoError(t, err)
			rb, err := RankRoll(b, a)
			require.NoError(t, err)
			assert.Equal(t, ra, rb, "rank(%d,%d) != rank(%d,%d)", a, b, b, a)
		}
	}
}

func TestSpecialPairPrecedence(t *testing.T) {
	special, _ := RankRoll(1, 2)
	sixes, _ := RankRoll(6, 6)
	ones, _ := RankRoll(1, 1)
	fiveSix, _ := RankRoll(5, 6)

	assert.Equal(t, CategorySpecial, special.Category)
	assert.True(t, special.Beats(sixes))
	assert.True(t, sixes.Beats(fiveSix))
	assert.True(t, sixes.Beats(ones))
	assert.True(t, ones.Beats(fiveSix), "any pair outranks any plain sum")

	twelve, _ := RankRoll(6, 6)
	four, _ := RankRoll(1, 3)
	assert.True(t, twelve.Beats(four))
}

func TestRankRejectsBadFaces(t *testing.T) {
	_, err := RankRoll(0, 3)
	assert.ErrorIs(t, err, ErrInvalidDie)
	_, err = RankRoll(3, 7)
	assert.ErrorIs(t, err, engine.ErrInvalidIntent)
}

func TestWeakestIncludesTies(t *testing.T) {
	got, err := Weakest([]Outcome{
		{ID: "P1", Dice: [2]int{1, 3}},
		{ID: "P2", Dice: [2]int{2, 2}},
		{ID: "P3", Dice: [2]int{1, 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P3"}, got)

	got, err = Weakest(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStartShufflesAndSeats(t *testing.T) {
	s, err := Start(roster("a", "b", "c"), DefaultConfig(), engine.NewSeeded(42))
	require.NoError(t, err)

	assert.Equal(t, PhaseRolling, s.Phase)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, s.TurnOrder)
	require.NotNil(t, s.Current)
	assert.Equal(t, s.TurnOrder[0], *s.Current)
	for _, p := range s.Players {
		assert.Equal(t, 3, p.Life)
	}

	_, err = Start(roster("a"), DefaultConfig(), engine.NewSeeded(1))
	assert.ErrorIs(t, err, engine.ErrBadRoster)
}

func TestRollRejectsOutOfTurn(t *testing.T) {
	s := newGame(t, "a", "b")

	_, err := Roll(s, "b", [2]int{3, 4})
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)

	_, err = Roll(s, "zed", [2]int{3, 4})
	assert.ErrorIs(t, err, engine.ErrUnknownPlayer)
}

func TestRollDoesNotMutateInput(t *testing.T) {
	s := newGame(t, "a", "b")
	_ = mustRoll(t, s, "a", 3, 4)

	assert.Nil(t, s.Players[0].Roll)
	assert.Equal(t, "a", *s.Current)
}

func TestRoundResolvesTiesTogether(t *testing.T) {
	s := newGame(t, "P1", "P2", "P3")
	s = mustRoll(t, s, "P1", 1, 3)
	s = mustRoll(t, s, "P2", 2, 2)
	s = mustRoll(t, s, "P3", 3, 1)

	assert.Equal(t, PhaseRoundEnd, s.Phase)
	require.NotNil(t, s.LastResult)
	assert.Equal(t, []string{"P1", "P3"}, s.LastResult.Losers)
	assert.Equal(t, 2, s.Players[0].Life)
	assert.Equal(t, 3, s.Players[1].Life)
	assert.Equal(t, 2, s.Players[2].Life)
	assert.Nil(t, s.Current)
}

func TestJackpotDoublesPenaltyForEveryLoser(t *testing.T) {
	s := newGame(t, "P1", "P2", "P3")
	s = mustRoll(t, s, "P1", 2, 1)
	s = mustRoll(t, s, "P2", 1, 3)
	s = mustRoll(t, s, "P3", 2, 2)

	assert.Equal(t, 3, s.Players[0].Life)
	assert.Equal(t, 1, s.Players[1].Life)
	assert.Equal(t, -2, s.LastResult.Deltas["P2"])
}

func TestEliminationAndNextRoundOrder(t *testing.T) {
	s := newGame(t, "P1", "P2", "P3")
	s.Players[1].Life = 1

	s = mustRoll(t, s, "P1", 5, 5)
	s = mustRoll(t, s, "P2", 1, 3)
	s = mustRoll(t, s, "P3", 4, 4)

	require.True(t, s.Players[1].Eliminated)
	assert.Equal(t, 0, s.Players[1].Life)
	assert.Equal(t, 1, s.Players[1].EliminatedAt)

	s, err := NextRound(s)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P3"}, s.TurnOrder)
	assert.Equal(t, "P1", *s.Current, "eliminated loser falls back to first survivor")
	assert.Equal(t, 2, s.Round)

	_, err = Roll(s, "P2", [2]int{3, 3})
	assert.ErrorIs(t, err, engine.ErrEliminated)
}

func TestSurvivingLoserStartsNextRound(t *testing.T) {
	s := newGame(t, "P1", "P2", "P3")
	s = mustRoll(t, s, "P1", 5, 5)
	s = mustRoll(t, s, "P2", 5, 6)
	s = mustRoll(t, s, "P3", 1, 3)

	s, err := NextRound(s)
	require.NoError(t, err)
	assert.Equal(t, "P3", *s.Current)
	for _, p := range s.Players {
		assert.Nil(t, p.Roll)
	}
}

func TestLastSurvivorWins(t *testing.T) {
	s := newGame(t, "a", "b")
	s.Players[1].Life = 1

	s = mustRoll(t, s, "a", 6, 6)
	s = mustRoll(t, s, "b", 1, 3)

	assert.True(t, s.Over())
	require.NotNil(t, s.Winner)
	assert.Equal(t, "a", *s.Winner)

	standings := s.Standings()
	assert.Equal(t, "a", standings[0].ID)
	assert.Equal(t, "b", standings[1].ID)
}

func TestSimultaneousEliminationIsADraw(t *testing.T) {
	s := newGame(t, "a", "b")
	s.Players[0].Life = 1
	s.Players[1].Life = 1

	s = mustRoll(t, s, "a", 3, 4)
	s = mustRoll(t, s, "b", 4, 3)

	assert.True(t, s.Over())
	assert.Nil(t, s.Winner)
	assert.True(t, s.Players[0].Eliminated)
	assert.True(t, s.Players[1].Eliminated)

	for _, st := range s.Standings() {
		assert.Equal(t, 1, st.Place, st.ID)
	}
}

func TestPlayersOutTogetherSharePlace(t *testing.T) {
	s := newGame(t, "a", "b", "c")
	s.Players[1].Life = 1
	s.Players[2].Life = 1

	s = mustRoll(t, s, "a", 6, 6)
	s = mustRoll(t, s, "b", 3, 4)
	s = mustRoll(t, s, "c", 4, 3)

	require.True(t, s.Over())
	standings := s.Standings()
	assert.Equal(t, "a", standings[0].ID)
	assert.Equal(t, []int{1, 2, 2}, []int{standings[0].Place, standings[1].Place, standings[2].Place})
}

func TestApplyDispatch(t *testing.T) {
	s := newGame(t, "a", "b")

	s, err := Apply(s, engine.NewIntent("a", KindRoll, nil), engine.NewSequence(1, 4))
	require.NoError(t, err)
	assert.Equal(t, [2]int{2, 5}, *s.Players[0].Roll)

	s, err = Apply(s, engine.NewIntent("b", KindRoll, nil), engine.NewSequence(0, 1))
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 2}, *s.Players[1].Roll)
	assert.Equal(t, PhaseRoundEnd, s.Phase)

	_, err = Apply(s, engine.NewIntent("a", "dance", nil), engine.NewSeeded(1))
	assert.True(t, engine.IsRejection(err))

	s, err = Apply(s, engine.NewIntent("a", KindNextRound, nil), engine.NewSeeded(1))
	require.NoError(t, err)
	assert.Equal(t, PhaseRolling, s.Phase)
}

func TestApplyIgnoresClientFaces(t *testing.T) {
	s := newGame(t, "a", "b")

	s, err := Apply(s, engine.NewIntent("a", KindRoll, map[string]any{"dice": [2]int{1, 2}}), engine.NewSequence(2, 3))
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 4}, *s.Players[0].Roll)
	assert.Equal(t, PhaseRolling, s.Phase)
}
