/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outOf(ids ...string) Skip {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

// TestNextSkipsEliminated: order [P1,P2,P3], P2 out, current P1 => P3.
func TestNextSkipsEliminated(t *testing.T) {
	next, ok := Next([]string{"P1", "P2", "P3"}, "P1", outOf("P2"))
	require.True(t, ok)
	assert.Equal(t, "P3", next)
}

func TestNextWrapsAround(t *testing.T) {
	next, ok := Next([]string{"P1", "P2", "P3"}, "P3", nil)
	require.True(t, ok)
	assert.Equal(t, "P1", next)
}

func TestNextSignalsRoundComplete(t *testing.T) {
	_, ok := Next([]string{"P1", "P2"}, "P1", outOf("P1", "P2"))
	assert.False(t, ok, "nobody left to act must not look like advancement")
}

func TestNextReturnsCurrentWhenAlone(t *testing.T) {
	next, ok := Next([]string{"P1", "P2", "P3"}, "P2", outOf("P1", "P3"))
	require.True(t, ok)
	assert.Equal(t, "P2", next)
}

func TestNextFromUnknownCurrentStartsAtFront(t *testing.T) {
	next, ok := Next([]string{"P1", "P2"}, "nobody", nil)
	require.True(t, ok)
	assert.Equal(t, "P1", next)
}

func TestSurvivorsKeepsRelativeOrder(t *testing.T) {
	got := Survivors([]string{"a", "b", "c", "d"}, outOf("b", "d"))
	assert.Equal(t, []string{"a", "c"}, got)
}

func TestStarter(t *testing.T) {
	order := []string{"a", "b", "c"}

	s, ok := Starter(order, "b", outOf())
	require.True(t, ok)
	assert.Equal(t, "b", s)

	s, ok = Starter(order, "b", outOf("a", "b"))
	require.True(t, ok)
	assert.Equal(t, "c", s)

	s, ok = StarterAfter(order, "b", outOf("b"))
	require.True(t, ok)
	assert.Equal(t, "c", s)

	s, ok = StarterAfter(order, "c", outOf("c"))
	require.True(t, ok)
	assert.Equal(t, "a", s)
}

func TestApplyPenaltyClampsAtZero(t *testing.T) {
	for _, tc := range []struct {
		life, penalty, want int
		out                 bool
	}{
		{3, 1, 2, false},
		{1, 1, 0, true},
		{1, 2, 0, true},
		{0, 2, 0, true},
	} {
		life, out := ApplyPenalty(tc.life, tc.penalty)
		assert.Equal(t, tc.want, life)
		assert.Equal(t, tc.out, out)
	}
}

func TestOutcome(t *testing.T) {
	over, winner := Outcome([]string{"a", "b", "c"}, outOf("a"))
	assert.False(t, over)
	assert.Nil(t, winner)

	over, winner = Outcome([]string{"a", "b", "c"}, outOf("a", "c"))
	assert.True(t, over)
	require.NotNil(t, winner)
	assert.Equal(t, "b", *winner)

	over, winner = Outcome([]string{"a", "b"}, outOf("a", "b"))
	assert.True(t, over)
	assert.Nil(t, winner, "zero survivors is a draw")
}

func TestWeakestReturnsAllTies(t *testing.T) {
	got := Weakest([]Scored{{"P1", 4}, {"P2", 102}, {"P3", 4}})
	assert.Equal(t, []string{"P1", "P3"}, got)

	assert.Equal(t, []string{"P2"}, Strongest([]Scored{{"P1", 4}, {"P2", 102}, {"P3", 4}}))
	assert.Empty(t, Weakest(nil))
	assert.NotNil(t, Weakest(nil))
}

func TestShuffleIsPermutationAndDeterministic(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}

	a := Shuffle(NewSeeded(7), in)
	b := Shuffle(NewSeeded(7), in)
	assert.Equal(t, a, b)
	assert.ElementsMatch(t, in, a)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, in, "input must not be mutated")
}

func TestSequenceSource(t *testing.T) {
	s := NewSequence(3, 9, -1)
	assert.Equal(t, 3, s.Intn(6))
	assert.Equal(t, 3, s.Intn(6))
	assert.Equal(t, 1, s.Intn(6))
	assert.Equal(t, 0, s.Intn(6))
}

func TestPlacesShareTies(t *testing.T) {
	scores := []int{9, 7, 7, 3, 3, 3, 1}
	places := Places(scores, func(a, b int) int { return b - a })
	assert.Equal(t, []int{1, 2, 2, 4, 4, 4, 7}, places)
	assert.Empty(t, Places([]int{}, func(a, b int) int { return 0 }))
}

func TestCryptoSourceInRange(t *testing.T) {
	src := NewCrypto()
	for range 100 {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestValidateRoster(t *testing.T) {
	ok := []Player{{ID: "a"}, {ID: "b"}}
	require.NoError(t, ValidateRoster(ok, 2, 4))

	err := ValidateRoster([]Player{{ID: "a"}}, 2, 4)
	assert.ErrorIs(t, err, ErrBadRoster)

	err = ValidateRoster([]Player{{ID: "a"}, {ID: "a"}}, 2, 4)
	assert.ErrorIs(t, err, ErrBadRoster)

	err = ValidateRoster([]Player{{ID: "a"}, {ID: ""}}, 2, 4)
	assert.ErrorIs(t, err, ErrBadRoster)
}

func TestRejectionTaxonomy(t *testing.T) {
	assert.True(t, IsRejection(ErrNotYourTurn))
	assert.True(t, IsRejection(Reject(ErrResting, "player %s", "x")))
	assert.False(t, IsRejection(ErrResourceExhausted))
	assert.False(t, IsRejection(errors.New("boom")))
}

func TestIntentDecode(t *testing.T) {
	var v struct{ N int }
	require.NoError(t, NewIntent("a", "declare", map[string]int{"n": 3}).Decode(&v))
	assert.Equal(t, 3, v.N)

	err := Intent{Actor: "a", Kind: "declare"}.Decode(&v)
	assert.ErrorIs(t, err, ErrBadPayload)

	err = Intent{Actor: "a", Kind: "declare", Payload: []byte("{")}.Decode(&v)
	assert.ErrorIs(t, err, ErrInvalidIntent)
}
