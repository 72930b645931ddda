/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import "fmt"

const (
	MinPlayers = 2
	MaxPlayers = 8
)

// Player is a roster entry as supplied by the host. The engine does not
// authenticate or deduplicate identities beyond rejecting repeated ids.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ValidateRoster checks that ids are non-empty and unique and that the
// player count is within [min, max].
func ValidateRoster(roster []Player, min, max int) error {
	if len(roster) < min || len(roster) > max {
		return fmt.Errorf("%w: need %d-%d players, have %d", ErrBadRoster, min, max, len(roster))
	}

	seen := make(map[string]bool, len(roster))
	for _, p := range roster {
		if p.ID == "" {
			return fmt.Errorf("%w: empty player id", ErrBadRoster)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate player id %q", ErrBadRoster, p.ID)
		}
		seen[p.ID] = true
	}

	return nil
}

// IDs returns the roster ids in roster order.
func IDs(roster []Player) []string {
	ids := make([]string, len(roster))
	for i, p := range roster {
		ids[i] = p.ID
	}

	return ids
}

// ApplyPenalty returns max(0, life-penalty) and whether that left the
// player eliminated.
func ApplyPenalty(life, penalty int) (int, bool) {
	life -= penalty
	if life < 0 {
		life = 0
	}

	return life, life == 0
}

// Outcome reports whether a last-player-standing game is over. The game
// ends once at most one id survives; winner is nil when nobody survives.
func Outcome(order []string, out Skip) (over bool, winner *string) {
	alive := Survivors(order, out)

	switch len(alive) {
	case 0:
		return true, nil
	case 1:
		w := alive[0]
		return true, &w
	default:
		return false, nil
	}
}

// Scored pairs an actor with a comparable rank value.
type Scored struct {
	ID    string
	Value int
}

// Weakest returns every id whose value equals the minimum, in input order.
// Ties share the outcome; an empty input yields an empty set.
func Weakest(entries []Scored) []string {
	return extreme(entries, func(a, b int) bool { return a < b })
}

// Strongest returns every id whose value equals the maximum, in input order.
func Strongest(entries []Scored) []string {
	return extreme(entries, func(a, b int) bool { return a > b })
}

func extreme(entries []Scored, better func(a, b int) bool) []string {
	ids := []string{}
	if len(entries) == 0 {
		return ids
	}

	best := entries[0].Value
	for _, e := range entries[1:] {
		if better(e.Value, best) {
			best = e.Value
		}
	}

	for _, e := range entries {
		if e.Value == best {
			ids = append(ids, e.ID)
		}
	}

	return ids
}

// Result is the discardable summary of one resolved round, kept on the
// state for display only.
type Result struct {
	Round   int            `json:"round"`
	Losers  []string       `json:"losers"`
	Winners []string       `json:"winners"`
	Deltas  map[string]int `json:"deltas"`
	Notes   []string       `json:"notes"`
}

// NewResult returns a Result with every collection initialised, so that it
// never serialises a collection as null.
func NewResult(round int) *Result {
	return &Result{
		Round:   round,
		Losers:  []string{},
		Winners: []string{},
		Deltas:  map[string]int{},
		Notes:   []string{},
	}
}

// Note appends a formatted note.
func (r *Result) Note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Normalize restores nil collections after decoding.
func (r *Result) Normalize() {
	if r == nil {
		return
	}
	if r.Losers == nil {
		r.Losers = []string{}
	}
	if r.Winners == nil {
		r.Winners = []string{}
	}
	if r.Deltas == nil {
		r.Deltas = map[string]int{}
	}
	if r.Notes == nil {
		r.Notes = []string{}
	}
}
