/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package dice implements the dice battle: everyone rolls two dice once per
// round, the weakest rolls lose life, and the last player standing wins.
package dice

import (
	"slices"

	"github.com/Seednode/partyrooms/engine"
)

// Phase is the lifecycle stage of a dice battle.
type Phase string

const (
	PhaseRolling  Phase = "rolling"
	PhaseRoundEnd Phase = "round_end"
	PhaseGameEnd  Phase = "game_end"
)

const (
	KindRoll      = "roll"
	KindNextRound = "next_round"
)

// Config holds the tunable rules.
type Config struct {
	StartingLife   int `json:"startingLife"`
	Penalty        int `json:"penalty"`
	JackpotPenalty int `json:"jackpotPenalty"`
}

// DefaultConfig returns the standard rules.
func DefaultConfig() Config {
	return Config{
		StartingLife:   3,
		Penalty:        1,
		JackpotPenalty: 2,
	}
}

// Player is one participant's public state.
type Player struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Life         int     `json:"life"`
	Eliminated   bool    `json:"eliminated"`
	EliminatedAt int     `json:"eliminatedAt"`
	Roll         *[2]int `json:"roll"`
}

// State is an immutable snapshot of a dice battle. Transitions return a new
// State and never modify their input.
type State struct {
	Phase        Phase          `json:"phase"`
	Config       Config         `json:"config"`
	Players      []Player       `json:"players"`
	TurnOrder    []string       `json:"turnOrder"`
	Current      *string        `json:"current"`
	Round        int            `json:"round"`
	Jackpot      bool           `json:"jackpot"`
	Eliminations int            `json:"eliminations"`
	Winner       *string        `json:"winner"`
	LastResult   *engine.Result `json:"lastResult"`
}

// Start seats the roster in a shuffled turn order with full life.
func Start(roster []engine.Player, cfg Config, src engine.Source) (State, error) {
	if err := engine.ValidateRoster(roster, engine.MinPlayers, engine.MaxPlayers); err != nil {
		return State{}, err
	}

	s := State{
		Phase:     PhaseRolling,
		Config:    cfg,
		Players:   make([]Player, 0, len(roster)),
		TurnOrder: engine.Shuffle(src, engine.IDs(roster)),
		Round:     1,
	}
	for _, p := range roster {
		s.Players = append(s.Players, Player{ID: p.ID, Name: p.Name, Life: cfg.StartingLife})
	}

	first := s.TurnOrder[0]
	s.Current = &first

	return s, nil
}

func (s State) clone() State {
	s.Players = slices.Clone(s.Players)
	s.TurnOrder = slices.Clone(s.TurnOrder)

	return s
}

func (s State) player(id string) (int, bool) {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i, true
		}
	}

	return -1, false
}

func (s State) eliminated(id string) bool {
	i, ok := s.player(id)
	return !ok || s.Players[i].Eliminated
}

func (s State) waiting(id string) bool {
	i, ok := s.player(id)
	return ok && !s.Players[i].Eliminated && s.Players[i].Roll == nil
}

// Roll records actor's throw and advances to the next player who has not
// rolled. When nobody is left to roll the round is resolved.
func Roll(s State, actor string, faces [2]int) (State, error) {
	if s.Phase != PhaseRolling {
		return s, engine.ErrWrongPhase
	}
	idx, ok := s.player(actor)
	if !ok {
		return s, engine.ErrUnknownPlayer
	}
	if s.Players[idx].Eliminated {
		return s, engine.ErrEliminated
	}
	if s.Current == nil || *s.Current != actor {
		return s, engine.ErrNotYourTurn
	}
	rank, err := RankRoll(faces[0], faces[1])
	if err != nil {
		return s, err
	}

	next := s.clone()
	roll := faces
	next.Players[idx].Roll = &roll
	if rank.Category == CategorySpecial {
		next.Jackpot = true
	}

	if id, ok := engine.Next(next.TurnOrder, actor, func(id string) bool { return !next.waiting(id) }); ok {
		next.Current = &id
		return next, nil
	}

	next, _ = ResolveRound(next)

	return next, nil
}

// ResolveRound penalises every tied weakest roller. The penalty doubles for
// the whole round when anyone rolled the special pair.
func ResolveRound(s State) (State, *engine.Result) {
	next := s.clone()
	res := engine.NewResult(s.Round)

	outcomes := make([]Outcome, 0, len(next.TurnOrder))
	for _, id := range next.TurnOrder {
		i, ok := next.player(id)
		if !ok || next.Players[i].Eliminated || next.Players[i].Roll == nil {
			continue
		}
		outcomes = append(outcomes, Outcome{ID: id, Dice: *next.Players[i].Roll})
	}

	losers, err := Weakest(outcomes)
	if err != nil {
		losers = []string{}
	}

	penalty := next.Config.Penalty
	if next.Jackpot {
		penalty = next.Config.JackpotPenalty
		res.Note("jackpot: penalty doubled to %d", penalty)
	}

	// Simultaneous multi-elimination shares one elimination rank.
	eliminatedNow := false
	for _, id := range losers {
		i, _ := next.player(id)
		before := next.Players[i].Life
		life, out := engine.ApplyPenalty(before, penalty)
		next.Players[i].Life = life
		res.Deltas[id] = life - before
		if out && !next.Players[i].Eliminated {
			if !eliminatedNow {
				next.Eliminations++
				eliminatedNow = true
			}
			next.Players[i].Eliminated = true
			next.Players[i].EliminatedAt = next.Eliminations
			res.Note("%s eliminated", id)
		}
	}
	res.Losers = append(res.Losers, losers...)

	next.Current = nil
	next.LastResult = res

	over, winner := engine.Outcome(next.TurnOrder, next.eliminated)
	if over {
		next.Phase = PhaseGameEnd
		next.Winner = winner
		if winner != nil {
			res.Winners = append(res.Winners, *winner)
		}
		return next, res
	}

	next.Phase = PhaseRoundEnd

	return next, res
}

// NextRound clears the rolls and starts the following round. Eliminated
// players leave the turn order; the first surviving loser of the previous
// round starts, otherwise the first survivor.
func NextRound(s State) (State, error) {
	if s.Phase != PhaseRoundEnd {
		return s, engine.ErrWrongPhase
	}

	next := s.clone()
	for i := range next.Players {
		next.Players[i].Roll = nil
	}
	next.Jackpot = false
	next.Round++
	next.Phase = PhaseRolling
	next.TurnOrder = engine.Survivors(next.TurnOrder, next.eliminated)

	preferred := ""
	if next.LastResult != nil {
		for _, id := range next.TurnOrder {
			if engine.Contains(next.LastResult.Losers, id) {
				preferred = id
				break
			}
		}
	}

	starter, ok := engine.Starter(next.TurnOrder, preferred, next.eliminated)
	if !ok {
		next.Phase = PhaseGameEnd
		next.Current = nil
		return next, nil
	}
	next.Current = &starter

	return next, nil
}

// Apply dispatches an intent. Rolls are always thrown from src and any
// payload is ignored.
func Apply(s State, in engine.Intent, src engine.Source) (State, error) {
	switch in.Kind {
	case KindRoll:
		return Roll(s, in.Actor, Throw(src))
	case KindNextRound:
		if s.eliminated(in.Actor) {
			return s, engine.ErrEliminated
		}
		return NextRound(s)
	default:
		return s, engine.Reject(engine.ErrBadPayload, "unknown kind %q", in.Kind)
	}
}

// Over reports whether the game has ended.
func (s State) Over() bool { return s.Phase == PhaseGameEnd }

// Standings ranks survivors by remaining life, then eliminated players by
// how long they lasted.
func (s State) Standings() []engine.Standing {
	rank := func(a, b Player) int {
		if a.Eliminated != b.Eliminated {
			if a.Eliminated {
				return 1
			}
			return -1
		}
		if a.Eliminated {
			return b.EliminatedAt - a.EliminatedAt
		}
		return b.Life - a.Life
	}

	players := slices.Clone(s.Players)
	slices.SortStableFunc(players, rank)
	places := engine.Places(players, rank)

	out := make([]engine.Standing, 0, len(players))
	for i, p := range players {
		out = append(out, engine.Standing{ID: p.ID, Place: places[i], Score: p.Life})
	}

	return out
}

// Normalize restores collections that a store may drop when empty.
func (s *State) Normalize() {
	if s.Players == nil {
		s.Players = []Player{}
	}
	if s.TurnOrder == nil {
		s.TurnOrder = []string{}
	}
	s.LastResult.Normalize()
}
