/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package wordhunt implements the hidden-word game. Everyone picks a
// secret word, then players take turns calling characters; every matching
// position in every word is revealed, the caller's own included. A fully
// revealed word knocks its owner out.
package wordhunt

import (
	"slices"

	"github.com/Seednode/partyrooms/engine"
)

type Phase string

const (
	PhaseChoosing Phase = "choosing"
	PhaseHunting  Phase = "hunting"
	PhaseGameEnd  Phase = "game_end"
)

const (
	KindWord = "word"
	KindCall = "call"
)

type Config struct {
	MinLength int `json:"minLength"`
	MaxLength int `json:"maxLength"`
}

func DefaultConfig() Config {
	return Config{
		MinLength: 2,
		MaxLength: 7,
	}
}

type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Word         string `json:"word"`
	Revealed     []bool `json:"revealed"`
	Ready        bool   `json:"ready"`
	Eliminated   bool   `json:"eliminated"`
	EliminatedAt int    `json:"eliminatedAt"`
}

// Call records the effect of the most recent call.
type Call struct {
	Actor      string           `json:"actor"`
	Char       string           `json:"char"`
	Hits       map[string][]int `json:"hits"`
	Eliminated []string         `json:"eliminated"`
	Again      bool             `json:"again"`
}

type State struct {
	Phase        Phase          `json:"phase"`
	Config       Config         `json:"config"`
	Players      []Player       `json:"players"`
	TurnOrder    []string       `json:"turnOrder"`
	Current      *string        `json:"current"`
	Round        int            `json:"round"`
	Called       []string       `json:"called"`
	Eliminations int            `json:"eliminations"`
	Winner       *string        `json:"winner"`
	LastCall     *Call          `json:"lastCall"`
	LastResult   *engine.Result `json:"lastResult"`
}

// Start shuffles the turn order and opens word selection.
func Start(roster []engine.Player, cfg Config, src engine.Source) (State, error) {
	if err := engine.ValidateRoster(roster, engine.MinPlayers, engine.MaxPlayers); err != nil {
		return State{}, err
	}

	s := State{
		Phase:     PhaseChoosing,
		Config:    cfg,
		Players:   make([]Player, 0, len(roster)),
		TurnOrder: engine.Shuffle(src, engine.IDs(roster)),
		Round:     1,
		Called:    []string{},
	}
	for _, p := range roster {
		s.Players = append(s.Players, Player{ID: p.ID, Name: p.Name, Revealed: []bool{}})
	}

	return s, nil
}

func (s State) clone() State {
	s.Players = slices.Clone(s.Players)
	for i := range s.Players {
		s.Players[i].Revealed = slices.Clone(s.Players[i].Revealed)
	}
	s.TurnOrder = slices.Clone(s.TurnOrder)
	s.Called = slices.Clone(s.Called)

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

// SubmitWord stores a player's secret word. Hunting begins once every
// player has one.
func SubmitWord(s State, actor, raw string) (State, error) {
	if s.Phase != PhaseChoosing {
		return s, engine.ErrWrongPhase
	}
	i, ok := s.player(actor)
	if !ok {
		return s, engine.ErrUnknownPlayer
	}
	if s.Players[i].Ready {
		return s, engine.ErrAlreadyActed
	}

	w, err := NormalizeWord(raw, s.Config.MinLength, s.Config.MaxLength)
	if err != nil {
		return s, engine.Reject(engine.ErrBadPayload, "%v", err)
	}

	next := s.clone()
	next.Players[i].Word = w
	next.Players[i].Revealed = make([]bool, len([]rune(w)))
	next.Players[i].Ready = true

	for _, p := range next.Players {
		if !p.Ready {
			return next, nil
		}
	}

	first, _ := engine.First(next.TurnOrder, nil)
	next.Current = &first
	next.Phase = PhaseHunting

	return next, nil
}

// CallChar reveals c in every active word. The caller keeps the turn when
// the call hit somebody else's word and they are still in play.
func CallChar(s State, actor, raw string) (State, *engine.Result, error) {
	if s.Phase != PhaseHunting {
		return s, nil, engine.ErrWrongPhase
	}
	i, ok := s.player(actor)
	if !ok {
		return s, nil, engine.ErrUnknownPlayer
	}
	if s.Players[i].Eliminated {
		return s, nil, engine.ErrEliminated
	}
	if s.Current == nil || *s.Current != actor {
		return s, nil, engine.ErrNotYourTurn
	}

	c, err := NormalizeChar(raw)
	if err != nil {
		return s, nil, engine.Reject(engine.ErrBadPayload, "%v", err)
	}
	if slices.Contains(s.Called, c) {
		return s, nil, engine.Reject(engine.ErrBadPayload, "%q already called", c)
	}

	next := s.clone()
	next.Called = append(next.Called, c)

	res := engine.NewResult(next.Round)
	call := &Call{Actor: actor, Char: c, Hits: map[string][]int{}, Eliminated: []string{}}
	hitOther := false

	for _, id := range next.TurnOrder {
		j, ok := next.player(id)
		if !ok || next.Players[j].Eliminated {
			continue
		}
		hits := positions(next.Players[j].Word, c)
		if len(hits) == 0 {
			continue
		}
		for _, h := range hits {
			next.Players[j].Revealed[h] = true
		}
		call.Hits[id] = hits
		res.Deltas[id] = -len(hits)
		if id != actor {
			hitOther = true
		}
	}

	bumped := false
	for _, id := range next.TurnOrder {
		j, _ := next.player(id)
		if next.Players[j].Eliminated || !allTrue(next.Players[j].Revealed) {
			continue
		}
		if !bumped {
			next.Eliminations++
			bumped = true
		}
		next.Players[j].Eliminated = true
		next.Players[j].EliminatedAt = next.Eliminations
		call.Eliminated = append(call.Eliminated, id)
		res.Losers = append(res.Losers, id)
		res.Note("%s eliminated", id)
	}

	next.LastCall = call
	next.LastResult = res

	if over, winner := engine.Outcome(next.TurnOrder, next.eliminated); over {
		next.Phase = PhaseGameEnd
		next.Current = nil
		next.Winner = winner
		if winner != nil {
			res.Winners = append(res.Winners, *winner)
		}
		return next, res, nil
	}

	if hitOther && !next.eliminated(actor) {
		call.Again = true
		return next, res, nil
	}

	id, ok := engine.Next(next.TurnOrder, actor, next.eliminated)
	if !ok {
		return s, nil, engine.Reject(engine.ErrWrongPhase, "nobody left to call")
	}
	next.Current = &id
	next.Round++

	return next, res, nil
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}

	return len(bs) > 0
}

// Apply dispatches an intent.
func Apply(s State, in engine.Intent, _ engine.Source) (State, error) {
	switch in.Kind {
	case KindWord:
		var p struct {
			Word string `json:"word"`
		}
		if err := in.Decode(&p); err != nil {
			return s, err
		}
		return SubmitWord(s, in.Actor, p.Word)
	case KindCall:
		var p struct {
			Char string `json:"char"`
		}
		if err := in.Decode(&p); err != nil {
			return s, err
		}
		next, _, err := CallChar(s, in.Actor, p.Char)
		return next, err
	default:
		return s, engine.Reject(engine.ErrBadPayload, "unknown kind %q", in.Kind)
	}
}

func (s State) Over() bool { return s.Phase == PhaseGameEnd }

// Standings ranks survivors first, then the eliminated by how long they
// lasted. Score is the number of positions still hidden.
func (s State) Standings() []engine.Standing {
	players := slices.Clone(s.Players)
	slices.SortStableFunc(players, func(a, b Player) int {
		switch {
		case a.Eliminated != b.Eliminated && a.Eliminated:
			return 1
		case a.Eliminated != b.Eliminated:
			return -1
		default:
			return b.EliminatedAt - a.EliminatedAt
		}
	})

	out := make([]engine.Standing, 0, len(players))
	for i, p := range players {
		hidden := 0
		for _, r := range p.Revealed {
			if !r {
				hidden++
			}
		}
		out = append(out, engine.Standing{ID: p.ID, Place: i + 1, Score: hidden})
	}

	return out
}

// Redact hides every word the viewer is not entitled to see. Players see
// their own word; everyone sees revealed positions and, once the game is
// over, every word.
func (s State) Redact(viewer string) State {
	if s.Phase == PhaseGameEnd {
		return s
	}

	out := s.clone()
	for i := range out.Players {
		if out.Players[i].ID == viewer {
			continue
		}
		out.Players[i].Word = mask(out.Players[i].Word, out.Players[i].Revealed)
	}

	return out
}

func (s *State) Normalize() {
	if s.Players == nil {
		s.Players = []Player{}
	}
	for i := range s.Players {
		if s.Players[i].Revealed == nil {
			s.Players[i].Revealed = []bool{}
		}
	}
	if s.TurnOrder == nil {
		s.TurnOrder = []string{}
	}
	if s.Called == nil {
		s.Called = []string{}
	}
	if s.LastCall != nil {
		if s.LastCall.Hits == nil {
			s.LastCall.Hits = map[string][]int{}
		}
		if s.LastCall.Eliminated == nil {
			s.LastCall.Eliminated = []string{}
		}
	}
	s.LastResult.Normalize()
}
