/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package bluff implements the bidding game: every player holds one card
// that everyone else can see, bids climb on the total of all cards in play,
// and a challenge settles who loses a life.
package bluff

import (
	"fmt"
	"slices"

	"github.com/Seednode/partyrooms/engine"
)

type Phase string

const (
	PhaseDeclaring Phase = "declaring"
	PhaseRoundEnd  Phase = "round_end"
	PhaseGameEnd   Phase = "game_end"
)

const (
	KindDeclare   = "declare"
	KindChallenge = "challenge"
	KindNextRound = "next_round"
)

type Config struct {
	StartingLife   int `json:"startingLife"`
	MinDeclaration int `json:"minDeclaration"`
}

func DefaultConfig() Config {
	return Config{
		StartingLife:   3,
		MinDeclaration: 1,
	}
}

type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Life         int    `json:"life"`
	Eliminated   bool   `json:"eliminated"`
	EliminatedAt int    `json:"eliminatedAt"`
	Card         *Card  `json:"card"`
}

// Reveal records how the last challenge was settled.
type Reveal struct {
	Declared   int     `json:"declared"`
	Declarer   string  `json:"declarer"`
	Challenger string  `json:"challenger"`
	Total      int     `json:"total"`
	Mystery    *Card   `json:"mystery"`
	Loser      string  `json:"loser"`
	Cards      []Dealt `json:"cards"`
}

// Dealt pairs an actor with the card they held.
type Dealt struct {
	ID   string `json:"id"`
	Card Card   `json:"card"`
}

type State struct {
	Phase        Phase          `json:"phase"`
	Config       Config         `json:"config"`
	Players      []Player       `json:"players"`
	TurnOrder    []string       `json:"turnOrder"`
	Current      *string        `json:"current"`
	Round        int            `json:"round"`
	Pile         []Card         `json:"pile"`
	PileSize     int            `json:"pileSize,omitempty"`
	Discard      []Card         `json:"discard"`
	DiscardSize  int            `json:"discardSize,omitempty"`
	Declared     *int           `json:"declared"`
	Declarer     *string        `json:"declarer"`
	Reshuffle    bool           `json:"reshuffle"`
	Eliminations int            `json:"eliminations"`
	Winner       *string        `json:"winner"`
	Reveal       *Reveal        `json:"reveal"`
	LastResult   *engine.Result `json:"lastResult"`
}

// Start shuffles the deck and the seating and deals the first round.
func Start(roster []engine.Player, cfg Config, src engine.Source) (State, error) {
	if err := engine.ValidateRoster(roster, engine.MinPlayers, engine.MaxPlayers); err != nil {
		return State{}, err
	}

	s := State{
		Phase:     PhaseDeclaring,
		Config:    cfg,
		Players:   make([]Player, 0, len(roster)),
		TurnOrder: engine.Shuffle(src, engine.IDs(roster)),
		Round:     1,
		Pile:      engine.Shuffle(src, NewDeck()),
		Discard:   []Card{},
	}
	for _, p := range roster {
		s.Players = append(s.Players, Player{ID: p.ID, Name: p.Name, Life: cfg.StartingLife})
	}

	if err := s.deal(src); err != nil {
		return State{}, err
	}
	first := s.TurnOrder[0]
	s.Current = &first

	return s, nil
}

func (s State) clone() State {
	s.Players = slices.Clone(s.Players)
	s.TurnOrder = slices.Clone(s.TurnOrder)
	s.Pile = slices.Clone(s.Pile)
	s.Discard = slices.Clone(s.Discard)

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

// deal gives one card to every active player in turn order. It must only
// be called on a state that has already been cloned.
func (s *State) deal(src engine.Source) error {
	for _, id := range s.TurnOrder {
		i, ok := s.player(id)
		if !ok || s.Players[i].Eliminated {
			continue
		}

		c, pile, discard, err := draw(s.Pile, s.Discard, src)
		if err != nil {
			return fmt.Errorf("dealing round %d: %w", s.Round, err)
		}
		s.Pile, s.Discard = pile, discard
		s.Players[i].Card = &c
	}

	return nil
}

func (s State) checkActor(actor string) (int, error) {
	if s.Phase != PhaseDeclaring {
		return -1, engine.ErrWrongPhase
	}
	i, ok := s.player(actor)
	if !ok {
		return -1, engine.ErrUnknownPlayer
	}
	if s.Players[i].Eliminated {
		return -1, engine.ErrEliminated
	}
	if s.Current == nil || *s.Current != actor {
		return -1, engine.ErrNotYourTurn
	}

	return i, nil
}

// Declare raises the standing bid. A bid must be strictly above the current
// one, or at least the configured minimum when nobody has bid yet.
func Declare(s State, actor string, value int) (State, error) {
	if _, err := s.checkActor(actor); err != nil {
		return s, err
	}
	if s.Declared != nil && value <= *s.Declared {
		return s, engine.Reject(engine.ErrBadPayload, "declaration %d must exceed %d", value, *s.Declared)
	}
	if s.Declared == nil && value < s.Config.MinDeclaration {
		return s, engine.Reject(engine.ErrBadPayload, "declaration %d below minimum %d", value, s.Config.MinDeclaration)
	}

	next := s.clone()
	v, who := value, actor
	next.Declared, next.Declarer = &v, &who

	id, ok := engine.Next(next.TurnOrder, actor, next.eliminated)
	if !ok || id == actor {
		return s, engine.Reject(engine.ErrWrongPhase, "nobody left to answer")
	}
	next.Current = &id

	return next, nil
}

// Challenge settles the round against the standing declaration. The
// declarer loses when the declaration exceeds the real total, otherwise the
// challenger loses. The loser loses exactly one life.
func Challenge(s State, actor string, src engine.Source) (State, *engine.Result, error) {
	if _, err := s.checkActor(actor); err != nil {
		return s, nil, err
	}
	if s.Declared == nil || s.Declarer == nil {
		return s, nil, engine.Reject(engine.ErrWrongPhase, "nothing to challenge")
	}

	next := s.clone()

	dealt := make([]Dealt, 0, len(next.TurnOrder))
	cards := make([]Card, 0, len(next.TurnOrder))
	for _, id := range next.TurnOrder {
		i, ok := next.player(id)
		if !ok || next.Players[i].Eliminated || next.Players[i].Card == nil {
			continue
		}
		dealt = append(dealt, Dealt{ID: id, Card: *next.Players[i].Card})
		cards = append(cards, *next.Players[i].Card)
	}

	var mystery *Card
	if hasKind(cards, KindWild) {
		c, pile, discard, err := drawMystery(next.Pile, next.Discard, src)
		if err != nil {
			return s, nil, fmt.Errorf("resolving mystery card: %w", err)
		}
		next.Pile, next.Discard = pile, discard
		mystery = &c
	}

	total := Total(cards, mystery)
	declared, declarer := *next.Declared, *next.Declarer

	loser := actor
	if declared > total {
		loser = declarer
	}

	res := engine.NewResult(next.Round)
	res.Losers = append(res.Losers, loser)
	res.Note("declared %d, total %d", declared, total)

	li, _ := next.player(loser)
	before := next.Players[li].Life
	life, out := engine.ApplyPenalty(before, 1)
	next.Players[li].Life = life
	res.Deltas[loser] = life - before
	if out {
		next.Eliminations++
		next.Players[li].Eliminated = true
		next.Players[li].EliminatedAt = next.Eliminations
		res.Note("%s eliminated", loser)
	}

	next.Reshuffle = hasKind(cards, KindReshuffle)
	next.Discard = append(next.Discard, cards...)
	if mystery != nil {
		next.Discard = append(next.Discard, *mystery)
	}
	for i := range next.Players {
		next.Players[i].Card = nil
	}

	next.Reveal = &Reveal{
		Declared:   declared,
		Declarer:   declarer,
		Challenger: actor,
		Total:      total,
		Mystery:    mystery,
		Loser:      loser,
		Cards:      dealt,
	}
	next.Declared, next.Declarer = nil, nil
	next.Current = nil
	next.LastResult = res

	if over, winner := engine.Outcome(next.TurnOrder, next.eliminated); over {
		next.Phase = PhaseGameEnd
		next.Winner = winner
		if winner != nil {
			res.Winners = append(res.Winners, *winner)
		}
		return next, res, nil
	}
	next.Phase = PhaseRoundEnd

	return next, res, nil
}

// NextRound deals a fresh round. The last loser starts if still in play,
// otherwise the next survivor after them. If the reshuffle card was in play
// the discard is shuffled back into the pile first.
func NextRound(s State, src engine.Source) (State, error) {
	if s.Phase != PhaseRoundEnd {
		return s, engine.ErrWrongPhase
	}

	next := s.clone()

	loser := ""
	if next.Reveal != nil {
		loser = next.Reveal.Loser
	}
	starter, ok := engine.StarterAfter(next.TurnOrder, loser, next.eliminated)
	if !ok {
		return s, engine.ErrWrongPhase
	}

	if next.Reshuffle {
		next.Pile = engine.Shuffle(src, append(next.Pile, next.Discard...))
		next.Discard = []Card{}
		next.Reshuffle = false
	}

	next.TurnOrder = engine.Survivors(next.TurnOrder, next.eliminated)
	next.Round++
	next.Phase = PhaseDeclaring
	if err := next.deal(src); err != nil {
		return s, err
	}
	next.Current = &starter

	return next, nil
}

// Apply dispatches an intent.
func Apply(s State, in engine.Intent, src engine.Source) (State, error) {
	switch in.Kind {
	case KindDeclare:
		var p struct {
			Value int `json:"value"`
		}
		if err := in.Decode(&p); err != nil {
			return s, err
		}
		return Declare(s, in.Actor, p.Value)
	case KindChallenge:
		next, _, err := Challenge(s, in.Actor, src)
		return next, err
	case KindNextRound:
		if s.eliminated(in.Actor) {
			return s, engine.ErrEliminated
		}
		return NextRound(s, src)
	default:
		return s, engine.Reject(engine.ErrBadPayload, "unknown kind %q", in.Kind)
	}
}

func (s State) Over() bool { return s.Phase == PhaseGameEnd }

// Standings ranks survivors first, then eliminated players by how long
// they survived.
func (s State) Standings() []engine.Standing {
	rank := func(a, b Player) int {
		switch {
		case a.Eliminated != b.Eliminated && a.Eliminated:
			return 1
		case a.Eliminated != b.Eliminated:
			return -1
		case a.Eliminated:
			return b.EliminatedAt - a.EliminatedAt
		default:
			return b.Life - a.Life
		}
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

// Redact hides the viewer's own card while it is in play and reduces the
// pile and discard to their sizes.
func (s State) Redact(viewer string) State {
	out := s.clone()
	for i := range out.Players {
		if out.Players[i].ID == viewer {
			out.Players[i].Card = nil
		}
	}
	out.PileSize, out.DiscardSize = len(out.Pile), len(out.Discard)
	out.Pile, out.Discard = []Card{}, []Card{}

	return out
}

func (s *State) Normalize() {
	if s.Players == nil {
		s.Players = []Player{}
	}
	if s.TurnOrder == nil {
		s.TurnOrder = []string{}
	}
	if s.Pile == nil {
		s.Pile = []Card{}
	}
	if s.Discard == nil {
		s.Discard = []Card{}
	}
	if s.Reveal != nil && s.Reveal.Cards == nil {
		s.Reveal.Cards = []Dealt{}
	}
	s.LastResult.Normalize()
}
