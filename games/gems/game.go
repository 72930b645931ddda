/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package gems implements the grab game. Every round all players reveal a
// target at once: a pot on the market, another player's unsecured hand, or
// their own vault. Lone grabs succeed, collisions fizzle, and securing
// costs a round of rest. The game ends when the bag can no longer refill
// the market.
package gems

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/Seednode/partyrooms/engine"
)

type Phase string

const (
	PhaseChoosing Phase = "choosing"
	PhaseGameEnd  Phase = "game_end"
)

const (
	KindTarget = "target"
)

// TargetKind selects what an intent aims at.
type TargetKind string

const (
	TargetPot    TargetKind = "pot"
	TargetPlayer TargetKind = "player"
	TargetSecure TargetKind = "secure"
)

// Target is a hidden intent, revealed when the round resolves.
type Target struct {
	Kind   TargetKind `json:"kind"`
	Pot    int        `json:"pot"`
	Player string     `json:"player"`
}

func (t Target) key() string {
	switch t.Kind {
	case TargetPot:
		return fmt.Sprintf("pot:%d", t.Pot)
	case TargetPlayer:
		return "player:" + t.Player
	default:
		return string(t.Kind)
	}
}

type Config struct {
	Bag       map[Color]int `json:"bag"`
	PotSize   int           `json:"potSize"`
	Pots      int           `json:"pots"`
	MaxRounds int           `json:"maxRounds"`
}

func DefaultConfig() Config {
	return Config{
		Bag:       map[Color]int{Blue: 14, Yellow: 12, Red: 10, White: 6},
		PotSize:   2,
		MaxRounds: 0,
	}
}

type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Hand      Gems   `json:"hand"`
	Vault     Gems   `json:"vault"`
	RestRound int    `json:"restRound"`
}

// Transfer is one successful movement of gems during a resolution.
type Transfer struct {
	From string `json:"from"`
	To   string `json:"to"`
	Gems Gems   `json:"gems"`
}

type State struct {
	Phase      Phase             `json:"phase"`
	Config     Config            `json:"config"`
	Players    []Player          `json:"players"`
	Order      []string          `json:"order"`
	Round      int               `json:"round"`
	Bag        []Color           `json:"bag"`
	BagSize    int               `json:"bagSize,omitempty"`
	Market     []Gems            `json:"market"`
	Intents    map[string]Target `json:"intents"`
	Transfers  []Transfer        `json:"transfers"`
	Winner     *string           `json:"winner"`
	Draw       bool              `json:"draw"`
	LastResult *engine.Result    `json:"lastResult"`
}

// Start fills the bag, shuffles it and lays out the first market.
func Start(roster []engine.Player, cfg Config, src engine.Source) (State, error) {
	if err := engine.ValidateRoster(roster, engine.MinPlayers, engine.MaxPlayers); err != nil {
		return State{}, err
	}

	pots := cfg.Pots
	if pots <= 0 {
		pots = len(roster)
	}

	var bag []Color
	for _, c := range Colors {
		for range cfg.Bag[c] {
			bag = append(bag, c)
		}
	}

	s := State{
		Phase:     PhaseChoosing,
		Config:    cfg,
		Players:   make([]Player, 0, len(roster)),
		Order:     engine.IDs(roster),
		Round:     1,
		Bag:       engine.Shuffle(src, bag),
		Market:    make([]Gems, pots),
		Intents:   map[string]Target{},
		Transfers: []Transfer{},
	}
	for _, p := range roster {
		s.Players = append(s.Players, Player{ID: p.ID, Name: p.Name, Hand: Gems{}, Vault: Gems{}})
	}
	s.refill()

	return s, nil
}

func (s State) clone() State {
	s.Players = slices.Clone(s.Players)
	s.Order = slices.Clone(s.Order)
	s.Bag = slices.Clone(s.Bag)
	s.Market = slices.Clone(s.Market)
	s.Intents = maps.Clone(s.Intents)
	if s.Intents == nil {
		s.Intents = map[string]Target{}
	}

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

// Resting reports whether id sits out the current round.
func (s State) Resting(id string) bool {
	i, ok := s.player(id)
	return ok && s.Players[i].RestRound == s.Round
}

// Eligible lists the players expected to submit this round.
func (s State) Eligible() []string {
	return engine.Survivors(s.Order, s.Resting)
}

// Ready reports whether every eligible player has submitted.
func (s State) Ready() bool {
	for _, id := range s.Eligible() {
		if _, ok := s.Intents[id]; !ok {
			return false
		}
	}

	return true
}

// Submit records a hidden intent. Targets are validated here, never at
// resolution time.
func Submit(s State, actor string, t Target) (State, error) {
	if s.Phase != PhaseChoosing {
		return s, engine.ErrWrongPhase
	}
	if _, ok := s.player(actor); !ok {
		return s, engine.ErrUnknownPlayer
	}
	if s.Resting(actor) {
		return s, engine.ErrResting
	}
	if _, ok := s.Intents[actor]; ok {
		return s, engine.ErrAlreadyActed
	}

	switch t.Kind {
	case TargetPot:
		if t.Pot < 0 || t.Pot >= len(s.Market) {
			return s, engine.Reject(engine.ErrBadPayload, "no pot %d", t.Pot)
		}
		if s.Market[t.Pot].Empty() {
			return s, engine.Reject(engine.ErrBadPayload, "pot %d is empty", t.Pot)
		}
		t.Player = ""
	case TargetPlayer:
		if t.Player == actor {
			return s, engine.Reject(engine.ErrBadPayload, "cannot target yourself")
		}
		if _, ok := s.player(t.Player); !ok {
			return s, engine.ErrUnknownPlayer
		}
		if s.Resting(t.Player) {
			return s, engine.Reject(engine.ErrResting, "target %s", t.Player)
		}
		t.Pot = 0
	case TargetSecure:
		t.Pot, t.Player = 0, ""
	default:
		return s, engine.Reject(engine.ErrBadPayload, "unknown target %q", t.Kind)
	}

	next := s.clone()
	next.Intents[actor] = t

	return next, nil
}

// Resolve reveals and applies every intent as one batch, computed from the
// same pre-resolution snapshot:
//   - secure always succeeds, moves the hand into the vault and rests the
//     actor for the following round; it also protects the hand from thieves
//   - a target aimed at by exactly one actor and not protected hands its
//     whole content to that actor
//   - a target aimed at by several actors, or protected, keeps its content
func Resolve(s State) (State, *engine.Result, error) {
	if s.Phase != PhaseChoosing {
		return s, nil, engine.ErrWrongPhase
	}
	if !s.Ready() {
		return s, nil, engine.Reject(engine.ErrWrongPhase, "waiting for intents")
	}

	next, res := s.resolveOnce()

	// Rounds where everyone rests resolve with nothing to reveal.
	for next.Phase == PhaseChoosing && len(next.Eligible()) == 0 {
		next, _ = next.resolveOnce()
		next.LastResult = res
	}

	return next, res, nil
}

func (s State) resolveOnce() (State, *engine.Result) {
	next := s.clone()
	res := engine.NewResult(s.Round)

	snapHands := make(map[string]Gems, len(s.Players))
	for _, p := range s.Players {
		snapHands[p.ID] = p.Hand
	}
	snapMarket := slices.Clone(s.Market)

	protected := map[string]bool{}
	groups := map[string][]string{}
	targets := map[string]Target{}
	for actor, t := range s.Intents {
		if t.Kind == TargetSecure {
			protected[actor] = true
			continue
		}
		k := t.key()
		groups[k] = append(groups[k], actor)
		targets[k] = t
	}

	gains := map[string]Gems{}
	losses := map[string]Gems{}
	transfers := []Transfer{}

	secured := make([]string, 0, len(protected))
	for id := range protected {
		secured = append(secured, id)
	}
	sort.Strings(secured)
	for _, id := range secured {
		i, _ := next.player(id)
		moved := snapHands[id]
		next.Players[i].Vault = next.Players[i].Vault.Plus(moved)
		losses[id] = losses[id].Plus(moved)
		next.Players[i].RestRound = s.Round + 1
		transfers = append(transfers, Transfer{From: id, To: id, Gems: moved.Plus(nil)})
		res.Note("%s secured %d", id, moved.Total())
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		actors := groups[k]
		t := targets[k]

		sort.Strings(actors)

		// A protected hand is blocked however many players aim at it.
		if t.Kind == TargetPlayer && protected[t.Player] {
			res.Note("%s blocked %v", t.Player, actors)
			continue
		}
		if len(actors) > 1 {
			res.Note("collision on %s between %v", k, actors)
			continue
		}
		actor := actors[0]

		switch t.Kind {
		case TargetPot:
			got := snapMarket[t.Pot]
			gains[actor] = gains[actor].Plus(got)
			next.Market[t.Pot] = Gems{}
			transfers = append(transfers, Transfer{From: k, To: actor, Gems: got.Plus(nil)})
		case TargetPlayer:
			got := snapHands[t.Player]
			gains[actor] = gains[actor].Plus(got)
			losses[t.Player] = losses[t.Player].Plus(got)
			transfers = append(transfers, Transfer{From: t.Player, To: actor, Gems: got.Plus(nil)})
		}
	}

	for i := range next.Players {
		id := next.Players[i].ID
		before := snapHands[id].Total()
		next.Players[i].Hand = snapHands[id].Minus(losses[id]).Plus(gains[id])
		if d := next.Players[i].Hand.Total() - before; d != 0 {
			res.Deltas[id] = d
		}
	}

	next.Transfers = transfers
	next.Intents = map[string]Target{}
	next.Round++
	next.refill()
	next.LastResult = res

	if next.exhausted() || (next.Config.MaxRounds > 0 && next.Round > next.Config.MaxRounds) {
		next.finish(res)
	}

	return next, res
}

// refill tops up every empty pot from the bag. It must only be called on a
// cloned state.
func (s *State) refill() {
	for i := range s.Market {
		if !s.Market[i].Empty() {
			continue
		}
		pot := Gems{}
		for range s.Config.PotSize {
			if len(s.Bag) == 0 {
				break
			}
			c := s.Bag[len(s.Bag)-1]
			s.Bag = s.Bag[:len(s.Bag)-1]
			pot[c]++
		}
		s.Market[i] = pot
	}
}

// exhausted reports resource depletion: the bag is empty and nothing is
// left on the market.
func (s State) exhausted() bool {
	if len(s.Bag) > 0 {
		return false
	}
	for _, pot := range s.Market {
		if !pot.Empty() {
			return false
		}
	}

	return true
}

// Owned is everything a player would score: vault plus hand.
func (p Player) Owned() Gems { return p.Vault.Plus(p.Hand) }

func (s *State) finish(res *engine.Result) {
	s.Phase = PhaseGameEnd

	scored := make([]engine.Scored, 0, len(s.Players))
	for _, p := range s.Players {
		scored = append(scored, engine.Scored{ID: p.ID, Value: Score(p.Owned())})
	}
	best := engine.Strongest(scored)

	if len(best) > 1 {
		counts := make([]engine.Scored, 0, len(best))
		for _, id := range best {
			i, _ := s.player(id)
			counts = append(counts, engine.Scored{ID: id, Value: s.Players[i].Owned().Total()})
		}
		best = engine.Strongest(counts)
	}

	if len(best) == 1 {
		w := best[0]
		s.Winner = &w
		s.Draw = false
		res.Winners = append(res.Winners, w)
		return
	}

	s.Winner = nil
	s.Draw = true
	res.Winners = append(res.Winners, best...)
	res.Note("draw")
}

// Apply dispatches an intent and resolves the round as soon as every
// eligible player has submitted.
func Apply(s State, in engine.Intent, _ engine.Source) (State, error) {
	if in.Kind != KindTarget {
		return s, engine.Reject(engine.ErrBadPayload, "unknown kind %q", in.Kind)
	}

	var t Target
	if err := in.Decode(&t); err != nil {
		return s, err
	}

	next, err := Submit(s, in.Actor, t)
	if err != nil {
		return s, err
	}
	if !next.Ready() {
		return next, nil
	}

	next, _, err = Resolve(next)

	return next, err
}

func (s State) Over() bool { return s.Phase == PhaseGameEnd }

// Standings ranks by score, then by raw gem count.
func (s State) Standings() []engine.Standing {
	players := slices.Clone(s.Players)
	slices.SortStableFunc(players, func(a, b Player) int {
		if d := Score(b.Owned()) - Score(a.Owned()); d != 0 {
			return d
		}
		return b.Owned().Total() - a.Owned().Total()
	})

	out := make([]engine.Standing, 0, len(players))
	for i, p := range players {
		out = append(out, engine.Standing{ID: p.ID, Place: i + 1, Score: Score(p.Owned())})
	}

	return out
}

// Redact hides every pending intent except the viewer's own. Other
// players only show up as having submitted. The bag is reduced to its size
// so refills cannot be foreseen.
func (s State) Redact(viewer string) State {
	out := s.clone()
	for id := range out.Intents {
		if id != viewer {
			out.Intents[id] = Target{}
		}
	}
	out.BagSize = len(out.Bag)
	out.Bag = []Color{}

	return out
}

func (s *State) Normalize() {
	if s.Players == nil {
		s.Players = []Player{}
	}
	for i := range s.Players {
		if s.Players[i].Hand == nil {
			s.Players[i].Hand = Gems{}
		}
		if s.Players[i].Vault == nil {
			s.Players[i].Vault = Gems{}
		}
	}
	if s.Order == nil {
		s.Order = []string{}
	}
	if s.Bag == nil {
		s.Bag = []Color{}
	}
	if s.Market == nil {
		s.Market = []Gems{}
	}
	for i := range s.Market {
		if s.Market[i] == nil {
			s.Market[i] = Gems{}
		}
	}
	if s.Intents == nil {
		s.Intents = map[string]Target{}
	}
	if s.Transfers == nil {
		s.Transfers = []Transfer{}
	}
	s.LastResult.Normalize()
}
