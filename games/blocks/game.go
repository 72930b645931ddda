/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package blocks implements the polyomino placement game. Each player
// starts from a corner and must grow their territory corner to corner,
// never edge to edge, until nobody can place anything else.
package blocks

import (
	"fmt"
	"slices"

	"github.com/Seednode/partyrooms/engine"
)

type Phase string

const (
	PhasePlacing Phase = "placing"
	PhaseGameEnd Phase = "game_end"
)

const (
	KindPlace = "place"
	KindPass  = "pass"
)

const (
	MaxPlayers = 4

	AllPlacedBonus = 15
	MonominoBonus  = 5
)

type Config struct {
	// Size is the board edge; zero picks 14 for two players, 20 otherwise.
	Size int `json:"size"`
}

func DefaultConfig() Config {
	return Config{}
}

type Player struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Seat      int      `json:"seat"`
	Corner    Cell     `json:"corner"`
	Pieces    []string `json:"pieces"`
	Placed    int      `json:"placed"`
	LastPiece *string  `json:"lastPiece"`
	Finished  bool     `json:"finished"`
}

// Placement is the payload of a place intent.
type Placement struct {
	Piece    string `json:"piece"`
	Rotation int    `json:"rotation"`
	Flip     bool   `json:"flip"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

// Move records the last thing that happened on the board.
type Move struct {
	Actor string     `json:"actor"`
	Pass  bool       `json:"pass"`
	Place *Placement `json:"place"`
	Cells []Cell     `json:"cells"`
}

type State struct {
	Phase      Phase          `json:"phase"`
	Config     Config         `json:"config"`
	Size       int            `json:"size"`
	Board      []int          `json:"board"`
	Players    []Player       `json:"players"`
	TurnOrder  []string       `json:"turnOrder"`
	Current    *string        `json:"current"`
	Round      int            `json:"round"`
	Winner     *string        `json:"winner"`
	Draw       bool           `json:"draw"`
	LastMove   *Move          `json:"lastMove"`
	LastResult *engine.Result `json:"lastResult"`
}

// Start lays out an empty board and hands every player a full set. Seats
// follow the roster; the turn order is shuffled.
func Start(roster []engine.Player, cfg Config, src engine.Source) (State, error) {
	if err := engine.ValidateRoster(roster, engine.MinPlayers, MaxPlayers); err != nil {
		return State{}, err
	}

	size := cfg.Size
	if size <= 0 {
		size = 20
		if len(roster) == 2 {
			size = 14
		}
	}

	last := size - 1
	corners := []Cell{{0, 0}, {last, last}}
	if len(roster) > 2 {
		corners = []Cell{{0, 0}, {last, 0}, {last, last}, {0, last}}
	}

	s := State{
		Phase:     PhasePlacing,
		Config:    cfg,
		Size:      size,
		Board:     make([]int, size*size),
		Players:   make([]Player, 0, len(roster)),
		TurnOrder: engine.Shuffle(src, engine.IDs(roster)),
		Round:     1,
	}
	for i, p := range roster {
		s.Players = append(s.Players, Player{
			ID:     p.ID,
			Name:   p.Name,
			Seat:   i + 1,
			Corner: corners[i],
			Pieces: PieceNames(),
		})
	}
	first := s.TurnOrder[0]
	s.Current = &first

	return s, nil
}

func (s State) clone() State {
	s.Board = slices.Clone(s.Board)
	s.Players = slices.Clone(s.Players)
	for i := range s.Players {
		s.Players[i].Pieces = slices.Clone(s.Players[i].Pieces)
	}
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

func (s State) finished(id string) bool {
	i, ok := s.player(id)
	return !ok || s.Players[i].Finished
}

func (s State) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Size && y < s.Size
}

// At returns the seat occupying (x, y), or 0 for an empty or off-board cell.
func (s State) At(x, y int) int {
	if !s.inBounds(x, y) {
		return 0
	}

	return s.Board[y*s.Size+x]
}

// fits checks cells, already translated onto the board, against the
// placement rules for p.
func (s State) fits(p Player, cells []Cell) error {
	coversCorner, touchesCorner := false, false

	for _, c := range cells {
		x, y := c[0], c[1]
		if !s.inBounds(x, y) {
			return fmt.Errorf("(%d,%d) is off the board", x, y)
		}
		if s.At(x, y) != 0 {
			return fmt.Errorf("(%d,%d) is taken", x, y)
		}
		if c == p.Corner {
			coversCorner = true
		}
		for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			if s.At(x+d[0], y+d[1]) == p.Seat {
				return fmt.Errorf("(%d,%d) shares an edge with your own piece", x, y)
			}
		}
		for _, d := range [][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}} {
			if s.At(x+d[0], y+d[1]) == p.Seat {
				touchesCorner = true
			}
		}
	}

	if p.Placed == 0 && !coversCorner {
		return fmt.Errorf("first piece must cover (%d,%d)", p.Corner[0], p.Corner[1])
	}
	if p.Placed > 0 && !touchesCorner {
		return fmt.Errorf("piece must touch your own corner")
	}

	return nil
}

func translate(cells []Cell, x, y int) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = Cell{c[0] + x, c[1] + y}
	}

	return out
}

// HasMove reports whether the player could legally place any remaining
// piece anywhere.
func (s State) HasMove(id string) bool {
	i, ok := s.player(id)
	if !ok || s.Players[i].Finished {
		return false
	}
	p := s.Players[i]

	for _, name := range p.Pieces {
		for _, o := range Orientations(name) {
			for y := range s.Size {
				for x := range s.Size {
					if s.fits(p, translate(o.Cells, x, y)) == nil {
						return true
					}
				}
			}
		}
	}

	return false
}

func (s State) checkActor(actor string) (int, error) {
	if s.Phase != PhasePlacing {
		return -1, engine.ErrWrongPhase
	}
	i, ok := s.player(actor)
	if !ok {
		return -1, engine.ErrUnknownPlayer
	}
	if s.Players[i].Finished {
		return -1, engine.ErrEliminated
	}
	if s.Current == nil || *s.Current != actor {
		return -1, engine.ErrNotYourTurn
	}

	return i, nil
}

// Place puts a piece on the board.
func Place(s State, actor string, pl Placement) (State, error) {
	i, err := s.checkActor(actor)
	if err != nil {
		return s, err
	}
	if !slices.Contains(s.Players[i].Pieces, pl.Piece) {
		return s, engine.Reject(engine.ErrBadPayload, "piece %q is not available", pl.Piece)
	}
	if pl.Rotation < 0 || pl.Rotation > 3 {
		return s, engine.Reject(engine.ErrBadPayload, "rotation %d out of range", pl.Rotation)
	}

	cells := translate(Orient(Pieces[pl.Piece], pl.Rotation, pl.Flip), pl.X, pl.Y)
	if err := s.fits(s.Players[i], cells); err != nil {
		return s, engine.Reject(engine.ErrBadPayload, "%v", err)
	}

	next := s.clone()
	p := &next.Players[i]
	for _, c := range cells {
		next.Board[c[1]*next.Size+c[0]] = p.Seat
	}
	p.Pieces = slices.DeleteFunc(p.Pieces, func(n string) bool { return n == pl.Piece })
	p.Placed++
	piece := pl.Piece
	p.LastPiece = &piece
	if len(p.Pieces) == 0 {
		p.Finished = true
	}

	placed := pl
	next.LastMove = &Move{Actor: actor, Place: &placed, Cells: cells}

	return next.advance(actor), nil
}

// Pass gives up the rest of the game for actor.
func Pass(s State, actor string) (State, error) {
	i, err := s.checkActor(actor)
	if err != nil {
		return s, err
	}

	next := s.clone()
	next.Players[i].Finished = true
	next.LastMove = &Move{Actor: actor, Pass: true, Cells: []Cell{}}

	return next.advance(actor), nil
}

// advance hands the turn to the next player who can still move. Players
// left without a legal placement are finished on the way. The game ends
// when nobody can act.
func (s State) advance(from string) State {
	res := engine.NewResult(s.Round)
	s.LastResult = res

	cur := from
	for {
		id, ok := engine.Next(s.TurnOrder, cur, s.finished)
		if !ok {
			s.finish(res)
			return s
		}
		if s.HasMove(id) {
			if i := slices.Index(s.TurnOrder, id); i <= slices.Index(s.TurnOrder, from) {
				s.Round++
			}
			s.Current = &id
			return s
		}

		i, _ := s.player(id)
		s.Players[i].Finished = true
		res.Note("%s has no legal move", id)
		cur = id
	}
}

// Score is minus the squares left in hand, plus the bonuses for
// emptying the hand.
func (p Player) Score() int {
	score := -Squares(p.Pieces)
	if len(p.Pieces) == 0 {
		score += AllPlacedBonus
		if p.LastPiece != nil && *p.LastPiece == Monomino {
			score += MonominoBonus
		}
	}

	return score
}

func (s *State) finish(res *engine.Result) {
	s.Phase = PhaseGameEnd
	s.Current = nil

	scored := make([]engine.Scored, 0, len(s.Players))
	for _, p := range s.Players {
		scored = append(scored, engine.Scored{ID: p.ID, Value: p.Score()})
		res.Deltas[p.ID] = p.Score()
	}

	best := engine.Strongest(scored)
	res.Winners = append(res.Winners, best...)
	if len(best) == 1 {
		w := best[0]
		s.Winner, s.Draw = &w, false
		return
	}
	s.Winner, s.Draw = nil, true
	res.Note("draw")
}

// Apply dispatches an intent.
func Apply(s State, in engine.Intent, _ engine.Source) (State, error) {
	switch in.Kind {
	case KindPlace:
		var pl Placement
		if err := in.Decode(&pl); err != nil {
			return s, err
		}
		return Place(s, in.Actor, pl)
	case KindPass:
		return Pass(s, in.Actor)
	default:
		return s, engine.Reject(engine.ErrBadPayload, "unknown kind %q", in.Kind)
	}
}

func (s State) Over() bool { return s.Phase == PhaseGameEnd }

func (s State) Standings() []engine.Standing {
	players := slices.Clone(s.Players)
	slices.SortStableFunc(players, func(a, b Player) int {
		return b.Score() - a.Score()
	})

	out := make([]engine.Standing, 0, len(players))
	for i, p := range players {
		out = append(out, engine.Standing{ID: p.ID, Place: i + 1, Score: p.Score()})
	}

	return out
}

func (s *State) Normalize() {
	if s.Board == nil {
		s.Board = make([]int, s.Size*s.Size)
	}
	if s.Players == nil {
		s.Players = []Player{}
	}
	for i := range s.Players {
		if s.Players[i].Pieces == nil {
			s.Players[i].Pieces = []string{}
		}
	}
	if s.TurnOrder == nil {
		s.TurnOrder = []string{}
	}
	if s.LastMove != nil && s.LastMove.Cells == nil {
		s.LastMove.Cells = []Cell{}
	}
	s.LastResult.Normalize()
}
