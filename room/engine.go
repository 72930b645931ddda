/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Seednode/partyrooms/engine"
	"github.com/Seednode/partyrooms/games/blocks"
	"github.com/Seednode/partyrooms/games/bluff"
	"github.com/Seednode/partyrooms/games/dice"
	"github.com/Seednode/partyrooms/games/gems"
	"github.com/Seednode/partyrooms/games/wordhunt"
	"github.com/Seednode/partyrooms/patch"
)

// Outcome is what the manager needs to know after every transition.
type Outcome struct {
	Over      bool
	Standings []engine.Standing
}

// Engine runs one game's rules against stored documents. Documents only
// ever hold the game's own top-level fields.
type Engine interface {
	Name() string
	MaxPlayers() int
	Start(roster []engine.Player, src engine.Source) (patch.Document, error)
	Apply(doc patch.Document, in engine.Intent, src engine.Source) (patch.Document, Outcome, error)
	View(doc patch.Document, viewer string) (patch.Document, error)
}

type state interface {
	Over() bool
	Standings() []engine.Standing
}

type statePtr[S any] interface {
	*S
	Normalize()
}

type adapter[S state, P statePtr[S]] struct {
	name  string
	max   int
	start func([]engine.Player, engine.Source) (S, error)
	apply func(S, engine.Intent, engine.Source) (S, error)
}

// Adapt turns a pure game package into an Engine. If S has a
// Redact(viewer string) S method, View uses it to hide private fields.
func Adapt[S state, P statePtr[S]](
	name string,
	maxPlayers int,
	start func([]engine.Player, engine.Source) (S, error),
	apply func(S, engine.Intent, engine.Source) (S, error),
) Engine {
	return &adapter[S, P]{name: name, max: maxPlayers, start: start, apply: apply}
}

func (a *adapter[S, P]) Name() string    { return a.name }
func (a *adapter[S, P]) MaxPlayers() int { return a.max }

func (a *adapter[S, P]) decode(doc patch.Document) (S, error) {
	var s S
	if err := patch.Decode(doc, P(&s)); err != nil {
		return s, fmt.Errorf("%s: %w", a.name, err)
	}

	return s, nil
}

func (a *adapter[S, P]) Start(roster []engine.Player, src engine.Source) (patch.Document, error) {
	s, err := a.start(roster, src)
	if err != nil {
		return nil, err
	}

	return patch.Encode(s)
}

func (a *adapter[S, P]) Apply(doc patch.Document, in engine.Intent, src engine.Source) (patch.Document, Outcome, error) {
	s, err := a.decode(doc)
	if err != nil {
		return nil, Outcome{}, err
	}

	next, err := a.apply(s, in, src)
	if err != nil {
		return nil, Outcome{}, err
	}

	out, err := patch.Encode(next)
	if err != nil {
		return nil, Outcome{}, err
	}

	return out, Outcome{Over: next.Over(), Standings: next.Standings()}, nil
}

func (a *adapter[S, P]) View(doc patch.Document, viewer string) (patch.Document, error) {
	s, err := a.decode(doc)
	if err != nil {
		return nil, err
	}

	r, ok := any(s).(interface{ Redact(string) S })
	if !ok {
		return doc, nil
	}

	return patch.Encode(r.Redact(viewer))
}

// Registry maps game names to engines.
type Registry struct {
	engines map[string]Engine
}

func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[string]Engine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}

	return r
}

// DefaultRegistry holds every bundled game with its standard rules.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Adapt[dice.State]("dice", engine.MaxPlayers,
			func(r []engine.Player, src engine.Source) (dice.State, error) {
				return dice.Start(r, dice.DefaultConfig(), src)
			},
			dice.Apply),
		Adapt[bluff.State]("bluff", engine.MaxPlayers,
			func(r []engine.Player, src engine.Source) (bluff.State, error) {
				return bluff.Start(r, bluff.DefaultConfig(), src)
			},
			bluff.Apply),
		Adapt[gems.State]("gems", engine.MaxPlayers,
			func(r []engine.Player, src engine.Source) (gems.State, error) {
				return gems.Start(r, gems.DefaultConfig(), src)
			},
			gems.Apply),
		Adapt[wordhunt.State]("wordhunt", engine.MaxPlayers,
			func(r []engine.Player, src engine.Source) (wordhunt.State, error) {
				return wordhunt.Start(r, wordhunt.DefaultConfig(), src)
			},
			wordhunt.Apply),
		Adapt[blocks.State]("blocks", blocks.MaxPlayers,
			func(r []engine.Player, src engine.Source) (blocks.State, error) {
				return blocks.Start(r, blocks.DefaultConfig(), src)
			},
			blocks.Apply),
	)
}

func (r *Registry) Get(name string) (Engine, bool) {
	e, ok := r.engines[name]
	return e, ok
}

// Names lists the registered games in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.engines))
}
