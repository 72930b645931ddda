/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package dice

import (
	"fmt"

	"github.com/Seednode/partyrooms/engine"
)

const (
	MinFace = 1
	MaxFace = 6
)

// Category names the class of a two-die roll.
type Category string

const (
	CategorySpecial Category = "special"
	CategoryPair    Category = "pair"
	CategoryPlain   Category = "plain"
)

// Category bases keep every special above every pair above every sum.
const (
	pairBase    = 100
	specialRank = 200
)

var ErrInvalidDie = fmt.Errorf("%w: die face out of range", engine.ErrInvalidIntent)

// Rank is the totally ordered value of a roll plus its display category.
type Rank struct {
	Category Category `json:"category"`
	Value    int      `json:"value"`
}

// Beats reports whether r ranks strictly above o.
func (r Rank) Beats(o Rank) bool { return r.Value > o.Value }

// RankRoll ranks a pair of faces. The order of the two dice never matters:
//   - 1 and 2 is the unique top category regardless of sum
//   - matching pairs rank 6-6 highest down to 1-1
//   - anything else ranks by its sum
func RankRoll(a, b int) (Rank, error) {
	if a < MinFace || a > MaxFace || b < MinFace || b > MaxFace {
		return Rank{}, fmt.Errorf("%w: %d,%d", ErrInvalidDie, a, b)
	}

	switch {
	case (a == 1 && b == 2) || (a == 2 && b == 1):
		return Rank{Category: CategorySpecial, Value: specialRank}, nil
	case a == b:
		return Rank{Category: CategoryPair, Value: pairBase + a}, nil
	default:
		return Rank{Category: CategoryPlain, Value: a + b}, nil
	}
}

// Outcome is one actor's roll within a round.
type Outcome struct {
	ID   string
	Dice [2]int
}

// Weakest returns every actor whose roll ties for the lowest rank. Ties
// share the penalty; they are never broken.
func Weakest(outcomes []Outcome) ([]string, error) {
	scored := make([]engine.Scored, 0, len(outcomes))
	for _, o := range outcomes {
		r, err := RankRoll(o.Dice[0], o.Dice[1])
		if err != nil {
			return nil, err
		}
		scored = append(scored, engine.Scored{ID: o.ID, Value: r.Value})
	}

	return engine.Weakest(scored), nil
}

// Throw rolls two dice from src.
func Throw(src engine.Source) [2]int {
	return [2]int{src.Intn(MaxFace) + 1, src.Intn(MaxFace) + 1}
}
