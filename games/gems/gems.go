/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package gems

import "maps"

// Color is a gem category.
type Color string

const (
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Red    Color = "red"
	White  Color = "white"
)

// Colors lists every category in display order.
var Colors = []Color{Blue, Yellow, Red, White}

// Scoring constants. Blue, yellow and red form a set; white scores the
// square of its count.
const (
	SetBonus = 4
)

var unitValue = map[Color]int{
	Blue:   1,
	Yellow: 2,
	Red:    3,
}

// Gems is a multiset of gems keyed by color.
type Gems map[Color]int

// Total returns the raw number of gems.
func (g Gems) Total() int {
	n := 0
	for _, c := range g {
		n += c
	}

	return n
}

func (g Gems) Empty() bool { return g.Total() == 0 }

// Plus returns g+o as a new multiset.
func (g Gems) Plus(o Gems) Gems {
	out := maps.Clone(g)
	if out == nil {
		out = Gems{}
	}
	for c, n := range o {
		if n != 0 {
			out[c] += n
		}
	}

	return out.compact()
}

// Minus returns g-o as a new multiset, never going below zero.
func (g Gems) Minus(o Gems) Gems {
	out := maps.Clone(g)
	if out == nil {
		out = Gems{}
	}
	for c, n := range o {
		out[c] -= n
		if out[c] < 0 {
			out[c] = 0
		}
	}

	return out.compact()
}

func (g Gems) compact() Gems {
	for c, n := range g {
		if n == 0 {
			delete(g, c)
		}
	}

	return g
}

// Sets returns how many complete blue/yellow/red sets g holds.
func (g Gems) Sets() int {
	return min(g[Blue], g[Yellow], g[Red])
}

// Score is the linear unit value per color, plus SetBonus per complete
// set, plus the white count squared.
func Score(g Gems) int {
	score := 0
	for c, v := range unitValue {
		score += g[c] * v
	}
	score += g.Sets() * SetBonus
	score += g[White] * g[White]

	return score
}
