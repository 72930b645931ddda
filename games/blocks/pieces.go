/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package blocks

import (
	"cmp"
	"slices"
)

// Cell is an (x, y) board coordinate; y grows downwards.
type Cell [2]int

// Monomino is the single-square piece that earns the finishing bonus.
const Monomino = "I1"

// Pieces are the 21 free polyominoes of one to five squares, in their base
// orientation.
var Pieces = map[string][]Cell{
	"I1": {{0, 0}},
	"I2": {{0, 0}, {1, 0}},
	"I3": {{0, 0}, {1, 0}, {2, 0}},
	"V3": {{0, 0}, {0, 1}, {1, 1}},
	"I4": {{0, 0}, {1, 0}, {2, 0}, {3, 0}},
	"L4": {{0, 0}, {0, 1}, {0, 2}, {1, 2}},
	"T4": {{0, 0}, {1, 0}, {2, 0}, {1, 1}},
	"O4": {{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	"Z4": {{0, 0}, {1, 0}, {1, 1}, {2, 1}},
	"F5": {{1, 0}, {2, 0}, {0, 1}, {1, 1}, {1, 2}},
	"I5": {{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}},
	"L5": {{0, 0}, {0, 1}, {0, 2}, {0, 3}, {1, 3}},
	"N5": {{0, 0}, {1, 0}, {1, 1}, {2, 1}, {3, 1}},
	"P5": {{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0, 2}},
	"T5": {{0, 0}, {1, 0}, {2, 0}, {1, 1}, {1, 2}},
	"U5": {{0, 0}, {2, 0}, {0, 1}, {1, 1}, {2, 1}},
	"V5": {{0, 0}, {0, 1}, {0, 2}, {1, 2}, {2, 2}},
	"W5": {{0, 0}, {0, 1}, {1, 1}, {1, 2}, {2, 2}},
	"X5": {{1, 0}, {0, 1}, {1, 1}, {2, 1}, {1, 2}},
	"Y5": {{1, 0}, {0, 1}, {1, 1}, {2, 1}, {3, 1}},
	"Z5": {{0, 0}, {1, 0}, {1, 1}, {1, 2}, {2, 2}},
}

// PieceNames lists every piece, smallest first.
func PieceNames() []string {
	names := make([]string, 0, len(Pieces))
	for name := range Pieces {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(len(Pieces[a]), len(Pieces[b])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	return names
}

// Squares sums the size of the named pieces.
func Squares(names []string) int {
	n := 0
	for _, name := range names {
		n += len(Pieces[name])
	}

	return n
}

// Orient mirrors cells horizontally when flip is set, then rotates them
// clockwise by rotation quarter turns, and shifts the result so that its
// bounding box starts at the origin.
func Orient(cells []Cell, rotation int, flip bool) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		x, y := c[0], c[1]
		if flip {
			x = -x
		}
		for range ((rotation % 4) + 4) % 4 {
			x, y = -y, x
		}
		out[i] = Cell{x, y}
	}

	return normalize(out)
}

func normalize(cells []Cell) []Cell {
	if len(cells) == 0 {
		return cells
	}

	minX, minY := cells[0][0], cells[0][1]
	for _, c := range cells[1:] {
		minX, minY = min(minX, c[0]), min(minY, c[1])
	}
	for i := range cells {
		cells[i] = Cell{cells[i][0] - minX, cells[i][1] - minY}
	}
	slices.SortFunc(cells, func(a, b Cell) int {
		if c := cmp.Compare(a[1], b[1]); c != 0 {
			return c
		}
		return cmp.Compare(a[0], b[0])
	})

	return cells
}

// Orientation is one distinct way of laying a piece down.
type Orientation struct {
	Rotation int
	Flip     bool
	Cells    []Cell
}

// Orientations returns the distinct orientations of a piece; symmetric
// pieces have fewer than eight.
func Orientations(name string) []Orientation {
	var out []Orientation
	for _, flip := range []bool{false, true} {
		for r := range 4 {
			cells := Orient(Pieces[name], r, flip)
			if slices.ContainsFunc(out, func(o Orientation) bool { return slices.Equal(o.Cells, cells) }) {
				continue
			}
			out = append(out, Orientation{Rotation: r, Flip: flip, Cells: cells})
		}
	}

	return out
}
