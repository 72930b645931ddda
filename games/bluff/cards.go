/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package bluff

import (
	"fmt"
	"slices"

	"github.com/Seednode/partyrooms/engine"
)

// CardKind distinguishes number cards from special cards.
type CardKind string

const (
	KindNumber    CardKind = "number"
	KindWild      CardKind = "wild"
	KindMaxZero   CardKind = "max_zero"
	KindDouble    CardKind = "double"
	KindReshuffle CardKind = "reshuffle"
)

// Card is a single card. Value is only meaningful for number cards.
type Card struct {
	Kind  CardKind `json:"kind"`
	Value int      `json:"value"`
}

func Number(v int) Card { return Card{Kind: KindNumber, Value: v} }

func (c Card) String() string {
	if c.Kind == KindNumber {
		return fmt.Sprintf("%d", c.Value)
	}

	return string(c.Kind)
}

// NewDeck returns the unshuffled deck.
func NewDeck() []Card {
	deck := make([]Card, 0, 35)

	add := func(v, n int) {
		for range n {
			deck = append(deck, Number(v))
		}
	}
	add(20, 1)
	add(15, 1)
	add(10, 3)
	add(5, 4)
	add(4, 4)
	add(3, 4)
	add(2, 4)
	add(1, 4)
	add(0, 3)
	add(-5, 2)
	add(-10, 1)

	return append(deck,
		Card{Kind: KindWild},
		Card{Kind: KindMaxZero},
		Card{Kind: KindDouble},
		Card{Kind: KindReshuffle},
	)
}

// Total computes the value of the cards in play. The steps run in order:
//  1. every wild card takes the number of the mystery card
//  2. a max-zero card zeroes exactly one instance of the highest resolved
//     number, the first one found, even when every number is negative
//  3. a double card multiplies the running sum by two
//
// mystery is ignored when no wild card is in play and counts as 0 when nil.
func Total(dealt []Card, mystery *Card) int {
	values := make([]int, len(dealt))
	numeric := make([]bool, len(dealt))
	maxZero, double := false, false

	for i, c := range dealt {
		switch c.Kind {
		case KindNumber:
			values[i], numeric[i] = c.Value, true
		case KindWild:
			if mystery != nil {
				values[i] = mystery.Value
			}
			numeric[i] = true
		case KindMaxZero:
			maxZero = true
		case KindDouble:
			double = true
		}
	}

	if maxZero {
		maxIdx := -1
		for i, v := range values {
			if numeric[i] && (maxIdx < 0 || v > values[maxIdx]) {
				maxIdx = i
			}
		}
		if maxIdx >= 0 {
			values[maxIdx] = 0
		}
	}

	sum := 0
	for _, v := range values {
		sum += v
	}
	if double {
		sum *= 2
	}

	return sum
}

func hasKind(cards []Card, kind CardKind) bool {
	return slices.ContainsFunc(cards, func(c Card) bool { return c.Kind == kind })
}

// draw pops the top card of the pile, first folding the discard back in
// when the pile is empty.
func draw(pile, discard []Card, src engine.Source) (Card, []Card, []Card, error) {
	if len(pile) == 0 {
		pile, discard = engine.Shuffle(src, discard), []Card{}
	}
	if len(pile) == 0 {
		return Card{}, pile, discard, engine.ErrResourceExhausted
	}

	top := pile[len(pile)-1]

	return top, pile[:len(pile)-1], discard, nil
}

// drawMystery draws until a number card turns up. Special cards drawn on
// the way are discarded.
func drawMystery(pile, discard []Card, src engine.Source) (Card, []Card, []Card, error) {
	for {
		c, p, d, err := draw(pile, discard, src)
		if err != nil {
			return Card{}, p, d, err
		}
		pile, discard = p, d
		if c.Kind == KindNumber {
			return c, pile, discard, nil
		}
		discard = append(discard, c)
		// A pile made only of specials would loop forever.
		if !hasKind(pile, KindNumber) && !hasKind(discard, KindNumber) {
			return Card{}, pile, discard, engine.ErrResourceExhausted
		}
	}
}
