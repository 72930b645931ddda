/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"encoding/json"
	"fmt"
)

// Intent is a submitted, not yet resolved action. Kind selects the
// transition; Payload carries its game-specific arguments.
type Intent struct {
	Actor   string          `json:"actor"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v, rejecting malformed input.
func (in Intent) Decode(v any) error {
	if len(in.Payload) == 0 {
		return fmt.Errorf("%w: %s needs a payload", ErrBadPayload, in.Kind)
	}
	if err := json.Unmarshal(in.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadPayload, in.Kind, err)
	}

	return nil
}

// NewIntent builds an Intent with a JSON-encoded payload. A nil payload is
// left empty.
func NewIntent(actor, kind string, payload any) Intent {
	in := Intent{Actor: actor, Kind: kind}
	if payload != nil {
		in.Payload, _ = json.Marshal(payload)
	}

	return in
}

// Standing is one line of a final ranking.
type Standing struct {
	ID    string `json:"id"`
	Place int    `json:"place"`
	Score int    `json:"score"`
}

// Places numbers an already sorted ranking. Neighbours for which cmp
// returns 0 share a place and the next distinct entry skips ahead, so
// two players tied for second are followed by fourth.
func Places[T any](sorted []T, cmp func(a, b T) int) []int {
	places := make([]int, len(sorted))
	for i := range sorted {
		if i > 0 && cmp(sorted[i-1], sorted[i]) == 0 {
			places[i] = places[i-1]
			continue
		}
		places[i] = i + 1
	}

	return places
}
