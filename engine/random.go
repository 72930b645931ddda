/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package engine

import (
	"crypto/rand"
	"encoding/binary"
	randv2 "math/rand/v2"
	"sync"
)

// Source is the randomness provider for shuffles, deals and dice.
type Source interface {
	// Intn returns a non-negative random int in [0, n). n must be > 0.
	Intn(n int) int
}

type seeded struct {
	mu  sync.Mutex
	rng *randv2.Rand
}

// NewSeeded returns a deterministic Source. The same seed always yields the
// same sequence.
func NewSeeded(seed uint64) Source {
	return &seeded{rng: randv2.New(randv2.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seeded) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rng.IntN(n)
}

type cryptoSource struct{}

// NewCrypto returns a Source backed by crypto/rand.
func NewCrypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Intn(n int) int {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	return int(binary.LittleEndian.Uint64(b[:]) % uint64(n))
}

// Sequence is a scripted Source for tests. Each call returns the next value
// modulo n; once exhausted it keeps returning 0.
type Sequence struct {
	vals []int
	pos  int
}

// NewSequence returns a Source that replays vals in order.
func NewSequence(vals ...int) *Sequence {
	return &Sequence{vals: vals}
}

// Intn returns the absolute value of the next scripted value modulo n, or
// 0 once the script has run out.
func (s *Sequence) Intn(n int) int {
	if s.pos >= len(s.vals) {
		return 0
	}
	v := s.vals[s.pos]
	s.pos++
	if v < 0 {
		v = -v
	}

	return v % n
}

// Shuffle returns a Fisher-Yates shuffled copy of in.
func Shuffle[T any](src Source, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)

	for i := len(out) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}
