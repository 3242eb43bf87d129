// Package rng provides the seeded random source used for deck shuffling.
// Every match keeps its seed in game state so a shuffle can be reproduced
// for auditing or replay.
package rng

import (
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
)

// ErrEmptyInput is returned when a random pick is requested from an empty slice.
var ErrEmptyInput = errors.New("rng: pick from empty input")

// NewSeed returns a fresh unpredictable seed, 16 random bytes hex-encoded.
func NewSeed() (string, error) {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate seed: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// New returns a deterministic generator derived from seed. The same seed
// always yields the same sequence.
func New(seed string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// Shuffle performs an in-place Fisher-Yates shuffle of items using r.
func Shuffle[T any](items []T, r *rand.Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Pick draws a uniformly random element from items.
func Pick[T any](items []T, r *rand.Rand) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyInput
	}
	return items[r.Intn(len(items))], nil
}
