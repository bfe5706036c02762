package engine

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// RandomSource is the randomness a board draws tile safety from.
// *Stream satisfies it; tests may pass any deterministic implementation.
type RandomSource interface {
	Intn(n int) int
}

// SeedFromString hashes a seed phrase down to 64 bits.
func SeedFromString(s string) uint64 {
	h := sha256.Sum256([]byte(s))
	return binary.LittleEndian.Uint64(h[:8])
}

// Derive returns a child seed for base and label using HMAC-SHA256.
// Labels are stable strings such as "board" or "board:restart:2".
func Derive(base uint64, label string) uint64 {
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, base)
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(label))
	sum := m.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}

// Seed is the canonical seed phrase of a session.
type Seed struct {
	Text string
	root uint64
}

// NewSeed builds a Seed from its text form. Empty text is rejected.
func NewSeed(text string) (Seed, error) {
	if text == "" {
		return Seed{}, fmt.Errorf("seed text must not be empty")
	}
	return Seed{Text: text, root: SeedFromString(text)}, nil
}

// Stream returns a deterministic stream for label.
func (s Seed) Stream(label string) *Stream {
	return newStream(Derive(s.root, label))
}

// BoardStream is the stream used for the n-th board layout of a session.
// Rebuilding a board for rewind uses the same n so the layout is identical.
func (s Seed) BoardStream(n int) *Stream {
	return s.Stream(fmt.Sprintf("board:%d", n))
}

type splitMix64 struct{ state uint64 }

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Stream is a SplitMix64 generator.
type Stream struct {
	sm *splitMix64
}

func newStream(seed uint64) *Stream {
	return &Stream{sm: &splitMix64{state: seed}}
}

// Intn mirrors math/rand.Intn. n <= 0 yields 0.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.sm.next() % uint64(n))
}
