package replay

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// SelectorType identifies a strategy for choosing indices out of a
// sequence buffer
type SelectorType string

const (
	// Fifo chooses the oldest indices first
	Fifo SelectorType = "fifo"

	// Uniform chooses indices uniformly at random
	Uniform SelectorType = "uniform"
)

// Selector chooses which buffered sequences are sampled or removed.
// Agents that keep their own sequence buffers (off-policy replay)
// configure them with a sampling and a removal Selector.
type Selector interface {
	// Choose returns n indices in [0, size)
	Choose(n, size int) []int
}

// NewSelector creates the Selector of the given type
func NewSelector(t SelectorType, seed uint64) (Selector, error) {
	switch t {
	case Fifo:
		return fifoSelector{}, nil

	case Uniform:
		return &uniformSelector{rng: rand.New(rand.NewSource(seed))}, nil
	}

	return nil, fmt.Errorf("newSelector: no such selector type %q", t)
}

// fifoSelector chooses the first (oldest) indices
type fifoSelector struct{}

func (fifoSelector) Choose(n, size int) []int {
	if n > size {
		n = size
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// uniformSelector chooses indices uniformly at random with replacement
type uniformSelector struct {
	rng *rand.Rand
}

func (u *uniformSelector) Choose(n, size int) []int {
	if size <= 0 {
		return nil
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = u.rng.Intn(size)
	}
	return indices
}
