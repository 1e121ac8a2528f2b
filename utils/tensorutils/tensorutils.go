// Package tensorutils bridges integer indexing onto gorgonia's tensor
// slicing API
package tensorutils

// Slice selects the half-open range [start, end) with the given step
// along one tensor axis. Given a tensor T, T.Slice(..., S, ...) is
// equivalent to T[..., S.Start():S.End():S.Step(), ...]
type Slice struct {
	start, end, step int
}

// NewSlice returns the Slice selecting [start, end) with the given
// step
func NewSlice(start, end, step int) Slice {
	return Slice{start, end, step}
}

// Index returns the Slice selecting the single position i along an
// axis, the tensor analogue of t[i]
func Index(i int) Slice {
	return NewSlice(i, i+1, 1)
}

// Start returns the start index for the tensor slice
func (s Slice) Start() int {
	return s.start
}

// End returns the ending index for the tensor slice
func (s Slice) End() int {
	return s.end
}

// Step returns the step for the tensor slice
func (s Slice) Step() int {
	return s.step
}
