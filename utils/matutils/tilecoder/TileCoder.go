// Package tilecoder implements tile coding of vectors
package tilecoder

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/samplemv"

	"sfneuman.com/stampede/utils/floatutils"
)

// Controls tiling offsets. For each dimension, tilings are offset by
// randomly sampling from a uniform distribution with support
// [- tiling width/OffsetDiv, tiling width/OffsetDiv]
const OffsetDiv float64 = 1.5

// TileCoder implements functionality for tile coding a vector. Tile
// coding takes a low-dimensional vector and changes it into a large,
// sparse vector consisting of only 0's and 1's. Each 1 represents the
// coordinates of the original vector in some space of tilings. For
// example:
//
//	[0.5, 0.1] -> [0, 0, 0, 1, 0, 0, 1, 0]
//
// The number of nonzero elements in the tile-coded representation
// equals the number of tilings used to encode the vector. The number
// of total features in the tile-coded representation is the sum over
// tilings of the number of tiles per tiling. Tile coding requires that
// the space to be tiled be bounded.
//
// This implementation uses dense tilings over the entire space. That
// is, each dimension is fully tiled, and hash-based tile coding is not
// used.
type TileCoder struct {
	numTilings  int
	minDims     mat.Vector
	offsets     []*mat.Dense
	bins        [][]int
	binLengths  [][]float64
	includeBias bool
}

// New creates and returns a new TileCoder struct. The minDims and
// maxDims arguments are the bounds on each dimension between which
// tilings will be placed. These arguments should have the same shape
// as vectors which will be tile coded.
//
// The bins argument determines both the number of tilings and the
// number of tiles per tiling: the outer slice has one element per
// tiling, and each sub-slice gives the tiles along each dimension for
// that tiling. For example, bins := [][]int{{2, 2}, {4, 3}} uses two
// tilings, the first 2x2 and the second 4x3. Each sub-slice must have
// one entry per dimension of the coded vectors.
//
// The parameter includeBias determines whether or not a bias unit is
// kept as the first unit in the tile coded representation.
func New(minDims, maxDims mat.Vector, bins [][]int, seed uint64,
	includeBias bool) *TileCoder {
	if minDims.Len() != maxDims.Len() {
		panic(fmt.Sprintf("cannot specify minimum with fewer dimensions "+
			"than maximum: %d != %d", minDims.Len(), maxDims.Len()))
	}
	if len(bins) == 0 {
		panic("cannot have less than 1 bin per dimension")
	}
	for i := range bins {
		if len(bins[i]) != minDims.Len() {
			panic(fmt.Sprintf("there should be a single number of bins "+
				"for each dimension: \n\thave(%d) \n\twant (%d)",
				len(bins[i]), minDims.Len()))
		}
	}

	// Calculate the length of bins and the tiling offset bounds
	var bounds []r1.Interval
	numTilings := len(bins)
	binLengths := make([][]float64, numTilings)

	for j := 0; j < numTilings; j++ {
		binLengths[j] = make([]float64, minDims.Len())

		for i := 0; i < minDims.Len(); i++ {
			binLength := maxDims.AtVec(i) - minDims.AtVec(i)
			binLength /= float64(bins[j][i])
			bound := binLength / OffsetDiv // Bounds tiling offsets

			binLengths[j][i] = binLength
			bounds = append(bounds, r1.Interval{Min: -bound, Max: bound})
		}
	}

	// Sample the offset of each tiling uniformly
	source := rand.NewSource(seed)
	u := distmv.NewUniform(bounds, source)
	sampler := samplemv.IID{Dist: u}

	offsets := make([]*mat.Dense, numTilings)
	for i := range offsets {
		samples := mat.NewDense(1, len(bounds), nil)
		sampler.Sample(samples)
		offsets[i] = samples
	}

	return &TileCoder{numTilings, minDims, offsets, bins, binLengths,
		includeBias}
}

// Encode encodes a single vector as a tile-coded vector
func (t *TileCoder) Encode(v mat.Vector) *mat.VecDense {
	tileCoded := mat.NewVecDense(t.VecLength(), nil)

	for tiling := 0; tiling < t.numTilings; tiling++ {
		tileCoded.SetVec(t.encodeWithTiling(v, tiling), 1.0)
	}
	if t.includeBias {
		tileCoded.SetVec(0, 1.0)
	}
	return tileCoded
}

// encodeWithTiling returns the index of the tile coded feature vector
// which should be a 1.0 when the input vector v is encoded with tiling
// number tiling in the TileCoder
func (t *TileCoder) encodeWithTiling(v mat.Vector, tiling int) int {
	bias := 0
	if t.includeBias {
		bias = 1
	}

	// indexOffset is the index into the tile-coded vector at which
	// the current tiling will start
	indexOffset := t.featuresBeforeTiling(tiling)
	index := 0

	// Loop through each feature to calculate the tile index along that
	// feature dimension
	for i := len(t.bins[tiling]) - 1; i > -1; i-- {
		// Offset the tiling
		data := v.AtVec(i) + t.offsets[tiling].At(0, i)

		// Calculate the index of the tile along the current feature
		// dimension in which the feature falls
		tile := math.Floor((data - t.minDims.AtVec(i)) /
			t.binLengths[tiling][i])

		// Clip tile to within tiling bounds
		tile = floatutils.Clip(tile, 0.0, float64(t.bins[tiling][i]-1))

		tileIndex := int(tile)
		if i == len(t.bins[tiling])-1 {
			index += tileIndex
		} else {
			index += tileIndex * t.bins[tiling][i+1]
		}
	}
	return indexOffset + index + bias
}

// featuresBeforeTiling calculates how many features exist in the
// tile-coded representation before tiling number i
func (t *TileCoder) featuresBeforeTiling(i int) int {
	features := 0
	for j := 0; j < i; j++ {
		features += prod(t.bins[j])
	}
	return features
}

// String returns a string representation of a *TileCoder
func (t *TileCoder) String() string {
	return fmt.Sprintf("Tilings %d  |  Tiles: %v", t.numTilings, t.bins)
}

// VecLength returns the number of features in a tile-coded vector
func (t *TileCoder) VecLength() int {
	baseVec := 0
	for i := 0; i < t.numTilings; i++ {
		baseVec += prod(t.bins[i])
	}
	if t.includeBias {
		return baseVec + 1
	}
	return baseVec
}

// NumTilings returns the number of tilings the tile coder uses for
// encoding vectors
func (t *TileCoder) NumTilings() int {
	return t.numTilings
}

// prod calculates the product of all integers in a []int
func prod(i []int) int {
	prod := 1
	for _, v := range i {
		prod *= v
	}
	return prod
}
