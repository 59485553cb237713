package bisect

import (
	"fmt"
	"math"

	"energysplit/internal/oracle"
)

// Transition is an energy at which the predicted structure changes.
type Transition struct {
	// StructureMin is the structure at the low-energy side of the leaf.
	StructureMin string
	// StructureMax is the structure at the high-energy side of the leaf.
	StructureMax string
	Energy       float64
}

// SearchInterval is an immutable energy interval with optionally cached
// oracle outcomes at its bounds.
type SearchInterval struct {
	Lo, Hi    float64
	Depth     int
	LoOutcome *oracle.Outcome
	HiOutcome *oracle.Outcome
}

// NewInterval builds an interval with no cached outcomes.
func NewInterval(lo, hi float64, depth int) (SearchInterval, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return SearchInterval{}, fmt.Errorf("invalid interval [%v, %v]", lo, hi)
	}
	return SearchInterval{Lo: lo, Hi: hi, Depth: depth}, nil
}

// Width returns Hi - Lo.
func (iv SearchInterval) Width() float64 {
	return iv.Hi - iv.Lo
}

// Midpoint returns the split energy.
func (iv SearchInterval) Midpoint() float64 {
	return (iv.Lo + iv.Hi) / 2
}

// Split halves the interval. Each half keeps the cached outcome of its outer
// bound; the midpoint outcome is left for each half to probe.
func (iv SearchInterval) Split() (low, high SearchInterval) {
	mid := iv.Midpoint()
	low = SearchInterval{Lo: iv.Lo, Hi: mid, Depth: iv.Depth + 1, LoOutcome: iv.LoOutcome}
	high = SearchInterval{Lo: mid, Hi: iv.Hi, Depth: iv.Depth + 1, HiOutcome: iv.HiOutcome}
	return low, high
}

func (iv SearchInterval) withOutcomes(lo, hi oracle.Outcome) SearchInterval {
	iv.LoOutcome = &lo
	iv.HiOutcome = &hi
	return iv
}

// RootInterval returns the symmetric search bounds for a sequence of length
// bases.
func RootInterval(length int, perBase float64) (lo, hi float64) {
	hi = math.Abs(perBase) * float64(length)
	return -hi, hi
}

// MaxDepth returns the deepest level a search over width can reach before its
// intervals drop below precision. It equals ceil(log2(width/precision)) unless
// the ratio is an exact power of two.
func MaxDepth(width, precision float64) int {
	if precision <= 0 || width < precision {
		return 0
	}
	depth := 0
	for w := width; w >= precision; w /= 2 {
		depth++
	}
	return depth
}
