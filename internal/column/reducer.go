package column

import "math"

// reducer parameterizes aggregateCore's shared write/merge/rescale
// skeleton by a kind's identity element and its two folds: Fold combines
// a bucket's current value with one new record's value (used by Write);
// Combine folds two already-aggregated bucket values together (used by
// Merge and by Rescale's group-folding).
type reducer struct {
	kind     Kind
	identity float64
	fold     func(acc, v float64) float64
	combine  func(a, b float64) float64
}

var (
	sumReducer = reducer{
		kind:     Sum,
		identity: 0,
		fold:     func(acc, v float64) float64 { return acc + v },
		combine:  func(a, b float64) float64 { return a + b },
	}
	countReducer = reducer{
		kind:     Count,
		identity: 0,
		fold:     func(acc, _ float64) float64 { return acc + 1 },
		combine:  func(a, b float64) float64 { return a + b },
	}
	minReducer = reducer{
		kind:     Min,
		identity: math.MaxFloat64,
		fold:     func(acc, v float64) float64 { return math.Min(acc, v) },
		combine:  func(a, b float64) float64 { return math.Min(a, b) },
	}
	maxReducer = reducer{
		kind:     Max,
		identity: -math.MaxFloat64,
		fold:     func(acc, v float64) float64 { return math.Max(acc, v) },
		combine:  func(a, b float64) float64 { return math.Max(a, b) },
	}
	lastReducer = reducer{
		kind:     Last,
		identity: 0,
		fold:     func(_, v float64) float64 { return v },
		// Combine is used when folding buckets in ascending time order
		// (rescale groups, and merge's overlap fold): the later operand
		// always represents the more recent value, so it wins.
		combine: func(_, b float64) float64 { return b },
	}
)

func reducerFor(k Kind) reducer {
	switch k {
	case Sum:
		return sumReducer
	case Count:
		return countReducer
	case Min:
		return minReducer
	case Max:
		return maxReducer
	case Last:
		return lastReducer
	default:
		panic("column: reducerFor called with non-aggregate kind " + k.String())
	}
}
