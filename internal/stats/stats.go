package stats

import (
	"math"
	"sort"
)

// RollingCapacity is the number of latency samples kept for percentile math.
const RollingCapacity = 12

// Percentile returns the nearest-rank percentile of samples.
// p is a fraction in (0, 1]. Empty input yields 0.
func Percentile(p float64, samples []uint32) uint32 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	sorted := append([]uint32(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := int(math.Ceil(p * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// P80 is shorthand for Percentile(0.80, samples).
func P80(samples []uint32) uint32 {
	return Percentile(0.80, samples)
}

// P95 is shorthand for Percentile(0.95, samples).
func P95(samples []uint32) uint32 {
	return Percentile(0.95, samples)
}

// Push appends value to window and evicts the oldest entries so that at most
// capacity samples remain. The input slice is not modified.
func Push(window []uint32, value uint32, capacity int) []uint32 {
	if capacity <= 0 {
		return nil
	}
	out := make([]uint32, 0, capacity)
	out = append(out, window...)
	out = append(out, value)
	if len(out) > capacity {
		out = append([]uint32(nil), out[len(out)-capacity:]...)
	}
	return out
}
