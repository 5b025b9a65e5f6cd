package stats

import (
	"math"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
)

func genSamples(min, max int) gopter.Gen {
	return gopter.Gen(func(genParams *gopter.GenParameters) *gopter.GenResult {
		n := genParams.Rng.Intn(max-min+1) + min
		out := make([]uint32, n)
		for i := range out {
			out[i] = uint32(genParams.Rng.Intn(6000) + 1)
		}
		return gopter.NewGenResult(out, gopter.NoShrinker)
	})
}

func TestPropertyPercentileMatchesNearestRank(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	props := gopter.NewProperties(params)

	props.Property("P80/P95 equal sorted[ceil(p*n)-1]", prop.ForAll(
		func(samples []uint32) bool {
			sorted := append([]uint32(nil), samples...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			for _, p := range []float64{0.80, 0.95} {
				idx := int(math.Ceil(p*float64(len(sorted)))) - 1
				if idx < 0 {
					idx = 0
				}
				if Percentile(p, samples) != sorted[idx] {
					return false
				}
			}
			return P80(samples) <= P95(samples)
		},
		genSamples(1, RollingCapacity),
	))

	props.TestingRun(t)
}

func TestPropertyPushBounded(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	props := gopter.NewProperties(params)

	props.Property("window never exceeds capacity and keeps newest", prop.ForAll(
		func(values []uint32) bool {
			var window []uint32
			for _, v := range values {
				window = Push(window, v, RollingCapacity)
				if len(window) > RollingCapacity {
					return false
				}
			}
			if len(values) == 0 {
				return len(window) == 0
			}
			return window[len(window)-1] == values[len(values)-1]
		},
		genSamples(0, 40),
	))

	props.TestingRun(t)
}
