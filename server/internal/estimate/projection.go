package estimate

import (
	"math"

	"github.com/backlogcast/backlogcast/pkg/types"
)

// MaxFallbackDays caps the wait when no processing rate can be estimated.
const MaxFallbackDays = 365 * 10

const (
	confidencePerMonth = 15
	confidenceRateBump = 10
)

// projection holds the step F day counts.
type projection struct {
	days, optimistic, pessimistic int
}

// project converts a queue position into days to completion at the mean
// rate and at the mean rate shifted by one standard deviation either way.
func project(queue int64, r rates) projection {
	q := float64(queue)
	out := projection{days: MaxFallbackDays}
	if r.mean > 0 {
		out.days = int(math.Ceil(q / r.mean))
	}

	out.optimistic = out.days
	if fast := r.mean + r.stdDev; fast > 0 {
		out.optimistic = int(math.Ceil(q / fast))
	}

	out.pessimistic = out.days * 2
	if slow := r.mean - r.stdDev; slow > 0 {
		out.pessimistic = int(math.Ceil(q / slow))
	}
	return out
}

// confidence is step G: a score driven by how much data backs the rate.
// It is a heuristic, not a statistical confidence level.
func confidence(r rates) int {
	c := r.months * confidencePerMonth
	if r.mean > 0 {
		c += confidenceRateBump
	}
	return min(100, c)
}

// efficiency is step H: the region's processed-to-carryover ratio relative to
// the overall ratio across the same window. Informational only; it never
// feeds back into the rate. Defaults to 1.0 when a ratio is undefined.
func efficiency(region, overall []types.Record, window []string) float64 {
	if len(window) == 0 {
		return 1.0
	}
	in := make(map[string]bool, len(window))
	for _, p := range window {
		in[p] = true
	}

	sum := func(recs []types.Record) (processed, carryover float64) {
		for _, r := range recs {
			if !in[r.Period] {
				continue
			}
			switch r.Status {
			case types.StatusTotalProcessed:
				processed += float64(r.Value)
			case types.StatusCarryover:
				carryover += float64(r.Value)
			}
		}
		return processed, carryover
	}

	regionProcessed, regionCarry := sum(region)
	overallProcessed, overallCarry := sum(overall)
	if regionCarry == 0 || overallCarry == 0 {
		return 1.0
	}
	overallRatio := overallProcessed / overallCarry
	if overallRatio == 0 {
		return 1.0
	}
	return (regionProcessed / regionCarry) / overallRatio
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
