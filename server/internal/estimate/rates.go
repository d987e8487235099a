package estimate

import (
	"math"

	"github.com/backlogcast/backlogcast/pkg/types"
)

const (
	// DecayFactor weights each older month by 0.85 relative to the next.
	DecayFactor = 0.85

	// DaysPerMonth is the fixed divisor for the monthly processing rate.
	DaysPerMonth = 30

	// RateWindow is the number of most recent periods used for rates.
	RateWindow = 6
)

// rates are the per-day flow estimates derived from the recent window.
type rates struct {
	mean     float64 // EWMA decisions per day
	stdDev   float64 // weighted standard deviation of the monthly daily rates
	dailyNew float64 // arrivals per calendar day
	months   int     // periods used
}

// ewma returns the exponentially weighted mean and standard deviation of
// values, oldest first. Value i of n carries weight decay^(n-1-i).
func ewma(values []float64, decay float64) (mean, stdDev float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	weights := make([]float64, n)
	var total, sum float64
	for i, v := range values {
		weights[i] = math.Pow(decay, float64(n-1-i))
		total += weights[i]
		sum += weights[i] * v
	}
	mean = sum / total

	var variance float64
	for i, v := range values {
		d := v - mean
		variance += weights[i] * d * d
	}
	variance /= total
	return mean, math.Sqrt(variance)
}

// estimateRates computes step A over window (ascending periods).
func estimateRates(s *series, window []string) rates {
	daily := make([]float64, len(window))
	var arrivals float64
	var calendarDays int
	for i, p := range window {
		decided := s.value(p, types.StatusGranted) + s.value(p, types.StatusDenied)
		daily[i] = decided / DaysPerMonth
		arrivals += s.value(p, types.StatusNewReceived)
		calendarDays += daysInPeriod(p)
	}

	r := rates{months: len(window)}
	r.mean, r.stdDev = ewma(daily, DecayFactor)
	if calendarDays > 0 {
		r.dailyNew = arrivals / float64(calendarDays)
	}
	return r
}
