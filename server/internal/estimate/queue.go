package estimate

import (
	"math"
	"time"

	"github.com/backlogcast/backlogcast/pkg/types"
)

// carryoverAt is step B: the backlog standing at the start of the filing
// month. If the previous month has data its end-of-month pending is used
// directly. Otherwise the latest period with data at or before the filing
// month seeds a month-by-month simulation up to the filing month.
func carryoverAt(s *series, filed month, r rates) float64 {
	prev := filed.prev().String()
	if s.has(prev) {
		return s.pendingAfter(prev)
	}

	base, ok := s.latestAtOrBefore(filed)
	if !ok {
		return 0
	}
	from, err := parseMonth(base)
	if err != nil {
		return 0
	}
	c := s.pendingAfter(base)
	for m := range monthsBetween(from, filed) {
		c = simulateMonth(c, r, m.days())
	}
	return c
}

// simulateMonth advances a backlog by one month of net inflow, never below zero.
func simulateMonth(carryover float64, r rates, days int) float64 {
	return math.Max(0, carryover+(r.dailyNew-r.mean)*float64(days))
}

// proRated is step C: arrivals and decisions in the filing month up to the
// filing day. Actual monthly figures are used when the month has data, the
// estimated daily rates otherwise.
func proRated(s *series, filed month, day int, r rates) (received, processed float64) {
	p := filed.String()
	if s.has(p) {
		days := float64(filed.days())
		received = s.value(p, types.StatusNewReceived) / days * float64(day)
		processed = s.value(p, types.StatusTotalProcessed) / days * float64(day)
		return received, processed
	}
	return r.dailyNew * float64(day), r.mean * float64(day)
}

// queueAtFiling is step D.
func queueAtFiling(carryover, received, processed float64) int64 {
	return int64(math.Round(carryover + received - processed))
}

// processedSince is step E: decisions made between filing and today. Months
// after the filing month that have data contribute their actual totals; the
// remainder is estimated from the mean rate.
func processedSince(s *series, filedOn, today time.Time, r rates) int64 {
	filed := monthOf(filedOn)
	p := filed.String()

	var confirmed float64
	if s.has(p) {
		confirmed += r.mean * float64(filed.days()-filedOn.Day())
	}
	for _, later := range s.periods {
		if later > p {
			confirmed += s.value(later, types.StatusTotalProcessed)
		}
	}

	var estimated float64
	if len(s.periods) > 0 {
		lastData, err := parseMonth(s.periods[len(s.periods)-1])
		if err == nil {
			if filedOn.After(lastData.last()) {
				estimated = r.mean*math.Max(0, float64(daysBetween(filedOn, today))) - confirmed
			} else {
				estimated = r.mean * math.Max(0, float64(daysBetween(lastData.last(), today)))
			}
		}
	}

	return int64(math.Round(confirmed + math.Max(0, estimated)))
}
