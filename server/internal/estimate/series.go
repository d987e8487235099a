package estimate

import (
	"slices"

	"github.com/backlogcast/backlogcast/pkg/types"
)

// series is the filtered record set summed per period and status.
type series struct {
	periods  []string // ascending
	byPeriod map[string]map[string]float64
}

func newSeries(recs []types.Record) *series {
	s := &series{byPeriod: make(map[string]map[string]float64)}
	for _, r := range recs {
		m, ok := s.byPeriod[r.Period]
		if !ok {
			m = make(map[string]float64)
			s.byPeriod[r.Period] = m
			s.periods = append(s.periods, r.Period)
		}
		m[r.Status] += float64(r.Value)
	}
	slices.Sort(s.periods)
	return s
}

func (s *series) has(p string) bool {
	_, ok := s.byPeriod[p]
	return ok
}

func (s *series) value(p, status string) float64 {
	return s.byPeriod[p][status]
}

func (s *series) hasStatus(p, status string) bool {
	_, ok := s.byPeriod[p][status]
	return ok
}

// received is the period's total workload. It is derived from carryover +
// new received whenever that breakdown is present and only falls back to the
// published total otherwise.
func (s *series) received(p string) float64 {
	if s.hasStatus(p, types.StatusCarryover) || s.hasStatus(p, types.StatusNewReceived) {
		return s.value(p, types.StatusCarryover) + s.value(p, types.StatusNewReceived)
	}
	return s.value(p, types.StatusTotalReceived)
}

// pendingAfter is what remained undecided at the end of p: received minus
// processed, or the published carryover when that difference is not positive.
func (s *series) pendingAfter(p string) float64 {
	c := s.received(p) - s.value(p, types.StatusTotalProcessed)
	if c <= 0 {
		c = s.value(p, types.StatusCarryover)
	}
	return c
}

// recent returns the last n periods, oldest first.
func (s *series) recent(n int) []string {
	if len(s.periods) <= n {
		return s.periods
	}
	return s.periods[len(s.periods)-n:]
}

// latestAtOrBefore returns the latest period with data that is not after m.
func (s *series) latestAtOrBefore(m month) (string, bool) {
	limit := m.String()
	for i := len(s.periods) - 1; i >= 0; i-- {
		if s.periods[i] <= limit {
			return s.periods[i], true
		}
	}
	return "", false
}
