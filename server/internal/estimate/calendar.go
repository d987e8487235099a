package estimate

import (
	"fmt"
	"iter"
	"time"
)

const dateLayout = "2006-01-02"

// month is a calendar month.
type month struct {
	year int
	mon  time.Month
}

func monthOf(t time.Time) month { return month{year: t.Year(), mon: t.Month()} }

func parseMonth(s string) (month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return month{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return monthOf(t), nil
}

func (m month) String() string { return fmt.Sprintf("%04d-%02d", m.year, int(m.mon)) }

func (m month) first() time.Time { return time.Date(m.year, m.mon, 1, 0, 0, 0, 0, time.UTC) }

// last returns the final day of m.
func (m month) last() time.Time { return m.first().AddDate(0, 1, -1) }

func (m month) days() int { return m.last().Day() }

func (m month) next() month { return monthOf(m.first().AddDate(0, 1, 0)) }

func (m month) prev() month { return monthOf(m.first().AddDate(0, -1, 0)) }

func (m month) before(o month) bool {
	if m.year != o.year {
		return m.year < o.year
	}
	return m.mon < o.mon
}

// monthsBetween yields every month strictly after from and strictly before to.
func monthsBetween(from, to month) iter.Seq[month] {
	return func(yield func(month) bool) {
		for m := from.next(); m.before(to); m = m.next() {
			if !yield(m) {
				return
			}
		}
	}
}

// daysInPeriod returns the number of days in a YYYY-MM period, or 0 if it
// cannot be parsed.
func daysInPeriod(p string) int {
	m, err := parseMonth(p)
	if err != nil {
		return 0
	}
	return m.days()
}

// civilDate returns t's calendar date in loc as midnight UTC, so that day
// arithmetic never crosses a zone transition.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b (negative if b is earlier).
// Both must be civil dates. Unix seconds keep spans past time.Duration's
// range exact.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / 86400)
}
