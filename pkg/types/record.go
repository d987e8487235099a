package types

import (
	"slices"
	"strings"
)

// Status codes published in the statistics' status dimension.
const (
	StatusTotalReceived  = "100000"
	StatusCarryover      = "102000" // pending brought forward from the previous period
	StatusNewReceived    = "103000"
	StatusTotalProcessed = "300000"
	StatusGranted        = "301000"
	StatusDenied         = "302000"
	StatusOther          = "305000" // withdrawn and other outcomes
	StatusPending        = "400000"
)

// RegionNationwide is the synthetic region code carrying the national total.
const RegionNationwide = "100000"

// All is the filter value meaning "no restriction" for region and category.
const All = "all"

// Record is one normalized statistic: a single value for one period, region,
// category and status. Records are immutable once produced.
type Record struct {
	Period   string `json:"period"` // YYYY-MM
	Region   string `json:"region"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Value    int64  `json:"value"`
}

// Filter selects records. Empty Region or Category (or "all") matches every
// value. TrailingMonths > 0 keeps only the N most recent periods present in
// the predicate-filtered set.
type Filter struct {
	Region         string `json:"region,omitempty"`
	Category       string `json:"category,omitempty"`
	Status         string `json:"status,omitempty"`
	StartPeriod    string `json:"startPeriod,omitempty"`
	EndPeriod      string `json:"endPeriod,omitempty"`
	TrailingMonths int    `json:"trailingMonths,omitempty"`
}

// IsAll reports whether v is an unrestricted filter value.
func IsAll(v string) bool {
	return v == "" || strings.EqualFold(v, All)
}

// Match reports whether r satisfies the predicate part of f. TrailingMonths
// is applied separately because it depends on the whole filtered set.
func (f Filter) Match(r Record) bool {
	if !IsAll(f.Region) && r.Region != f.Region {
		return false
	}
	if !IsAll(f.Category) && r.Category != f.Category {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.StartPeriod != "" && r.Period < f.StartPeriod {
		return false
	}
	if f.EndPeriod != "" && r.Period > f.EndPeriod {
		return false
	}
	return true
}

// Apply filters records by f, returning a new slice. The input is not modified.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	if f.TrailingMonths <= 0 {
		return out
	}

	periods := Periods(out)
	if len(periods) <= f.TrailingMonths {
		return out
	}
	cutoff := periods[len(periods)-f.TrailingMonths]
	kept := out[:0]
	for _, r := range out {
		if r.Period >= cutoff {
			kept = append(kept, r)
		}
	}
	return kept
}

// Periods returns the distinct periods present in records, sorted ascending.
func Periods(records []Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Period] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
