package aggregate

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/backlogcast/backlogcast/pkg/types"
)

// MinProcessedForRanking is the processed-volume floor below which a region
// is reported as excluded instead of ranked.
const MinProcessedForRanking = 50

// Source provides filtered records.
type Source interface {
	All(f types.Filter) ([]types.Record, error)
}

// Engine computes aggregation views over a Source.
type Engine struct {
	src Source
}

// New returns an Engine reading from src.
func New(src Source) *Engine {
	return &Engine{src: src}
}

// Summary reports the latest period in the filtered set. Pending excludes the
// "other/withdrawn" outcome on purpose, and TotalReceived is derived from
// pending + granted + denied rather than read from the published total.
func (e *Engine) Summary(f types.Filter) (types.Summary, error) {
	recs, err := e.records(f)
	if err != nil {
		return types.Summary{}, err
	}
	periods := types.Periods(recs)
	if len(periods) == 0 {
		return types.Summary{}, nil
	}
	latest := periods[len(periods)-1]
	t := tallyByPeriod(recs)[latest]

	granted := t[types.StatusGranted]
	denied := t[types.StatusDenied]
	processed := t[types.StatusTotalProcessed]
	pending := t[types.StatusCarryover] + t[types.StatusNewReceived] - (granted + denied)

	return types.Summary{
		TotalReceived:  pending + granted + denied,
		TotalProcessed: processed,
		TotalGranted:   granted,
		TotalDenied:    denied,
		ApprovalRate:   approvalRate(granted, processed),
		PendingCount:   pending,
		LatestPeriod:   latest,
	}, nil
}

// MonthlySeries returns one point per period in the filtered set, ascending.
func (e *Engine) MonthlySeries(f types.Filter) ([]types.MonthlyPoint, error) {
	recs, err := e.records(f)
	if err != nil {
		return nil, err
	}
	tallies := tallyByPeriod(recs)
	periods := types.Periods(recs)

	out := make([]types.MonthlyPoint, 0, len(periods))
	for _, p := range periods {
		t := tallies[p]
		out = append(out, types.MonthlyPoint{
			Period:         p,
			Carryover:      t[types.StatusCarryover],
			NewReceived:    t[types.StatusNewReceived],
			Granted:        t[types.StatusGranted],
			Denied:         t[types.StatusDenied],
			TotalProcessed: t[types.StatusTotalProcessed],
			TotalReceived:  t[types.StatusCarryover] + t[types.StatusNewReceived],
		})
	}
	return out, nil
}

// RegionDistribution sums each region's workload (carryover + new received)
// over every period in the filtered set. Zero-workload regions are dropped;
// the result is sorted by workload, largest first.
func (e *Engine) RegionDistribution(f types.Filter) ([]types.RegionTotal, error) {
	recs, err := e.records(f)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, r := range recs {
		if r.Status == types.StatusCarryover || r.Status == types.StatusNewReceived {
			totals[r.Region] += r.Value
		}
	}

	out := make([]types.RegionTotal, 0, len(totals))
	for region, v := range totals {
		if v <= 0 {
			continue
		}
		out = append(out, types.RegionTotal{Region: region, Label: types.RegionLabel(region), Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Region < out[j].Region
	})
	return out, nil
}

// BacklogTrend breaks each period's carryover out by category. The category
// filter is ignored: the breakdown is itself the requested dimension.
func (e *Engine) BacklogTrend(f types.Filter) ([]types.BacklogPoint, error) {
	f.Category = types.All
	recs, err := e.records(f)
	if err != nil {
		return nil, err
	}

	byPeriod := make(map[string]map[string]int64)
	for _, r := range recs {
		if r.Status != types.StatusCarryover {
			continue
		}
		m, ok := byPeriod[r.Period]
		if !ok {
			m = make(map[string]int64)
			byPeriod[r.Period] = m
		}
		m[r.Category] += r.Value
	}

	codes := types.CategoryCodes()
	periods := types.Periods(recs)
	out := make([]types.BacklogPoint, 0, len(periods))
	for _, p := range periods {
		point := types.BacklogPoint{Period: p, ByCategory: make(map[string]int64, len(codes))}
		for _, c := range codes {
			point.ByCategory[c] = byPeriod[p][c]
		}
		out = append(out, point)
	}
	return out, nil
}

// RegionApprovalRates ranks regions by approval rate over the trailing
// window (every period when trailingMonths <= 0), optionally restricted to
// one category. Regions that processed fewer than MinProcessedForRanking
// applications are listed as excluded, except the nationwide aggregate,
// which is always ranked.
func (e *Engine) RegionApprovalRates(category string, trailingMonths int) (types.ApprovalRanking, error) {
	recs, err := e.src.All(types.Filter{Category: category})
	if err != nil {
		return types.ApprovalRanking{}, fmt.Errorf("aggregate: approval rates: %w", err)
	}

	out := types.ApprovalRanking{
		Data:            []types.RegionApproval{},
		Threshold:       MinProcessedForRanking,
		ExcludedRegions: []string{},
	}

	periods := types.Periods(recs)
	if trailingMonths > 0 && len(periods) > trailingMonths {
		periods = periods[len(periods)-trailingMonths:]
	}
	if len(periods) == 0 {
		return out, nil
	}
	out.PeriodStart = periods[0]
	out.PeriodEnd = periods[len(periods)-1]

	type counts struct{ granted, processed int64 }
	byRegion := make(map[string]*counts)
	for _, r := range recs {
		if r.Period < out.PeriodStart {
			continue
		}
		c, ok := byRegion[r.Region]
		if !ok {
			c = &counts{}
			byRegion[r.Region] = c
		}
		switch r.Status {
		case types.StatusGranted:
			c.granted += r.Value
		case types.StatusTotalProcessed:
			c.processed += r.Value
		}
	}

	for region, c := range byRegion {
		if c.processed < MinProcessedForRanking && region != types.RegionNationwide {
			out.ExcludedRegions = append(out.ExcludedRegions, region)
			continue
		}
		out.Data = append(out.Data, types.RegionApproval{
			Region:       types.RegionLabel(region),
			RegionCode:   region,
			ApprovalRate: approvalRate(c.granted, c.processed),
			Granted:      c.granted,
			Processed:    c.processed,
		})
	}

	sort.Slice(out.Data, func(i, j int) bool {
		if out.Data[i].ApprovalRate != out.Data[j].ApprovalRate {
			return out.Data[i].ApprovalRate > out.Data[j].ApprovalRate
		}
		return out.Data[i].RegionCode < out.Data[j].RegionCode
	})
	slices.Sort(out.ExcludedRegions)
	return out, nil
}

// records fetches f from the source and drops the nationwide aggregate
// unless f names it explicitly.
func (e *Engine) records(f types.Filter) ([]types.Record, error) {
	recs, err := e.src.All(f)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if f.Region == types.RegionNationwide {
		return recs, nil
	}
	out := make([]types.Record, 0, len(recs))
	for _, r := range recs {
		if r.Region != types.RegionNationwide {
			out = append(out, r)
		}
	}
	return out, nil
}

type tally map[string]int64 // status → summed value

func tallyByPeriod(recs []types.Record) map[string]tally {
	out := make(map[string]tally)
	for _, r := range recs {
		t, ok := out[r.Period]
		if !ok {
			t = make(tally)
			out[r.Period] = t
		}
		t[r.Status] += r.Value
	}
	return out
}

// approvalRate is granted/processed as a percentage rounded to two decimals,
// or 0 when nothing was processed.
func approvalRate(granted, processed int64) float64 {
	if processed <= 0 {
		return 0
	}
	return round2(float64(granted) / float64(processed) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
