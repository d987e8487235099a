package estimate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/backlogcast/backlogcast/pkg/types"
)

// ErrInvalidInput is returned for requests rejected before estimation starts.
var ErrInvalidInput = errors.New("estimate: invalid input")

// Source provides filtered records.
type Source interface {
	All(f types.Filter) ([]types.Record, error)
}

// Engine produces completion forecasts. It is safe for concurrent use.
type Engine struct {
	src    Source
	loc    *time.Location
	strict bool
	now    func() time.Time // injectable for deterministic tests
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocation sets the zone used to turn "now" into today's date.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithStrictCodes rejects region and category codes missing from the catalogs.
func WithStrictCodes(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine reading from src.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, loc: time.UTC, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Estimate forecasts the completion of the application described by req.
func (e *Engine) Estimate(req types.EstimationRequest) (types.EstimationResult, error) {
	filedOn, err := e.validate(req)
	if err != nil {
		return types.EstimationResult{}, err
	}

	recs, err := e.regionRecords(req.Region, req.Category)
	if err != nil {
		return types.EstimationResult{}, fmt.Errorf("estimate: %w", err)
	}
	s := newSeries(recs)
	window := s.recent(RateWindow)
	r := estimateRates(s, window)

	today := civilDate(e.now(), e.loc)
	future := filedOn.After(today)
	queue := e.queuePosition(s, filedOn, today, r)

	p := project(queue, r)
	base := today
	if future {
		base = filedOn
	}
	estimated := base.AddDate(0, 0, p.days)
	already := estimated.Before(today) && !future

	eff, err := e.regionEfficiency(req, recs, window)
	if err != nil {
		return types.EstimationResult{}, fmt.Errorf("estimate: %w", err)
	}

	res := types.EstimationResult{
		EstimatedDate:       estimated.Format(dateLayout),
		OptimisticDate:      base.AddDate(0, 0, p.optimistic).Format(dateLayout),
		PessimisticDate:     base.AddDate(0, 0, p.pessimistic).Format(dateLayout),
		QueuePosition:       max(0, queue),
		DailyProcessingRate: round2(r.mean),
		ConfidenceLevel:     confidence(r),
		RegionEfficiency:    round2(eff),
		DaysRemaining:       max(0, daysBetween(today, estimated)),
		AlreadyProcessed:    already,
	}
	if already {
		res.QueuePosition = 0
		res.DaysRemaining = 0
	}

	slog.Debug("estimate: computed",
		"region", req.Region,
		"category", req.Category,
		"application_date", req.ApplicationDate,
		"months", r.months,
		"rate", r.mean,
		"queue", queue,
	)
	return res, nil
}

// queuePosition runs steps B to E. For a filing date after today the queue
// at filing is the answer; otherwise decisions made since filing are
// subtracted. The result is not floored: a negative position means the case
// has most likely been decided.
func (e *Engine) queuePosition(s *series, filedOn, today time.Time, r rates) int64 {
	if len(s.periods) == 0 {
		return 1
	}
	filed := monthOf(filedOn)
	carry := carryoverAt(s, filed, r)
	received, processed := proRated(s, filed, filedOn.Day(), r)
	atFiling := queueAtFiling(carry, received, processed)

	if filedOn.After(today) {
		return atFiling
	}
	return atFiling - processedSince(s, filedOn, today, r)
}

func (e *Engine) validate(req types.EstimationRequest) (time.Time, error) {
	filedOn, err := time.Parse(dateLayout, req.ApplicationDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: application date %q: want YYYY-MM-DD", ErrInvalidInput, req.ApplicationDate)
	}
	if !e.strict {
		return filedOn, nil
	}
	if !types.IsAll(req.Region) && !types.KnownRegion(req.Region) {
		return time.Time{}, fmt.Errorf("%w: unknown region %q", ErrInvalidInput, req.Region)
	}
	if !types.IsAll(req.Category) && !types.KnownCategory(req.Category) {
		return time.Time{}, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, req.Category)
	}
	return filedOn, nil
}

// regionRecords returns the rows describing one region's flow. With no
// region the nationwide aggregate is used so regional rows are not counted
// twice; if the data carries no nationwide rows the regions are summed.
func (e *Engine) regionRecords(region, category string) ([]types.Record, error) {
	if !types.IsAll(region) {
		return e.src.All(types.Filter{Region: region, Category: category})
	}
	recs, err := e.src.All(types.Filter{Region: types.RegionNationwide, Category: category})
	if err != nil || len(recs) > 0 {
		return recs, err
	}
	return e.src.All(types.Filter{Category: category})
}

func (e *Engine) regionEfficiency(req types.EstimationRequest, regionRecs []types.Record, window []string) (float64, error) {
	if types.IsAll(req.Region) || req.Region == types.RegionNationwide {
		return 1.0, nil
	}
	all, err := e.src.All(types.Filter{Category: req.Category})
	if err != nil {
		return 0, err
	}
	overall := make([]types.Record, 0, len(all))
	for _, r := range all {
		if r.Region != types.RegionNationwide {
			overall = append(overall, r)
		}
	}
	return efficiency(regionRecs, overall, window), nil
}
