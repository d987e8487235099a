package store

import (
	"github.com/backlogcast/backlogcast/pkg/estat"
	"github.com/backlogcast/backlogcast/pkg/types"
)

type indexKey struct {
	period, status, category, region string
}

// Normalize converts raw entries into records and undoes the publisher's
// double counting: a parent region's raw value includes its children, so
// each child's value for the same period, status and category is subtracted.
// Results are clamped at zero.
//
// The whole raw sequence is indexed first, then corrected in a single pass.
func Normalize(entries estat.Values, h types.Hierarchy) *Snapshot {
	type parsed struct {
		key   indexKey
		value int64
	}
	rows := make([]parsed, 0, len(entries))
	index := make(map[indexKey]int64, len(entries))
	skipped := 0

	for _, e := range entries {
		period, err := estat.Period(e.Time)
		if err != nil {
			skipped++
			continue
		}
		k := indexKey{period: period, status: e.Status, category: e.Category, region: e.Region}
		v := e.Value.Int()
		index[k] = v
		rows = append(rows, parsed{key: k, value: v})
	}

	records := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		v := row.value
		for _, child := range h.Children(row.key.region) {
			ck := row.key
			ck.region = child
			v -= index[ck]
		}
		if v < 0 {
			v = 0
		}
		records = append(records, types.Record{
			Period:   row.key.period,
			Region:   row.key.region,
			Category: row.key.category,
			Status:   row.key.status,
			Value:    v,
		})
	}

	return &Snapshot{
		Records: records,
		Periods: types.Periods(records),
		Skipped: skipped,
	}
}
