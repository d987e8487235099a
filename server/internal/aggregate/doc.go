// Package aggregate derives the reporting views from normalized records:
// the latest-period summary, the monthly series, the regional workload
// distribution, the backlog trend by category and the per-region
// approval-rate ranking.
//
// The nationwide aggregate region is left out of region-level breakdowns
// unless a filter asks for it by code.
package aggregate
