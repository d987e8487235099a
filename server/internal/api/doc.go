// Package api implements the HTTP REST API for backlogcast-server.
//
// New(...) returns an http.Handler (a chi router) that serves:
//
//	GET  /healthz                          liveness and snapshot load time
//	GET  /api/v1/stats                     filtered normalized records
//	GET  /api/v1/stats/summary             latest-period headline figures
//	GET  /api/v1/stats/monthly             per-period series
//	GET  /api/v1/stats/distribution        workload per region, descending
//	GET  /api/v1/stats/backlog             carryover per category per period
//	GET  /api/v1/stats/approval-rates      regional ranking (category, trailingMonths)
//	GET  /api/v1/stats/periods             periods present in the snapshot
//	GET  /api/v1/stats/regions             region catalog
//	GET  /api/v1/stats/categories          category catalog
//	POST /api/v1/stats/cache/invalidate    drop the cached snapshot (API key)
//	GET  /api/v1/estimation                estimate from query parameters
//	POST /api/v1/estimation                estimate from a JSON body
//
// Stats endpoints accept region, category, status, startPeriod, endPeriod
// and trailingMonths. A trailingMonths that is not a non-negative integer is
// ignored.
//
// Errors are JSON {"error": "..."}: invalid input is 400, a missing snapshot
// file 503, anything else 500.
package api
