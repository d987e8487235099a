// Package estimate projects when a pending application will be decided.
//
// The projection runs in steps over the region/category-filtered records:
//
//	A. EWMA daily processing rate over the last six periods, plus a daily
//	   arrival rate
//	B. carryover at filing time, simulated month by month across data gaps
//	C. arrivals and decisions pro-rated up to the day of filing
//	D. queue position at filing
//	E. decisions made since filing (skipped for future filing dates)
//	F. completion dates: expected, optimistic (+1σ rate), pessimistic (−1σ)
//	G. confidence, a data-availability heuristic and not a statistical
//	   interval
//	H. region efficiency, informational only
//
// The processing rate divides by a fixed 30-day month while the arrival rate
// divides by true calendar days. The asymmetry is kept as is; changing it
// would shift every forecast.
package estimate
