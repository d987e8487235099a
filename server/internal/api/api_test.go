package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/backlogcast/backlogcast/pkg/estat"
	"github.com/backlogcast/backlogcast/pkg/types"
	"github.com/backlogcast/backlogcast/server/internal/aggregate"
	"github.com/backlogcast/backlogcast/server/internal/api"
	"github.com/backlogcast/backlogcast/server/internal/auth"
	"github.com/backlogcast/backlogcast/server/internal/estimate"
	"github.com/backlogcast/backlogcast/server/internal/metrics"
	"github.com/backlogcast/backlogcast/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

const testKey = "supersecret"

// flow returns the five published statuses of one region/category/month.
func flow(timeCode, region string, carry, recv, granted, denied, processed string) []estat.Entry {
	mk := func(status, v string) estat.Entry {
		return estat.Entry{Time: timeCode, Status: status, Category: "20", Region: region, Value: estat.Amount(v)}
	}
	return []estat.Entry{
		mk(types.StatusCarryover, carry),
		mk(types.StatusNewReceived, recv),
		mk(types.StatusGranted, granted),
		mk(types.StatusDenied, denied),
		mk(types.StatusTotalProcessed, processed),
	}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	var entries []estat.Entry
	entries = append(entries, flow("2024000404", "101010", "900", "305", "250", "50", "300")...)
	entries = append(entries, flow("2024000505", "101010", "900", "305", "250", "50", "300")...)
	entries = append(entries, flow("2024000505", "101090", "100", "20", "30", "10", "40")...)
	entries = append(entries, flow("2024000505", types.RegionNationwide, "1000", "325", "280", "60", "340")...)

	var p estat.Payload
	p.GetStatsData.StatisticalData.DataInf.Value = entries
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

type server struct {
	handler http.Handler
	metrics *metrics.Metrics
}

func newServer(t *testing.T, path string) server {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	st := store.New(path, time.Hour, store.WithObserver(m))
	now := func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	est := estimate.New(st, estimate.WithClock(now), estimate.WithStrictCodes(true))
	h := api.New(st, aggregate.New(st), est, m, auth.APIKey("apikey", "x-api-key", testKey))
	return server{handler: h, metrics: m}
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, h, http.MethodGet, path, "", nil)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

func wantStatus(t *testing.T, rr *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rr.Code != code {
		t.Fatalf("status: got %d, want %d (body: %s)", rr.Code, code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q, want application/json", ct)
	}
}

// --- tests ------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	s := newServer(t, writeFixture(t))
	rr := get(t, s.handler, "/healthz")
	wantStatus(t, rr, http.StatusOK)

	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.Status != "ok" {
		t.Errorf("status: got %q, want ok", resp.Status)
	}
}

func TestStats_FilteredRecords(t *testing.T) {
	s := newServer(t, writeFixture(t))

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/stats?region=101010", 10},
		{"/api/v1/stats?region=101010&trailingMonths=1", 5},
		{"/api/v1/stats?region=101010&trailingMonths=abc", 10},
		{"/api/v1/stats?region=101010&trailingMonths=-2", 10},
		{"/api/v1/stats?region=101010&status=301000", 2},
		{"/api/v1/stats?startPeriod=2024-05&endPeriod=2024-05", 15},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, s.handler, tt.path)
			wantStatus(t, rr, http.StatusOK)
			var recs []types.Record
			decode(t, rr, &recs)
			if len(recs) != tt.want {
				t.Errorf("records: got %d, want %d", len(recs), tt.want)
			}
		})
	}
}

func TestStats_Summary(t *testing.T) {
	s := newServer(t, writeFixture(t))
	rr := get(t, s.handler, "/api/v1/stats/summary?region=101010&category=20")
	wantStatus(t, rr, http.StatusOK)

	var sum types.Summary
	decode(t, rr, &sum)
	if sum.LatestPeriod != "2024-05" {
		t.Errorf("latestPeriod: got %q, want 2024-05", sum.LatestPeriod)
	}
	if sum.PendingCount != 905 || sum.TotalReceived != 1205 {
		t.Errorf("pending/received: got %d/%d, want 905/1205", sum.PendingCount, sum.TotalReceived)
	}
	if sum.ApprovalRate != 83.33 {
		t.Errorf("approvalRate: got %v, want 83.33", sum.ApprovalRate)
	}
}

func TestStats_MonthlyAndBacklog(t *testing.T) {
	s := newServer(t, writeFixture(t))

	var pts []types.MonthlyPoint
	rr := get(t, s.handler, "/api/v1/stats/monthly?region=101010")
	wantStatus(t, rr, http.StatusOK)
	decode(t, rr, &pts)
	if len(pts) != 2 || pts[0].Period != "2024-04" || pts[1].TotalReceived != 1205 {
		t.Errorf("monthly: got %+v", pts)
	}

	var backlog []types.BacklogPoint
	rr = get(t, s.handler, "/api/v1/stats/backlog?category=10")
	wantStatus(t, rr, http.StatusOK)
	decode(t, rr, &backlog)
	if len(backlog) != 2 {
		t.Fatalf("backlog points: got %d, want 2", len(backlog))
	}
	// regional carryover in May: 900 + 100; category filter ignored.
	if got := backlog[1].ByCategory["20"]; got != 1000 {
		t.Errorf("May category 20 backlog: got %d, want 1000", got)
	}
}

func TestStats_Distribution(t *testing.T) {
	s := newServer(t, writeFixture(t))
	rr := get(t, s.handler, "/api/v1/stats/distribution")
	wantStatus(t, rr, http.StatusOK)

	var totals []types.RegionTotal
	decode(t, rr, &totals)
	if len(totals) != 2 {
		t.Fatalf("regions: got %d, want 2 (nationwide excluded)", len(totals))
	}
	if totals[0].Region != "101010" || totals[0].Value != 2410 || totals[0].Label != "Sapporo" {
		t.Errorf("first: got %+v", totals[0])
	}
}

func TestStats_ApprovalRates(t *testing.T) {
	s := newServer(t, writeFixture(t))
	rr := get(t, s.handler, "/api/v1/stats/approval-rates?category=20&trailingMonths=x")
	wantStatus(t, rr, http.StatusOK)

	var ranking types.ApprovalRanking
	decode(t, rr, &ranking)
	if ranking.PeriodStart != "2024-04" || ranking.PeriodEnd != "2024-05" {
		t.Errorf("window: got %s..%s", ranking.PeriodStart, ranking.PeriodEnd)
	}
	if len(ranking.Data) != 2 || ranking.Data[0].RegionCode != "101010" || ranking.Data[1].RegionCode != types.RegionNationwide {
		t.Errorf("data: got %+v", ranking.Data)
	}
	if len(ranking.ExcludedRegions) != 1 || ranking.ExcludedRegions[0] != "101090" {
		t.Errorf("excluded: got %v, want [101090]", ranking.ExcludedRegions)
	}
	if ranking.Threshold != aggregate.MinProcessedForRanking {
		t.Errorf("threshold: got %d", ranking.Threshold)
	}
}

func TestStats_PeriodsAndCatalogs(t *testing.T) {
	s := newServer(t, writeFixture(t))

	var periods []string
	rr := get(t, s.handler, "/api/v1/stats/periods")
	wantStatus(t, rr, http.StatusOK)
	decode(t, rr, &periods)
	if len(periods) != 2 || periods[0] != "2024-04" || periods[1] != "2024-05" {
		t.Errorf("periods: got %v", periods)
	}

	var regions []types.Option
	rr = get(t, s.handler, "/api/v1/stats/regions")
	wantStatus(t, rr, http.StatusOK)
	decode(t, rr, &regions)
	if len(regions) != len(types.Regions) {
		t.Errorf("regions: got %d, want %d", len(regions), len(types.Regions))
	}

	var cats []types.Option
	rr = get(t, s.handler, "/api/v1/stats/categories")
	wantStatus(t, rr, http.StatusOK)
	decode(t, rr, &cats)
	if len(cats) != 6 {
		t.Errorf("categories: got %d, want 6", len(cats))
	}
}

func TestEstimation_Query(t *testing.T) {
	s := newServer(t, writeFixture(t))
	rr := get(t, s.handler, "/api/v1/estimation?applicationDate=2024-05-10&region=101010&category=20")
	wantStatus(t, rr, http.StatusOK)

	var res types.EstimationResult
	decode(t, rr, &res)
	if res.QueuePosition != 547 {
		t.Errorf("queuePosition: got %d, want 547", res.QueuePosition)
	}
	if res.EstimatedDate != "2024-08-09" {
		t.Errorf("estimatedDate: got %s, want 2024-08-09", res.EstimatedDate)
	}
}

func TestEstimation_Body(t *testing.T) {
	s := newServer(t, writeFixture(t))
	body := `{"applicationDate":"2024-07-10","region":"101010","category":"20"}`
	rr := do(t, s.handler, http.MethodPost, "/api/v1/estimation", body, map[string]string{"Content-Type": "application/json"})
	wantStatus(t, rr, http.StatusOK)

	var res types.EstimationResult
	decode(t, rr, &res)
	if res.QueuePosition != 905 || res.EstimatedDate != "2024-10-09" {
		t.Errorf("got queue %d date %s, want 905 2024-10-09", res.QueuePosition, res.EstimatedDate)
	}
}

func TestEstimation_BadRequest(t *testing.T) {
	s := newServer(t, writeFixture(t))

	for name, rr := range map[string]*httptest.ResponseRecorder{
		"bad date":       get(t, s.handler, "/api/v1/estimation?applicationDate=2024-02-30"),
		"missing date":   get(t, s.handler, "/api/v1/estimation?region=101010"),
		"unknown region": get(t, s.handler, "/api/v1/estimation?applicationDate=2024-05-10&region=999999"),
		"bad json":       do(t, s.handler, http.MethodPost, "/api/v1/estimation", "{", nil),
	} {
		t.Run(name, func(t *testing.T) {
			wantStatus(t, rr, http.StatusBadRequest)
			var body map[string]string
			decode(t, rr, &body)
			if body["error"] == "" {
				t.Error("error body is empty")
			}
		})
	}
}

func TestErrors_MissingSnapshot(t *testing.T) {
	s := newServer(t, filepath.Join(t.TempDir(), "absent.json"))
	wantStatus(t, get(t, s.handler, "/api/v1/stats/summary"), http.StatusServiceUnavailable)
	wantStatus(t, get(t, s.handler, "/api/v1/estimation?applicationDate=2024-05-10"), http.StatusServiceUnavailable)
}

func TestErrors_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := newServer(t, path)
	wantStatus(t, get(t, s.handler, "/api/v1/stats/monthly"), http.StatusInternalServerError)
}

func TestCacheInvalidate_RequiresKey(t *testing.T) {
	s := newServer(t, writeFixture(t))
	const path = "/api/v1/stats/cache/invalidate"

	rr := do(t, s.handler, http.MethodPost, path, "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("without key: got %d, want 401", rr.Code)
	}

	rr = do(t, s.handler, http.MethodPost, path, "", map[string]string{"x-api-key": testKey})
	wantStatus(t, rr, http.StatusOK)
	var resp api.StatusResponse
	decode(t, rr, &resp)
	if resp.Status != "invalidated" {
		t.Errorf("status: got %q, want invalidated", resp.Status)
	}
}

func TestCacheInvalidate_PicksUpNewFile(t *testing.T) {
	path := writeFixture(t)
	s := newServer(t, path)
	wantStatus(t, get(t, s.handler, "/api/v1/stats/periods"), http.StatusOK)

	var p estat.Payload
	p.GetStatsData.StatisticalData.DataInf.Value = flow("2024000606", "101010", "1", "1", "1", "0", "1")
	b, _ := json.Marshal(p)
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}

	do(t, s.handler, http.MethodPost, "/api/v1/stats/cache/invalidate", "", map[string]string{"x-api-key": testKey})

	var periods []string
	rr := get(t, s.handler, "/api/v1/stats/periods")
	wantStatus(t, rr, http.StatusOK)
	decode(t, rr, &periods)
	if len(periods) != 1 || periods[0] != "2024-06" {
		t.Errorf("periods after invalidate: got %v, want [2024-06]", periods)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newServer(t, writeFixture(t))
	wantStatus(t, get(t, s.handler, "/api/v1/nope"), http.StatusNotFound)
	wantStatus(t, do(t, s.handler, http.MethodDelete, "/api/v1/estimation", "", nil), http.StatusMethodNotAllowed)
}

func TestRequestsAreCounted(t *testing.T) {
	s := newServer(t, writeFixture(t))
	get(t, s.handler, "/api/v1/stats/summary")
	get(t, s.handler, "/api/v1/stats/summary?region=101010")

	rr := httptest.NewRecorder()
	s.metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	want := `backlogcast_http_requests_total{route="/api/v1/stats/summary",status="200"} 2`
	if !strings.Contains(body, want) {
		t.Errorf("metrics missing %q in:\n%s", want, body)
	}
	if !strings.Contains(body, `backlogcast_snapshot_reloads_total{outcome="ok"} 1`) {
		t.Errorf("expected exactly one reload within the TTL:\n%s", body)
	}
}
