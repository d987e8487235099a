package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/backlogcast/backlogcast/pkg/types"
	"github.com/backlogcast/backlogcast/server/internal/aggregate"
	"github.com/backlogcast/backlogcast/server/internal/estimate"
	"github.com/backlogcast/backlogcast/server/internal/metrics"
	"github.com/backlogcast/backlogcast/server/internal/store"
)

// Snapshots is the read side of the snapshot cache.
type Snapshots interface {
	All(f types.Filter) ([]types.Record, error)
	Periods() ([]string, error)
	Invalidate()
	LoadedAt() time.Time
}

// Estimator forecasts completion dates.
type Estimator interface {
	Estimate(req types.EstimationRequest) (types.EstimationResult, error)
}

// Handler is the HTTP handler for /healthz and all /api/v1/* endpoints.
type Handler struct {
	data    Snapshots
	agg     *aggregate.Engine
	est     Estimator
	metrics *metrics.Metrics
	router  chi.Router
}

// New creates a Handler and registers all routes. protect wraps the
// mutating endpoints (see auth.APIKey); m may be nil.
func New(data Snapshots, agg *aggregate.Engine, est Estimator, m *metrics.Metrics, protect func(http.Handler) http.Handler) http.Handler {
	h := &Handler{data: data, agg: agg, est: est, metrics: m, router: chi.NewRouter()}
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}

	r := h.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.instrument)

	r.Get("/healthz", h.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/stats", func(r chi.Router) {
			r.Get("/", h.records)
			r.Get("/summary", h.summary)
			r.Get("/monthly", h.monthly)
			r.Get("/distribution", h.distribution)
			r.Get("/backlog", h.backlog)
			r.Get("/approval-rates", h.approvalRates)
			r.Get("/periods", h.periods)
			r.Get("/regions", h.regions)
			r.Get("/categories", h.categories)
			r.With(protect).Post("/cache/invalidate", h.invalidate)
		})
		r.Get("/estimation", h.estimateQuery)
		r.Post("/estimation", h.estimateBody)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if t := h.data.LoadedAt(); !t.IsZero() {
		resp.LoadedAt = t.UTC().Format(time.RFC3339)
	}
	jsonResp(w, http.StatusOK, resp)
}

// records returns GET /api/v1/stats: the filtered normalized records.
func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	recs, err := h.data.All(parseFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, recs)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.agg.Summary(parseFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, s)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	pts, err := h.agg.MonthlySeries(parseFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, pts)
}

func (h *Handler) distribution(w http.ResponseWriter, r *http.Request) {
	totals, err := h.agg.RegionDistribution(parseFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, totals)
}

func (h *Handler) backlog(w http.ResponseWriter, r *http.Request) {
	pts, err := h.agg.BacklogTrend(parseFilter(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, pts)
}

// approvalRates returns GET /api/v1/stats/approval-rates?category=&trailingMonths=.
func (h *Handler) approvalRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ranking, err := h.agg.RegionApprovalRates(q.Get("category"), parseTrailing(q.Get("trailingMonths")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, ranking)
}

func (h *Handler) periods(w http.ResponseWriter, r *http.Request) {
	ps, err := h.data.Periods()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jsonResp(w, http.StatusOK, ps)
}

func (h *Handler) regions(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, types.Regions)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, types.Categories)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	h.data.Invalidate()
	jsonResp(w, http.StatusOK, StatusResponse{Status: "invalidated"})
}

// estimateQuery serves GET /api/v1/estimation?applicationDate=&region=&category=.
func (h *Handler) estimateQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.estimate(w, r, types.EstimationRequest{
		ApplicationDate: q.Get("applicationDate"),
		Region:          q.Get("region"),
		Category:        q.Get("category"),
	})
}

// estimateBody serves POST /api/v1/estimation with a JSON request body.
func (h *Handler) estimateBody(w http.ResponseWriter, r *http.Request) {
	var req types.EstimationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.metrics.IncEstimation(metrics.EstimateInvalid)
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	h.estimate(w, r, req)
}

func (h *Handler) estimate(w http.ResponseWriter, r *http.Request, req types.EstimationRequest) {
	res, err := h.est.Estimate(req)
	if err != nil {
		if errors.Is(err, estimate.ErrInvalidInput) {
			h.metrics.IncEstimation(metrics.EstimateInvalid)
		} else {
			h.metrics.IncEstimation(metrics.EstimateFailed)
		}
		h.fail(w, r, err)
		return
	}
	if res.AlreadyProcessed {
		h.metrics.IncEstimation(metrics.EstimateDecided)
	} else {
		h.metrics.IncEstimation(metrics.EstimateOK)
	}
	jsonResp(w, http.StatusOK, res)
}

// --- helpers ----------------------------------------------------------------

const maxBodyBytes = 1 << 16

// parseFilter reads the common stats query parameters.
func parseFilter(r *http.Request) types.Filter {
	q := r.URL.Query()
	return types.Filter{
		Region:         q.Get("region"),
		Category:       q.Get("category"),
		Status:         q.Get("status"),
		StartPeriod:    q.Get("startPeriod"),
		EndPeriod:      q.Get("endPeriod"),
		TrailingMonths: parseTrailing(q.Get("trailingMonths")),
	}
}

// parseTrailing treats anything but a non-negative integer as unset.
func parseTrailing(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, estimate.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		slog.Error("api: request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	jsonErr(w, code, err.Error())
}

// instrument counts requests by matched route pattern and status.
func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, status)
	})
}

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
