package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// okHandler answers 200 "ok".
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

func serve(t *testing.T, h http.Handler, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/cache/invalidate", nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAPIKey_ModeNone_PassesThrough(t *testing.T) {
	h := APIKey("none", "x-api-key", "secret")(okHandler)
	if rec := serve(t, h, "x-api-key", ""); rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestAPIKey_EmptyKey_PassesThrough(t *testing.T) {
	// key="" means auth is not configured.
	h := APIKey("apikey", "x-api-key", "")(okHandler)
	if rec := serve(t, h, "x-api-key", ""); rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestAPIKey_CorrectKey_Passes(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret")(okHandler)
	rec := serve(t, h, "x-api-key", "supersecret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body: got %q, want ok", rec.Body.String())
	}
}

func TestAPIKey_HeaderNameIsCaseInsensitive(t *testing.T) {
	h := APIKey("apikey", "x-backlog-key", "supersecret")(okHandler)
	if rec := serve(t, h, "X-Backlog-Key", "supersecret"); rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestAPIKey_WrongKey_Unauthorized(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret")(okHandler)
	rec := serve(t, h, "x-api-key", "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q, want application/json", ct)
	}
}

func TestAPIKey_MissingHeader_Unauthorized(t *testing.T) {
	h := APIKey("apikey", "x-api-key", "supersecret")(okHandler)
	if rec := serve(t, h, "x-api-key", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}
