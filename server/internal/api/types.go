package api

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	LoadedAt string `json:"loaded_at,omitempty"` // RFC3339; empty until the first read
}

// StatusResponse acknowledges a mutating request.
type StatusResponse struct {
	Status string `json:"status"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
