package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/backlogcast/backlogcast/fetcher/internal/config"
	"github.com/backlogcast/backlogcast/pkg/estat"
)

// maxBodyBytes caps a single download.
const maxBodyBytes = 256 << 20

// Portal RESULT.STATUS values.
const (
	statusOK     = 0
	statusNoData = 1
)

// ErrRejected is returned when the portal answers with an error status.
var ErrRejected = errors.New("source: request rejected")

// Download is one accepted response body.
type Download struct {
	Body    []byte
	Entries int
	NoData  bool
}

// Client fetches one statistics table.
type Client struct {
	endpoint    string
	statsDataID string
	http        *http.Client
	retryDelay  time.Duration // first backoff step
}

// appIDRoundTripper adds the application ID to every outgoing request.
type appIDRoundTripper struct {
	base  http.RoundTripper
	appID string
}

func (t *appIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.appID == "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	q := req.URL.Query()
	q.Set("appId", t.appID)
	req.URL.RawQuery = q.Encode()
	return t.base.RoundTrip(req)
}

// New builds a Client for cfg. The application ID is resolved from the
// environment once, here.
func New(cfg config.SourceConfig) *Client {
	return &Client{
		endpoint:    cfg.Endpoint,
		statsDataID: cfg.StatsDataID,
		http: &http.Client{
			Transport: &appIDRoundTripper{base: http.DefaultTransport, appID: cfg.AppID()},
			Timeout:   cfg.Timeout,
		},
		retryDelay: backoffInitial,
	}
}

// Fetch downloads and validates the table.
func (c *Client) Fetch(ctx context.Context) (*Download, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("source: parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("statsDataId", c.statsDataID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("source: read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("source: body exceeds %d bytes", maxBodyBytes)
	}

	payload, err := estat.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	res := payload.GetStatsData.Result
	switch res.Status {
	case statusOK, statusNoData:
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, res.Status, res.ErrorMsg)
	}

	return &Download{
		Body:    body,
		Entries: len(payload.Entries()),
		NoData:  res.Status == statusNoData,
	}, nil
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("source: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("source: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("source: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("source: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("source: close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("source: chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("source: replace %q: %w", path, err)
	}
	return nil
}

// Sync fetches the table and writes it to path, retrying failed attempts
// with backoff. attempts <= 0 means a single attempt. A download that
// reports no data leaves the existing snapshot untouched.
func (c *Client) Sync(ctx context.Context, path string, attempts int) error {
	attempts = max(1, attempts)
	bo := newBackoff(c.retryDelay)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			wait := bo.next()
			slog.Warn("source: download failed, will retry",
				"attempt", i, "err", lastErr, "retry_in", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		start := time.Now()
		dl, err := c.Fetch(ctx)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrRejected) || ctx.Err() != nil {
				break
			}
			continue
		}
		if dl.NoData {
			slog.Warn("source: portal reported no data, keeping previous snapshot",
				"stats_data_id", c.statsDataID)
			return nil
		}
		if err := WriteFile(path, dl.Body); err != nil {
			return err
		}
		slog.Info("source: snapshot written",
			"path", path,
			"entries", dl.Entries,
			"bytes", len(dl.Body),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}
	return lastErr
}
