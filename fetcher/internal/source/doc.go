// Package source downloads the statistics table from the getStatsData
// endpoint and publishes it as the server's snapshot file.
//
// A download is accepted only if it decodes as a getStatsData document whose
// RESULT.STATUS is 0 (data) or 1 (no data for the query). Accepted bodies are
// written to a temporary file in the target directory and renamed over the
// snapshot, so readers never observe a partial file.
//
// Sync retries failed downloads with truncated exponential backoff and
// jitter until it succeeds, the attempts run out, or ctx is cancelled.
package source
