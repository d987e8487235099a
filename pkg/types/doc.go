// Package types defines the domain types shared by the server and the fetcher.
// These are the canonical in-memory representations of the published
// processing statistics, separate from the raw batch wire format in pkg/estat.
package types
