// Package store owns the normalized statistics snapshot. It loads the batch
// file, corrects parent regions for the sub-office counts folded into them,
// and caches the result with a time-to-live. Reloads are lazy and replace the
// cached snapshot atomically; Watch clears the cache when the file changes.
package store
