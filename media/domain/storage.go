package domain

import "context"

// StorageEstimate reports bytes used and the quota available, both advisory.
type StorageEstimate struct {
	Usage int64
	Quota int64
}

// StorageEstimator is a platform-provided storage estimate.
type StorageEstimator interface {
	Estimate(ctx context.Context) (StorageEstimate, error)
}

// EntrySource enumerates locally persisted key/value entries.
// fn receives the key and the byte length of the value.
type EntrySource interface {
	ForEachEntry(ctx context.Context, fn func(key string, valueLen int64)) error
}
