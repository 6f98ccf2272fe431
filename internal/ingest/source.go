// Package ingest turns raw collector output into the next dataset
// generation: it reads rows from a source, geocodes each row's derived
// address, stages the records, and publishes them with an atomic swap.
package ingest

import (
	"context"

	"github.com/riverwatch/waterpoint/internal/domain"
)

// RawRow is one collector row before geocoding. Fields keeps the collector's
// column order.
type RawRow struct {
	Fields domain.Payload
	Source string
}

// RecordSource yields one batch of raw rows per call. Sources with a fixed
// corpus (spreadsheet exports) return everything at once; streaming sources
// return whatever arrived within their batch window.
type RecordSource interface {
	// Name identifies the source in logs.
	Name() string
	// Rows reads the next batch. An empty batch with a nil error means the
	// source currently has nothing.
	Rows(ctx context.Context) ([]RawRow, error)
}
