// Package catalog records fetched files in an optional PostgreSQL catalog.
package catalog

import (
	"context"
	"time"
)

type Config struct {
	PostgresDSN string
}

// Writer records the lineage of a run. Implementations must be safe to call
// with a zero FileRecord.MirrorURI.
type Writer interface {
	StartRun(ctx context.Context, run RunRecord) error
	RecordFile(ctx context.Context, rec FileRecord) error
	FinishRun(ctx context.Context, runID, status string) error
	Close() error
}

type RunRecord struct {
	RunID           string
	CollectionID    string
	Revision        string
	ProducerVersion string
	StartedAt       time.Time
}

type FileRecord struct {
	RunID      string
	RemotePath string
	LocalURI   string
	MirrorURI  string
	Commit     string
	ByteSize   int64
	SHA256     string
}

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// NewWriter returns a PostgreSQL writer when a DSN is configured, otherwise
// a writer that discards everything.
func NewWriter(ctx context.Context, cfg Config) (Writer, error) {
	if cfg.PostgresDSN == "" {
		return noopWriter{}, nil
	}
	return NewPostgresWriter(ctx, cfg)
}

type noopWriter struct{}

func (noopWriter) StartRun(context.Context, RunRecord) error       { return nil }
func (noopWriter) RecordFile(context.Context, FileRecord) error    { return nil }
func (noopWriter) FinishRun(context.Context, string, string) error { return nil }
func (noopWriter) Close() error                                    { return nil }
