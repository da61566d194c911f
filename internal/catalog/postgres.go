package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresWriter implements Writer using PostgreSQL.
type PostgresWriter struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresWriter connects, pings and applies the catalog schema.
func NewPostgresWriter(ctx context.Context, cfg Config) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	// One writer goroutine; keep the pool small.
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	w := &PostgresWriter{
		pool: pool,
		log:  slog.With("component", "catalog"),
	}

	if err := w.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	w.log.Info("connected to PostgreSQL catalog")
	return w, nil
}

// initSchema creates the _meta_* tables if they don't exist.
func (w *PostgresWriter) initSchema(ctx context.Context) error {
	if _, err := w.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// StartRun inserts the run row.
func (w *PostgresWriter) StartRun(ctx context.Context, run RunRecord) error {
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO _meta_fetch_runs (run_id, collection_id, revision, producer_version, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO NOTHING
	`
	_, err := w.pool.Exec(ctx, query,
		run.RunID,
		run.CollectionID,
		run.Revision,
		run.ProducerVersion,
		startedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFile inserts one fetched file.
func (w *PostgresWriter) RecordFile(ctx context.Context, rec FileRecord) error {
	query := `
		INSERT INTO _meta_fetched_files (run_id, remote_path, local_uri, mirror_uri, commit_sha, byte_size, sha256)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
	`
	_, err := w.pool.Exec(ctx, query,
		rec.RunID,
		rec.RemotePath,
		rec.LocalURI,
		rec.MirrorURI,
		rec.Commit,
		rec.ByteSize,
		rec.SHA256,
	)
	if err != nil {
		return fmt.Errorf("insert fetched file: %w", err)
	}

	w.log.Debug("recorded file", "remote_path", rec.RemotePath, "bytes", rec.ByteSize)
	return nil
}

// FinishRun stamps the final status of a run.
func (w *PostgresWriter) FinishRun(ctx context.Context, runID, status string) error {
	query := `
		UPDATE _meta_fetch_runs
		SET finished_at = NOW(), status = $2
		WHERE run_id = $1
	`
	if _, err := w.pool.Exec(ctx, query, runID, status); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (w *PostgresWriter) Close() error {
	w.pool.Close()
	return nil
}
