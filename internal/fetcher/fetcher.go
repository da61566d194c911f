// Package fetcher copies a fixed manifest of hub files into the local raw
// directory, one entry at a time.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/withObsrvr/econ-index-fetcher/internal/catalog"
	"github.com/withObsrvr/econ-index-fetcher/internal/hub"
	"github.com/withObsrvr/econ-index-fetcher/internal/logging"
	"github.com/withObsrvr/econ-index-fetcher/internal/metrics"
	"github.com/withObsrvr/econ-index-fetcher/internal/storage"
	"github.com/withObsrvr/econ-index-fetcher/internal/util"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

// Retriever returns a local path holding filename from repoID.
type Retriever interface {
	Retrieve(ctx context.Context, repoID, filename string, kind hub.RepoKind) (string, error)
}

// fileRetriever is implemented by *hub.Client and exposes the resolved commit.
type fileRetriever interface {
	RetrieveFile(ctx context.Context, repoID, filename string, kind hub.RepoKind) (*hub.Result, error)
}

// Reporter receives operator-facing progress.
type Reporter interface {
	Start(collectionID string)
	Downloaded(entry, dest string)
	Complete(rawDir string)
}

// Options wires a Fetcher. Layout and Retriever are required.
type Options struct {
	Layout    Layout
	Retriever Retriever
	Reporter  Reporter
	Mirror    storage.RawStore // optional
	Catalog   catalog.Writer   // optional
	Metrics   *metrics.Metrics
	Revision  string // recorded in the catalog only
}

// Fetcher runs the manifest against a retriever.
type Fetcher struct {
	layout    Layout
	retriever Retriever
	reporter  Reporter
	raw       *storage.LocalStore
	mirror    storage.RawStore
	catalog   catalog.Writer
	metrics   *metrics.Metrics
	revision  string
	log       *slog.Logger
}

// New creates a Fetcher.
func New(opts Options) (*Fetcher, error) {
	if opts.Retriever == nil {
		return nil, fmt.Errorf("fetcher: Retriever required")
	}
	if opts.Layout.Raw == "" {
		return nil, fmt.Errorf("fetcher: Layout required")
	}

	return &Fetcher{
		layout:    opts.Layout,
		retriever: opts.Retriever,
		reporter:  opts.Reporter,
		raw:       storage.NewLocalStore(opts.Layout.Raw),
		mirror:    opts.Mirror,
		catalog:   opts.Catalog,
		metrics:   opts.Metrics,
		revision:  opts.Revision,
		log:       logging.Component("fetcher"),
	}, nil
}

// Layout returns the output tree the fetcher writes into.
func (f *Fetcher) Layout() Layout {
	return f.layout
}

// Run lays out the output tree, fetches every entry of manifest and prints
// the completion summary. The run ID set with logging.WithRunID is attached
// to log records and catalog rows.
func (f *Fetcher) Run(ctx context.Context, manifest []string, collectionID string) error {
	f.startRun(ctx, collectionID)

	err := f.layout.EnsureOutputLayout()
	if err == nil {
		err = f.FetchAll(ctx, manifest, collectionID)
	}
	if err != nil {
		f.finishRun(ctx, catalog.StatusFailed)
		return err
	}

	f.finishRun(ctx, catalog.StatusSucceeded)
	f.metrics.MarkSuccess()
	if f.reporter != nil {
		f.reporter.Complete(f.layout.Raw)
	}
	f.logger(ctx).Info("fetch complete", "files", len(manifest), "raw_dir", f.layout.Raw)
	return nil
}

// FetchAll retrieves each manifest entry and copies it to the raw directory
// under its base name, overwriting any existing file. The first failure stops
// the loop; files already copied stay on disk.
func (f *Fetcher) FetchAll(ctx context.Context, manifest []string, collectionID string) error {
	if f.reporter != nil {
		f.reporter.Start(collectionID)
	}

	for i, entry := range manifest {
		if err := f.fetchOne(ctx, i, entry, collectionID); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) fetchOne(ctx context.Context, index int, entry, collectionID string) error {
	log := logging.FileLogger(f.logger(ctx), index, entry)

	start := time.Now()
	src, commit, err := f.retrieve(ctx, collectionID, entry)
	f.metrics.ObserveStage(metrics.StageRetrieve, time.Since(start).Seconds())
	if err != nil {
		f.metrics.IncFailure(metrics.StageRetrieve)
		return fmt.Errorf("retrieve %s from %s: %w", entry, collectionID, err)
	}

	name := path.Base(entry)

	start = time.Now()
	n, err := f.raw.Put(ctx, name, src)
	f.metrics.ObserveStage(metrics.StageCopy, time.Since(start).Seconds())
	if err != nil {
		f.metrics.IncFailure(metrics.StageCopy)
		return fmt.Errorf("copy %s: %w", entry, err)
	}
	f.metrics.ObserveCopy(n)

	var mirrorURI string
	if f.mirror != nil {
		start = time.Now()
		_, err := f.mirror.Put(ctx, name, src)
		f.metrics.ObserveStage(metrics.StageMirror, time.Since(start).Seconds())
		if err != nil {
			f.metrics.IncFailure(metrics.StageMirror)
			return fmt.Errorf("mirror %s: %w", entry, err)
		}
		mirrorURI = f.mirror.URI(name)
	}

	dest := f.raw.Path(name)
	if f.reporter != nil {
		f.reporter.Downloaded(entry, dest)
	}
	log.Debug("copied", "dest", dest, "bytes", n, "commit", commit)

	f.record(ctx, catalog.FileRecord{
		RunID:      logging.RunID(ctx),
		RemotePath: entry,
		LocalURI:   f.raw.URI(name),
		MirrorURI:  mirrorURI,
		Commit:     commit,
		ByteSize:   n,
	}, dest)
	return nil
}

func (f *Fetcher) logger(ctx context.Context) *slog.Logger {
	if id := logging.RunID(ctx); id != "" {
		return f.log.With("run_id", id)
	}
	return f.log
}

// retrieve prefers RetrieveFile when available so the commit can be recorded.
func (f *Fetcher) retrieve(ctx context.Context, collectionID, entry string) (string, string, error) {
	if fr, ok := f.retriever.(fileRetriever); ok {
		res, err := fr.RetrieveFile(ctx, collectionID, entry, hub.KindDataset)
		if err != nil {
			return "", "", err
		}
		return res.Path, res.Commit, nil
	}
	p, err := f.retriever.Retrieve(ctx, collectionID, entry, hub.KindDataset)
	return p, "", err
}

// Catalog writes never fail the run.

func (f *Fetcher) startRun(ctx context.Context, collectionID string) {
	if f.catalog == nil {
		return
	}
	err := f.catalog.StartRun(ctx, catalog.RunRecord{
		RunID:           logging.RunID(ctx),
		CollectionID:    collectionID,
		Revision:        f.revision,
		ProducerVersion: Version,
		StartedAt:       time.Now().UTC(),
	})
	if err != nil {
		f.logger(ctx).Warn("failed to record run start", "error", err)
	}
}

func (f *Fetcher) record(ctx context.Context, rec catalog.FileRecord, dest string) {
	if f.catalog == nil {
		return
	}
	sum, err := util.FileChecksum(dest)
	if err != nil {
		f.logger(ctx).Warn("failed to checksum file", "path", dest, "error", err)
		return
	}
	rec.SHA256 = sum
	if err := f.catalog.RecordFile(ctx, rec); err != nil {
		f.logger(ctx).Warn("failed to record file in catalog", "remote_path", rec.RemotePath, "error", err)
	}
}

func (f *Fetcher) finishRun(ctx context.Context, status string) {
	if f.catalog == nil {
		return
	}
	// The run context may already be cancelled; the status write still matters.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := f.catalog.FinishRun(ctx, logging.RunID(ctx), status); err != nil {
		f.logger(ctx).Warn("failed to record run finish", "status", status, "error", err)
	}
}
