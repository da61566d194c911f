package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/withObsrvr/econ-index-fetcher/internal/catalog"
	"github.com/withObsrvr/econ-index-fetcher/internal/config"
	"github.com/withObsrvr/econ-index-fetcher/internal/fetcher"
	"github.com/withObsrvr/econ-index-fetcher/internal/hub"
	"github.com/withObsrvr/econ-index-fetcher/internal/logging"
	"github.com/withObsrvr/econ-index-fetcher/internal/metrics"
	"github.com/withObsrvr/econ-index-fetcher/internal/report"
	"github.com/withObsrvr/econ-index-fetcher/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	runID := logging.NewRunID()
	log := logging.Component("main").With("run_id", runID)
	log.Info("econ-index-fetch starting", "version", fetcher.Version, "git_sha", fetcher.GitSHA)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithRunID(ctx, runID)

	if err := run(ctx, cfg); err != nil {
		if ctx.Err() != nil {
			log.Error("interrupted", "error", err)
		} else {
			log.Error("fetch failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log := logging.Component("main").With("run_id", logging.RunID(ctx))

	m := metrics.New("")
	defer pushMetrics(ctx, log, m, cfg.Metrics)

	client, err := hub.NewClient(hub.Options{
		Endpoint:  cfg.Hub.Endpoint,
		Token:     cfg.Hub.Token,
		Revision:  cfg.Hub.Revision,
		CacheDir:  cfg.Layout.CacheDir,
		Timeout:   cfg.Hub.Timeout,
		UserAgent: "econ-index-fetch/" + fetcher.Version,
		Metrics:   m,
	})
	if err != nil {
		return err
	}

	mirror, err := storage.NewMirror(ctx, storage.MirrorConfig{
		URL:    cfg.Mirror.URL,
		Prefix: cfg.Mirror.Prefix,
	})
	if err != nil {
		return err
	}
	if mirror != nil {
		defer mirror.Close()
		log.Info("mirroring raw files", "url", cfg.Mirror.URL, "prefix", cfg.Mirror.Prefix)
	}

	var cat catalog.Writer
	if cfg.Catalog.PostgresDSN != "" {
		w, err := catalog.NewWriter(ctx, catalog.Config{PostgresDSN: cfg.Catalog.PostgresDSN})
		if err != nil {
			log.Warn("catalog unavailable, continuing without it", "error", err)
		} else {
			defer w.Close()
			cat = w
		}
	}

	f, err := fetcher.New(fetcher.Options{
		Layout:    fetcher.NewLayout(cfg.Layout.DataDir),
		Retriever: client,
		Reporter:  report.New(os.Stdout),
		Mirror:    mirror,
		Catalog:   cat,
		Metrics:   m,
		Revision:  cfg.Hub.Revision,
	})
	if err != nil {
		return err
	}

	return f.Run(ctx, fetcher.DefaultManifest, fetcher.CollectionID)
}

// pushMetrics runs after the fetch whatever its outcome; a push failure only warns.
func pushMetrics(ctx context.Context, log *slog.Logger, m *metrics.Metrics, cfg config.MetricsConfig) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := m.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
		log.Warn("failed to push metrics", "error", err)
	}
}
