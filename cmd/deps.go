package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mjochum64/law-crawler-service/internal/bulk"
	"github.com/mjochum64/law-crawler-service/internal/config"
	"github.com/mjochum64/law-crawler-service/internal/downloader"
	"github.com/mjochum64/law-crawler-service/internal/logging"
	"github.com/mjochum64/law-crawler-service/internal/orchestrator"
	"github.com/mjochum64/law-crawler-service/internal/scheduler"
	"github.com/mjochum64/law-crawler-service/internal/sitemap"
	"github.com/mjochum64/law-crawler-service/internal/store"
	"github.com/mjochum64/law-crawler-service/internal/validation"
)

// buildRepo constructs the document store backend named by cfg.Storage.Type,
// returning the repo, the underlying archive store when the downloader also
// needs to write raw bodies to disk (archive/dual modes), and a close func
// for backends that hold resources (the bleve index).
func buildRepo(cfg config.Config) (store.Repository, *store.ArchiveStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Type {
	case "archive":
		archive := store.NewArchiveStore(cfg.Storage.BasePath)
		return archive, archive, noop, nil

	case "search":
		search, err := store.NewSearchStore(cfg.Storage.Index)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open search index: %w", err)
		}
		return search, nil, search.Close, nil

	case "dual":
		archive := store.NewArchiveStore(cfg.Storage.BasePath)
		search, err := store.NewSearchStore(cfg.Storage.Index)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open search index: %w", err)
		}
		return store.NewDualStore(archive, search), archive, search.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unrecognized storage.type %q", cfg.Storage.Type)
	}
}

func buildFetcher(cfg config.Config, logger *zap.Logger) *sitemap.Fetcher {
	return sitemap.NewFetcher(http.DefaultClient, cfg.BaseURL, cfg.UserAgent, logger)
}

func buildDiscoverer(cfg config.Config, fetcher *sitemap.Fetcher, logger *zap.Logger) *sitemap.Discoverer {
	return sitemap.NewDiscoverer(fetcher, cfg.Bulk.MaxConcurrentChecks, cfg.RateLimitMs, logger)
}

func validationOptions(cfg config.Config, logger *zap.Logger) validation.Options {
	logger = logging.NopIfNil(logger)
	mode := validation.ModeLenient
	if cfg.Validation.StrictMode {
		mode = validation.ModeStrict
	}
	return validation.Options{
		Mode:     mode,
		MaxBytes: cfg.Validation.MaxSizeMiB * 1024 * 1024,
		Observer: func(court string) {
			logger.Debug("unrecognized German court code in ECLI", zap.String("court", court))
		},
	}
}

func buildDownloader(cfg config.Config, repo store.Repository, archive *store.ArchiveStore, logger *zap.Logger) *downloader.Downloader {
	mode := downloader.ValidationStrict
	if cfg.Validation.Async {
		mode = downloader.ValidationAsync
	}
	opts := downloader.Options{
		UserAgent:      cfg.UserAgent,
		RateLimitMs:    cfg.RateLimitMs,
		ValidationMode: mode,
		ValidationOpts: validationOptions(cfg, logger),
		DualBackend:    archive != nil,
	}
	return downloader.New(http.DefaultClient, repo, archive, opts, logger)
}

// buildOrchestrator wires C6/C8/C9 into an Orchestrator, returning a close
// func that releases the underlying store's resources.
func buildOrchestrator(cfg config.Config, logger *zap.Logger) (*orchestrator.Orchestrator, func() error, error) {
	repo, archive, closeRepo, err := buildRepo(cfg)
	if err != nil {
		return nil, nil, err
	}
	fetcher := buildFetcher(cfg, logger)
	dl := buildDownloader(cfg, repo, archive, logger)
	return orchestrator.New(fetcher, repo, dl, logger), closeRepo, nil
}

// buildCoordinator wires the bulk coordinator over a Postgres-backed
// progress store, returning a close func that releases the pool.
func buildCoordinator(ctx context.Context, cfg config.Config, logger *zap.Logger) (*bulk.Coordinator, func(), error) {
	orch, closeRepo, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		_ = closeRepo()
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	fetcher := buildFetcher(cfg, logger)
	discoverer := buildDiscoverer(cfg, fetcher, logger)
	progressStore := bulk.NewPostgresStore(pool)
	coord := bulk.New(progressStore, discoverer, orch, bulk.Options{
		MaxConcurrentOperations: cfg.Bulk.MaxConcurrentOperations,
		DiscoveryTimeout:        time.Duration(cfg.Bulk.DiscoveryTimeoutHours) * time.Hour,
	}, logger)

	closeAll := func() {
		pool.Close()
		if err := closeRepo(); err != nil {
			logger.Warn("failed to close document store", zap.Error(err))
		}
	}
	return coord, closeAll, nil
}

func buildScheduler(cfg config.Config, logger *zap.Logger) (*scheduler.Scheduler, func() error, error) {
	orch, closeRepo, err := buildOrchestrator(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	sched := scheduler.New(orch, scheduler.Config{
		Enabled:    cfg.Scheduled.Enabled,
		DaysBack:   cfg.Scheduled.DaysBack,
		DailyCron:  cfg.Scheduled.DailyCron,
		WeeklyCron: cfg.Scheduled.WeeklyCron,
		RetryCron:  cfg.Scheduled.RetryCron,
		HealthCron: cfg.Scheduled.HealthCron,
	}, logger)
	return sched, closeRepo, nil
}
