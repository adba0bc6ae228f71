package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"stocksentinel-backend/internal/archive"
	"stocksentinel-backend/internal/components/chrono"
	"stocksentinel-backend/internal/components/telemetry"
	"stocksentinel-backend/internal/config"
	"stocksentinel-backend/internal/ingest"
	"stocksentinel-backend/internal/scrapers/efd"
	"stocksentinel-backend/internal/store"
	"time"
)

// runtime is everything the commands share, it is created once per invocation.
type runtime struct {
	cfg   config.Config
	tel   telemetry.API
	time  chrono.API
	store store.Store
	otel  telemetry.Providers
}

func setupRuntime(ctx context.Context) (runtime, error) {
	tel := telemetry.SlogAPI{}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return runtime{}, fmt.Errorf("read config: %w", err)
	}

	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return runtime{}, fmt.Errorf("load timezone: %w", err)
	}

	otelProviders, err := telemetry.SetupFromEnv(ctx, "sentinel")
	if errors.Is(err, os.ErrNotExist) {
		tel.ReportDebug("telemetry.json5 not found, telemetry export disabled")
	} else if err != nil {
		return runtime{}, fmt.Errorf("setup telemetry: %w", err)
	} else {
		telemetry.InstrumentPerfStats(ctx, 15*time.Second)
	}

	db, err := store.Open(ctx, cfg.Store, tel)
	if err != nil {
		otelProviders.Shutdown(context.Background())
		return runtime{}, err
	}

	return runtime{
		cfg:   cfg,
		tel:   tel,
		time:  clock,
		store: db,
		otel:  otelProviders,
	}, nil
}

func (r runtime) Close() {
	err := r.store.Close()
	if err != nil {
		r.tel.ReportWarning("runtime.close", err)
	}
	err = r.otel.Shutdown(context.Background())
	if err != nil {
		r.tel.ReportWarning("runtime.close", err)
	}
}

func (r runtime) newClient() (*efd.Client, error) {
	opts := r.cfg.Portal.ClientOptions()
	if r.cfg.Portal.MessagesDir != "" {
		output, err := telemetry.NewFilesystemOutput(filepath.Clean(r.cfg.Portal.MessagesDir))
		if err != nil {
			return nil, err
		}
		opts.MessageOutput = output
	}
	return efd.NewClient(opts, r.tel)
}

func (r runtime) newPipeline(ctx context.Context, since time.Time) (ingest.Pipeline, error) {
	client, err := r.newClient()
	if err != nil {
		return ingest.Pipeline{}, fmt.Errorf("create portal client: %w", err)
	}
	blobs, err := archive.New(ctx, r.cfg.Archive)
	if err != nil {
		return ingest.Pipeline{}, fmt.Errorf("create archive: %w", err)
	}
	strategy, err := r.cfg.Roster.ResolveStrategy()
	if err != nil {
		return ingest.Pipeline{}, err
	}

	return ingest.NewPipeline(ingest.Dependencies{
		Source:   client,
		Sink:     r.store,
		Roster:   r.store,
		Runs:     r.store,
		Archive:  blobs,
		Strategy: strategy,
		Time:     r.time,
		Tel:      r.tel,
	}, ingest.Options{
		Since:   since,
		Workers: r.cfg.Crawl.Workers,
		Crawl:   r.cfg.Crawl.CrawlOptions(),
	}), nil
}
