// Package ingest wires the portal scraper, the filing parser, the roster and the
// store into a single crawl.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"stocksentinel-backend/internal/archive"
	"stocksentinel-backend/internal/components/assert"
	"stocksentinel-backend/internal/components/chrono"
	"stocksentinel-backend/internal/components/telemetry"
	"stocksentinel-backend/internal/filings"
	"stocksentinel-backend/internal/roster"
	"stocksentinel-backend/internal/scrapers/efd"
	"stocksentinel-backend/internal/store"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	report_pipeline_run          = "pipeline.run"
	report_pipeline_metrics      = "pipeline.metrics"
	report_pipeline_filing       = "pipeline.filing"
	report_pipeline_row          = "pipeline.row"
	report_pipeline_archive      = "pipeline.archive"
	report_pipeline_amendment    = "pipeline.amendment"
	report_pipeline_finish_run   = "pipeline.finish-run"
	report_pipeline_transactions = "pipeline.transactions"
)

var tracer = otel.Tracer("stocksentinel-backend/internal/ingest")

// Source is the disclosure portal, it is implemented by *efd.Client.
type Source interface {
	efd.Pager
	EstablishSession(ctx context.Context) (string, error)
	FetchReport(ctx context.Context, path string) (efd.Document, error)
}

// Sink receives parsed transactions, it must be safe for concurrent use.
type Sink interface {
	Upsert(ctx context.Context, t filings.Transaction) error
}

type RosterProvider interface {
	Filers(ctx context.Context) ([]roster.Filer, error)
}

type RunRecorder interface {
	BeginRun(ctx context.Context, startedAt, since time.Time) (string, error)
	FinishRun(ctx context.Context, id string, finishedAt time.Time, status store.RunStatus, counters map[string]int64) error
}

// AmendmentHandler receives every filing that amends an earlier one.
type AmendmentHandler interface {
	HandleAmendment(ctx context.Context, row efd.ReportRow, doc efd.Document) error
}

// DropAmendments discards amendments.
type DropAmendments struct{}

func (DropAmendments) HandleAmendment(context.Context, efd.ReportRow, efd.Document) error {
	return nil
}

type Dependencies struct {
	Source Source
	Sink   Sink
	Roster RosterProvider
	Runs   RunRecorder
	// Archive, Amendments and Strategy are optional.
	Archive    archive.Archive
	Amendments AmendmentHandler
	Strategy   roster.Strategy
	Time       chrono.API
	Tel        telemetry.API
}

type Options struct {
	Since time.Time
	// Workers bounds the number of filings processed at once, it defaults to 1.
	Workers int
	Crawl   efd.CrawlOptions
}

// Pipeline holds everything a run needs, there is no package level state.
type Pipeline struct {
	source     Source
	sink       Sink
	roster     RosterProvider
	runs       RunRecorder
	archive    archive.Archive
	amendments AmendmentHandler
	strategy   roster.Strategy
	time       chrono.API
	tel        telemetry.API
	options    Options
}

func NewPipeline(deps Dependencies, options Options) Pipeline {
	assert.NotNil(deps.Source)
	assert.NotNil(deps.Sink)
	assert.NotNil(deps.Roster)
	assert.NotNil(deps.Runs)
	assert.NotNil(deps.Time)
	assert.NotNil(deps.Tel)

	if deps.Archive == nil {
		deps.Archive = archive.Noop{}
	}
	if deps.Amendments == nil {
		deps.Amendments = DropAmendments{}
	}
	if deps.Strategy == nil {
		deps.Strategy = roster.LenientStrategy{}
	}
	if options.Workers <= 0 {
		options.Workers = 1
	}

	return Pipeline{
		source:     deps.Source,
		sink:       deps.Sink,
		roster:     deps.Roster,
		runs:       deps.Runs,
		archive:    deps.Archive,
		amendments: deps.Amendments,
		strategy:   deps.Strategy,
		time:       deps.Time,
		tel:        telemetry.NewScopedAPI("ingest", deps.Tel),
		options:    options,
	}
}

func statusOf(ctx context.Context, err error) store.RunStatus {
	switch {
	case err == nil:
		return store.RUN_SUCCEEDED
	case errors.Is(err, context.Canceled), ctx.Err() != nil:
		return store.RUN_CANCELLED
	}
	return store.RUN_FAILED
}

// Run performs a single crawl from the configured since date. Data problems in single
// rows or filings are counted and reported, everything else aborts the run.
func (p Pipeline) Run(ctx context.Context) (stats Stats, err error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Run", trace.WithAttributes(
		attribute.String("since", p.options.Since.Format(time.DateOnly)),
	))
	defer span.End()

	c := newCounters(otel.Meter("stocksentinel-backend/internal/ingest"), p.tel)

	filers, err := p.roster.Filers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load roster: %w", err)
	}
	resolver := roster.NewResolver(filers, p.strategy)
	if resolver.Size() == 0 {
		p.tel.ReportWarning(report_pipeline_run, "roster is empty, no transactor will be resolved")
	} else {
		p.tel.ReportDebug("loaded roster", resolver.Size())
	}

	runId, err := p.runs.BeginRun(ctx, p.time.Now(), p.options.Since)
	if err != nil {
		return Stats{}, err
	}
	defer func() {
		stats = c.snapshot()
		status := statusOf(ctx, err)
		span.SetAttributes(attribute.String("status", string(status)))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			p.tel.ReportBroken(report_pipeline_run, err, runId)
		}

		finishErr := p.runs.FinishRun(context.WithoutCancel(ctx), runId, p.time.Now(), status, stats.Map())
		if finishErr != nil {
			p.tel.ReportBroken(report_pipeline_finish_run, finishErr, runId)
			err = errors.Join(err, finishErr)
		}
		p.tel.ReportCount(report_pipeline_transactions, stats.Transactions)
	}()

	token, err := p.source.EstablishSession(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("establish session: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.options.Workers)

	crawler := efd.NewCrawler(p.source, p.options.Crawl, p.tel)
	crawlStats, crawlErr := crawler.Crawl(groupCtx, token, p.options.Since, func(ctx context.Context, row efd.ReportRow) error {
		c.rows.add(ctx, 1)
		if filings.ClassifyLink(row.LinkFragment) == filings.KIND_PAPER {
			c.paper.add(ctx, 1)
			p.tel.ReportDebug("skipping paper filing", row.Office, row.LinkFragment)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		group.Go(func() error {
			return p.processFiling(groupCtx, c, resolver, row)
		})
		return nil
	})
	c.pages.add(ctx, int64(crawlStats.Pages))
	c.filingErrors.add(ctx, int64(crawlStats.Malformed))

	waitErr := group.Wait()
	if waitErr != nil {
		return Stats{}, waitErr
	}
	if crawlErr != nil {
		return Stats{}, crawlErr
	}
	return Stats{}, nil
}

func (p Pipeline) processFiling(ctx context.Context, c *counters, resolver roster.Resolver, row efd.ReportRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ptrId, err := filings.ExtractReportID(row.LinkFragment)
	if err != nil {
		c.filingErrors.add(ctx, 1)
		p.tel.ReportWarning(report_pipeline_filing, err)
		return nil
	}
	path, err := filings.ReportPath(row.LinkFragment)
	if err != nil {
		c.filingErrors.add(ctx, 1)
		p.tel.ReportWarning(report_pipeline_filing, err)
		return nil
	}

	ctx, span := tracer.Start(ctx, "Pipeline.processFiling", trace.WithAttributes(
		attribute.String("ptr_id", ptrId),
		attribute.String("office", row.Office),
	))
	defer span.End()

	doc, err := p.source.FetchReport(ctx, path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("fetch report %s: %w", ptrId, err)
	}

	err = p.archive.Put(ctx, archive.Key(ptrId), doc.Raw)
	if err != nil {
		p.tel.ReportWarning(report_pipeline_archive, err, ptrId)
	}

	if filings.ClassifyDocument(doc.Doc) == filings.KIND_AMENDMENT {
		c.amendments.add(ctx, 1)
		p.tel.ReportDebug("diverting amendment", ptrId)
		err = p.amendments.HandleAmendment(ctx, row, doc)
		if err != nil {
			c.filingErrors.add(ctx, 1)
			p.tel.ReportWarning(report_pipeline_amendment, err, ptrId)
		}
		return nil
	}

	report, err := filings.Parse(doc.Doc, filings.Metadata{
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		LinkFragment: row.LinkFragment,
	}, resolver)
	if err != nil {
		c.filingErrors.add(ctx, 1)
		p.tel.ReportWarning(report_pipeline_filing, err, ptrId)
		return nil
	}
	c.filings.add(ctx, 1)

	for _, result := range report.Results {
		switch result.Outcome {
		case filings.OUTCOME_SKIPPED:
			c.skippedNonStock.add(ctx, 1)
		case filings.OUTCOME_FAILED:
			c.rowErrors.add(ctx, 1)
			p.tel.ReportWarning(report_pipeline_row, result.Err, ptrId, result.Index)
		case filings.OUTCOME_PARSED:
			err = p.sink.Upsert(ctx, result.Transaction)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return err
			}
			c.transactions.add(ctx, 1)
			if result.Transaction.Transactor == nil {
				c.unresolved.add(ctx, 1)
			}
		}
	}
	return nil
}
