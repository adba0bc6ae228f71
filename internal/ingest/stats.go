package ingest

import (
	"context"
	"stocksentinel-backend/internal/components/telemetry"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Stats are the counters of a single pipeline run.
type Stats struct {
	Pages           int64
	Rows            int64
	Paper           int64
	Amendments      int64
	Filings         int64
	Transactions    int64
	SkippedNonStock int64
	RowErrors       int64
	FilingErrors    int64
	// Unresolved counts stored transactions without a transactor.
	Unresolved int64
}

func (s Stats) Map() map[string]int64 {
	return map[string]int64{
		"pages":             s.Pages,
		"rows":              s.Rows,
		"paper":             s.Paper,
		"amendments":        s.Amendments,
		"filings":           s.Filings,
		"transactions":      s.Transactions,
		"skipped_non_stock": s.SkippedNonStock,
		"row_errors":        s.RowErrors,
		"filing_errors":     s.FilingErrors,
		"unresolved":        s.Unresolved,
	}
}

type counter struct {
	value  atomic.Int64
	metric metric.Int64Counter
}

func (c *counter) add(ctx context.Context, n int64) {
	c.value.Add(n)
	c.metric.Add(ctx, n)
}

type counters struct {
	pages           counter
	rows            counter
	paper           counter
	amendments      counter
	filings         counter
	transactions    counter
	skippedNonStock counter
	rowErrors       counter
	filingErrors    counter
	unresolved      counter
}

func newCounters(meter metric.Meter, tel telemetry.API) *counters {
	c := &counters{}
	fallback := noop.NewMeterProvider().Meter("")
	for name, target := range c.byName() {
		instrument, err := meter.Int64Counter("ingest." + name)
		if err != nil {
			tel.ReportWarning(report_pipeline_metrics, err, name)
			instrument, _ = fallback.Int64Counter(name)
		}
		target.metric = instrument
	}
	return c
}

func (c *counters) byName() map[string]*counter {
	return map[string]*counter{
		"pages":             &c.pages,
		"rows":              &c.rows,
		"paper":             &c.paper,
		"amendments":        &c.amendments,
		"filings":           &c.filings,
		"transactions":      &c.transactions,
		"skipped_non_stock": &c.skippedNonStock,
		"row_errors":        &c.rowErrors,
		"filing_errors":     &c.filingErrors,
		"unresolved":        &c.unresolved,
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Pages:           c.pages.value.Load(),
		Rows:            c.rows.value.Load(),
		Paper:           c.paper.value.Load(),
		Amendments:      c.amendments.value.Load(),
		Filings:         c.filings.value.Load(),
		Transactions:    c.transactions.value.Load(),
		SkippedNonStock: c.skippedNonStock.value.Load(),
		RowErrors:       c.rowErrors.value.Load(),
		FilingErrors:    c.filingErrors.value.Load(),
		Unresolved:      c.unresolved.value.Load(),
	}
}
