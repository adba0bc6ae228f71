package commands

import (
	"log/slog"
	"os"
	"stocksentinel-backend/internal/ingest"
	"stocksentinel-backend/pkg/serviceutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	crawlSince   *string
	crawlWorkers *int
)

func init() {
	crawlSince = crawlCmd.Flags().String("since", "", "Only crawl filings submitted on or after this date (YYYY-MM-DD).")
	crawlWorkers = crawlCmd.Flags().Int("workers", 0, "The number of filings processed at once, overrides the config.")
	rootCmd.AddCommand(crawlCmd)
}

func printStats(stats ingest.Stats, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Counter", "Value"})
	t.AppendRows([]table.Row{
		{"pages", stats.Pages},
		{"rows", stats.Rows},
		{"paper", stats.Paper},
		{"amendments", stats.Amendments},
		{"filings", stats.Filings},
		{"transactions", stats.Transactions},
		{"skipped (non-stock)", stats.SkippedNonStock},
		{"row errors", stats.RowErrors},
		{"filing errors", stats.FilingErrors},
		{"unresolved", stats.Unresolved},
	})
	t.AppendFooter(table.Row{"elapsed", elapsed.Round(time.Millisecond).String()})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--since <YYYY-MM-DD>] [--workers <n>]",
	Short: "Crawls the disclosure portal once and stores every stock transaction found.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		rt, err := setupRuntime(ctx)
		if err != nil {
			serviceutil.Fatal("setup", err)
		}
		defer rt.Close()

		if *crawlSince != "" {
			rt.cfg.Crawl.Since = *crawlSince
		}
		if *crawlWorkers > 0 {
			rt.cfg.Crawl.Workers = *crawlWorkers
		}
		since, err := rt.cfg.Crawl.SinceDate(rt.time.Now())
		if err != nil {
			serviceutil.Fatal("parse since date", err)
		}

		pipeline, err := rt.newPipeline(ctx, since)
		if err != nil {
			serviceutil.Fatal("create pipeline", err)
		}

		slog.Info("crawling", "since", since.Format(time.DateOnly))
		t1 := time.Now()
		stats, err := pipeline.Run(ctx)
		printStats(stats, time.Since(t1))
		if err != nil {
			rt.Close()
			serviceutil.Fatal("crawl", err)
		}

		total, err := rt.store.CountTransactions(ctx)
		if err == nil {
			slog.Info("stored transactions", "total", total)
		}
	},
}
