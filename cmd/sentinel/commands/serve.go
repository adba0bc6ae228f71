package commands

import (
	"log/slog"
	"stocksentinel-backend/internal/components/chrono"
	"stocksentinel-backend/pkg/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var serveImmediately *bool

func init() {
	serveImmediately = serveCmd.Flags().Bool("now", false, "Trigger a crawl immediately on start.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--now]",
	Short: "Crawls the disclosure portal on the configured schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		rt, err := setupRuntime(ctx)
		if err != nil {
			serviceutil.Fatal("setup", err)
		}
		defer rt.Close()

		crawl := func() {
			since, err := rt.cfg.Crawl.SinceDate(rt.time.Now())
			if err != nil {
				rt.tel.ReportBroken("serve.crawl", err)
				return
			}
			pipeline, err := rt.newPipeline(ctx, since)
			if err != nil {
				rt.tel.ReportBroken("serve.crawl", err)
				return
			}
			t1 := time.Now()
			stats, err := pipeline.Run(ctx)
			if err != nil {
				// already reported by the pipeline, the next tick retries
				return
			}
			slog.Info(
				"crawl finished",
				"transactions", stats.Transactions,
				"filings", stats.Filings,
				"seconds", time.Since(t1).Seconds(),
			)
		}

		cron := chrono.NewStandardCron(rt.tel, rt.time)
		defer cron.Stop()
		err = cron.Cron(rt.cfg.Crawl.Schedule, crawl)
		if err != nil {
			serviceutil.Fatal("schedule crawl", err)
		}
		slog.Info("scheduled crawl", "schedule", rt.cfg.Crawl.Schedule)

		if *serveImmediately {
			go crawl()
		}
		<-ctx.Done()
	},
}
