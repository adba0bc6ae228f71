package commands

import (
	"log/slog"
	"stocksentinel-backend/internal/roster"
	"stocksentinel-backend/pkg/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rosterCmd.AddCommand(rosterSyncCmd)
	rootCmd.AddCommand(rosterCmd)
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Manages the filers transactions are attributed to.",
}

var rosterSyncCmd = &cobra.Command{
	Use:   "sync [sources...]",
	Short: "Loads senators from the congress-legislators dataset (urls or files) into the database.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		rt, err := setupRuntime(ctx)
		if err != nil {
			serviceutil.Fatal("setup", err)
		}
		defer rt.Close()

		sources := rt.cfg.Roster.Sources
		if len(args) > 0 {
			sources = args
		}
		endAfter, err := rt.cfg.Roster.TermsEndAfterDate()
		if err != nil {
			serviceutil.Fatal("parse terms_end_after", err)
		}

		loader := roster.NewLoader(rt.cfg.Roster.HttpClient(), rt.time, rt.tel)
		filers, err := loader.Load(ctx, sources, endAfter)
		if err != nil {
			rt.Close()
			serviceutil.Fatal("load roster", err)
		}
		err = rt.store.UpsertFilers(ctx, filers)
		if err != nil {
			rt.Close()
			serviceutil.Fatal("store roster", err)
		}
		slog.Info("synced roster", "filers", len(filers))
	},
}
