package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cashbooklabs/cashbook/internal/adapters/bankcsv"
	"github.com/cashbooklabs/cashbook/internal/adapters/journalfile"
	"github.com/cashbooklabs/cashbook/internal/core/services"
	"github.com/cashbooklabs/cashbook/internal/platform/config"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the journal and all bank feeds, then rewrite it",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			slog.Error("configuration failed", "error", err)
			return err
		}
		ctx := logging.NewRunContext(context.Background(), slog.Default())

		store := journalfile.New(cfg.JournalFile, cfg.BackupDir)
		feeds := make([]services.BankFeed, 0, len(cfg.Banks))
		for _, bank := range cfg.Banks {
			feeds = append(feeds, services.BankFeed{
				Account: bank,
				Source:  bankcsv.NewReader(bank.SourceFile, cfg.Period),
			})
		}

		journal, err := services.NewRunner(cfg, store).Run(ctx, feeds)
		if err != nil {
			logging.FromCtx(ctx).Error("run aborted, journal untouched", "error", err)
			return err
		}
		if journal.HasErrors() {
			logging.FromCtx(ctx).Warn("run finished with diagnostics, see the journal file")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
