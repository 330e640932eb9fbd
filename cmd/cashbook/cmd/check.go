package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cashbooklabs/cashbook/internal/adapters/journalfile"
	"github.com/cashbooklabs/cashbook/internal/core/services"
	"github.com/cashbooklabs/cashbook/internal/platform/config"
	"github.com/cashbooklabs/cashbook/internal/platform/logging"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Parse the journal and vouchers without writing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			slog.Error("configuration failed", "error", err)
			return err
		}
		ctx := logging.NewRunContext(context.Background(), slog.Default())

		store := journalfile.New(cfg.JournalFile, cfg.BackupDir)
		journal, err := services.NewRunner(cfg, store).Check(ctx)
		if err != nil {
			return err
		}

		for _, re := range journal.RunErrors() {
			fmt.Fprintf(cmd.OutOrStdout(), "fehler %s\n", re.Msg)
			if re.Line != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", re.Line)
			}
		}
		if len(journal.RunErrors()) > 0 {
			return fmt.Errorf("%d problem(s) in the journal", len(journal.RunErrors()))
		}
		logging.FromCtx(ctx).Info("journal parses cleanly")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
