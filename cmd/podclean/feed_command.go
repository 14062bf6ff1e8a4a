package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podclean/internal/config"
	"podclean/internal/ledger"
	"podclean/internal/runner"
)

func newFeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: "Rewrite the cleaned RSS feed from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(cfg *config.Config, store *ledger.Store) error {
				n, err := runner.Publish(cmd.Context(), cfg, store)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %d episode(s) to %s\n", n, cfg.Paths.FeedFile)
				return nil
			})
		},
	}
}
