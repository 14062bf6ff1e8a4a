package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"podclean/internal/config"
	"podclean/internal/ledger"
	"podclean/internal/notifications"
	"podclean/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var interval time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the feed, clean new episodes, and republish",
		Long: "Run one pass over the source feed: download new episodes, remove snippet\n" +
			"occurrences, prune old output, and rewrite the cleaned RSS feed.\n" +
			"With --watch the pass repeats every workflow.poll_interval seconds.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withLedger(func(cfg *config.Config, store *ledger.Store) error {
				if err := cfg.ValidateFeed(); err != nil {
					return err
				}
				r, err := runner.New(cfg, store, runner.NewCodec(cfg, logger), notifications.NewService(cfg), logger)
				if err != nil {
					return err
				}

				if watch {
					every := interval
					if every <= 0 {
						every = time.Duration(cfg.Workflow.PollInterval) * time.Second
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %s (Ctrl+C to stop)\n", cfg.Feed.SourceURL, every)
					return r.Watch(signalCtx, every)
				}

				summary, err := r.RunOnce(signalCtx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, summary)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Run %s finished in %s\n", summary.RunID, summary.Elapsed.Round(time.Millisecond))
				fmt.Fprintf(w, "  downloaded %d of %d feed item(s)\n", summary.Downloaded, summary.Fetched)
				fmt.Fprintf(w, "  cleaned %d, failed %d, rejected %d, pruned %d\n",
					summary.Processed, summary.Failed, summary.Rejected, summary.Pruned)
				fmt.Fprintf(w, "  feed lists %d episode(s) at %s\n", summary.Published, cfg.Paths.FeedFile)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Repeat passes until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Override workflow.poll_interval in watch mode (e.g. 10m)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the pass summary as JSON")
	return cmd
}
