package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"podclean/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the podclean log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			minLevel, ok := logs.ParseLevel(level)
			if !ok {
				return fmt.Errorf("unknown log level %q", level)
			}
			path := cfg.LogPath()
			err = logs.Tail(cmd.Context(), path, cmd.OutOrStdout(), logs.Options{
				Lines:    lines,
				Follow:   follow,
				MinLevel: minLevel,
			})
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "No log file at %s\n", path)
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&level, "level", "info", "Minimum level to show (debug, info, warn, error)")
	return cmd
}
