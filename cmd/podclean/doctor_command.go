package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"podclean/internal/deps"
	"podclean/internal/notifications"
	"podclean/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var testNotify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, and the source feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			problems := 0

			fmt.Fprintln(w, "Dependencies")
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			for _, s := range statuses {
				fmt.Fprintf(w, "  [%s] %s: %s\n", statusMark(w, s.Available), s.Name, depDetail(s))
			}
			problems += len(deps.Missing(statuses))

			fmt.Fprintln(w, "Checks")
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				fmt.Fprintf(w, "  [%s] %s: %s\n", statusMark(w, r.Passed), r.Name, r.Detail)
			}
			problems += len(preflight.Failed(results))

			if testNotify {
				notifier := notifications.NewService(cfg)
				err := notifier.TestNotification(cmd.Context())
				switch {
				case strings.TrimSpace(cfg.Notifications.NtfyTopic) == "":
					fmt.Fprintln(w, "Notifications: ntfy topic not configured")
				case err != nil:
					fmt.Fprintf(w, "Notifications: [%s] %v\n", statusMark(w, false), err)
					problems++
				default:
					fmt.Fprintf(w, "Notifications: [%s] test message sent\n", statusMark(w, true))
				}
			}

			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			fmt.Fprintln(w, "All checks passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&testNotify, "notify", false, "Send a test notification")
	return cmd
}

func depDetail(s deps.Status) string {
	parts := []string{s.Command}
	if s.Version != "" {
		parts = append(parts, "version "+s.Version)
	}
	if s.Detail != "" {
		parts = append(parts, s.Detail)
	}
	if !s.Available && s.Optional {
		parts = append(parts, "optional")
	}
	return strings.Join(parts, ", ")
}
