package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podclean/internal/config"
	"podclean/internal/ledger"
)

type historyEntry struct {
	GUID        string     `json:"guid"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Matches     int        `json:"matches"`
	RemovedMs   int64      `json:"removed_ms"`
	DurationMs  int64      `json:"duration_ms"`
	OutputPath  string     `json:"output_path,omitempty"`
	OutputBytes int64      `json:"output_bytes"`
	Attempts    int        `json:"attempts"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List episodes recorded in the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter ledger.Status
			if strings.TrimSpace(statusFilter) != "" {
				status, ok := ledger.ParseStatus(statusFilter)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFilter)
				}
				filter = status
			}

			return ctx.withLedger(func(_ *config.Config, store *ledger.Store) error {
				episodes, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				entries := make([]historyEntry, 0, len(episodes))
				for _, ep := range episodes {
					if filter != "" && ep.Status != filter {
						continue
					}
					entries = append(entries, toHistoryEntry(ep))
				}
				if jsonOutput {
					return writeJSON(cmd, entries)
				}

				w := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(w, "No episodes recorded")
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						e.Title,
						statusLabel(e),
						relTime(e.PublishedAt, now),
						strconv.Itoa(e.Matches),
						formatMs(e.RemovedMs),
						sizeLabel(e.OutputBytes),
					})
				}
				fmt.Fprintln(w, renderTable(
					[]string{"Title", "Status", "Published", "Cuts", "Removed", "Size"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))

				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				parts := make([]string, 0, len(stats))
				for _, status := range []ledger.Status{ledger.StatusProcessed, ledger.StatusPending, ledger.StatusFailed, ledger.StatusRejected} {
					if n := stats[status]; n > 0 {
						parts = append(parts, fmt.Sprintf("%d %s", n, status))
					}
				}
				fmt.Fprintln(w, strings.Join(parts, ", "))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print history as JSON")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only list episodes with this status")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry GUID...",
		Short: "Reset failed or rejected episodes to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(_ *config.Config, store *ledger.Store) error {
				w := cmd.OutOrStdout()
				for _, guid := range args {
					ok, err := store.Reset(cmd.Context(), guid)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintf(w, "%s: not found\n", guid)
						continue
					}
					fmt.Fprintf(w, "%s: pending\n", guid)
				}
				return nil
			})
		},
	}
}

func toHistoryEntry(ep *ledger.Episode) historyEntry {
	entry := historyEntry{
		GUID:        ep.GUID,
		Title:       ep.Title,
		Status:      string(ep.Status),
		Matches:     ep.MatchCount,
		RemovedMs:   ep.RemovedMs,
		DurationMs:  ep.DurationMs,
		OutputPath:  ep.OutputPath,
		OutputBytes: ep.OutputBytes,
		Attempts:    ep.Attempts,
		ProcessedAt: ep.ProcessedAt,
		Error:       ep.Error,
	}
	if !ep.PublishedAt.IsZero() {
		published := ep.PublishedAt
		entry.PublishedAt = &published
	}
	if entry.Title == "" {
		entry.Title = ep.GUID
	}
	return entry
}

func statusLabel(e historyEntry) string {
	if e.Status == string(ledger.StatusFailed) {
		return fmt.Sprintf("%s (%d/%d)", e.Status, e.Attempts, ledger.MaxAttempts)
	}
	return e.Status
}

func relTime(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

func sizeLabel(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(bytes))
}
