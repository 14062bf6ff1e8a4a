package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"podclean/internal/interval"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var flags detectionFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scan EPISODE",
		Short: "Detect snippet occurrences without editing the episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, engine, snippets, err := flags.engineFor(cmd, ctx)
			if err != nil {
				return err
			}
			analysis, err := engine.Analyze(cmd.Context(), args[0], snippets)
			if err != nil {
				return err
			}
			if analysis.Plan == nil {
				analysis.Plan = []interval.Match{}
			}
			if jsonOutput {
				return writeJSON(cmd, analysis)
			}

			w := cmd.OutOrStdout()
			if len(analysis.Snippets) > 0 {
				rows := make([][]string, 0, len(analysis.Snippets))
				for _, report := range analysis.Snippets {
					peak := "-"
					if !report.Skipped && !report.Degenerate {
						peak = fmt.Sprintf("%.3f @ %.2fs", report.PeakScore, report.PeakSeconds)
					}
					note := ""
					switch {
					case report.Skipped:
						note = "skipped: " + report.Error
					case report.Degenerate:
						note = "no variance"
					}
					rows = append(rows, []string{
						filepath.Base(report.Path),
						strconv.Itoa(len(report.Matches)),
						peak,
						note,
					})
				}
				fmt.Fprintln(w, renderTable(
					[]string{"Snippet", "Matches", "Peak", "Note"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				))
			}

			if len(analysis.Plan) == 0 {
				fmt.Fprintln(w, "No segments to remove")
				return nil
			}
			rows := make([][]string, 0, len(analysis.Plan))
			for i, m := range analysis.Plan {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					fmt.Sprintf("%.2f", m.Start),
					fmt.Sprintf("%.2f", m.End),
					fmt.Sprintf("%.2f", m.Duration()),
				})
			}
			fmt.Fprintln(w, renderTable(
				[]string{"#", "Start (s)", "End (s)", "Length (s)"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			fmt.Fprintf(w, "%d segment(s), %.2f s total\n", len(analysis.Plan), interval.Total(analysis.Plan))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the analysis as JSON")
	return cmd
}
