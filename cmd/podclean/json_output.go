package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"podclean/internal/cleaner"
	"podclean/internal/runner"
)

// jsonDocument lists the values podclean prints with --json.
type jsonDocument interface {
	*cleaner.Analysis | []historyEntry | *runner.Summary
}

// writeJSON prints v as indented JSON. Episode titles and URLs keep & < >
// as written.
func writeJSON[T jsonDocument](cmd *cobra.Command, v T) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
