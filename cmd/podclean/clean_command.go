package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"podclean/internal/audio"
	"podclean/internal/cleaner"
	"podclean/internal/config"
	"podclean/internal/library"
	"podclean/internal/runner"
)

// detectionFlags are shared by clean and scan.
type detectionFlags struct {
	snippetsDir string
	threshold   float64
	skipBroken  bool
}

func (f *detectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.snippetsDir, "snippets", "", "Snippet directory (defaults to paths.snippets_dir)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "Similarity threshold in (0, 1] (defaults to detection.similarity_threshold)")
	cmd.Flags().BoolVar(&f.skipBroken, "skip-broken-snippets", false, "Skip snippets that cannot be decoded instead of failing")
}

// engineFor builds the codec, detection engine, and snippet list for a local
// clean or scan.
func (f *detectionFlags) engineFor(cmd *cobra.Command, ctx *commandContext) (*audio.Router, *cleaner.Engine, []string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := cleaner.OptionsFromConfig(cfg)
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = f.threshold
	}
	if f.skipBroken {
		opts.SnippetErrors = config.SnippetErrorsSkip
	}

	dir := strings.TrimSpace(f.snippetsDir)
	if dir == "" {
		dir = cfg.Paths.SnippetsDir
	}
	lib, err := library.Load(dir)
	if err != nil {
		return nil, nil, nil, err
	}

	codec := runner.NewCodec(cfg, logger)
	engine, err := cleaner.NewEngine(codec, opts, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return codec, engine, lib.Paths, nil
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var flags detectionFlags
	var output string

	cmd := &cobra.Command{
		Use:   "clean EPISODE",
		Short: "Remove every snippet occurrence from a local episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episode := args[0]
			out := strings.TrimSpace(output)
			if out == "" {
				ext := filepath.Ext(episode)
				out = strings.TrimSuffix(episode, ext) + ".clean" + ext
			}
			if filepath.Clean(out) == filepath.Clean(episode) {
				return fmt.Errorf("output %s would overwrite the episode", out)
			}

			codec, engine, snippets, err := flags.engineFor(cmd, ctx)
			if err != nil {
				return err
			}
			result, err := engine.Process(cmd.Context(), episode, snippets)
			if err != nil {
				return err
			}
			if err := codec.Encode(cmd.Context(), result.Clip, out); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Removed %d segment(s), %s of %s\n",
				len(result.Plan),
				formatMs(result.RemovedMs),
				formatMs(result.OriginalMs),
			)
			for _, skipped := range result.SkippedSnippets {
				fmt.Fprintf(w, "Skipped unreadable snippet %s\n", filepath.Base(skipped))
			}
			size := "unknown size"
			if info, err := os.Stat(out); err == nil {
				size = humanize.Bytes(uint64(info.Size()))
			}
			fmt.Fprintf(w, "Wrote %s (%s) in %s\n", out, size, result.Elapsed.Round(time.Millisecond))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to EPISODE.clean.EXT)")
	return cmd
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(10 * time.Millisecond).String()
}
