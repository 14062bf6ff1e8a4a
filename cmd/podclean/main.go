package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"podclean/internal/runner"
	"podclean/internal/services"
)

// Exit codes follow sysexits(3) where one fits.
const (
	exitFailure  = 1
	exitTempFail = 75
	exitConfig   = 78
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode lets cron and systemd tell a busy lock or a bad config apart from
// a failed pass.
func exitCode(err error) int {
	switch {
	case errors.Is(err, runner.ErrLocked):
		return exitTempFail
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, services.ErrValidation):
		return exitConfig
	default:
		return exitFailure
	}
}
