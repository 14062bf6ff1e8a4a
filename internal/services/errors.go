package services

import (
	"errors"
	"fmt"
	"strings"

	"podclean/internal/ledger"
)

var (
	// ErrInput marks audio that cannot be decoded, is empty, or has an
	// unsupported channel layout.
	ErrInput = errors.New("input error")
	// ErrConfigMismatch marks spectrograms produced with incompatible
	// transform parameters.
	ErrConfigMismatch = errors.New("config mismatch")
	// ErrInvariant marks a violated precondition inside the engine. It is a
	// defect, not a recoverable runtime condition.
	ErrInvariant = errors.New("invariant violated")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a pipeline error to the ledger status the runner should
// persist after an episode fails. Rejected episodes are not retried on the next
// pass because the same input would fail the same way.
func FailureStatus(err error) ledger.Status {
	switch {
	case errors.Is(err, ErrInput), errors.Is(err, ErrInvariant), errors.Is(err, ErrConfigMismatch), errors.Is(err, ErrValidation):
		return ledger.StatusRejected
	default:
		return ledger.StatusFailed
	}
}

// IsDefect reports whether err stems from a violated engine precondition.
func IsDefect(err error) bool {
	return errors.Is(err, ErrInvariant)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
