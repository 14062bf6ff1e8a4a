package ledger

import (
	"strings"
	"time"
)

// Status is the processing state of an episode.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
	StatusRejected  Status = "rejected"
)

// MaxAttempts bounds how often a failed episode is retried.
const MaxAttempts = 3

var statusSet = map[Status]struct{}{
	StatusPending:   {},
	StatusProcessed: {},
	StatusFailed:    {},
	StatusRejected:  {},
}

// ParseStatus normalises a status string. Unknown values report false.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	_, ok := statusSet[status]
	return status, ok
}

// Episode is one ledger row.
type Episode struct {
	GUID        string
	Title       string
	SourceURL   string
	SourcePath  string
	OutputPath  string
	Status      Status
	MatchCount  int
	RemovedMs   int64
	DurationMs  int64
	OutputBytes int64
	Attempts    int
	PublishedAt time.Time
	ProcessedAt *time.Time
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Retryable reports whether the runner should pick the episode up again.
func (e *Episode) Retryable() bool {
	switch e.Status {
	case StatusPending:
		return true
	case StatusFailed:
		return e.Attempts < MaxAttempts
	default:
		return false
	}
}

// Outcome is what cleaning produced for an episode.
type Outcome struct {
	OutputPath  string
	MatchCount  int
	RemovedMs   int64
	DurationMs  int64
	OutputBytes int64
}
