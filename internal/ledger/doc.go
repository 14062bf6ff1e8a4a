// Package ledger persists which feed episodes have been downloaded, cleaned,
// and published.
//
// The ledger is a single SQLite table keyed by the episode GUID, so renamed
// or retitled episodes are never processed twice. Statuses move from pending
// to processed, failed (retried on the next pass until MaxAttempts), or
// rejected (the input itself is bad and retrying would fail the same way).
//
// Open applies the schema on first use and refuses databases written by a
// different schema version.
package ledger
