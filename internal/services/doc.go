// Package services defines shared utilities consumed by the cleaning pipeline
// and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, episode IDs, and stage names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent ledger statuses (failed vs rejected).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the run.
package services
