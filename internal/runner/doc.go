// Package runner drives one end-to-end pass over the source feed.
//
// A pass takes the single-instance lock under the state directory, fetches
// the feed, downloads new episodes, records them in the ledger, cleans every
// pending episode, prunes old output, republishes the cleaned RSS feed, and
// sends a summary notification. Watch repeats passes on an interval until
// its context is cancelled.
//
// Episode failures never abort a pass: each is recorded in the ledger with a
// status derived from services.FailureStatus so input problems are not
// retried while transient ones are.
package runner
