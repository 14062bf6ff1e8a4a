// Package notifications pushes runner events to ntfy.
//
// The topic URL comes from config.toml; with no topic configured NewService
// returns a no-op so callers never branch on whether notifications are on.
package notifications
