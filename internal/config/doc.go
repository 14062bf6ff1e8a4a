// Package config loads, normalizes, and validates podclean configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PODCLEAN_FEED_URL. The Config type centralizes every knob the runner, the
// cleaning engine, and the CLI need, so detection parameters, feed metadata,
// and storage directories are discovered in one pass and then passed around
// as an immutable value.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
