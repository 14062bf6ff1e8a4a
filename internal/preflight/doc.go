// Package preflight provides readiness checks for the filesystem paths,
// binaries, and remote feed podclean depends on.
//
// The runner calls RunAll before each pass and skips the pass when a check
// fails; "podclean doctor" prints the same results alongside the binary
// status from CheckSystemDeps.
package preflight
