// Package logs reads back the podclean log file for the `podclean logs`
// command.
//
// Tail prints the trailing lines of the file, optionally filtered by level,
// and in follow mode keeps streaming appended lines until the context is
// cancelled. Both the console and JSON log formats are understood when
// filtering. Only complete, newline-terminated lines are emitted, so a line
// still being written by a concurrent pass is picked up on the next poll.
package logs
