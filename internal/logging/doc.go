// Package logging builds the slog loggers podclean writes through.
//
// New picks the console or JSON handler and fans output to stderr and the
// log file in the state directory. WithContext lifts the run ID, episode
// GUID, and stage carried by a context onto each line, and WarnWithContext
// and ErrorWithContext require an event_type so operators can grep for
// recurring failures. NewNop discards everything and is meant for tests.
package logging
