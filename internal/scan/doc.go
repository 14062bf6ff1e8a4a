// Package scan locates occurrences of a snippet inside an episode by sliding
// the snippet's spectrogram along the episode's time axis.
//
// Both spectrograms are z-scored independently, then correlated over the
// valid offsets only (the snippet never hangs off either end). The score at
// an offset is the mean elementwise product, so an exact self-alignment
// scores 1. Offsets scoring strictly above the threshold become matches,
// which are merged before they are returned.
//
// For long episodes the correlation runs through real FFTs, one per mel band,
// summed in the frequency domain. Short scans use the direct sum. Prepare
// computes the episode side once so that many snippets can be scanned
// concurrently against the same episode.
package scan
