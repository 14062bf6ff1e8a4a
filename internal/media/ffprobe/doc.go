// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties (sample rate, channel count)
//   - Format: container-level metadata (duration, size, bitrate)
//
// Inspect executes ffprobe and returns a parsed Result. PrimaryAudio selects
// the stream the ffmpeg codec decodes, so both agree on the native sample
// rate and channel layout of a source.
package ffprobe
