// Package audio holds the in-memory audio representations used by the
// cleaning engine and the codecs that move them to and from disk.
//
// A Clip is the native-rate, native-channel decoding of a file and is what
// gets cut and spliced. A Waveform is the mono float64 view of a Clip that
// the spectral stage analyses. Decoding goes through a Router which picks the
// go-audio WAV codec for .wav files and falls back to ffmpeg for everything
// else (mp3, m4a, ogg, flac).
package audio
