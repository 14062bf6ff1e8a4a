package audio

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"podclean/internal/logging"
)

// Decoder loads a file into a Clip.
type Decoder interface {
	Decode(ctx context.Context, path string) (*Clip, error)
}

// Encoder writes a Clip to a file.
type Encoder interface {
	Encode(ctx context.Context, clip *Clip, path string) error
}

// Codec is a Decoder that can also encode.
type Codec interface {
	Decoder
	Encoder
}

// Router dispatches by file extension: .wav goes to the native WAV codec and
// everything else to ffmpeg. A WAV file the native codec rejects (float or
// extensible formats) is retried through ffmpeg when one is configured.
type Router struct {
	wav    Codec
	ffmpeg Codec
	logger *slog.Logger
}

// NewRouter builds a Router. ffmpeg may be nil, in which case only WAV files
// are supported.
func NewRouter(ffmpeg Codec, logger *slog.Logger) *Router {
	return &Router{
		wav:    WAVCodec{},
		ffmpeg: ffmpeg,
		logger: logging.NewComponentLogger(logger, "audio"),
	}
}

// Decode implements Decoder.
func (r *Router) Decode(ctx context.Context, path string) (*Clip, error) {
	if isWAV(path) {
		clip, err := r.wav.Decode(ctx, path)
		if err == nil || r.ffmpeg == nil || errors.Is(err, context.Canceled) {
			return clip, err
		}
		r.logger.Debug("native wav decode failed; retrying with ffmpeg",
			logging.String("path", path),
			logging.Error(err),
		)
		return r.ffmpeg.Decode(ctx, path)
	}
	if r.ffmpeg == nil {
		return nil, errNoFFmpeg(path)
	}
	return r.ffmpeg.Decode(ctx, path)
}

// Encode implements Encoder.
func (r *Router) Encode(ctx context.Context, clip *Clip, path string) error {
	if isWAV(path) {
		return r.wav.Encode(ctx, clip, path)
	}
	if r.ffmpeg == nil {
		return errNoFFmpeg(path)
	}
	return r.ffmpeg.Encode(ctx, clip, path)
}

func isWAV(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".wav" || ext == ".wave"
}
