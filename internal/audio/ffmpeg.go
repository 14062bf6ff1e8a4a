package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"podclean/internal/media/ffprobe"
	"podclean/internal/services"
)

// FFmpegCodec decodes and encodes through ffmpeg subprocesses. ffprobe
// supplies the native sample rate and channel count so decoding never
// resamples or downmixes.
type FFmpegCodec struct {
	FFmpegBinary  string
	FFprobeBinary string
	// Bitrate applies to lossy encodes, e.g. "128k". Empty leaves the encoder default.
	Bitrate string
}

// Decode implements Decoder.
func (c FFmpegCodec) Decode(ctx context.Context, path string) (*Clip, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrInput, "decode", "stat", path, err)
	}
	probe, err := ffprobe.Inspect(ctx, c.ffprobe(), path)
	if err != nil {
		return nil, classifyToolError("probe", path, err)
	}
	stream, err := probe.PrimaryAudio()
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "decode", "probe", path, err)
	}
	rate := stream.SampleRateHz()
	if rate <= 0 {
		return nil, services.Wrap(services.ErrInput, "decode", "probe", path+": unknown sample rate", nil)
	}
	if stream.Channels < 1 || stream.Channels > MaxChannels {
		return nil, services.Wrap(services.ErrInput, "decode", "probe", fmt.Sprintf("%s: unsupported channel count %d", path, stream.Channels), nil)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", path,
		"-map", "0:a:0",
		"-ac", strconv.Itoa(stream.Channels),
		"-ar", strconv.Itoa(rate),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-",
	}
	cmd := exec.CommandContext(ctx, c.ffmpeg(), args...) //nolint:gosec
	var stderr bytes.Buffer
	var stdout bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyToolError("ffmpeg", path, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	samples := decodeF32LE(stdout.Bytes())
	clip, err := NewClip(samples, rate, stream.Channels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// Encode implements Encoder. ffmpeg picks the container from the extension of
// path; output is staged in a temporary file with the same extension.
func (c FFmpegCodec) Encode(ctx context.Context, clip *Clip, path string) error {
	if clip == nil || clip.Channels < 1 || clip.SampleRate <= 0 {
		return services.Wrap(services.ErrInvariant, "encode", "ffmpeg", "invalid clip format", nil)
	}
	ext := filepath.Ext(path)
	tmpPath := filepath.Join(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), ext)+".part"+ext)

	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-f", "f32le",
		"-ar", strconv.Itoa(clip.SampleRate),
		"-ac", strconv.Itoa(clip.Channels),
		"-i", "pipe:0",
	}
	if bitrate := strings.TrimSpace(c.Bitrate); bitrate != "" && !isWAV(path) {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args, tmpPath)

	cmd := exec.CommandContext(ctx, c.ffmpeg(), args...) //nolint:gosec
	cmd.Stdin = bytes.NewReader(encodeF32LE(clip.Samples))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmpPath)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return services.Wrap(services.ErrExternalTool, "encode", "ffmpeg", path,
			fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrExternalTool, "encode", "rename", path, err)
	}
	return nil
}

func (c FFmpegCodec) ffmpeg() string {
	if bin := strings.TrimSpace(c.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

func (c FFmpegCodec) ffprobe() string {
	if bin := strings.TrimSpace(c.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// classifyToolError separates a missing binary from a file ffmpeg could not read.
func classifyToolError(operation, path string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrExternalTool, "decode", operation, path, err)
	}
	return services.Wrap(services.ErrInput, "decode", operation, path, err)
}

func errNoFFmpeg(path string) error {
	return services.Wrap(services.ErrConfiguration, "audio", "route",
		fmt.Sprintf("%s: format requires ffmpeg", filepath.Base(path)), nil)
}

func decodeF32LE(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func encodeF32LE(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
