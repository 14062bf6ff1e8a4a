package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"podclean/internal/services"
)

const wavBitDepth = 16

// WAVCodec reads integer PCM WAV files and writes 16-bit PCM.
type WAVCodec struct{}

// Decode implements Decoder.
func (WAVCodec) Decode(ctx context.Context, path string) (*Clip, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "decode", "open", path, err)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, services.Wrap(services.ErrInput, "decode", "wav", path+": not a valid wav file", nil)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "decode", "wav", path, err)
	}
	if buf.Format == nil {
		return nil, services.Wrap(services.ErrInput, "decode", "wav", path+": missing format", nil)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, services.Wrap(services.ErrInput, "decode", "wav", fmt.Sprintf("%s: unsupported bit depth %d", path, bitDepth), nil)
	}
	scale := 1 / math.Pow(2, float64(bitDepth-1))
	// 8-bit WAV is unsigned.
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(float64(v-offset) * scale)
	}
	clip, err := NewClip(samples, buf.Format.SampleRate, buf.Format.NumChannels)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clip, nil
}

// Encode implements Encoder. The file is written next to its destination and
// renamed into place once complete.
func (WAVCodec) Encode(ctx context.Context, clip *Clip, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clip == nil || clip.Channels < 1 || clip.SampleRate <= 0 {
		return services.Wrap(services.ErrInvariant, "encode", "wav", "invalid clip format", nil)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "encode", "create", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	data := make([]int, len(clip.Samples))
	for i, v := range clip.Samples {
		data[i] = pcm16(v)
	}
	encoder := wav.NewEncoder(tmp, clip.SampleRate, wavBitDepth, clip.Channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := encoder.Write(buf); err != nil {
		cleanup()
		return services.Wrap(services.ErrExternalTool, "encode", "wav", path, err)
	}
	if err := encoder.Close(); err != nil {
		cleanup()
		return services.Wrap(services.ErrExternalTool, "encode", "wav", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrExternalTool, "encode", "close", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrExternalTool, "encode", "rename", path, err)
	}
	return nil
}

func pcm16(v float32) int {
	f := float64(v)
	if math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int(math.Round(f * math.MaxInt16))
}
