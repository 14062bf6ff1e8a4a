package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podclean/internal/services"
	"podclean/internal/testsupport"
)

func TestWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")
	stereo := make([]float64, 0, 2*8000)
	for _, v := range testsupport.Sine(300, 1, 8000) {
		stereo = append(stereo, v*0.5, -v*0.25)
	}
	testsupport.WriteWAV(t, path, stereo, 8000, 2)

	clip, err := WAVCodec{}.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if clip.SampleRate != 8000 || clip.Channels != 2 || clip.Frames() != 8000 {
		t.Fatalf("unexpected clip format %d Hz %d ch %d frames", clip.SampleRate, clip.Channels, clip.Frames())
	}
	for i, v := range stereo {
		if math.Abs(float64(clip.Samples[i])-v) > 1.0/math.MaxInt16 {
			t.Fatalf("sample %d = %v, want %v", i, clip.Samples[i], v)
		}
	}

	out := filepath.Join(dir, "copy.wav")
	if err := (WAVCodec{}).Encode(context.Background(), clip, out); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := WAVCodec{}.Decode(context.Background(), out)
	if err != nil {
		t.Fatalf("Decode copy: %v", err)
	}
	if !clip.Equal(again) {
		t.Fatal("16-bit re-encode should be lossless")
	}
	if leftovers, _ := filepath.Glob(filepath.Join(dir, ".*.part")); len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

func TestWAVDecodeRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("definitely not riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewRouter(nil, nil).Decode(context.Background(), path)
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}

func TestRouterRequiresFFmpegForCompressedFormats(t *testing.T) {
	_, err := NewRouter(nil, nil).Decode(context.Background(), "episode.mp3")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

const ffprobeStub = `cat <<'JSON'
{"streams":[{"index":0,"codec_type":"audio","codec_name":"mp3","sample_rate":"22050","channels":2}],"format":{"duration":"0.1"}}
JSON
`

func TestFFmpegCodecDecodeUsesNativeFormat(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	testsupport.StubBinary(t, binDir, "ffprobe", ffprobeStub)
	// Two stereo frames: (0.5, -0.5) (0.5, -0.5) as little-endian float32.
	testsupport.StubBinary(t, binDir, "ffmpeg", `printf '\000\000\000\077\000\000\000\277\000\000\000\077\000\000\000\277'`+"\n")

	src := filepath.Join(t.TempDir(), "episode.mp3")
	testsupport.WriteFile(t, src, 128)

	clip, err := FFmpegCodec{}.Decode(context.Background(), src)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if clip.SampleRate != 22050 || clip.Channels != 2 {
		t.Fatalf("expected native format, got %d Hz %d ch", clip.SampleRate, clip.Channels)
	}
	want := []float32{0.5, -0.5, 0.5, -0.5}
	for i := range want {
		if clip.Samples[i] != want[i] {
			t.Fatalf("samples = %v, want %v", clip.Samples, want)
		}
	}
}

func TestFFmpegCodecDecodeFailureIsInputError(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	testsupport.StubBinary(t, binDir, "ffprobe", ffprobeStub)
	testsupport.StubBinary(t, binDir, "ffmpeg", "echo 'Invalid data found' >&2\nexit 1\n")

	src := filepath.Join(t.TempDir(), "episode.mp3")
	testsupport.WriteFile(t, src, 128)

	_, err := FFmpegCodec{}.Decode(context.Background(), src)
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected ErrInput, got %v", err)
	}
}

func TestFFmpegCodecMissingBinary(t *testing.T) {
	src := filepath.Join(t.TempDir(), "episode.mp3")
	testsupport.WriteFile(t, src, 128)

	_, err := FFmpegCodec{FFprobeBinary: "podclean-no-such-ffprobe"}.Decode(context.Background(), src)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
}

func TestFFmpegCodecEncodePipesRawSamples(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	argsFile := filepath.Join(t.TempDir(), "args")
	// Record the arguments and copy stdin into the output path (the last argument).
	testsupport.StubBinary(t, binDir, "ffmpeg", `echo "$@" > `+argsFile+`
for last; do :; done
cat > "$last"
`)

	out := filepath.Join(t.TempDir(), "clean.mp3")
	clip := &Clip{Samples: []float32{0.25, -0.75, 1}, SampleRate: 44100, Channels: 1}
	if err := (FFmpegCodec{Bitrate: "96k"}).Encode(context.Background(), clip, out); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(data) != 12 {
		t.Fatalf("expected 12 bytes of f32le, got %d", len(data))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(data[4:])); got != -0.75 {
		t.Fatalf("second sample = %v", got)
	}
	args, _ := os.ReadFile(argsFile)
	for _, want := range []string{"-ar 44100", "-ac 1", "-b:a 96k", "-f f32le"} {
		if !strings.Contains(string(args), want) {
			t.Fatalf("ffmpeg args %q missing %q", args, want)
		}
	}
}
