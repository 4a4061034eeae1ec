package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alnah/audiospine/internal/audio"
)

// runFn runs ffmpeg and returns its stderr output. ffmpeg writes all
// diagnostics to stderr, so that is the stream worth keeping on failure.
type runFn func(ctx context.Context, ffmpegPath string, args []string) (string, error)

// Decoder transcodes audio files via ffmpeg.
type Decoder struct {
	resolver *Resolver
	run      runFn
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithRun sets a custom run function (for testing).
func WithRun(fn runFn) DecoderOption {
	return func(d *Decoder) { d.run = fn }
}

// WithResolver sets a custom binary resolver.
func WithResolver(r *Resolver) DecoderOption {
	return func(d *Decoder) { d.resolver = r }
}

// NewDecoder creates a Decoder with the given options.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		resolver: NewResolver(),
		run:      defaultRun,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeToWAV transcodes src into a mono 16 kHz 16-bit WAV at dst.
func (d *Decoder) DecodeToWAV(ctx context.Context, src, dst string) error {
	ffmpegPath, err := d.resolver.Resolve()
	if err != nil {
		return err
	}

	args := []string{
		"-nostdin", "-y",
		"-i", src,
		"-ar", strconv.Itoa(audio.OracleRate),
		"-ac", "1",
		"-acodec", "pcm_s16le",
		dst,
	}

	out, err := d.run(ctx, ffmpegPath, args)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s: %s: %w", filepath.Base(src), lastLine(out), ErrDecodeFailed)
	}
	return nil
}

// DecodeFile loads any audio file as a Signal. WAV inputs are decoded
// directly; everything else goes through ffmpeg into a temporary WAV
// that is removed before returning.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (audio.Signal, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return audio.DecodeWAVFile(path)
	}

	tmp, err := os.CreateTemp("", "audiospine-decode-*.wav")
	if err != nil {
		return audio.Signal{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := d.DecodeToWAV(ctx, path, tmpPath); err != nil {
		return audio.Signal{}, err
	}
	return audio.DecodeWAVFile(tmpPath)
}

// defaultRun is the production implementation.
func defaultRun(ctx context.Context, ffmpegPath string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stderr.String(), err
}

// lastLine extracts the final non-empty line of ffmpeg's stderr, which is
// where it states the actual failure.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
