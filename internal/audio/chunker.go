package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default chunking parameters.
const (
	// DefaultWindow is the nominal duration of one transcription window.
	// 30s matches the context length whisper-family oracles see at once.
	DefaultWindow = 30 * time.Second

	// DefaultOverlap is how much consecutive windows share. The overlap
	// exists so no word straddling a boundary is lost; the merge step
	// removes the duplicate coverage afterwards.
	DefaultOverlap = 2 * time.Second

	// singleWindowMargin lets audio slightly longer than one window still
	// go through the single-shot path and skip the merge entirely.
	singleWindowMargin = 1 * time.Second

	// tempDirPattern names per-job chunk directories. Cleanup refuses to
	// remove directories that don't carry this marker.
	tempDirPattern = "audiospine-*"
	tempDirMarker  = "audiospine-"
)

// Chunk is one materialized window of audio, tagged with its global time
// range in the source signal. Chunk files live in a temp directory owned by
// the job that created them; the caller removes them via Cleanup on every
// exit path.
type Chunk struct {
	Path  string        // absolute path to the window WAV file
	Index int           // zero-based position in the source
	Start time.Duration // global start in the source audio
	End   time.Duration // global end in the source audio
}

// Duration returns the length of this chunk.
func (c Chunk) Duration() time.Duration {
	return c.End - c.Start
}

// String returns a human-readable representation for logging.
func (c Chunk) String() string {
	return fmt.Sprintf("window %d: %v-%v", c.Index, c.Start, c.End)
}

// Chunker splits a signal into overlapping fixed-duration windows.
type Chunker struct {
	Window  time.Duration
	Overlap time.Duration
}

// NewChunker creates a Chunker, validating that the overlap leaves a
// positive step between windows.
func NewChunker(window, overlap time.Duration) (*Chunker, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= window {
		return nil, fmt.Errorf("overlap (%v) must be less than window (%v)", overlap, window)
	}
	return &Chunker{Window: window, Overlap: overlap}, nil
}

// SingleWindow reports whether the signal is short enough to transcribe in
// one call, skipping the split and merge entirely.
func (c *Chunker) SingleWindow(sig Signal) bool {
	return sig.Duration() <= c.Window+singleWindowMargin
}

// Split resamples the signal to the oracle rate and materializes its
// windows as WAV files in a fresh temp directory. A signal within the
// single-window margin becomes exactly one window covering the whole
// signal. Otherwise window i spans [i*(W-O), i*(W-O)+W), clipped to the
// total duration; the loop stops once a window reaches the signal end.
//
// On any failure the temp directory is removed before returning; on
// success the caller owns it and must call Cleanup.
func (c *Chunker) Split(ctx context.Context, sig Signal) ([]Chunk, error) {
	resampled := sig.Resample(OracleRate)
	total := resampled.Duration()

	tempDir, err := os.MkdirTemp("", tempDirPattern)
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	if c.SingleWindow(resampled) {
		path := filepath.Join(tempDir, "window_000.wav")
		if err := writeWAV(path, resampled.Samples, resampled.Rate); err != nil {
			_ = os.RemoveAll(tempDir)
			return nil, fmt.Errorf("window 0: %v: %w", err, ErrChunkingFailed)
		}
		return []Chunk{{Path: path, Index: 0, Start: 0, End: total}}, nil
	}

	step := c.Window - c.Overlap
	var chunks []Chunk
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			_ = os.RemoveAll(tempDir)
			return nil, err
		}

		start := time.Duration(i) * step
		if start >= total {
			break
		}
		end := min(start+c.Window, total)

		lo := sampleIndex(start, resampled.Rate, len(resampled.Samples))
		hi := sampleIndex(end, resampled.Rate, len(resampled.Samples))

		path := filepath.Join(tempDir, fmt.Sprintf("window_%03d.wav", i))
		if err := writeWAV(path, resampled.Samples[lo:hi], resampled.Rate); err != nil {
			_ = os.RemoveAll(tempDir)
			return nil, fmt.Errorf("window %d: %v: %w", i, err, ErrChunkingFailed)
		}

		chunks = append(chunks, Chunk{Path: path, Index: i, Start: start, End: end})

		if end >= total {
			break
		}
	}

	return chunks, nil
}

// sampleIndex converts a time offset to a clamped sample index.
func sampleIndex(t time.Duration, rate, limit int) int {
	idx := int(t * time.Duration(rate) / time.Second)
	if idx > limit {
		return limit
	}
	return idx
}

// Cleanup removes all chunk files and their parent directory. Safe to call
// with an empty slice and after a partial failure.
func Cleanup(chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tempDir := filepath.Dir(chunks[0].Path)

	// Refuse to RemoveAll a directory we did not create; fall back to
	// deleting the individual files.
	if !strings.Contains(filepath.Base(tempDir), tempDirMarker) {
		for _, c := range chunks {
			_ = os.Remove(c.Path)
		}
		return nil
	}

	return os.RemoveAll(tempDir)
}
