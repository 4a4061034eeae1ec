// Package timeline drives a full transcription job: window the signal,
// fan the windows out to the oracle, merge the overlap, and report one
// ordered timeline.
package timeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alnah/audiospine/internal/audio"
	"github.com/alnah/audiospine/internal/lang"
	"github.com/alnah/audiospine/internal/merge"
	"github.com/alnah/audiospine/internal/transcribe"
)

// FallbackLanguage is reported when no window carries a language tag.
const FallbackLanguage = "en"

// Timeline is the final, duplicate-free transcript of one input.
type Timeline struct {
	Segments []transcribe.Segment
	FullText string
	Duration time.Duration
	Language string

	// Partial is set when at least one window's oracle call failed and
	// the timeline therefore has a coverage gap. The failed spans are
	// absent rather than wrong.
	Partial bool
}

// Assembler wires the chunker, the oracle and the merge settings into a
// single entry point. The zero value is not usable; populate every field.
type Assembler struct {
	Chunker  *audio.Chunker
	Oracle   transcribe.Oracle
	Merge    merge.Options
	Parallel int
}

// Assemble transcribes the signal into a Timeline.
//
// A signal that fits one window is transcribed in a single oracle call
// with no merge step. Longer signals are split into overlapping windows,
// transcribed concurrently and merged in order. Temporary window files
// are removed on every exit path, including cancellation.
func (a *Assembler) Assemble(ctx context.Context, sig audio.Signal) (Timeline, error) {
	return a.AssembleWithOptions(ctx, sig, transcribe.Options{})
}

// AssembleWithOptions is Assemble with per-call oracle options, used when
// the caller pins a language or supplies a vocabulary prompt.
func (a *Assembler) AssembleWithOptions(ctx context.Context, sig audio.Signal, opts transcribe.Options) (Timeline, error) {
	if len(sig.Samples) == 0 {
		return Timeline{}, fmt.Errorf("assemble: empty signal")
	}

	chunks, err := a.Chunker.Split(ctx, sig)
	if err != nil {
		return Timeline{}, fmt.Errorf("assemble: %w", err)
	}
	defer func() { _ = audio.Cleanup(chunks) }()

	parallel := a.Parallel
	if a.Chunker.SingleWindow(sig) {
		parallel = 1
	}

	results, err := transcribe.TranscribeWindows(ctx, chunks, a.Oracle, opts, parallel)
	if err != nil {
		return Timeline{}, fmt.Errorf("assemble: %w", err)
	}

	var segments []transcribe.Segment
	if len(results) == 1 {
		segments = results[0].Segments
	} else {
		segments = merge.Windows(results, a.Merge)
	}

	tl := Timeline{
		Segments: segments,
		FullText: joinText(segments),
		Duration: sig.Duration(),
		Language: windowLanguage(results),
	}
	for _, r := range results {
		if r.Err != nil {
			tl.Partial = true
			break
		}
	}
	return tl, nil
}

func joinText(segments []transcribe.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func windowLanguage(results []transcribe.WindowResult) string {
	tags := make([]string, 0, len(results))
	for _, r := range results {
		tags = append(tags, r.Language)
	}
	return lang.MajorityVote(tags, FallbackLanguage)
}
