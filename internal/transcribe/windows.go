package transcribe

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/audiospine/internal/audio"
)

// MaxRecommendedParallel is the recommended upper limit for concurrent
// oracle requests. Higher values tend to trip rate limiting.
const MaxRecommendedParallel = 10

// WindowResult is one window's transcript, shifted into global time.
// Results are always returned in window order regardless of which oracle
// call finished first; the merge step depends on that ordering.
type WindowResult struct {
	Chunk    audio.Chunk
	Segments []Segment // global time
	Language string
	Err      error // oracle failure for this window only
}

// TranscribeWindows sends every chunk to the oracle, up to maxParallel at
// a time, and returns per-window results indexed by window position.
//
// A single window's oracle failure does not abort the job: that window
// reports an empty segment set with its error recorded, and the caller
// flags the overall result as partial. Only context cancellation stops
// the whole fan-out.
func TranscribeWindows(
	ctx context.Context,
	chunks []audio.Chunk,
	oracle Oracle,
	opts Options,
	maxParallel int,
) ([]WindowResult, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	if maxParallel < 1 {
		maxParallel = 1
	}
	if maxParallel > MaxRecommendedParallel {
		maxParallel = MaxRecommendedParallel
	}

	results := make([]WindowResult, len(chunks))
	sem := make(chan struct{}, maxParallel)

	g, ctx := errgroup.WithContext(ctx)

	for i, chunk := range chunks {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			res, err := oracle.Transcribe(ctx, chunk.Path, opts)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				// Partial coverage beats no coverage; record and move on.
				results[i] = WindowResult{Chunk: chunk, Err: err}
				return nil
			}

			results[i] = WindowResult{
				Chunk:    chunk,
				Segments: shiftSegments(res.Segments, chunk),
				Language: res.Language,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// shiftSegments moves window-local segment times into global time and
// clips them to the window's span in the source audio.
func shiftSegments(segments []Segment, chunk audio.Chunk) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		s.Start += chunk.Start
		s.End += chunk.Start
		if s.Start > chunk.End {
			s.Start = chunk.End
		}
		if s.End > chunk.End {
			s.End = chunk.End
		}
		out = append(out, s)
	}
	return out
}
