package mp4

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/alnah/audiospine/internal/binread"
)

// Chapter is one chapter marker read from the container's chapter track.
// Extraction guarantees chapters are ordered ascending and contiguous:
// each chapter ends exactly where the next one starts, and the first
// starts at zero.
type Chapter struct {
	Title string
	Start time.Duration
	End   time.Duration
}

// maxTitleSample guards against sample sizes that are clearly not chapter
// titles. Matches the upper bound used by text-track readers in the wild.
const maxTitleSample = 10000

// ExtractChapters reads chapter markers from an MPEG-4 container.
//
// A container without a chapter track, and a container too corrupt to walk,
// both return an empty list with a nil error: absence of chapters is a
// valid outcome, not a failure. Parsing is a pure function of the input
// bytes; identical input yields identical chapters.
func ExtractChapters(r io.ReaderAt, size int64) ([]Chapter, error) {
	src := binread.NewSource(r, size)
	w := newWalker(src)
	w.walk(0, size, walkContext{}, 0)

	ts := chapterTrack(w)
	if ts == nil {
		return []Chapter{}, nil
	}
	return readChapterText(src, ts), nil
}

// ExtractChaptersFile opens path and extracts its chapters.
func ExtractChaptersFile(path string) ([]Chapter, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-provided media path
	if err != nil {
		return nil, fmt.Errorf("open container: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat container: %w", err)
	}
	return ExtractChapters(f, info.Size())
}

// ExtractChaptersFromTrack reads chapter text from one specific track id.
// Unlike ExtractChapters, asking for a track the container does not have is
// a caller-contract violation and returns ErrTrackNotFound.
func ExtractChaptersFromTrack(r io.ReaderAt, size int64, trackID uint32) ([]Chapter, error) {
	src := binread.NewSource(r, size)
	w := newWalker(src)
	w.walk(0, size, walkContext{}, 0)

	ts, ok := w.tracks[trackID]
	if !ok {
		return nil, fmt.Errorf("track %d: %w", trackID, ErrTrackNotFound)
	}
	return readChapterText(src, ts), nil
}

// chapterTrack picks the track referenced by a tref/chap box. When several
// tracks are referenced the lowest id wins, matching player behavior.
func chapterTrack(w *walker) *trackState {
	var best *trackState
	for id := range w.chapterRefs {
		ts, ok := w.tracks[id]
		if !ok {
			continue
		}
		if best == nil || ts.id < best.id {
			best = ts
		}
	}
	return best
}

// readChapterText reads every reconstructed sample on the chapter track
// into an ordered chapter list. A running tick cursor assigns start/end
// times, which makes contiguity structural rather than validated.
func readChapterText(src *binread.Source, ts *trackState) []Chapter {
	samples := reconstructSamples(ts)
	timescale := ts.Timescale()

	chapters := make([]Chapter, 0, len(samples))
	var cursor uint64
	for i, s := range samples {
		title := readTitleSample(src, s)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		chapters = append(chapters, Chapter{
			Title: title,
			Start: ticksToDuration(cursor, timescale),
			End:   ticksToDuration(cursor+s.duration, timescale),
		})
		cursor += s.duration
	}
	return chapters
}

// readTitleSample decodes one text sample: a 2-byte big-endian length
// prefix followed by UTF-8 text. Truncated declarations are clipped to the
// sample, and undecodable bytes become the replacement rune; this reader
// never fails, it only degrades.
func readTitleSample(src *binread.Source, s sample) string {
	if s.size < 2 || s.size > maxTitleSample {
		return ""
	}

	buf := make([]byte, s.size)
	if err := src.ReadAt(buf, s.offset, "chapter text sample"); err != nil {
		return ""
	}

	declared := int(buf[0])<<8 | int(buf[1])
	n := min(declared, int(s.size)-2)
	if n <= 0 {
		return ""
	}

	text := strings.ToValidUTF8(string(buf[2:2+n]), "�")
	return strings.TrimSpace(text)
}

// ticksToDuration converts track-local ticks to wall time, saturating at
// the maximum duration so a corrupt cumulative tick count can never wrap
// into an End earlier than its Start.
func ticksToDuration(ticks uint64, timescale uint32) time.Duration {
	ts := uint64(timescale)
	secs := ticks / ts
	rem := ticks % ts
	if secs > uint64(math.MaxInt64/time.Second) {
		return math.MaxInt64
	}
	return time.Duration(secs)*time.Second + time.Duration(rem*uint64(time.Second)/ts)
}
