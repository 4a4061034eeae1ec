package merge

import (
	"strings"
	"testing"
	"time"

	"github.com/alnah/audiospine/internal/transcribe"
)

func window(segs ...transcribe.Segment) transcribe.WindowResult {
	return transcribe.WindowResult{Segments: segs}
}

func seg(start, end time.Duration, text string) transcribe.Segment {
	return transcribe.Segment{Start: start, End: end, Text: text}
}

func fullText(segs []transcribe.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}

func TestWindows_TrimsBoundaryOverlap(t *testing.T) {
	results := []transcribe.WindowResult{
		window(seg(0, 30*time.Second, "the cat sat on the mat")),
		window(seg(28*time.Second, 32*time.Second, "sat on the mat and slept")),
	}

	merged := Windows(results, Options{})
	text := fullText(merged)

	if text != "the cat sat on the mat and slept" {
		t.Fatalf("expected overlap trimmed once, got %q", text)
	}
	if strings.Count(text, "sat on the mat") != 1 {
		t.Errorf("duplicated boundary phrase in %q", text)
	}
	if len(merged) != 2 {
		t.Errorf("expected 2 segments, got %d", len(merged))
	}
	if merged[1].Start != 28*time.Second {
		t.Errorf("trimming must not move segment times, got start %v", merged[1].Start)
	}
}

func TestWindows_FirstWindowUnconditional(t *testing.T) {
	results := []transcribe.WindowResult{
		window(
			seg(0, 10*time.Second, "hello hello hello"),
			seg(10*time.Second, 20*time.Second, "hello hello hello"),
		),
	}

	merged := Windows(results, Options{})
	if len(merged) != 2 {
		t.Fatalf("first window segments are never deduplicated, got %d", len(merged))
	}
}

func TestWindows_DropsFullDuplicate(t *testing.T) {
	results := []transcribe.WindowResult{
		window(seg(0, 30*time.Second, "we shall fight on the beaches")),
		window(
			seg(28*time.Second, 30*time.Second, "on the beaches"),
			seg(30*time.Second, 35*time.Second, "we shall never surrender"),
		),
	}

	merged := Windows(results, Options{})
	if len(merged) != 2 {
		t.Fatalf("expected the repeated fragment dropped, got %d segments: %q", len(merged), fullText(merged))
	}
	if merged[1].Text != "we shall never surrender" {
		t.Errorf("expected new content kept, got %q", merged[1].Text)
	}
}

func TestWindows_FuzzyNearDuplicateDropped(t *testing.T) {
	// Same spoken audio, transcribed slightly differently on each side of
	// the window boundary.
	results := []transcribe.WindowResult{
		window(seg(0, 30*time.Second, "tomorrow we ride at dawn together")),
		window(seg(28*time.Second, 31*time.Second, "tomorrow we ride at dawn togethe")),
	}

	merged := Windows(results, Options{})
	if len(merged) != 1 {
		t.Fatalf("expected near-identical re-transcription dropped, got %d: %q", len(merged), fullText(merged))
	}
}

func TestWindows_DistinctContentSurvives(t *testing.T) {
	results := []transcribe.WindowResult{
		window(seg(0, 30*time.Second, "chapter one begins in a quiet village")),
		window(seg(28*time.Second, 58*time.Second, "the merchant arrived with news from the capital")),
	}

	merged := Windows(results, Options{})
	if len(merged) != 2 {
		t.Fatalf("distinct segments must both survive, got %d", len(merged))
	}
}

func TestWindows_ComparesPreviousWindowOnly(t *testing.T) {
	// Window 3 repeats window 1's text; only window 2 is consulted, so
	// the repeat survives.
	results := []transcribe.WindowResult{
		window(seg(0, 30*time.Second, "ladies and gentlemen welcome")),
		window(seg(28*time.Second, 58*time.Second, "our first speaker tonight")),
		window(seg(56*time.Second, 86*time.Second, "ladies and gentlemen welcome")),
	}

	merged := Windows(results, Options{})
	if len(merged) != 3 {
		t.Fatalf("dedup must only look one window back, got %d segments", len(merged))
	}
}

func TestWindows_FailedWindowResetsReference(t *testing.T) {
	results := []transcribe.WindowResult{
		window(seg(0, 30*time.Second, "some opening words")),
		{Err: errFake{}}, // oracle failed, no segments
		window(seg(56*time.Second, 60*time.Second, "some opening words")),
	}

	merged := Windows(results, Options{})
	if len(merged) != 2 {
		t.Fatalf("window after a gap is accepted unconditionally, got %d", len(merged))
	}
}

func TestWindows_ShortInputMergedBelowNaiveCount(t *testing.T) {
	// 65s of audio in 30s windows with 2s overlap: three windows whose
	// boundary content repeats. The merged output must not double-cover.
	results := []transcribe.WindowResult{
		window(seg(0, 30*time.Second, "it was the best of times it was the worst of times")),
		window(seg(28*time.Second, 58*time.Second, "the worst of times it was the age of wisdom")),
		window(seg(56*time.Second, 65*time.Second, "the age of wisdom it was the age of foolishness")),
	}

	merged := Windows(results, Options{})
	text := fullText(merged)

	if strings.Count(text, "the worst of times") != 1 {
		t.Errorf("boundary clause repeated in %q", text)
	}
	if strings.Count(text, "the age of wisdom") != 1 {
		t.Errorf("boundary clause repeated in %q", text)
	}
	if len(merged) >= 2*len(results) {
		t.Errorf("merged count %d not below twice the window count", len(merged))
	}
}

func TestWindows_StartsNonDecreasing(t *testing.T) {
	results := []transcribe.WindowResult{
		window(
			seg(0, 10*time.Second, "one"),
			seg(10*time.Second, 30*time.Second, "two"),
		),
		window(
			seg(28*time.Second, 40*time.Second, "two three"),
			seg(40*time.Second, 58*time.Second, "four"),
		),
	}

	merged := Windows(results, Options{})
	for i := 1; i < len(merged); i++ {
		if merged[i].Start < merged[i-1].Start {
			t.Fatalf("segment %d starts at %v before %v", i, merged[i].Start, merged[i-1].Start)
		}
	}
}

func TestWindows_Empty(t *testing.T) {
	if got := Windows(nil, Options{}); len(got) != 0 {
		t.Fatalf("expected no segments, got %d", len(got))
	}
}

func TestSplitNormalized(t *testing.T) {
	got := splitNormalized("  Hello, World! It's   FINE. ")
	want := []string{"hello", "world", "it", "s", "fine"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestWordOverlap(t *testing.T) {
	tests := []struct {
		name string
		prev []string
		cand []string
		want int
	}{
		{"partial", []string{"the", "cat", "sat"}, []string{"cat", "sat", "again"}, 2},
		{"none", []string{"alpha", "beta"}, []string{"gamma"}, 0},
		{"full candidate", []string{"a", "b", "c"}, []string{"b", "c"}, 2},
		{"empty", nil, []string{"x"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wordOverlap(tt.prev, tt.cand); got != tt.want {
				t.Errorf("wordOverlap(%v, %v) = %d, want %d", tt.prev, tt.cand, got, tt.want)
			}
		})
	}
}

type errFake struct{}

func (errFake) Error() string { return "fake" }
