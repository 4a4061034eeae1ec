// Package merge reconciles per-window transcript fragments into a single
// duplicate-free segment list. Adjacent windows overlap in the source audio
// so no boundary word is lost; the price is that the overlapped span is
// transcribed twice, usually with small wording differences. This package
// removes that duplicate coverage.
package merge

import (
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/alnah/audiospine/internal/transcribe"
)

const (
	// DefaultSimilarityThreshold is the fuzzy-match ratio above which a
	// candidate head is considered a re-transcription of the previous tail.
	DefaultSimilarityThreshold = 0.8

	// DefaultTailWords bounds the comparison to the region that can
	// actually overlap; anything further back cannot be duplicate audio.
	DefaultTailWords = 10
)

// Options tunes duplicate detection across window boundaries.
type Options struct {
	SimilarityThreshold float64
	TailWords           int
}

func (o Options) normalize() Options {
	if o.SimilarityThreshold <= 0 || o.SimilarityThreshold > 1 {
		o.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if o.TailWords <= 0 {
		o.TailWords = DefaultTailWords
	}
	return o
}

// Windows merges ordered per-window results into one global segment list.
//
// The first non-empty window is accepted as-is. Each later segment is
// compared against the immediately preceding window's text only, which
// keeps the merge linear in transcript length:
//
//   - a segment whose normalized text already appears in the previous
//     tail is dropped outright;
//   - a segment whose leading words repeat the previous window's trailing
//     words has that repeated run trimmed off (dropped entirely when
//     nothing remains);
//   - a segment whose head is fuzzily near-identical to the previous tail
//     is dropped, tolerating the oracle wording the same audio slightly
//     differently on each side of the boundary.
//
// Segment times are left untouched; trimming only shortens text.
func Windows(results []transcribe.WindowResult, opts Options) []transcribe.Segment {
	opts = opts.normalize()

	merged := make([]transcribe.Segment, 0)
	prevWords := []string(nil)

	for _, window := range results {
		var windowWords []string
		for _, seg := range window.Segments {
			candWords := splitNormalized(seg.Text)
			windowWords = append(windowWords, candWords...)
			if len(candWords) == 0 {
				continue
			}

			if len(prevWords) == 0 {
				merged = append(merged, seg)
				continue
			}

			tail := lastWords(prevWords, opts.TailWords)
			if strings.Contains(" "+strings.Join(tail, " ")+" ", " "+strings.Join(candWords, " ")+" ") {
				continue
			}

			if overlap := wordOverlap(tail, candWords); overlap > 0 {
				if overlap == len(candWords) {
					continue
				}
				seg.Text = trimLeadingWords(seg.Text, overlap)
				merged = append(merged, seg)
				continue
			}

			head := candWords
			if len(head) > opts.TailWords {
				head = head[:opts.TailWords]
			}
			if similarity(strings.Join(tail, " "), strings.Join(head, " ")) >= opts.SimilarityThreshold {
				continue
			}

			merged = append(merged, seg)
		}
		prevWords = windowWords
	}

	return merged
}

// splitNormalized lowercases, strips punctuation and splits into words.
func splitNormalized(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

func lastWords(words []string, n int) []string {
	if len(words) <= n {
		return words
	}
	return words[len(words)-n:]
}

// wordOverlap returns the longest k such that the last k words of prev
// equal the first k words of cand.
func wordOverlap(prev, cand []string) int {
	max := len(prev)
	if len(cand) < max {
		max = len(cand)
	}
	for k := max; k > 0; k-- {
		match := true
		for i := 0; i < k; i++ {
			if prev[len(prev)-k+i] != cand[i] {
				match = false
				break
			}
		}
		if match {
			return k
		}
	}
	return 0
}

// trimLeadingWords drops the first n whitespace-separated words of the
// original (un-normalized) text, preserving the remainder verbatim.
func trimLeadingWords(s string, n int) string {
	fields := strings.Fields(s)
	if n >= len(fields) {
		return ""
	}
	return strings.Join(fields[n:], " ")
}

// similarity is the Levenshtein ratio of two strings in [0,1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}
