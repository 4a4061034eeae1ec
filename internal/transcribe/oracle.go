// Package transcribe defines the transcription oracle contract and fans
// windows out to it. The oracle maps one bounded audio window to local
// time-stamped text; whether that is a local model or a remote worker is
// invisible here, only the segment shape matters.
package transcribe

import (
	"context"
	"time"
)

// Segment is one span of recognized speech. Start and End are relative to
// the audio the oracle was given; the window fan-out shifts them into
// global time before anyone else sees them.
type Segment struct {
	Start      time.Duration
	End        time.Duration
	Text       string
	Language   string  // best-effort tag, may be empty
	Confidence float64 // 0..1, best-effort, 0 when the oracle has none
}

// Result is the oracle's answer for one window.
type Result struct {
	Segments []Segment
	Language string // window-level detected language, may be empty
}

// Options configures a transcription request.
type Options struct {
	// Prompt provides context to improve accuracy, e.g. domain vocabulary
	// or the tail of the preceding window's text.
	Prompt string

	// Language is an ISO 639-1 hint. Empty means auto-detect.
	Language string
}

// Oracle transcribes one bounded audio window.
type Oracle interface {
	// Transcribe converts the WAV file at wavPath to time-stamped text.
	// Segment times are local to the window.
	Transcribe(ctx context.Context, wavPath string, opts Options) (Result, error)
}
