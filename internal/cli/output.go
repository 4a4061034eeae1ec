package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alnah/audiospine/internal/format"
	"github.com/alnah/audiospine/internal/mp4"
	"github.com/alnah/audiospine/internal/timeline"
)

// Output formats for the transcribe command.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatSRT  = "srt"
)

type chapterJSON struct {
	Title string  `json:"title"`
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

type segmentJSON struct {
	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
}

type timelineJSON struct {
	Segments        []segmentJSON `json:"segments"`
	FullText        string        `json:"full_text"`
	TotalDuration   float64       `json:"total_duration"`
	PrimaryLanguage string        `json:"primary_language"`
	Partial         bool          `json:"partial,omitempty"`
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}

// renderChaptersTable writes an aligned chapter listing.
func renderChaptersTable(w io.Writer, chapters []mp4.Chapter) error {
	if len(chapters) == 0 {
		_, err := fmt.Fprintln(w, "No chapters found.")
		return err
	}
	for i, ch := range chapters {
		_, err := fmt.Fprintf(w, "%3d  %s - %s  %s\n",
			i+1, format.Duration(ch.Start), format.Duration(ch.End), ch.Title)
		if err != nil {
			return err
		}
	}
	return nil
}

// renderChaptersJSON writes chapters as a JSON array with times in seconds.
func renderChaptersJSON(w io.Writer, chapters []mp4.Chapter) error {
	out := make([]chapterJSON, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, chapterJSON{
			Title: ch.Title,
			Start: seconds(ch.Start),
			End:   seconds(ch.End),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// renderTimeline writes a timeline in the requested output format.
func renderTimeline(w io.Writer, tl timeline.Timeline, outputFormat string) error {
	switch outputFormat {
	case FormatText:
		_, err := fmt.Fprintln(w, tl.FullText)
		return err
	case FormatJSON:
		return renderTimelineJSON(w, tl)
	case FormatSRT:
		return renderTimelineSRT(w, tl)
	default:
		return fmt.Errorf("%q (use %s, %s or %s): %w",
			outputFormat, FormatText, FormatJSON, FormatSRT, ErrUnknownOutputFormat)
	}
}

func renderTimelineJSON(w io.Writer, tl timeline.Timeline) error {
	out := timelineJSON{
		Segments:        make([]segmentJSON, 0, len(tl.Segments)),
		FullText:        tl.FullText,
		TotalDuration:   seconds(tl.Duration),
		PrimaryLanguage: tl.Language,
		Partial:         tl.Partial,
	}
	for _, s := range tl.Segments {
		out.Segments = append(out.Segments, segmentJSON{
			Start:    seconds(s.Start),
			End:      seconds(s.End),
			Text:     s.Text,
			Language: s.Language,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderTimelineSRT(w io.Writer, tl timeline.Timeline) error {
	var b strings.Builder
	for i, s := range tl.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, format.Timestamp(s.Start), format.Timestamp(s.End), strings.TrimSpace(s.Text))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeFileAtomic writes content to path, failing if the file already
// exists (O_EXCL) to prevent accidental overwrites. On write failure the
// partial file is removed.
func writeFileAtomic(path string, render func(io.Writer) error) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		return render(f)
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write output: %w", writeErr)
	}
	return nil
}
