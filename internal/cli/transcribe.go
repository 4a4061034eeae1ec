package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alnah/audiospine/internal/audio"
	"github.com/alnah/audiospine/internal/config"
	"github.com/alnah/audiospine/internal/format"
	"github.com/alnah/audiospine/internal/jobstore"
	"github.com/alnah/audiospine/internal/lang"
	"github.com/alnah/audiospine/internal/merge"
	"github.com/alnah/audiospine/internal/timeline"
	"github.com/alnah/audiospine/internal/transcribe"
)

// supportedFormats lists audio formats accepted by OpenAI's transcription API.
// Source: https://platform.openai.com/docs/guides/speech-to-text
var supportedFormats = map[string]bool{
	".ogg":  true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
}

// supportedFormatsList returns a sorted, comma-separated list for error messages.
// The list is sorted for deterministic output in tests and user-facing messages.
func supportedFormatsList() string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, strings.TrimPrefix(ext, "."))
	}
	slices.Sort(formats)
	return strings.Join(formats, ", ")
}

// clampParallel constrains concurrent window count to [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > transcribe.MaxRecommendedParallel {
		return transcribe.MaxRecommendedParallel
	}
	return n
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var (
		output       string
		outputFormat string
		parallel     int
		language     string
		prompt       string
		window       time.Duration
		overlap      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file into a time-aligned timeline",
		Long: `Transcribe an audio file using OpenAI's transcription API.

Long recordings are split into fixed overlapping windows, transcribed in
parallel, and merged back into one timeline with duplicated boundary text
removed. Non-WAV inputs are decoded with ffmpeg first.

Supported formats: ogg, mp3, wav, m4a, flac, mp4, mpeg, mpga, webm`,
		Example: `  audiospine transcribe lecture.mp3
  audiospine transcribe lecture.mp3 --format srt -o lecture.srt
  audiospine transcribe interview.wav --format json -l en
  audiospine transcribe meeting.m4a -p 8 --window 45s --overlap 3s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], output, outputFormat, parallel, language, prompt, window, overlap)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&outputFormat, "format", FormatText, "Output format: text, json, srt")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Max concurrent API requests (1-10, default from config)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Audio language (ISO 639-1 code, e.g., en, fr, pt-BR)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Context prompt passed to the transcription API")
	cmd.Flags().DurationVar(&window, "window", 0, "Window length (default from config)")
	cmd.Flags().DurationVar(&overlap, "overlap", 0, "Window overlap (default from config)")

	return cmd
}

// runTranscribe executes the transcription pipeline.
// Validation order: file exists -> format -> output format -> language -> config -> API key
func runTranscribe(cmd *cobra.Command, env *Env, inputPath, output, outputFormat string,
	parallel int, language, prompt string, window, overlap time.Duration,
) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	// 1. File exists
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}

	// 2. Format supported
	ext := strings.ToLower(filepath.Ext(inputPath))
	if !supportedFormats[ext] {
		return fmt.Errorf("unsupported format %q (supported: %s): %w",
			ext, supportedFormatsList(), ErrUnsupportedFormat)
	}

	// 3. Output format known - fail before any expensive work
	switch outputFormat {
	case FormatText, FormatJSON, FormatSRT:
	default:
		return fmt.Errorf("%q (use %s, %s or %s): %w",
			outputFormat, FormatText, FormatJSON, FormatSRT, ErrUnknownOutputFormat)
	}

	// 4. Language validation
	if err := lang.Validate(language); err != nil {
		return err
	}

	// 5. Config, with flag overrides taking precedence
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}
	if window > 0 {
		cfg.Window = window
	}
	if overlap > 0 {
		cfg.Overlap = overlap
	}
	if parallel > 0 {
		cfg.Parallel = parallel
	}
	if language != "" {
		cfg.Language = language
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// 6. API key present
	if err := cfg.RequireAPIKey(); err != nil {
		return fmt.Errorf("%w (set it with: export %s=sk-...)", err, config.EnvAPIKey)
	}

	// === SETUP ===

	chunker, err := audio.NewChunker(cfg.Window, cfg.Overlap)
	if err != nil {
		return err
	}

	assembler := &timeline.Assembler{
		Chunker: chunker,
		Oracle:  env.OracleFactory.NewOracle(cfg.APIKey, cfg.Model),
		Merge: merge.Options{
			SimilarityThreshold: cfg.SimilarityThreshold,
			TailWords:           cfg.TailWords,
		},
		Parallel: clampParallel(cfg.Parallel),
	}

	job, err := env.Jobs.Create(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("cannot record job: %w", err)
	}

	// === DECODE ===

	env.Logger.Info().
		Str("input", inputPath).
		Str("size", format.Size(info.Size())).
		Msg("decoding audio")

	sig, err := env.Decoder.DecodeFile(ctx, inputPath)
	if err != nil {
		failJob(env, job, err)
		return err
	}

	// === TRANSCRIBE ===

	job.Status = jobstore.StatusRunning
	if err := env.Jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("cannot record job: %w", err)
	}

	env.Logger.Info().
		Str("duration", format.DurationHuman(sig.Duration())).
		Dur("window", cfg.Window).
		Int("parallel", assembler.Parallel).
		Msg("transcribing")

	tl, err := assembler.AssembleWithOptions(ctx, sig, transcribe.Options{
		Prompt:   prompt,
		Language: cfg.Language,
	})
	if err != nil {
		failJob(env, job, err)
		return err
	}

	job.Status = jobstore.StatusDone
	job.Result = &tl
	if err := env.Jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("cannot record job: %w", err)
	}

	if tl.Partial {
		env.Logger.Warn().Msg("some windows failed; output is partial")
	}
	env.Logger.Info().
		Int("segments", len(tl.Segments)).
		Str("language", lang.DisplayName(tl.Language)).
		Msg("transcription complete")

	// === WRITE OUTPUT ===

	if output == "" {
		return renderTimeline(env.Stdout, tl, outputFormat)
	}

	output = config.ResolveOutputPath(output, cfg.OutputDir, filepath.Base(output))
	if err := writeFileAtomic(output, func(w io.Writer) error {
		return renderTimeline(w, tl, outputFormat)
	}); err != nil {
		return err
	}

	env.Logger.Info().Str("output", output).Msg("done")
	return nil
}

// failJob marks a job failed, logging rather than masking store errors so
// the pipeline error stays the one the caller sees.
func failJob(env *Env, job jobstore.Job, cause error) {
	job.Status = jobstore.StatusFailed
	job.Error = cause.Error()
	if err := env.Jobs.Update(context.Background(), job); err != nil {
		env.Logger.Warn().Err(err).Msg("cannot record job failure")
	}
}
