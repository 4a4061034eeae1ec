package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/audiospine/internal/apierr"
)

// ModelWhisper1 is the default oracle model. It is the one OpenAI model
// that returns per-segment timestamps via the verbose JSON format.
const ModelWhisper1 = openai.Whisper1

// Default retry configuration.
const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// audioTranscriber is the slice of the OpenAI client this package needs.
// *openai.Client implements it implicitly; tests inject mocks.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Oracle           = (*OpenAIOracle)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
)

// OpenAIOracle transcribes windows through OpenAI's transcription API with
// automatic retries on transient failures.
type OpenAIOracle struct {
	client audioTranscriber
	model  string
	retry  apierr.RetryConfig
}

// OracleOption configures an OpenAIOracle.
type OracleOption func(*OpenAIOracle)

// WithModel overrides the transcription model.
func WithModel(model string) OracleOption {
	return func(o *OpenAIOracle) {
		if model != "" {
			o.model = model
		}
	}
}

// WithRetry overrides the retry configuration.
func WithRetry(cfg apierr.RetryConfig) OracleOption {
	return func(o *OpenAIOracle) {
		o.retry = cfg
	}
}

// withClient injects a mock client. Test-only; production callers pass a
// real client to NewOpenAIOracle.
func withClient(c audioTranscriber) OracleOption {
	return func(o *OpenAIOracle) {
		o.client = c
	}
}

// NewOpenAIOracle creates an oracle backed by the given client.
func NewOpenAIOracle(client *openai.Client, opts ...OracleOption) *OpenAIOracle {
	o := &OpenAIOracle{
		client: client,
		model:  ModelWhisper1,
		retry: apierr.RetryConfig{
			MaxRetries: defaultMaxRetries,
			BaseDelay:  defaultBaseDelay,
			MaxDelay:   defaultMaxDelay,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Transcribe sends one window to the API and converts the verbose JSON
// response into local-time segments.
func (o *OpenAIOracle) Transcribe(ctx context.Context, wavPath string, opts Options) (Result, error) {
	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Prompt:   opts.Prompt,
		Language: opts.Language,
	}

	resp, err := apierr.RetryWithBackoff(ctx, o.retry, func() (openai.AudioResponse, error) {
		resp, err := o.client.CreateTranscription(ctx, req)
		if err != nil {
			return openai.AudioResponse{}, classifyError(err)
		}
		return resp, nil
	}, apierr.Retryable)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe %s: %w", wavPath, err)
	}

	return convertResponse(resp), nil
}

// convertResponse maps the verbose JSON payload to the oracle result
// shape. A response without segment detail degrades to one segment
// spanning the whole window.
func convertResponse(resp openai.AudioResponse) Result {
	res := Result{Language: strings.TrimSpace(resp.Language)}

	if len(resp.Segments) == 0 {
		text := strings.TrimSpace(resp.Text)
		if text == "" {
			return res
		}
		res.Segments = []Segment{{
			End:      secondsToDuration(resp.Duration),
			Text:     text,
			Language: res.Language,
		}}
		return res
	}

	res.Segments = make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		res.Segments = append(res.Segments, Segment{
			Start:      secondsToDuration(s.Start),
			End:        secondsToDuration(s.End),
			Text:       text,
			Language:   res.Language,
			Confidence: 1 - s.NoSpeechProb,
		})
	}
	return res
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// classifyError maps OpenAI API errors to apierr sentinels.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			// Quota exhaustion shares the 429 status with rate limiting but
			// requires user action, so it must not be retried.
			if strings.Contains(apiErr.Message, "quota") ||
				strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case apiErr.HTTPStatusCode == http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case apiErr.HTTPStatusCode == http.StatusRequestTimeout,
			apiErr.HTTPStatusCode == http.StatusGatewayTimeout:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrServer)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}
	return err
}
