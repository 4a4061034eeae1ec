package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/audiospine/internal/apierr"
)

// mockTranscriber scripts CreateTranscription responses per call.
type mockTranscriber struct {
	calls     int
	responses []func() (openai.AudioResponse, error)
}

func (m *mockTranscriber) CreateTranscription(_ context.Context, _ openai.AudioRequest) (openai.AudioResponse, error) {
	idx := m.calls
	m.calls++
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx]()
}

func fastRetry() apierr.RetryConfig {
	return apierr.RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

// verboseResponse builds an AudioResponse from the verbose JSON wire format,
// the same way the client library decodes it.
func verboseResponse(t *testing.T, body string) openai.AudioResponse {
	t.Helper()
	var resp openai.AudioResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("unmarshal verbose response: %v", err)
	}
	return resp
}

func TestOpenAIOracle_ConvertsSegments(t *testing.T) {
	resp := verboseResponse(t, `{
		"language": "english",
		"duration": 30,
		"segments": [
			{"start": 0, "end": 4.5, "text": " hello there ", "no_speech_prob": 0.1},
			{"start": 4.5, "end": 6, "text": "   ", "no_speech_prob": 0.9},
			{"start": 6, "end": 9, "text": "general kenobi", "no_speech_prob": 0.2}
		]
	}`)
	mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
		func() (openai.AudioResponse, error) { return resp, nil },
	}}

	oracle := NewOpenAIOracle(nil, withClient(mock), WithRetry(fastRetry()))
	res, err := oracle.Transcribe(context.Background(), "w.wav", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Language != "english" {
		t.Errorf("expected language 'english', got %q", res.Language)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments (blank dropped), got %d", len(res.Segments))
	}
	if res.Segments[0].Text != "hello there" {
		t.Errorf("expected trimmed text, got %q", res.Segments[0].Text)
	}
	if res.Segments[0].End != 4500*time.Millisecond {
		t.Errorf("expected end 4.5s, got %v", res.Segments[0].End)
	}
	if got := res.Segments[0].Confidence; got < 0.89 || got > 0.91 {
		t.Errorf("expected confidence ~0.9, got %f", got)
	}
}

func TestOpenAIOracle_TextOnlyFallback(t *testing.T) {
	mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
		func() (openai.AudioResponse, error) {
			return openai.AudioResponse{Text: "whole window text", Duration: 12}, nil
		},
	}}

	oracle := NewOpenAIOracle(nil, withClient(mock), WithRetry(fastRetry()))
	res, err := oracle.Transcribe(context.Background(), "w.wav", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Segments) != 1 {
		t.Fatalf("expected 1 fallback segment, got %d", len(res.Segments))
	}
	if res.Segments[0].End != 12*time.Second {
		t.Errorf("expected fallback segment to span the window, got %v", res.Segments[0].End)
	}
}

func TestOpenAIOracle_RetriesRateLimit(t *testing.T) {
	rateLimited := func() (openai.AudioResponse, error) {
		return openai.AudioResponse{}, &openai.APIError{
			HTTPStatusCode: http.StatusTooManyRequests,
			Message:        "slow down",
		}
	}
	mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
		rateLimited,
		rateLimited,
		func() (openai.AudioResponse, error) {
			return openai.AudioResponse{Text: "finally"}, nil
		},
	}}

	oracle := NewOpenAIOracle(nil, withClient(mock), WithRetry(fastRetry()))
	res, err := oracle.Transcribe(context.Background(), "w.wav", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 calls, got %d", mock.calls)
	}
	if len(res.Segments) != 1 || res.Segments[0].Text != "finally" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestOpenAIOracle_QuotaNotRetried(t *testing.T) {
	mock := &mockTranscriber{responses: []func() (openai.AudioResponse, error){
		func() (openai.AudioResponse, error) {
			return openai.AudioResponse{}, &openai.APIError{
				HTTPStatusCode: http.StatusTooManyRequests,
				Message:        "insufficient quota: check billing",
			}
		},
	}}

	oracle := NewOpenAIOracle(nil, withClient(mock), WithRetry(fastRetry()))
	_, err := oracle.Transcribe(context.Background(), "w.wav", Options{})
	if !errors.Is(err, apierr.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if mock.calls != 1 {
		t.Errorf("quota errors must not be retried, got %d calls", mock.calls)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limit", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, apierr.ErrRateLimit},
		{"quota", &openai.APIError{HTTPStatusCode: 429, Message: "quota exceeded"}, apierr.ErrQuotaExceeded},
		{"auth", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, apierr.ErrAuthFailed},
		{"gateway timeout", &openai.APIError{HTTPStatusCode: 504, Message: "late"}, apierr.ErrTimeout},
		{"server", &openai.APIError{HTTPStatusCode: 500, Message: "boom"}, apierr.ErrServer},
		{"deadline", context.DeadlineExceeded, apierr.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyError_PassthroughUnknown(t *testing.T) {
	plain := fmt.Errorf("network down")
	if got := classifyError(plain); !errors.Is(got, plain) {
		t.Errorf("unknown errors must pass through, got %v", got)
	}
}
