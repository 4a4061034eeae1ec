// Package ffmpeg locates the ffmpeg binary and uses it to turn arbitrary
// audio containers into the mono 16 kHz WAV the rest of the pipeline
// expects. Anything ffmpeg can read, the tool can transcribe.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
)

// envFFmpegPath lets users pin a specific binary.
const envFFmpegPath = "FFMPEG_PATH"

// envProvider abstracts environment access for testing.
type envProvider interface {
	Getenv(key string) string
	LookPath(file string) (string, error)
}

type osEnvProvider struct{}

func (osEnvProvider) Getenv(key string) string { return os.Getenv(key) }

func (osEnvProvider) LookPath(file string) (string, error) { return exec.LookPath(file) }

// Resolver locates the ffmpeg binary.
type Resolver struct {
	env envProvider
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEnvProvider sets a custom environment provider (for testing).
func WithEnvProvider(e envProvider) ResolverOption {
	return func(r *Resolver) { r.env = e }
}

// NewResolver creates a Resolver with the given options.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{env: osEnvProvider{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the path to the ffmpeg binary.
// Precedence: FFMPEG_PATH environment variable, then $PATH.
func (r *Resolver) Resolve() (string, error) {
	if p := r.env.Getenv(envFFmpegPath); p != "" {
		return p, nil
	}

	p, err := r.env.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("install ffmpeg or set %s: %w", envFFmpegPath, ErrNotFound)
	}
	return p, nil
}
