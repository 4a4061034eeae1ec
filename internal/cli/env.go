package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/alnah/audiospine/internal/audio"
	"github.com/alnah/audiospine/internal/config"
	"github.com/alnah/audiospine/internal/ffmpeg"
	"github.com/alnah/audiospine/internal/jobstore"
	"github.com/alnah/audiospine/internal/transcribe"
)

// Env holds injectable dependencies for CLI commands.
// This is the central injection point for testing CLI commands in isolation.
//
// All fields have sensible defaults via DefaultEnv(). Tests can override
// specific fields using the With* options or by creating a custom Env.
type Env struct {
	// I/O and environment
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time
	Logger zerolog.Logger

	// Collaborators
	ConfigLoader  ConfigLoader
	Decoder       AudioDecoder
	OracleFactory OracleFactory
	Jobs          jobstore.Store
}

// ConfigLoader loads and provides access to configuration.
type ConfigLoader interface {
	Load() (config.Config, error)
}

// AudioDecoder turns an audio file into a PCM signal.
type AudioDecoder interface {
	DecodeFile(ctx context.Context, path string) (audio.Signal, error)
}

// OracleFactory creates transcription oracles.
type OracleFactory interface {
	NewOracle(apiKey, model string) transcribe.Oracle
}

// EnvOption configures an Env.
type EnvOption func(*Env)

// WithStdout sets the stdout writer.
func WithStdout(w io.Writer) EnvOption {
	return func(e *Env) { e.Stdout = w }
}

// WithStderr sets the stderr writer and points the logger at it.
func WithStderr(w io.Writer) EnvOption {
	return func(e *Env) {
		e.Stderr = w
		e.Logger = newLogger(w)
	}
}

// WithGetenv sets the environment variable getter.
func WithGetenv(fn func(string) string) EnvOption {
	return func(e *Env) { e.Getenv = fn }
}

// WithNow sets the time provider.
func WithNow(fn func() time.Time) EnvOption {
	return func(e *Env) { e.Now = fn }
}

// WithConfigLoader sets the config loader.
func WithConfigLoader(l ConfigLoader) EnvOption {
	return func(e *Env) { e.ConfigLoader = l }
}

// WithDecoder sets the audio decoder.
func WithDecoder(d AudioDecoder) EnvOption {
	return func(e *Env) { e.Decoder = d }
}

// WithOracleFactory sets the oracle factory.
func WithOracleFactory(f OracleFactory) EnvOption {
	return func(e *Env) { e.OracleFactory = f }
}

// WithJobStore sets the job store.
func WithJobStore(s jobstore.Store) EnvOption {
	return func(e *Env) { e.Jobs = s }
}

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}

// DefaultEnv returns an Env with production defaults.
func DefaultEnv() *Env {
	return &Env{
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		Getenv:        os.Getenv,
		Now:           time.Now,
		Logger:        newLogger(os.Stderr),
		ConfigLoader:  &defaultConfigLoader{},
		Decoder:       ffmpeg.NewDecoder(),
		OracleFactory: &defaultOracleFactory{},
		Jobs:          jobstore.NewMemoryStore(),
	}
}

// NewEnv creates an Env with the given options applied to defaults.
func NewEnv(opts ...EnvOption) *Env {
	env := DefaultEnv()
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// ---------------------------------------------------------------------------
// Default implementations - delegate to real packages
// ---------------------------------------------------------------------------

type defaultConfigLoader struct{}

func (defaultConfigLoader) Load() (config.Config, error) {
	return config.Load()
}

type defaultOracleFactory struct{}

func (defaultOracleFactory) NewOracle(apiKey, model string) transcribe.Oracle {
	client := openai.NewClient(apiKey)
	return transcribe.NewOpenAIOracle(client, transcribe.WithModel(model))
}
