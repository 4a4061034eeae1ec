// Package config loads tool settings from a key=value config file with
// environment variable overrides. Precedence: built-in defaults, then the
// config file, then AUDIOSPINE_* environment variables.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/audiospine/internal/lang"
	"github.com/alnah/audiospine/internal/transcribe"
)

// Config keys.
const (
	KeyOutputDir           = "output-dir"
	KeyWindow              = "window"
	KeyOverlap             = "overlap"
	KeySimilarityThreshold = "similarity-threshold"
	KeyTailWords           = "tail-words"
	KeyParallel            = "parallel"
	KeyModel               = "model"
	KeyLanguage            = "language"
)

// Environment variable overrides.
const (
	EnvAPIKey              = "OPENAI_API_KEY"
	EnvOutputDir           = "AUDIOSPINE_OUTPUT_DIR"
	EnvWindow              = "AUDIOSPINE_WINDOW"
	EnvOverlap             = "AUDIOSPINE_OVERLAP"
	EnvSimilarityThreshold = "AUDIOSPINE_SIMILARITY_THRESHOLD"
	EnvTailWords           = "AUDIOSPINE_TAIL_WORDS"
	EnvParallel            = "AUDIOSPINE_PARALLEL"
	EnvModel               = "AUDIOSPINE_MODEL"
	EnvLanguage            = "AUDIOSPINE_LANGUAGE"
)

// Defaults.
const (
	DefaultWindow              = 30 * time.Second
	DefaultOverlap             = 2 * time.Second
	DefaultSimilarityThreshold = 0.8
	DefaultTailWords           = 10
	DefaultParallel            = 4
)

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrInvalidValue  = errors.New("invalid config value")
)

// Config holds the resolved tool configuration.
type Config struct {
	APIKey              string
	OutputDir           string
	Window              time.Duration
	Overlap             time.Duration
	SimilarityThreshold float64
	TailWords           int
	Parallel            int
	Model               string
	Language            string
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/audiospine.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "audiospine"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "audiospine"), nil
}

// path returns the full path to the config file.
func path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config"), nil
}

// Load resolves the configuration from defaults, the config file and
// environment variables, in that order of increasing precedence.
// A missing config file is not an error.
func Load() (Config, error) {
	cfg := Config{
		Window:              DefaultWindow,
		Overlap:             DefaultOverlap,
		SimilarityThreshold: DefaultSimilarityThreshold,
		TailWords:           DefaultTailWords,
		Parallel:            DefaultParallel,
		Model:               transcribe.ModelWhisper1,
	}

	p, err := path()
	if err != nil {
		return cfg, err
	}

	file, err := parseFile(p)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	// File values override defaults.
	if err := cfg.apply(file); err != nil {
		return cfg, err
	}

	// Environment overrides the file.
	env := map[string]string{}
	for key, envVar := range map[string]string{
		KeyOutputDir:           EnvOutputDir,
		KeyWindow:              EnvWindow,
		KeyOverlap:             EnvOverlap,
		KeySimilarityThreshold: EnvSimilarityThreshold,
		KeyTailWords:           EnvTailWords,
		KeyParallel:            EnvParallel,
		KeyModel:               EnvModel,
		KeyLanguage:            EnvLanguage,
	} {
		if v := os.Getenv(envVar); v != "" {
			env[key] = v
		}
	}
	if err := cfg.apply(env); err != nil {
		return cfg, err
	}

	cfg.APIKey = os.Getenv(EnvAPIKey)

	return cfg, nil
}

// apply overlays non-empty values from a key=value map onto the config.
func (c *Config) apply(values map[string]string) error {
	for key, value := range values {
		if value == "" {
			continue
		}
		var err error
		switch key {
		case KeyOutputDir:
			c.OutputDir = value
		case KeyWindow:
			c.Window, err = parseDuration(key, value)
		case KeyOverlap:
			c.Overlap, err = parseDuration(key, value)
		case KeySimilarityThreshold:
			c.SimilarityThreshold, err = parseFloat(key, value)
		case KeyTailWords:
			c.TailWords, err = parseInt(key, value)
		case KeyParallel:
			c.Parallel, err = parseInt(key, value)
		case KeyModel:
			c.Model = value
		case KeyLanguage:
			c.Language = value
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// parseDuration accepts Go duration syntax ("30s") or bare seconds ("30").
func parseDuration(key, value string) (time.Duration, error) {
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, value, ErrInvalidValue)
	}
	return d, nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, value, ErrInvalidValue)
	}
	return f, nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, value, ErrInvalidValue)
	}
	return n, nil
}

// Validate checks the configuration before a transcription run.
// Chapter extraction needs no API key, so the caller decides whether a
// missing key matters.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("%s must be positive, got %v: %w", KeyWindow, c.Window, ErrInvalidValue)
	}
	if c.Overlap < 0 || c.Overlap >= c.Window {
		return fmt.Errorf("%s must be shorter than %s, got %v: %w", KeyOverlap, KeyWindow, c.Overlap, ErrInvalidValue)
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%s must be in (0,1], got %g: %w", KeySimilarityThreshold, c.SimilarityThreshold, ErrInvalidValue)
	}
	if c.TailWords < 1 {
		return fmt.Errorf("%s must be at least 1, got %d: %w", KeyTailWords, c.TailWords, ErrInvalidValue)
	}
	if c.Parallel < 1 {
		return fmt.Errorf("%s must be at least 1, got %d: %w", KeyParallel, c.Parallel, ErrInvalidValue)
	}
	if err := lang.Validate(c.Language); err != nil {
		return err
	}
	return nil
}

// CheckValue validates a single configuration value without persisting it.
// The value is overlaid on the defaults so cross-field checks still apply.
func CheckValue(key, value string) error {
	cfg := Config{
		Window:              DefaultWindow,
		Overlap:             DefaultOverlap,
		SimilarityThreshold: DefaultSimilarityThreshold,
		TailWords:           DefaultTailWords,
		Parallel:            DefaultParallel,
		Model:               transcribe.ModelWhisper1,
	}
	if err := cfg.apply(map[string]string{key: value}); err != nil {
		return err
	}
	return cfg.Validate()
}

// EnsureOutputDir creates the output directory if it does not exist.
func EnsureOutputDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("cannot create output directory: %w", err)
	}
	return nil
}

// RequireAPIKey returns ErrMissingAPIKey when no API key is configured.
func (c Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("set %s: %w", EnvAPIKey, ErrMissingAPIKey)
	}
	return nil
}

// parseFile reads a key=value config file.
// Format: one key=value per line, # comments, empty lines ignored.
func parseFile(p string) (map[string]string, error) {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from home dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid syntax at line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		data[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return data, nil
}

// Save writes a single key=value to the config file.
// Creates the config directory and file if they don't exist.
// Preserves existing key=value pairs but discards comments.
func Save(key, value string) error {
	p, err := path()
	if err != nil {
		return err
	}

	// Ensure config directory exists.
	d := filepath.Dir(p)
	if err := os.MkdirAll(d, 0750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	// Read existing config (if any).
	existing, _ := parseFile(p)
	if existing == nil {
		existing = make(map[string]string)
	}

	// Update value.
	existing[key] = value

	// Write back.
	return writeFile(p, existing)
}

// writeFile writes the config map to a file.
func writeFile(p string, data map[string]string) error {
	// #nosec G302 G304 -- config file with standard permissions, path from home dir
	f, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for key, value := range data {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	return nil
}

// Get reads a single value from the config file.
// Returns empty string if the key doesn't exist.
func Get(key string) (string, error) {
	p, err := path()
	if err != nil {
		return "", err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	return data[key], nil
}

// List returns all config values as a map.
func List() (map[string]string, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	data, err := parseFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	return data, nil
}

// ResolveOutputPath resolves the final output path using the following precedence:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. If output is empty, use defaultName in outputDir (or cwd if no outputDir)
//
// outputDir can come from config or flag.
// All paths are cleaned using filepath.Clean to normalize separators and remove redundant elements.
func ResolveOutputPath(output, outputDir, defaultName string) string {
	// Case 1: Explicit absolute path - use as-is.
	if output != "" && filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	// Case 2: Explicit relative path - combine with outputDir if set.
	if output != "" {
		if outputDir != "" {
			return filepath.Clean(filepath.Join(outputDir, output))
		}
		return filepath.Clean(output)
	}

	// Case 3: No output specified - use default name.
	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, defaultName))
	}
	return filepath.Clean(defaultName)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
