package cli

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alnah/audiospine/internal/audio"
	"github.com/alnah/audiospine/internal/config"
	"github.com/alnah/audiospine/internal/jobstore"
	"github.com/alnah/audiospine/internal/transcribe"
)

// testEnv bundles an Env wired to buffers and mocks.
type testEnv struct {
	env     *Env
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	decoder *mockDecoder
	factory *mockOracleFactory
	jobs    *recordingStore
}

// newTestEnv builds an Env whose collaborators are all fakes. The config
// loader returns cfg as-is; callers set APIKey themselves when the command
// under test needs one.
func newTestEnv(t *testing.T, cfg config.Config, sig audio.Signal, oracle transcribe.Oracle) *testEnv {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	decoder := &mockDecoder{sig: sig}
	factory := &mockOracleFactory{oracle: oracle}
	jobs := &recordingStore{MemoryStore: jobstore.NewMemoryStore()}

	env := NewEnv(
		WithStdout(stdout),
		WithStderr(stderr),
		WithConfigLoader(&mockConfigLoader{cfg: cfg}),
		WithDecoder(decoder),
		WithOracleFactory(factory),
		WithJobStore(jobs),
	)
	return &testEnv{env: env, stdout: stdout, stderr: stderr, decoder: decoder, factory: factory, jobs: jobs}
}

// testConfig returns a valid configuration with an API key set.
func testConfig() config.Config {
	return config.Config{
		APIKey:              "sk-test",
		Window:              30 * time.Second,
		Overlap:             2 * time.Second,
		SimilarityThreshold: config.DefaultSimilarityThreshold,
		TailWords:           config.DefaultTailWords,
		Parallel:            config.DefaultParallel,
		Model:               transcribe.ModelWhisper1,
	}
}

// testSignal generates a sine tone of the given duration.
func testSignal(d time.Duration, rate int) audio.Signal {
	n := int(d * time.Duration(rate) / time.Second)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(rate))
	}
	return audio.Signal{Samples: samples, Rate: rate}
}

// writeInputFile creates a placeholder audio file; commands only check the
// extension before handing the path to the (mocked) decoder.
func writeInputFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not real audio"), 0o600); err != nil {
		t.Fatalf("write input file: %v", err)
	}
	return path
}
