package cli

import (
	"context"
	"sync"

	"github.com/alnah/audiospine/internal/audio"
	"github.com/alnah/audiospine/internal/config"
	"github.com/alnah/audiospine/internal/jobstore"
	"github.com/alnah/audiospine/internal/transcribe"
)

// ---------------------------------------------------------------------------
// Mock ConfigLoader
// ---------------------------------------------------------------------------

type mockConfigLoader struct {
	cfg config.Config
	err error
}

func (m *mockConfigLoader) Load() (config.Config, error) {
	return m.cfg, m.err
}

// ---------------------------------------------------------------------------
// Mock AudioDecoder
// ---------------------------------------------------------------------------

type mockDecoder struct {
	sig audio.Signal
	err error

	mu    sync.Mutex
	paths []string
}

func (m *mockDecoder) DecodeFile(_ context.Context, path string) (audio.Signal, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	if m.err != nil {
		return audio.Signal{}, m.err
	}
	return m.sig, nil
}

func (m *mockDecoder) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.paths)
}

// ---------------------------------------------------------------------------
// Mock OracleFactory and Oracle
// ---------------------------------------------------------------------------

type fixedOracle struct {
	result transcribe.Result
	err    error

	mu    sync.Mutex
	calls int
}

func (o *fixedOracle) Transcribe(_ context.Context, _ string, _ transcribe.Options) (transcribe.Result, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if o.err != nil {
		return transcribe.Result{}, o.err
	}
	return o.result, nil
}

type mockOracleFactory struct {
	oracle transcribe.Oracle

	gotAPIKey string
	gotModel  string
}

func (m *mockOracleFactory) NewOracle(apiKey, model string) transcribe.Oracle {
	m.gotAPIKey = apiKey
	m.gotModel = model
	return m.oracle
}

// ---------------------------------------------------------------------------
// Recording job store - remembers the last created job ID
// ---------------------------------------------------------------------------

type recordingStore struct {
	*jobstore.MemoryStore
	lastID string
}

func (s *recordingStore) Create(ctx context.Context, input string) (jobstore.Job, error) {
	job, err := s.MemoryStore.Create(ctx, input)
	s.lastID = job.ID
	return job, err
}
