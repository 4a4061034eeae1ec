package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alnah/audiospine/internal/mp4"
)

// Chapter parsing itself is covered in the mp4 package; these tests check
// the command wiring: path validation, flag handling and rendering.

func runChaptersCmd(t *testing.T, env *testEnv, args ...string) error {
	t.Helper()
	cmd := ChaptersCmd(env.env)
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func TestChapters_MissingFile(t *testing.T) {
	env := newTestEnv(t, testConfig(), testSignal(0, 16000), nil)

	err := runChaptersCmd(t, env, "/nonexistent/audiobook.m4a")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestChapters_NoChapterTrackDegrades(t *testing.T) {
	env := newTestEnv(t, testConfig(), testSignal(0, 16000), nil)
	path := writeInputFile(t, "plain.m4a")

	if err := runChaptersCmd(t, env, path); err != nil {
		t.Fatalf("chapterless file must not fail: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "No chapters found.") {
		t.Errorf("unexpected output: %q", env.stdout.String())
	}
}

func TestChapters_JSONEmptyList(t *testing.T) {
	env := newTestEnv(t, testConfig(), testSignal(0, 16000), nil)
	path := writeInputFile(t, "plain.m4a")

	if err := runChaptersCmd(t, env, path, "--json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(env.stdout.String()); got != "[]" {
		t.Errorf("JSON output = %q, want []", got)
	}
}

func TestChapters_ExplicitTrackNotFound(t *testing.T) {
	env := newTestEnv(t, testConfig(), testSignal(0, 16000), nil)
	path := writeInputFile(t, "plain.m4a")

	err := runChaptersCmd(t, env, path, "--track", "7")
	if !errors.Is(err, mp4.ErrTrackNotFound) {
		t.Fatalf("expected ErrTrackNotFound, got %v", err)
	}
}

func TestChapters_RejectsMissingArg(t *testing.T) {
	env := newTestEnv(t, testConfig(), testSignal(0, 16000), nil)

	if err := runChaptersCmd(t, env); err == nil {
		t.Fatal("expected usage error for missing argument")
	}
}
