package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

func TestSessionID_Deterministic(t *testing.T) {
	a := SessionID("zod")
	b := SessionID("zod")
	if a != b {
		t.Errorf("session IDs differ for same repo: %s vs %s", a, b)
	}
	if a == SessionID("other-repo") {
		t.Error("different repos share a session ID")
	}
}

func TestRun_MissingExecutor(t *testing.T) {
	inv := New("definitely-not-a-real-binary-xyz", 50, "")
	dir := t.TempDir()

	err := inv.Run(context.Background(), dir, "zod")

	var missing *domain.ExecutorMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected ExecutorMissingError, got %v", err)
	}
	if missing.Command != "definitely-not-a-real-binary-xyz" {
		t.Errorf("Command = %q", missing.Command)
	}
	if !strings.Contains(missing.Fallback, dir) {
		t.Errorf("fallback command %q does not reference the repo dir", missing.Fallback)
	}
}

func TestRun_WritesLog(t *testing.T) {
	dir := t.TempDir()
	inv := New("true", 50, "")

	if err := inv.Run(context.Background(), dir, "zod"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, logFilename)); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestRun_ExecutorFailure(t *testing.T) {
	dir := t.TempDir()
	inv := New("false", 50, "")

	err := inv.Run(context.Background(), dir, "zod")
	if err == nil {
		t.Fatal("expected error for failing executor")
	}
	var missing *domain.ExecutorMissingError
	if errors.As(err, &missing) {
		t.Error("present-but-failing executor reported as missing")
	}
}

func TestRunTests(t *testing.T) {
	dir := t.TempDir()

	if err := New("true", 50, "").RunTests(context.Background(), dir); err != nil {
		t.Errorf("empty test command: %v", err)
	}

	if err := New("true", 50, "true").RunTests(context.Background(), dir); err != nil {
		t.Errorf("passing tests: %v", err)
	}

	err := New("true", 50, "false").RunTests(context.Background(), dir)
	var failure *domain.TestFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected TestFailure, got %v", err)
	}
	if failure.Command != "false" {
		t.Errorf("Command = %q", failure.Command)
	}
}
