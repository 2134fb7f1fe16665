package main

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
	"github.com/hochfrequenz/repo-migrator/internal/report"
	"github.com/hochfrequenz/repo-migrator/internal/runstore"
)

type captureReporter struct {
	mu     sync.Mutex
	events []report.Event
}

func (c *captureReporter) Publish(e report.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureReporter) warnings() []report.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []report.Event
	for _, e := range c.events {
		if e.Level == report.LevelWarning {
			out = append(out, e)
		}
	}
	return out
}

type staticRunner struct{}

func (staticRunner) Run(context.Context, string) (domain.State, error) {
	return domain.StateDone, nil
}

func openStore(t *testing.T) *runstore.Store {
	t.Helper()
	s, err := runstore.New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRecordingRunner_WarnsWhenStoreUnavailable(t *testing.T) {
	store := openStore(t)
	store.Close()

	rep := &captureReporter{}
	r := recordingRunner{pipeline: staticRunner{}, store: store, reporter: rep, runID: "run"}

	state, err := r.Run(context.Background(), "https://github.com/acme/widgets.git")
	if err != nil || state != domain.StateDone {
		t.Fatalf("state = %s, err = %v", state, err)
	}

	warnings := rep.warnings()
	if len(warnings) == 0 {
		t.Fatal("no warning for failed run recording")
	}
	if !strings.Contains(warnings[0].Message, "recording run history") {
		t.Errorf("warning = %q", warnings[0].Message)
	}
}

func TestRecordingRunner_QuietWhenStoreHealthy(t *testing.T) {
	store := openStore(t)
	defer store.Close()
	runID, err := store.BeginRun("batch", "")
	if err != nil {
		t.Fatal(err)
	}

	rep := &captureReporter{}
	r := recordingRunner{pipeline: staticRunner{}, store: store, reporter: rep, runID: runID}

	if _, err := r.Run(context.Background(), "https://github.com/acme/widgets.git"); err != nil {
		t.Fatal(err)
	}
	if len(rep.warnings()) != 0 {
		t.Errorf("unexpected warnings: %+v", rep.warnings())
	}

	states, err := store.LatestRepoStates()
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || states[0].Repo != "widgets" {
		t.Errorf("states = %+v", states)
	}
}

func TestFinishRun_WarnsWhenStoreUnavailable(t *testing.T) {
	store := openStore(t)
	store.Close()

	rep := &captureReporter{}
	finishRun(rep, store, "run", 1, 0, 0)

	if len(rep.warnings()) == 0 {
		t.Error("no warning for failed run completion record")
	}
}
