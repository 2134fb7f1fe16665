package runstore

import (
	"path/filepath"
	"testing"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := setupStore(t)

	id, err := s.BeginRun("batch", "registry.json")
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("empty run ID")
	}

	if err := s.FinishRun(id, 2, 1, 1); err != nil {
		t.Fatal(err)
	}

	runs, err := s.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %+v", runs)
	}
	r := runs[0]
	if r.ID != id || r.Kind != "batch" || r.Registry != "registry.json" {
		t.Errorf("run = %+v", r)
	}
	if r.Completed != 2 || r.Failed != 1 || r.Skipped != 1 {
		t.Errorf("counts = %+v", r)
	}
	if r.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}
}

func TestLatestRepoStates(t *testing.T) {
	s := setupStore(t)

	run1, _ := s.BeginRun("batch", "")
	s.RecordRepoRun(run1, RepoRun{Repo: "zod", URL: "https://github.com/colinhacks/zod.git", State: domain.StateFailed, Error: "clone failed"})
	s.RecordRepoRun(run1, RepoRun{Repo: "valibot", State: domain.StateDone})

	// A later run supersedes the earlier state for the same repo.
	run2, _ := s.BeginRun("single", "")
	s.RecordRepoRun(run2, RepoRun{Repo: "zod", State: domain.StateDone})

	states, err := s.LatestRepoStates()
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Fatalf("states = %+v", states)
	}

	byRepo := make(map[string]RepoRun)
	for _, rr := range states {
		byRepo[rr.Repo] = rr
	}
	if byRepo["zod"].State != domain.StateDone {
		t.Errorf("zod state = %s, want done", byRepo["zod"].State)
	}
	if byRepo["zod"].Error != "" {
		t.Errorf("zod error = %q, want empty from latest run", byRepo["zod"].Error)
	}
	if byRepo["valibot"].State != domain.StateDone {
		t.Errorf("valibot state = %s", byRepo["valibot"].State)
	}
}

func TestRecentRuns_Limit(t *testing.T) {
	s := setupStore(t)
	for range 5 {
		if _, err := s.BeginRun("single", ""); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.RecentRuns(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Errorf("runs = %d, want 3", len(runs))
	}
}
