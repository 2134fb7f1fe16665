package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadScheduleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.toml")
	os.WriteFile(path, []byte(`
[[batch]]
name = "nightly"
cron = "0 2 * * *"
registry = "registry.json"

[[batch]]
name = "weekly"
cron = "0 4 * * 0"
registry = "https://example.com/registry.json"
concurrency = 8
`), 0644)

	cfg, err := LoadScheduleConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Batches) != 2 {
		t.Fatalf("batches = %+v", cfg.Batches)
	}
	if cfg.Batches[0].Concurrency != 4 {
		t.Errorf("default concurrency = %d, want 4", cfg.Batches[0].Concurrency)
	}
	if cfg.Batches[1].Concurrency != 8 {
		t.Errorf("explicit concurrency = %d, want 8", cfg.Batches[1].Concurrency)
	}
}

func TestLoadScheduleConfig_Missing(t *testing.T) {
	cfg, err := LoadScheduleConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Batches) != 0 {
		t.Errorf("batches = %+v, want empty", cfg.Batches)
	}
}

func TestScheduleEntry_Validate(t *testing.T) {
	cases := []struct {
		name  string
		entry ScheduleEntry
		ok    bool
	}{
		{"valid", ScheduleEntry{Name: "n", Cron: "*/5 * * * *", Registry: "r.json"}, true},
		{"missing name", ScheduleEntry{Cron: "* * * * *", Registry: "r.json"}, false},
		{"missing registry", ScheduleEntry{Name: "n", Cron: "* * * * *"}, false},
		{"bad cron", ScheduleEntry{Name: "n", Cron: "not a cron", Registry: "r.json"}, false},
	}
	for _, tc := range cases {
		err := tc.entry.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestScheduler_ShouldRun(t *testing.T) {
	s, err := NewScheduler([]ScheduleEntry{
		{Name: "often", Cron: "* * * * *", Registry: "r.json"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// A freshly started scheduler waits for the next cron slot; past
	// slots never fire at startup.
	if s.ShouldRun("often") {
		t.Error("batch due immediately at scheduler startup")
	}
	if s.ShouldRun("unknown") {
		t.Error("unknown batch reported due")
	}

	// Backdate the last run past a cron slot: now the batch is due.
	s.mu.Lock()
	s.lastRun["often"] = time.Now().Add(-2 * time.Minute)
	s.mu.Unlock()
	if !s.ShouldRun("often") {
		t.Error("overdue batch not due")
	}

	s.markRunning("often")
	if s.ShouldRun("often") {
		t.Error("running batch reported due again")
	}
	s.markComplete("often")
	if s.ShouldRun("often") {
		t.Error("just-completed batch due before next cron slot")
	}
}

func TestScheduler_NextRun(t *testing.T) {
	s, _ := NewScheduler([]ScheduleEntry{
		{Name: "hourly", Cron: "0 * * * *", Registry: "r.json"},
	})

	next := s.NextRun("hourly")
	if next.IsZero() {
		t.Fatal("NextRun returned zero time")
	}
	if next.Before(time.Now()) || next.After(time.Now().Add(time.Hour+time.Minute)) {
		t.Errorf("NextRun = %v, expected within the next hour", next)
	}
	if !s.NextRun("unknown").IsZero() {
		t.Error("unknown batch has a next run")
	}
}
