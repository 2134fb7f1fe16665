package batch

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// ScheduleEntry is one recurring batch run: a cron expression paired with
// the registry it should process.
type ScheduleEntry struct {
	Name        string `toml:"name"`
	Cron        string `toml:"cron"`
	Registry    string `toml:"registry"`
	Concurrency int    `toml:"concurrency"`
}

// ScheduleConfig holds all scheduled batches.
type ScheduleConfig struct {
	Batches []ScheduleEntry `toml:"batch"`
}

// Validate checks the entry and fills defaults.
func (e *ScheduleEntry) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("schedule entry name is required")
	}
	if e.Registry == "" {
		return fmt.Errorf("schedule entry %s: registry is required", e.Name)
	}
	if _, err := ParseCron(e.Cron); err != nil {
		return fmt.Errorf("schedule entry %s: invalid cron expression: %w", e.Name, err)
	}
	if e.Concurrency <= 0 {
		e.Concurrency = 4
	}
	return nil
}

// LoadScheduleConfig loads the schedule from a TOML file. A missing file
// is an empty schedule, not an error.
func LoadScheduleConfig(path string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ScheduleConfig{}, nil
		}
		return nil, err
	}

	var cfg ScheduleConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	for i := range cfg.Batches {
		if err := cfg.Batches[i].Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ParseCron parses a five-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Scheduler fires scheduled batches. One batch never overlaps itself; a
// run that is still going when its next slot arrives suppresses that slot.
type Scheduler struct {
	entries map[string]ScheduleEntry
	lastRun map[string]time.Time
	running map[string]bool
	mu      sync.RWMutex
	stop    chan struct{}
}

// NewScheduler creates a Scheduler from validated entries.
func NewScheduler(entries []ScheduleEntry) (*Scheduler, error) {
	s := &Scheduler{
		entries: make(map[string]ScheduleEntry),
		lastRun: make(map[string]time.Time),
		running: make(map[string]bool),
		stop:    make(chan struct{}),
	}
	now := time.Now()
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		s.entries[e.Name] = e
		// Cron slots that predate scheduler startup never fire; each
		// batch waits for its next slot instead of all firing at once.
		s.lastRun[e.Name] = now
	}
	return s, nil
}

// NextRun returns the next fire time for a batch, or the zero time for an
// unknown name.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok {
		return time.Time{}
	}
	sched, err := ParseCron(e.Cron)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now())
}

// ShouldRun reports whether a batch is due and not already running.
func (s *Scheduler) ShouldRun(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	if !ok || s.running[name] {
		return false
	}
	sched, err := ParseCron(e.Cron)
	if err != nil {
		return false
	}

	return time.Now().After(sched.Next(s.lastRun[name]))
}

func (s *Scheduler) markRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

func (s *Scheduler) markComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// Entries returns all schedule entry names.
func (s *Scheduler) Entries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

// Start runs the scheduling loop until Stop is called, invoking runFunc
// for each due batch in its own goroutine.
func (s *Scheduler) Start(runFunc func(ScheduleEntry) error) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.RLock()
			var due []ScheduleEntry
			for name, e := range s.entries {
				if s.running[name] {
					continue
				}
				due = append(due, e)
			}
			s.mu.RUnlock()

			for _, e := range due {
				if !s.ShouldRun(e.Name) {
					continue
				}
				s.markRunning(e.Name)
				go func(entry ScheduleEntry) {
					defer s.markComplete(entry.Name)
					if err := runFunc(entry); err != nil {
						fmt.Fprintf(os.Stderr, "scheduled batch %s failed: %v\n", entry.Name, err)
					}
				}(e)
			}
		}
	}
}

// Stop terminates the scheduling loop.
func (s *Scheduler) Stop() {
	close(s.stop)
}
