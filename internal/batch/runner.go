package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hochfrequenz/repo-migrator/internal/domain"
	"github.com/hochfrequenz/repo-migrator/internal/report"
)

// TaskRunner executes the migration lifecycle for one target.
type TaskRunner interface {
	Run(ctx context.Context, target string) (domain.State, error)
}

// Prechecker decides whether a repository can be skipped without work.
type Prechecker interface {
	ShouldSkip(ctx context.Context, url string) bool
}

// TaskError records one failed task for the aggregate report.
type TaskError struct {
	Task    domain.RepoTask
	Message string
}

// Result aggregates a batch run. Completed + Failed + Skipped always
// equals the number of tasks submitted.
type Result struct {
	Completed int
	Failed    int
	Skipped   int
	Errors    []TaskError
	Elapsed   time.Duration
}

// Runner schedules repository pipelines under a concurrency ceiling.
// Failures are isolated per task: a failed repository is counted and
// reported, never allowed to abort its siblings or the run.
type Runner struct {
	pipeline TaskRunner
	precheck Prechecker
	reporter report.Reporter
	limit    int
}

// NewRunner wires a batch Runner. limit values below 1 are clamped to 1.
func NewRunner(pipeline TaskRunner, precheck Prechecker, reporter report.Reporter, limit int) *Runner {
	if limit < 1 {
		limit = 1
	}
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Runner{pipeline: pipeline, precheck: precheck, reporter: reporter, limit: limit}
}

type outcome struct {
	task domain.RepoTask
	kind domain.Outcome
	err  error
}

// Run prechecks every task, then drives the remainder through the worker
// pool. Skipped tasks never enter the pool.
func (r *Runner) Run(ctx context.Context, tasks []domain.RepoTask) Result {
	start := time.Now()
	outcomes := make(chan outcome, len(tasks))

	var scheduled []domain.RepoTask
	for _, task := range tasks {
		if r.precheck != nil && r.precheck.ShouldSkip(ctx, task.URL) {
			r.reporter.Publish(report.Event{
				Repo:    task.Name,
				Level:   report.LevelInfo,
				Message: "already migrated, skipping",
			})
			outcomes <- outcome{task: task, kind: domain.OutcomeSkipped}
			continue
		}
		scheduled = append(scheduled, task)
	}

	g := new(errgroup.Group)
	g.SetLimit(r.limit)
	for _, task := range scheduled {
		g.Go(func() error {
			_, err := r.pipeline.Run(ctx, task.URL)
			if err != nil {
				outcomes <- outcome{task: task, kind: domain.OutcomeFailed, err: err}
			} else {
				outcomes <- outcome{task: task, kind: domain.OutcomeCompleted}
			}
			return nil
		})
	}
	g.Wait()
	close(outcomes)

	// The result is accumulated here alone, after all workers are done;
	// workers only ever write to the channel.
	var result Result
	for o := range outcomes {
		switch o.kind {
		case domain.OutcomeCompleted:
			result.Completed++
		case domain.OutcomeFailed:
			result.Failed++
			result.Errors = append(result.Errors, TaskError{Task: o.task, Message: o.err.Error()})
		case domain.OutcomeSkipped:
			result.Skipped++
		}
	}
	result.Elapsed = time.Since(start)

	r.reporter.Publish(report.Event{
		Level:   report.LevelInfo,
		Message: report.BatchSummary(result.Completed, result.Failed, result.Skipped, result.Elapsed),
	})
	return result
}
