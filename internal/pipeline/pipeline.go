package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hochfrequenz/repo-migrator/internal/artifact"
	"github.com/hochfrequenz/repo-migrator/internal/assembler"
	"github.com/hochfrequenz/repo-migrator/internal/domain"
	"github.com/hochfrequenz/repo-migrator/internal/gitops"
	"github.com/hochfrequenz/repo-migrator/internal/report"
	"github.com/hochfrequenz/repo-migrator/internal/strategy"
)

// PlanGenerator produces a migration plan from a repository context.
type PlanGenerator interface {
	Generate(ctx context.Context, repoName, contextText string) (*strategy.Plan, error)
}

// Executor applies a migration plan inside a working directory.
type Executor interface {
	Run(ctx context.Context, dir, repoName string) error
	RunTests(ctx context.Context, dir string) error
}

// Pipeline drives one repository through the migration lifecycle. Every
// step is idempotent; rerunning a partially completed repository resumes
// where the previous run left off instead of redoing or duplicating work.
type Pipeline struct {
	git       *gitops.Client
	assembler *assembler.Assembler
	generator PlanGenerator
	executor  Executor
	reporter  report.Reporter
	cloneDir  string
}

// New wires a Pipeline from its collaborators. reporter may be nil.
func New(git *gitops.Client, asm *assembler.Assembler, gen PlanGenerator, exe Executor, reporter report.Reporter, cloneDir string) *Pipeline {
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Pipeline{
		git:       git,
		assembler: asm,
		generator: gen,
		executor:  exe,
		reporter:  reporter,
		cloneDir:  cloneDir,
	}
}

// run carries the mutable state of one pipeline execution.
type run struct {
	name         string
	url          string // empty for local targets
	localPath    string
	sourceBranch string
	plan         *strategy.Plan
	planTokens   int
	state        domain.State
}

// Run executes the full lifecycle for target, which is either a remote
// git URL or a local directory path. It returns the state reached; on
// error that state is StateFailed and the error describes the step that
// failed.
func (p *Pipeline) Run(ctx context.Context, target string) (domain.State, error) {
	r := &run{state: domain.StateUninitialized}

	steps := []struct {
		next domain.State
		fn   func(context.Context, *run) error
	}{
		{domain.StateLocated, p.locate(target)},
		{domain.StateBranchSelected, p.selectBranch},
		{domain.StateSynced, p.sync},
		{domain.StateArtifactChecked, p.checkArtifact},
		{domain.StateMigrationBranchReady, p.ensureMigrationBranch},
		{domain.StateExecutorInvoked, p.invokeExecutor},
		{domain.StatePushed, p.push},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return p.fail(r, err)
		}
		if err := step.fn(ctx, r); err != nil {
			return p.fail(r, err)
		}
		r.state = step.next
		p.info(r, string(step.next))
	}

	r.state = domain.StateDone
	p.reporter.Publish(report.Event{
		Repo:    r.name,
		State:   r.state,
		Level:   report.LevelSuccess,
		Message: "migration pipeline complete",
	})
	return r.state, nil
}

func (p *Pipeline) fail(r *run, err error) (domain.State, error) {
	r.state = domain.StateFailed
	p.reporter.Publish(report.Event{
		Repo:    r.name,
		State:   r.state,
		Level:   report.LevelError,
		Message: err.Error(),
	})
	return r.state, err
}

func (p *Pipeline) info(r *run, msg string) {
	p.reporter.Publish(report.Event{Repo: r.name, State: r.state, Level: report.LevelInfo, Message: msg})
}

func (p *Pipeline) warn(r *run, msg string) {
	p.reporter.Publish(report.Event{Repo: r.name, State: r.state, Level: report.LevelWarning, Message: msg})
}

// locate resolves the target into a repository name and local working
// directory. Remote targets map into the clone directory; local targets
// must already be git working copies.
func (p *Pipeline) locate(target string) func(context.Context, *run) error {
	return func(_ context.Context, r *run) error {
		if domain.IsRemoteTarget(target) {
			r.url = target
			r.name = domain.RepoNameFromTarget(target)
			r.localPath = filepath.Join(p.cloneDir, r.name)
			return nil
		}

		abs, err := filepath.Abs(target)
		if err != nil {
			return &domain.InputError{Input: target, Reason: err.Error()}
		}
		if !p.git.IsRepo(abs) {
			return &domain.InputError{Input: target, Reason: "not a git repository"}
		}
		r.name = domain.RepoNameFromTarget(abs)
		r.localPath = abs
		return nil
	}
}

// selectBranch picks the migration base branch: 0.x if it exists locally
// or remotely, then main, then whatever the repository currently has
// checked out. For remote targets that are not cloned yet the decision
// uses ls-remote so no clone happens before the branch is known.
func (p *Pipeline) selectBranch(ctx context.Context, r *run) error {
	if r.url != "" && !p.git.IsRepo(r.localPath) {
		listing, err := p.git.ListRemoteBranches(ctx, r.url)
		if err != nil {
			return fmt.Errorf("listing branches of %s: %w", r.url, err)
		}
		switch {
		case listing.Has(domain.SourceBranchPreferred):
			r.sourceBranch = domain.SourceBranchPreferred
		case listing.Has(domain.SourceBranchFallback):
			r.sourceBranch = domain.SourceBranchFallback
		}
		// Empty means clone the remote's default branch.
		return nil
	}

	listing, err := p.git.ListLocalBranches(r.localPath)
	if err != nil {
		return err
	}
	switch {
	case listing.Has(domain.SourceBranchPreferred) || p.git.RemoteBranchExists(r.localPath, domain.SourceBranchPreferred):
		r.sourceBranch = domain.SourceBranchPreferred
	case listing.Has(domain.SourceBranchFallback) || p.git.RemoteBranchExists(r.localPath, domain.SourceBranchFallback):
		r.sourceBranch = domain.SourceBranchFallback
	default:
		current, err := p.git.CurrentBranch(r.localPath)
		if err != nil {
			return err
		}
		r.sourceBranch = current
	}
	return nil
}

// sync brings the working copy up to date: clone if absent, fetch if
// present. A failing fetch gets exactly one delete-and-reclone recovery
// attempt before the repository is declared unsyncable.
func (p *Pipeline) sync(ctx context.Context, r *run) error {
	if r.url == "" {
		// Local target: nothing to transfer, just settle on the source
		// branch.
		return p.checkoutSource(r)
	}

	if !p.git.IsRepo(r.localPath) {
		if err := p.git.Clone(ctx, r.url, r.localPath, r.sourceBranch); err != nil {
			return &domain.SyncError{Repo: r.name, Err: err}
		}
		return p.checkoutSource(r)
	}

	if err := p.git.Fetch(ctx, r.localPath); err != nil {
		p.warn(r, "fetch failed, recloning: "+err.Error())
		if rmErr := os.RemoveAll(r.localPath); rmErr != nil {
			return &domain.SyncError{Repo: r.name, Err: rmErr}
		}
		if cloneErr := p.git.Clone(ctx, r.url, r.localPath, r.sourceBranch); cloneErr != nil {
			return &domain.SyncError{Repo: r.name, Err: cloneErr}
		}
	}
	return p.checkoutSource(r)
}

// checkoutSource moves the working copy onto the selected source branch
// unless it is already there, or no explicit branch was selected.
func (p *Pipeline) checkoutSource(r *run) error {
	if r.sourceBranch == "" {
		current, err := p.git.CurrentBranch(r.localPath)
		if err != nil {
			return err
		}
		r.sourceBranch = current
		return nil
	}

	current, err := p.git.CurrentBranch(r.localPath)
	if err != nil {
		return err
	}
	if current == r.sourceBranch {
		return nil
	}
	if p.git.LocalBranchExists(r.localPath, r.sourceBranch) {
		return p.git.Checkout(r.localPath, r.sourceBranch)
	}
	if p.git.RemoteBranchExists(r.localPath, r.sourceBranch) {
		return p.git.CheckoutTracking(r.localPath, r.sourceBranch)
	}
	return p.git.Checkout(r.localPath, r.sourceBranch)
}

// checkArtifact decides whether a plan must be generated. A migration
// branch that already exists is checked out first, because that is where
// a previous run's artifact lives; an existing artifact skips generation
// entirely, which is what makes reruns cheap.
func (p *Pipeline) checkArtifact(ctx context.Context, r *run) error {
	if p.git.LocalBranchExists(r.localPath, domain.MigrationBranch) {
		if err := p.git.Checkout(r.localPath, domain.MigrationBranch); err != nil {
			return err
		}
	} else if p.git.RemoteBranchExists(r.localPath, domain.MigrationBranch) {
		if err := p.git.CheckoutTracking(r.localPath, domain.MigrationBranch); err != nil {
			return err
		}
	}

	if artifact.Exists(r.localPath) {
		p.info(r, "migration plan already present, skipping generation")
		return nil
	}

	repoCtx, err := p.assembler.Assemble(r.localPath)
	if err != nil {
		return err
	}
	p.info(r, report.ContextSummary(len(repoCtx.Files), repoCtx.TotalTokens, repoCtx.MaxTokens))

	plan, err := p.generator.Generate(ctx, r.name, repoCtx.Text())
	if err != nil {
		return err
	}
	r.plan = plan
	r.planTokens = repoCtx.TotalTokens
	return nil
}

// ensureMigrationBranch puts the working copy on the fixed migration
// branch, creating it from the source branch when absent, then writes
// and commits the artifact. Every sub-step is a no-op when its work is
// already done.
func (p *Pipeline) ensureMigrationBranch(_ context.Context, r *run) error {
	current, err := p.git.CurrentBranch(r.localPath)
	if err != nil {
		return err
	}
	if current != domain.MigrationBranch {
		if p.git.LocalBranchExists(r.localPath, domain.MigrationBranch) {
			err = p.git.Checkout(r.localPath, domain.MigrationBranch)
		} else if p.git.RemoteBranchExists(r.localPath, domain.MigrationBranch) {
			err = p.git.CheckoutTracking(r.localPath, domain.MigrationBranch)
		} else {
			err = p.git.CreateBranch(r.localPath, domain.MigrationBranch)
		}
		if err != nil {
			return err
		}
	}

	if r.plan != nil {
		meta := artifact.Metadata{
			Repository:    r.name,
			Model:         r.plan.Model,
			ContextTokens: r.planTokens,
			GeneratedAt:   time.Now().UTC(),
		}
		if err := artifact.Write(r.localPath, meta, r.plan.Text); err != nil {
			return err
		}
	}

	return p.git.CommitFile(r.localPath, artifact.Filename, "Add migration plan")
}

// invokeExecutor hands the repository to the external executor. A missing
// executor degrades to a warning with a copy-pasteable fallback command;
// an installed executor that fails is terminal. Test failures are
// warnings only.
func (p *Pipeline) invokeExecutor(ctx context.Context, r *run) error {
	err := p.executor.Run(ctx, r.localPath, r.name)

	var missing *domain.ExecutorMissingError
	if errors.As(err, &missing) {
		p.warn(r, missing.Error())
		p.warn(r, "run manually: "+missing.Fallback)
		return nil
	}
	if err != nil {
		return err
	}

	if testErr := p.executor.RunTests(ctx, r.localPath); testErr != nil {
		p.warn(r, testErr.Error())
	}
	return nil
}

// push publishes the migration branch. For local targets a push failure
// is a warning, not an error: the repository may have no remote at all,
// and the migration result is still on disk.
func (p *Pipeline) push(ctx context.Context, r *run) error {
	err := p.git.Push(ctx, r.localPath, domain.MigrationBranch)
	if err != nil && r.url == "" {
		p.warn(r, "push skipped: "+err.Error())
		return nil
	}
	return err
}
