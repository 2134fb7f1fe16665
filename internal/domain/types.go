package domain

// State represents the lifecycle state of a repository migration pipeline.
// States are strictly sequential; Failed is terminal and reachable from
// any state.
type State string

const (
	StateUninitialized        State = "uninitialized"
	StateLocated              State = "located"
	StateBranchSelected       State = "branch_selected"
	StateSynced               State = "synced"
	StateArtifactChecked      State = "artifact_checked"
	StateMigrationBranchReady State = "migration_branch_ready"
	StateExecutorInvoked      State = "executor_invoked"
	StatePushed               State = "pushed"
	StateDone                 State = "done"
	StateFailed               State = "failed"
)

// Outcome is the final result of one repository task in a batch run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// MigrationBranch is the fixed branch that holds migration changes.
// Branch creation keys off this constant so reruns never produce a
// duplicate or conflicting branch.
const MigrationBranch = "v1-migration"

// Source branch preference for the migration base: a branch literally
// named 0.x wins, then main, then whatever is currently checked out.
const (
	SourceBranchPreferred = "0.x"
	SourceBranchFallback  = "main"
)

// MigratedBranch marks a repository as already migrated when seen on the
// remote. The precheck skips repositories where either this or
// MigrationBranch exists remotely.
const MigratedBranch = "1.x"

// RepoTask identifies one unit of work in batch mode.
type RepoTask struct {
	Name string
	URL  string
}
