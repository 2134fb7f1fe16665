package domain

import "fmt"

// ConfigError is a precondition failure (e.g. missing API key). It aborts
// the whole run, single-repo and batch alike.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Reason
}

// InputError marks a malformed repository target (bad URL, missing local
// path). Fatal in single-repo mode, a per-task failure in batch mode.
type InputError struct {
	Input  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid target %q: %s", e.Input, e.Reason)
}

// SyncError is a clone or fetch failure that survived the one automatic
// delete-and-reclone recovery attempt.
type SyncError struct {
	Repo string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("syncing %s: %v", e.Repo, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// GenerationError is a failed or refused LLM strategy call. Refusals are
// surfaced explicitly, never swallowed.
type GenerationError struct {
	Reason  string
	Refusal bool
}

func (e *GenerationError) Error() string {
	if e.Refusal {
		return "strategy generation refused: " + e.Reason
	}
	return "strategy generation failed: " + e.Reason
}

// ExecutorMissingError means the external migration executor binary is not
// installed. Fallback holds a literal command the operator can run manually.
type ExecutorMissingError struct {
	Command  string
	Fallback string
}

func (e *ExecutorMissingError) Error() string {
	return fmt.Sprintf("migration executor %q not found in PATH", e.Command)
}

// TestFailure records a failing test run. It is logged as a warning and
// never fails the task.
type TestFailure struct {
	Command string
	Err     error
}

func (e *TestFailure) Error() string {
	return fmt.Sprintf("test command %q failed: %v", e.Command, e.Err)
}

func (e *TestFailure) Unwrap() error { return e.Err }
