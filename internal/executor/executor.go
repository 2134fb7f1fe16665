package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hochfrequenz/repo-migrator/internal/artifact"
	"github.com/hochfrequenz/repo-migrator/internal/domain"
)

// migratorNamespace is a fixed UUID namespace for deterministic session
// IDs: the same repository always gets the same session, which lets the
// executor resume prior work on a rerun.
var migratorNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// logFilename is where executor output is captured inside the repository.
const logFilename = ".migration-executor.log"

// instruction is the fixed prompt given to the executor; all
// repository-specific detail lives in the artifact file.
const instruction = "Read " + artifact.Filename + " at the repository root and apply the " +
	"migration it describes. Commit logically grouped changes as you go."

// Invoker runs the external migration executor and the optional test
// runner as subprocesses in a repository working directory.
type Invoker struct {
	command     string
	maxTurns    int
	testCommand string
}

// New creates an Invoker for the configured executor command.
func New(command string, maxTurns int, testCommand string) *Invoker {
	return &Invoker{command: command, maxTurns: maxTurns, testCommand: testCommand}
}

// SessionID returns the deterministic executor session for a repository.
func SessionID(repoName string) string {
	return uuid.NewSHA1(migratorNamespace, []byte(repoName)).String()
}

// FallbackCommand returns the literal command an operator can run by hand
// when the executor binary is not installed.
func (i *Invoker) FallbackCommand(dir string) string {
	return fmt.Sprintf("cd %s && %s --dangerously-skip-permissions -p %q", dir, i.command, instruction)
}

// Run invokes the migration executor in dir. A missing binary is reported
// as ExecutorMissingError so the caller can print the fallback command; a
// present binary exiting non-zero is terminal for the repository's task.
func (i *Invoker) Run(ctx context.Context, dir, repoName string) error {
	if _, err := exec.LookPath(i.command); err != nil {
		return &domain.ExecutorMissingError{
			Command:  i.command,
			Fallback: i.FallbackCommand(dir),
		}
	}

	logPath := filepath.Join(dir, logFilename)
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating executor log: %w", err)
	}
	defer logFile.Close()

	args := []string{
		"--print",
		"--dangerously-skip-permissions",
		"--max-turns", strconv.Itoa(i.maxTurns),
		"--session-id", SessionID(repoName),
		"-p", instruction,
	}
	cmd := exec.CommandContext(ctx, i.command, args...)
	cmd.Dir = dir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("executor failed (see %s): %w", logPath, err)
	}
	return nil
}

// RunTests runs the configured test command in dir. A failing run is
// returned as TestFailure so the caller can log it as a warning; it never
// fails the task. No configured command means nothing to do.
func (i *Invoker) RunTests(ctx context.Context, dir string) error {
	if strings.TrimSpace(i.testCommand) == "" {
		return nil
	}

	fields := strings.Fields(i.testCommand)
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return &domain.TestFailure{
			Command: i.testCommand,
			Err:     fmt.Errorf("%w\n%s", err, out),
		}
	}
	return nil
}
