package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hochfrequenz/repo-migrator/internal/assembler"
	"github.com/hochfrequenz/repo-migrator/internal/batch"
	"github.com/hochfrequenz/repo-migrator/internal/config"
	"github.com/hochfrequenz/repo-migrator/internal/domain"
	"github.com/hochfrequenz/repo-migrator/internal/executor"
	"github.com/hochfrequenz/repo-migrator/internal/gitops"
	"github.com/hochfrequenz/repo-migrator/internal/notify"
	"github.com/hochfrequenz/repo-migrator/internal/pipeline"
	"github.com/hochfrequenz/repo-migrator/internal/report"
	"github.com/hochfrequenz/repo-migrator/internal/runstore"
	"github.com/hochfrequenz/repo-migrator/internal/strategy"
	"github.com/hochfrequenz/repo-migrator/internal/tokenizer"
)

var (
	registrySource   string
	batchConcurrency int
	schedulePath     string
	statusRunCount   int
)

func init() {
	migrateCmd := &cobra.Command{
		Use:   "migrate TARGET",
		Short: "Migrate a single repository (URL or local path)",
		Args:  cobra.ExactArgs(1),
		RunE:  runMigrate,
	}
	rootCmd.AddCommand(migrateCmd)

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Migrate all repositories in a registry",
		RunE:  runBatch,
	}
	batchCmd.Flags().StringVar(&registrySource, "registry", "", "registry JSON file or URL (required)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent repositories (default from config)")
	batchCmd.MarkFlagRequired("registry")
	rootCmd.AddCommand(batchCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded migration state per repository",
		RunE:  runStatus,
	}
	statusCmd.Flags().IntVar(&statusRunCount, "runs", 5, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run batches on a cron schedule until interrupted",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().StringVar(&schedulePath, "schedule", "", "schedule TOML file (required)")
	scheduleCmd.MarkFlagRequired("schedule")
	rootCmd.AddCommand(scheduleCmd)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ResolveAPIKey(apiKeyFlag); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildPipeline wires the full single-repository pipeline from config.
// The strategy client is created once and shared by all concurrent tasks.
func buildPipeline(cfg *config.Config, reporter report.Reporter) (*pipeline.Pipeline, *gitops.Client) {
	git := gitops.New()
	asm := assembler.New(tokenizer.New(), cfg.General.MaxContextTokens)
	gen := strategy.New(strategy.NewClient(cfg.LLM.APIKey), cfg.LLM.Model, cfg.LLM.MaxTokens)
	exe := executor.New(cfg.Executor.Command, cfg.Executor.MaxTurns, cfg.Executor.TestCommand)
	return pipeline.New(git, asm, gen, exe, reporter, cfg.General.CloneDir), git
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	return notify.NewMultiNotifier(
		notify.NewDesktopNotifier(cfg.Notifications.Desktop),
		notify.NewSlackNotifier(cfg.Notifications.SlackWebhook),
	)
}

func interruptibleContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	reporter := report.NewConsole(os.Stdout)
	p, _ := buildPipeline(cfg, reporter)

	runID, err := store.BeginRun("single", "")
	if err != nil {
		return err
	}

	target := args[0]
	state, runErr := p.Run(ctx, target)

	rr := runstore.RepoRun{
		Repo:  domain.RepoNameFromTarget(target),
		State: state,
	}
	if domain.IsRemoteTarget(target) {
		rr.URL = target
	}
	if runErr != nil {
		rr.Error = runErr.Error()
		recordRepoRun(reporter, store, runID, rr)
		finishRun(reporter, store, runID, 0, 1, 0)
		buildNotifier(cfg).Send(notify.RepoFailed(rr.Repo, runErr))
		return runErr
	}
	recordRepoRun(reporter, store, runID, rr)
	finishRun(reporter, store, runID, 1, 0, 0)
	return nil
}

// Run history is best effort: a broken database must not fail a
// migration, but it must not fail silently either, or status output
// quietly goes stale.
func recordRepoRun(reporter report.Reporter, store *runstore.Store, runID string, rr runstore.RepoRun) {
	if err := store.RecordRepoRun(runID, rr); err != nil {
		reporter.Publish(report.Event{
			Repo:    rr.Repo,
			Level:   report.LevelWarning,
			Message: "recording run history: " + err.Error(),
		})
	}
}

func finishRun(reporter report.Reporter, store *runstore.Store, runID string, completed, failed, skipped int) {
	if err := store.FinishRun(runID, completed, failed, skipped); err != nil {
		reporter.Publish(report.Event{
			Level:   report.LevelWarning,
			Message: "recording run history: " + err.Error(),
		})
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchConcurrency > 0 {
		cfg.General.Concurrency = batchConcurrency
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	return executeBatch(ctx, cfg, registrySource)
}

// executeBatch runs one full batch: load registry, precheck, run, record,
// notify. Per-task failures are part of the aggregate result, never an
// error return; only precondition failures abort.
func executeBatch(ctx context.Context, cfg *config.Config, registry string) error {
	tasks, err := batch.LoadRegistry(ctx, registry)
	if err != nil {
		return err
	}

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.BeginRun("batch", registry)
	if err != nil {
		return err
	}

	reporter := report.NewConsole(os.Stdout)
	p, git := buildPipeline(cfg, reporter)
	runner := batch.NewRunner(
		recordingRunner{pipeline: p, store: store, reporter: reporter, runID: runID},
		recordingPrecheck{precheck: batch.NewPrecheck(git), store: store, reporter: reporter, runID: runID},
		reporter,
		cfg.General.Concurrency,
	)

	result := runner.Run(ctx, tasks)

	finishRun(reporter, store, runID, result.Completed, result.Failed, result.Skipped)
	buildNotifier(cfg).Send(notify.BatchCompleted(result.Completed, result.Failed, result.Skipped, result.Elapsed))
	return nil
}

// recordingRunner wraps the pipeline so every task outcome lands in the
// run store as it completes.
type recordingRunner struct {
	pipeline batch.TaskRunner
	store    *runstore.Store
	reporter report.Reporter
	runID    string
}

func (r recordingRunner) Run(ctx context.Context, target string) (domain.State, error) {
	state, err := r.pipeline.Run(ctx, target)
	rr := runstore.RepoRun{
		Repo:  domain.RepoNameFromTarget(target),
		URL:   target,
		State: state,
	}
	if err != nil {
		rr.Error = err.Error()
	}
	recordRepoRun(r.reporter, r.store, r.runID, rr)
	return state, err
}

// recordingPrecheck records a run entry for every repository the precheck
// skips, so status queries see skipped repositories too.
type recordingPrecheck struct {
	precheck *batch.Precheck
	store    *runstore.Store
	reporter report.Reporter
	runID    string
}

func (r recordingPrecheck) ShouldSkip(ctx context.Context, url string) bool {
	if !r.precheck.ShouldSkip(ctx, url) {
		return false
	}
	recordRepoRun(r.reporter, r.store, r.runID, runstore.RepoRun{
		Repo:  domain.RepoNameFromTarget(url),
		URL:   url,
		State: domain.StateDone,
	})
	return true
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPathOrDefault())
	if err != nil {
		return err
	}

	store, err := runstore.New(cfg.General.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	states, err := store.LatestRepoStates()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPOSITORY\tSTATE\tWHEN\tERROR")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Repo, s.State, s.FinishedAt.Format("2006-01-02 15:04"), s.Error)
	}
	w.Flush()

	runs, err := store.RecentRuns(statusRunCount)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tKIND\tSTARTED\tCOMPLETED\tFAILED\tSKIPPED")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
				r.ID[:8], r.Kind, r.StartedAt.Format("2006-01-02 15:04"), r.Completed, r.Failed, r.Skipped)
		}
		w.Flush()
	}
	return nil
}

func configPathOrDefault() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	schedCfg, err := batch.LoadScheduleConfig(schedulePath)
	if err != nil {
		return err
	}
	if len(schedCfg.Batches) == 0 {
		return fmt.Errorf("no batches defined in %s", schedulePath)
	}

	sched, err := batch.NewScheduler(schedCfg.Batches)
	if err != nil {
		return err
	}

	ctx, cancel := interruptibleContext()
	defer cancel()

	go func() {
		<-ctx.Done()
		sched.Stop()
	}()

	for _, name := range sched.Entries() {
		fmt.Printf("scheduled batch %s, next run %s\n", name, sched.NextRun(name).Format("2006-01-02 15:04"))
	}

	sched.Start(func(entry batch.ScheduleEntry) error {
		runCfg := *cfg
		runCfg.General.Concurrency = entry.Concurrency
		return executeBatch(ctx, &runCfg, entry.Registry)
	})
	return nil
}
