package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentcrew/internal/agent"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/orchestrator"
	"github.com/Iron-Ham/agentcrew/internal/prompt"
	"github.com/Iron-Ham/agentcrew/internal/scheduler"
	"github.com/Iron-Ham/agentcrew/internal/state"
	"github.com/Iron-Ham/agentcrew/internal/tracker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run or resume the workflow",
	Long: `Run the workflow from where it last stopped until it completes, a phase
fails, or it is interrupted.

Interrupting (Ctrl+C) terminates every running agent and keeps the state as
last recorded. Running again resumes from there.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runSequential  bool
	runMaxParallel int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runSequential, "sequential", false, "Run dev sessions one at a time")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "Maximum concurrent dev sessions (0 = unbounded)")
}

func runRun(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	cfg := ws.cfg
	if runSequential {
		cfg.Sessions.Parallel = false
	}
	if cmd.Flags().Changed("max-parallel") {
		cfg.Sessions.MaxParallel = runMaxParallel
	}

	runID := uuid.NewString()
	logger, err := ws.openLogger()
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer logger.Close()
	logger = logger.WithRun(runID)

	if err := os.MkdirAll(ws.layout.Root, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	lock, err := state.AcquireLock(ws.layout.LockFile, runID, logger)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	store, found, err := ws.loadState(logger)
	if err != nil {
		return err
	}
	if found {
		logger.Info("resuming run", "phase", string(store.Snapshot().Phase))
	}

	filter, err := tracker.NewAreaFilter(cfg.Sessions.Include, cfg.Sessions.Exclude)
	if err != nil {
		return err
	}
	trk, err := tracker.New(cfg.Tracker, ws.baseDir, logger)
	if err != nil {
		return err
	}

	questions := ws.questions()
	supervisor := agent.NewSupervisor(agent.ConfigFrom(cfg.Agent), logger)
	contexts := orchestrator.NewContextRenderer(cfg, ws.baseDir)
	sessions := scheduler.New(supervisor, questions, scheduler.Config{
		PromptFile:    cfg.Prompts.PromptPath(ws.baseDir, cfg.Prompts.Dev),
		QuestionsDir:  questions.Dir(),
		MaxParallel:   cfg.Sessions.MaxParallel,
		RenderContext: contexts.Dev,
	}, logger)

	driver := orchestrator.New(orchestrator.Deps{
		Config:     cfg,
		BaseDir:    ws.baseDir,
		State:      store,
		Questions:  questions,
		Launcher:   supervisor,
		Sessions:   sessions,
		Tracker:    trk,
		AreaFilter: filter,
		Answerer:   prompt.NewTerminalAnswerer(questions, logger),
		Logger:     logger,
		RunID:      runID,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s starting at phase %s\n", runID, store.Snapshot().Phase)

	err = driver.Run(ctx)
	switch {
	case err == nil:
		fmt.Fprintln(out, "Workflow completed.")
		return nil
	case errors.Is(err, errors.ErrCanceled), errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "Stopped at phase %s. Run again to resume.\n", store.Snapshot().Phase)
		return nil
	default:
		if errors.IsFatal(err) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Run stopped in phase %s. Fix the problem and run again to resume.\n",
				store.Snapshot().Phase)
		}
		return err
	}
}
