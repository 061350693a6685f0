package cmd

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/agentcrew/internal/config"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/state"
)

// workspace is the project agentcrew operates on: the working directory
// and the configuration that applies to it.
type workspace struct {
	cfg     *config.Config
	baseDir string
	layout  config.Layout
}

func loadWorkspace() (*workspace, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return &workspace{
		cfg:     cfg,
		baseDir: baseDir,
		layout:  cfg.Paths.Layout(baseDir),
	}, nil
}

// openLogger returns the run logger. Disabled logging yields a logger that
// discards everything.
func (w *workspace) openLogger() (*logging.Logger, error) {
	if !w.cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(w.layout.LogDir, w.cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  w.cfg.Logging.MaxSizeMB,
		MaxBackups: w.cfg.Logging.MaxBackups,
		Compress:   w.cfg.Logging.Compress,
	})
}

// loadState opens the state file. found is false when no run has started.
func (w *workspace) loadState(logger *logging.Logger) (store *state.Store, found bool, err error) {
	store = state.NewStore(w.layout.StateFile, logger)
	found, err = store.Load()
	if err != nil {
		return nil, false, err
	}
	return store, found, nil
}

func (w *workspace) questions() *question.Store {
	return question.NewStore(w.layout.QuestionsDir)
}

// ensureNoDriver fails when a live driver holds the lock, so manual edits
// do not race a running workflow.
func (w *workspace) ensureNoDriver() error {
	if lock, held := state.IsLocked(w.layout.LockFile); held {
		return fmt.Errorf("%w: PID %d on %s, stop it first", errors.ErrLocked, lock.PID, lock.Hostname)
	}
	return nil
}
