package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
)

// LockFileName is the default name of the driver lock within the state
// directory.
const LockFileName = "driver.lock"

// Lock is an acquired driver lock. Only one driver may work on a state
// directory at a time.
type Lock struct {
	RunID     string    `json:"run_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	path   string
	logger *logging.Logger
}

// AcquireLock creates the lock file at path. A lock held by a live process
// yields an error matching ErrLocked. A lock left behind by a dead process
// is removed and replaced.
func AcquireLock(path, runID string, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	if existing, err := ReadLock(path); err == nil {
		if isProcessAlive(existing.PID) {
			logger.Error("failed to acquire lock",
				"run_id", runID,
				"holder_pid", existing.PID,
				"holder_host", existing.Hostname,
			)
			return nil, fmt.Errorf("%w: PID %d on %s", errors.ErrLocked, existing.PID, existing.Hostname)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
		logger.Warn("stale lock cleaned", "old_pid", existing.PID, "old_run", existing.RunID)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		RunID:     runID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now().UTC(),
		path:      path,
		logger:    logger,
	}
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal lock: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := ReadLock(path); readErr == nil {
				return nil, fmt.Errorf("%w: PID %d on %s", errors.ErrLocked, existing.PID, existing.Hostname)
			}
			return nil, errors.ErrLocked
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write lock file: %w", err)
	}

	logger.Info("driver lock acquired", "run_id", runID, "pid", lock.PID)
	return lock, nil
}

// Release removes the lock file if this process still owns it. It is safe
// to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	existing, err := ReadLock(l.path)
	if err != nil || existing.PID != l.PID {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if l.logger != nil {
		l.logger.Info("driver lock released", "run_id", l.RunID)
	}
	return nil
}

// ReadLock reads the lock file at path.
func ReadLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	lock.path = path
	return &lock, nil
}

// IsLocked reports whether a live process holds the lock at path.
func IsLocked(path string) (*Lock, bool) {
	lock, err := ReadLock(path)
	if err != nil {
		return nil, false
	}
	return lock, isProcessAlive(lock.PID)
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
