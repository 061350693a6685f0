package agent

import (
	"bytes"
	"context"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/Iron-Ham/agentcrew/internal/config"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
)

// Config controls how agent processes are started.
type Config struct {
	Command     string
	Args        []string
	ContextFlag string
	// WorkDir is the agents' working directory; empty means the current directory.
	WorkDir string
	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration
}

// ConfigFrom builds a supervisor Config from the agent configuration section.
func ConfigFrom(cfg config.AgentConfig) Config {
	return Config{
		Command:     cfg.Command,
		Args:        slices.Clone(cfg.Args),
		ContextFlag: cfg.ContextFlag,
		WorkDir:     cfg.WorkDir,
	}
}

// signalFunc delivers sig to p, or to p's process group when group is set.
type signalFunc func(p *os.Process, group bool, sig syscall.Signal) error

// Supervisor launches agent processes.
type Supervisor struct {
	cfg    Config
	logger *logging.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	signal signalFunc
}

// NewSupervisor creates a Supervisor. A nil logger discards log output.
func NewSupervisor(cfg Config, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		signal: signalProcess,
	}
}

// Launch implements Launcher.
func (s *Supervisor) Launch(opts SpawnOptions) (Process, error) {
	h, err := s.Spawn(opts)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Spawn validates opts and starts the agent. Invalid options fail before
// anything is started. If the operating system cannot create the process,
// Spawn still returns a Handle and the failure surfaces from Handle.Wait.
func (s *Supervisor) Spawn(opts SpawnOptions) (*Handle, error) {
	if opts.Name == "" {
		return nil, errors.NewValidationError("agent name is required").WithField("name")
	}
	prompt, err := os.ReadFile(opts.PromptFile)
	if err != nil {
		return nil, errors.NewValidationError("prompt file is not readable").
			WithField("prompt_file").WithValue(opts.PromptFile).WithCause(err)
	}

	workDir := s.cfg.WorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return nil, errors.NewValidationError("cannot determine working directory").WithCause(err)
		}
	}

	cmd := exec.Command(s.cfg.Command, s.buildArgs(string(prompt), opts.Context)...)
	cmd.Dir = workDir
	cmd.Env = buildEnv(workDir, opts.Env)

	h := &Handle{
		name:   opts.Name,
		group:  opts.IOMode == IOPipe,
		grace:  s.cfg.GracePeriod,
		signal: s.signal,
		logger: s.logger.WithAgent(opts.Name),
		done:   make(chan struct{}),
	}

	var stdout, stderr bytes.Buffer
	switch opts.IOMode {
	case IOPipe:
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		setProcessGroup(cmd)
	default:
		cmd.Stdin = s.stdin
		cmd.Stdout = s.stdout
		cmd.Stderr = s.stderr
	}

	if err := cmd.Start(); err != nil {
		h.err = errors.NewSpawnError("failed to start agent", err).
			WithAgent(opts.Name).WithCommand(s.cfg.Command)
		h.logger.Error("agent failed to start", "command", s.cfg.Command, "error", err.Error())
		close(h.done)
		return h, nil
	}

	h.proc = cmd.Process
	h.logger.Info("agent started", "pid", cmd.Process.Pid, "io_mode", opts.IOMode.String())

	go func() {
		waitErr := cmd.Wait()
		h.mu.Lock()
		h.outcome = Outcome{
			ExitCode: cmd.ProcessState.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			Killed:   h.killed,
		}
		outcome := h.outcome
		h.mu.Unlock()

		args := []any{"exit_code", outcome.ExitCode, "status", string(outcome.Status()), "killed", outcome.Killed}
		if waitErr != nil {
			args = append(args, "wait_error", waitErr.Error())
		}
		h.logger.Info("agent exited", args...)
		close(h.done)
	}()

	return h, nil
}

// buildArgs returns the configured args, the prompt, and the context
// flag with its value when context is non-empty.
func (s *Supervisor) buildArgs(prompt, context string) []string {
	args := make([]string, 0, len(s.cfg.Args)+3)
	args = append(args, s.cfg.Args...)
	args = append(args, prompt)
	if context != "" {
		args = append(args, s.cfg.ContextFlag, context)
	}
	return args
}

// buildEnv layers the work dir and caller overrides on top of the ambient
// environment. exec uses the last value of a duplicated key.
func buildEnv(workDir string, extra map[string]string) []string {
	env := os.Environ()
	env = append(env, EnvWorkDir+"="+workDir)
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		env = append(env, k+"="+extra[k])
	}
	return env
}

// Handle is a running (or failed-to-start) agent process.
type Handle struct {
	name   string
	group  bool
	grace  time.Duration
	signal signalFunc
	logger *logging.Logger

	proc *os.Process
	err  error
	done chan struct{}

	mu      sync.Mutex
	killed  bool
	outcome Outcome

	terminateOnce sync.Once
}

// Name returns the agent name.
func (h *Handle) Name() string {
	return h.name
}

// Process returns the OS process, or nil if it never started.
func (h *Handle) Process() *os.Process {
	return h.proc
}

// Done is closed once the process has exited (or failed to start).
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the process exits and returns its Outcome. A process
// that never started yields a *errors.SpawnError. If ctx ends first, Wait
// returns ctx.Err() and the process keeps running.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}

	if h.err != nil {
		return Outcome{}, h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome, nil
}

// Terminate sends SIGTERM and, if the process is still alive after the
// grace period, SIGKILL. It never signals a process that already exited
// and only acts on the first call.
func (h *Handle) Terminate() {
	h.terminateOnce.Do(func() {
		if h.proc == nil {
			return
		}
		select {
		case <-h.done:
			return
		default:
		}

		h.mu.Lock()
		h.killed = true
		h.mu.Unlock()

		h.logger.Info("terminating agent", "pid", h.proc.Pid)
		if err := h.signal(h.proc, h.group, syscall.SIGTERM); err != nil {
			h.logger.Debug("SIGTERM failed", "error", err.Error())
		}

		go func() {
			timer := time.NewTimer(h.grace)
			defer timer.Stop()
			select {
			case <-h.done:
			case <-timer.C:
				h.logger.Warn("agent ignored SIGTERM, killing", "grace", h.grace.String())
				if err := h.signal(h.proc, h.group, syscall.SIGKILL); err != nil {
					h.logger.Debug("SIGKILL failed", "error", err.Error())
				}
			}
		}()
	})
}
