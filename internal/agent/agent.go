// Package agent supervises agent subprocesses.
//
// A Supervisor launches one external agent process per invocation, either
// attached to the controlling terminal (IOInherit) or with its output
// captured in memory (IOPipe). The returned Handle is a future for the
// process Outcome and can terminate the process: SIGTERM first, then
// SIGKILL once the grace window has passed.
package agent

import (
	"context"
	"time"
)

// IOMode selects how an agent's standard streams are wired.
type IOMode int

const (
	// IOInherit gives the agent the controlling terminal. Its outcome
	// carries no output.
	IOInherit IOMode = iota
	// IOPipe buffers stdout and stderr in memory.
	IOPipe
)

// String returns the mode name used in logs.
func (m IOMode) String() string {
	switch m {
	case IOInherit:
		return "inherit"
	case IOPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// Exit codes agents use to report how they finished.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitBlocked = 2
)

// Status is the normalized result of an agent run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusBlocked Status = "blocked"
)

// Environment variables set for agent processes.
const (
	EnvWorkDir      = "AGENTCREW_WORK_DIR"
	EnvQuestionsDir = "AGENTCREW_QUESTIONS_DIR"
	EnvAgent        = "AGENTCREW_AGENT"
	EnvArea         = "AGENTCREW_AREA"
	EnvTickets      = "AGENTCREW_TICKETS"
	EnvResponseFile = "AGENTCREW_RESPONSE_FILE"
)

// DefaultGracePeriod is how long Terminate waits after SIGTERM before
// sending SIGKILL.
const DefaultGracePeriod = 5 * time.Second

// Outcome describes how an agent process ended.
type Outcome struct {
	// ExitCode is the process exit code, or -1 when it died from a signal.
	ExitCode int
	// Stdout and Stderr are the captured streams in IOPipe mode.
	Stdout string
	Stderr string
	// Killed is true iff the supervisor initiated termination.
	Killed bool
}

// Status maps the exit code to a Status. Codes other than the three
// defined ones count as errors.
func (o Outcome) Status() Status {
	switch o.ExitCode {
	case ExitSuccess:
		return StatusSuccess
	case ExitBlocked:
		return StatusBlocked
	default:
		return StatusError
	}
}

// SpawnOptions describes one agent invocation.
type SpawnOptions struct {
	// Name identifies the agent in logs and errors, e.g. "po" or "dev-api".
	Name string
	// PromptFile is a readable document whose content becomes the prompt argument.
	PromptFile string
	// Context is appended after the context flag when non-empty.
	Context string
	IOMode  IOMode
	// Env entries override the inherited environment.
	Env map[string]string
}

// Process is a running agent as seen by the scheduler and the driver.
type Process interface {
	Name() string
	// Wait blocks until the agent exits or ctx is done.
	Wait(ctx context.Context) (Outcome, error)
	// Terminate stops the agent. It is idempotent.
	Terminate()
}

// Launcher starts agent processes.
type Launcher interface {
	Launch(opts SpawnOptions) (Process, error)
}
