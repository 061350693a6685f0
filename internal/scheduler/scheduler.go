// Package scheduler runs developer sessions, one agent process per area,
// either all at once or one after another, and reduces their outcomes to
// per-session results. It never touches durable state.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/Iron-Ham/agentcrew/internal/agent"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/util"
)

// Session is one unit of developer work.
type Session struct {
	Area    string
	Tickets []int
}

// AgentName returns the agent name used for the session's process and
// question files.
func (s Session) AgentName() string {
	return AgentName(s.Area)
}

// AgentName returns the developer agent name for area.
func AgentName(area string) string {
	return "dev-" + area
}

// Options controls one Run.
type Options struct {
	Parallel bool
}

// Config holds what every developer invocation shares.
type Config struct {
	// PromptFile is the developer prompt document.
	PromptFile string
	// QuestionsDir is exported to agents so they know where to write questions.
	QuestionsDir string
	// MaxParallel bounds parallel fan-out. Zero means unbounded.
	MaxParallel int
	// RenderContext builds the context argument for a session. Nil uses
	// DefaultContext.
	RenderContext func(Session) string
}

// Result is the reduced outcome of one session.
type Result struct {
	Area    string
	Tickets []int
	// Status follows the exit code, with one exception: an agent that
	// exits blocked (2) without leaving an unanswered question reports
	// StatusError, since nothing could unblock it.
	Status  agent.Status
	Outcome agent.Outcome
	// QuestionFile and Route are set for blocked sessions.
	QuestionFile  string
	Route         question.Route
	NeedsTechLead bool
	// Err is set when the agent could not be launched or awaited, or when
	// it exited blocked without writing a question.
	Err error
}

// QuestionFinder is the part of the question store the scheduler consults.
type QuestionFinder interface {
	FindLatestUnanswered() (string, bool, error)
	FindLatestUnansweredFrom(agent string) (string, bool, error)
	Parse(path string) (*question.Question, error)
}

// Scheduler fans developer sessions out to agent processes.
type Scheduler struct {
	launcher  agent.Launcher
	questions QuestionFinder
	cfg       Config
	logger    *logging.Logger

	mu     sync.Mutex
	active map[string]agent.Process
}

// New creates a Scheduler.
func New(launcher agent.Launcher, questions QuestionFinder, cfg Config, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if cfg.RenderContext == nil {
		cfg.RenderContext = DefaultContext
	}
	return &Scheduler{
		launcher:  launcher,
		questions: questions,
		cfg:       cfg,
		logger:    logger.With("component", "scheduler"),
		active:    make(map[string]agent.Process),
	}
}

// DefaultContext renders the area and its tickets.
func DefaultContext(s Session) string {
	return fmt.Sprintf("You are the developer for the %q area.\nTickets: %s\n", s.Area, util.JoinInts(s.Tickets, ", ", "#"))
}

// Run executes sessions and returns one result per session in input order.
// Cancelling ctx terminates every running agent; sessions not yet started
// are reported as errors carrying the context error.
func (s *Scheduler) Run(ctx context.Context, sessions []Session, opts Options) []Result {
	results := make([]Result, len(sessions))
	if len(sessions) == 0 {
		return results
	}

	s.logger.Info("running dev sessions", "count", len(sessions), "parallel", opts.Parallel)

	if !opts.Parallel {
		for i, sess := range sessions {
			results[i] = s.runSession(ctx, sess)
		}
		return results
	}

	p := pool.New()
	if s.cfg.MaxParallel > 0 {
		p = p.WithMaxGoroutines(s.cfg.MaxParallel)
	}
	for i, sess := range sessions {
		p.Go(func() {
			results[i] = s.runSession(ctx, sess)
		})
	}
	p.Wait()

	return results
}

// TerminateAll stops every running session agent.
func (s *Scheduler) TerminateAll() {
	s.mu.Lock()
	procs := make([]agent.Process, 0, len(s.active))
	for _, p := range s.active {
		procs = append(procs, p)
	}
	s.mu.Unlock()

	for _, p := range procs {
		p.Terminate()
	}
}

func (s *Scheduler) track(name string, p agent.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		delete(s.active, name)
		return
	}
	s.active[name] = p
}

func (s *Scheduler) runSession(ctx context.Context, sess Session) Result {
	name := sess.AgentName()
	logger := s.logger.WithArea(sess.Area).WithAgent(name)
	res := Result{
		Area:    sess.Area,
		Tickets: sess.Tickets,
		Status:  agent.StatusError,
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	proc, err := s.launcher.Launch(agent.SpawnOptions{
		Name:       name,
		PromptFile: s.cfg.PromptFile,
		Context:    s.cfg.RenderContext(sess),
		IOMode:     agent.IOPipe,
		Env: map[string]string{
			agent.EnvAgent:        name,
			agent.EnvArea:         sess.Area,
			agent.EnvTickets:      util.JoinInts(sess.Tickets, ",", ""),
			agent.EnvQuestionsDir: s.cfg.QuestionsDir,
		},
	})
	if err != nil {
		logger.Error("failed to launch session", "error", err.Error())
		res.Err = err
		return res
	}

	s.track(name, proc)
	defer s.track(name, nil)

	outcome, err := proc.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		proc.Terminate()
		// The process is gone or going; collect what it left behind.
		outcome, _ = proc.Wait(context.WithoutCancel(ctx))
		res.Outcome = outcome
		res.Err = ctx.Err()
		logger.Warn("session canceled", "killed", outcome.Killed)
		return res
	}
	if err != nil {
		if errors.Is(err, errors.ErrSpawnFailed) {
			logger.Error("session could not start", "error", err.Error())
		} else {
			logger.Error("session failed", "error", err.Error())
		}
		res.Err = err
		return res
	}

	res.Outcome = outcome
	res.Status = outcome.Status()

	if res.Status == agent.StatusBlocked {
		s.resolveBlocked(&res, name, logger)
	}

	logger.Info("session finished",
		"status", string(res.Status),
		"exit_code", outcome.ExitCode,
		"question", res.QuestionFile,
	)
	return res
}

// resolveBlocked attaches the session's pending question to res. A blocked
// exit with no question left behind is downgraded to an error.
func (s *Scheduler) resolveBlocked(res *Result, name string, logger *logging.Logger) {
	path, ok, err := s.questions.FindLatestUnansweredFrom(name)
	if err == nil && !ok {
		path, ok, err = s.questions.FindLatestUnanswered()
	}
	if err != nil {
		logger.Error("failed to look up question", "error", err.Error())
		res.Status = agent.StatusError
		res.Err = err
		return
	}
	if !ok {
		logger.Warn("session blocked without a question")
		res.Status = agent.StatusError
		res.Err = errors.NewSessionError("blocked without a question", errors.ErrNoQuestion).
			WithArea(res.Area).WithSeverity(errors.SeverityWarning)
		return
	}

	q, err := s.questions.Parse(path)
	if err != nil {
		res.Status = agent.StatusError
		res.Err = err
		return
	}
	res.QuestionFile = path
	res.Route = question.RouteQuestion(q)
	res.NeedsTechLead = res.Route == question.RouteSpawnTechLead
}
