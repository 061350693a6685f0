// Package orchestrator drives the workflow through its phases: the product
// owner conversation, the tech lead design and the developer sessions. It is
// the only component that knows about more than one phase. Every step is
// recorded in the state store before the next begins, so a run can stop at
// any point and resume from the last completed step.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/agentcrew/internal/agent"
	"github.com/Iron-Ham/agentcrew/internal/config"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
	"github.com/Iron-Ham/agentcrew/internal/prompt"
	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/scheduler"
	"github.com/Iron-Ham/agentcrew/internal/state"
	"github.com/Iron-Ham/agentcrew/internal/tracker"
)

// Agent names of the single-instance roles.
const (
	AgentPO       = "po"
	AgentTechLead = "tech_lead"
)

// QuestionStore is the part of the question store the driver uses.
type QuestionStore interface {
	Dir() string
	Parse(path string) (*question.Question, error)
	FindLatestUnanswered() (string, bool, error)
	FindLatestUnansweredFrom(agent string) (string, bool, error)
	ReadResponse(questionPath string) (string, bool, error)
	WriteResponse(questionPath, text string) (string, error)
}

// SessionRunner runs developer sessions.
type SessionRunner interface {
	Run(ctx context.Context, sessions []scheduler.Session, opts scheduler.Options) []scheduler.Result
	TerminateAll()
}

// Deps are the collaborators of a Driver.
type Deps struct {
	Config    *config.Config
	BaseDir   string
	State     *state.Store
	Questions QuestionStore
	Launcher  agent.Launcher
	Sessions  SessionRunner
	Tracker   tracker.Tracker
	// AreaFilter limits which tracker areas become sessions. Nil keeps all.
	AreaFilter *tracker.AreaFilter
	Answerer   prompt.Answerer
	Logger     *logging.Logger
	RunID      string
}

// Driver runs the workflow to completion.
type Driver struct {
	deps     Deps
	cfg      *config.Config
	state    *state.Store
	contexts *ContextRenderer
	logger   *logging.Logger

	prdFile      string
	archFile     string
	promptPO     string
	promptTL     string
	promptAnswer string
}

// New creates a Driver.
func New(deps Deps) *Driver {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	if deps.RunID != "" {
		logger = logger.WithRun(deps.RunID)
	}
	cfg := deps.Config
	return &Driver{
		deps:         deps,
		cfg:          cfg,
		state:        deps.State,
		contexts:     NewContextRenderer(cfg, deps.BaseDir),
		logger:       logger.With("component", "driver"),
		prdFile:      cfg.Paths.ResolvePRD(deps.BaseDir),
		archFile:     cfg.Paths.ResolveArchitecture(deps.BaseDir),
		promptPO:     cfg.Prompts.PromptPath(deps.BaseDir, cfg.Prompts.PO),
		promptTL:     cfg.Prompts.PromptPath(deps.BaseDir, cfg.Prompts.TechLead),
		promptAnswer: cfg.Prompts.PromptPath(deps.BaseDir, cfg.Prompts.Answer),
	}
}

// Run advances the workflow until it completes, a phase fails or ctx is
// canceled. On cancellation every running agent is terminated and the
// state is left as last recorded.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.resume(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return d.canceled(err)
		}

		phase := d.state.Snapshot().Phase
		d.logger.Debug("driving phase", logging.KeyPhase, string(phase))

		var err error
		switch phase {
		case state.PhaseInit:
			err = d.state.Transition(state.PhasePOConversation)
		case state.PhasePOConversation:
			err = d.runPO(ctx)
		case state.PhaseTechLeadDesign:
			err = d.runTechLead(ctx)
		case state.PhaseDevSessions:
			err = d.runDevSessions(ctx)
		case state.PhaseCompleted:
			d.logger.Info("workflow completed")
			return nil
		default:
			err = errors.NewPhaseError(fmt.Sprintf("unknown phase %q", phase), errors.ErrInvalidTransition)
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return d.canceled(ctxErr)
			}
			d.logger.Error("phase failed", logging.KeyPhase, string(phase), "error", err.Error())
			return err
		}
	}
}

func (d *Driver) canceled(err error) error {
	d.deps.Sessions.TerminateAll()
	d.logger.Warn("run canceled", "phase", string(d.state.Snapshot().Phase))
	return errors.Join(errors.ErrCanceled, err)
}

// resume prepares a loaded state: stale running sessions go back to
// pending and a pending blocked question is resolved first.
func (d *Driver) resume(ctx context.Context) error {
	if d.cfg.Sessions.ResetStaleOnResume {
		if _, err := d.state.ResetStaleSessions(); err != nil {
			return err
		}
	}

	blocked := d.state.Snapshot().Blocked
	if !blocked.IsBlocked {
		return nil
	}
	d.logger.Info("resuming blocked workflow",
		"blocked_agent", string(blocked.BlockedAgent),
		"question", blocked.QuestionFile,
	)

	if _, err := os.Stat(blocked.QuestionFile); os.IsNotExist(err) {
		d.logger.Warn("blocking question no longer exists", "question", blocked.QuestionFile)
		return d.state.ClearBlocked()
	}
	return d.resolveQuestion(ctx, blocked.BlockedAgent, blocked.QuestionFile)
}

// runAgent launches a single-role agent and waits for it.
func (d *Driver) runAgent(ctx context.Context, name, promptFile, agentContext string, mode agent.IOMode, extraEnv map[string]string) (agent.Outcome, error) {
	env := map[string]string{
		agent.EnvAgent:        name,
		agent.EnvQuestionsDir: d.deps.Questions.Dir(),
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	proc, err := d.deps.Launcher.Launch(agent.SpawnOptions{
		Name:       name,
		PromptFile: promptFile,
		Context:    agentContext,
		IOMode:     mode,
		Env:        env,
	})
	if err != nil {
		return agent.Outcome{}, err
	}

	outcome, err := proc.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		proc.Terminate()
		// Return only once the agent is gone, SIGKILL included.
		outcome, _ = proc.Wait(context.WithoutCancel(ctx))
		d.logger.Warn("agent canceled", logging.KeyAgent, name, "killed", outcome.Killed)
		return agent.Outcome{}, ctx.Err()
	}
	return outcome, err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sessionNames(sessions []state.DevSession) []string {
	names := make([]string, len(sessions))
	for i, s := range sessions {
		names[i] = s.Area
	}
	return names
}

func joinAreas(sessions []state.DevSession) string {
	return strings.Join(sessionNames(sessions), ", ")
}
