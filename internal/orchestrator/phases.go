package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Iron-Ham/agentcrew/internal/agent"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
	"github.com/Iron-Ham/agentcrew/internal/scheduler"
	"github.com/Iron-Ham/agentcrew/internal/state"
	"github.com/Iron-Ham/agentcrew/internal/tracker"
)

func phaseError(phase state.Phase, agentName, msg string, cause error) *errors.PhaseError {
	return errors.NewPhaseError(msg, cause).WithPhase(string(phase)).WithAgent(agentName)
}

// launchError reports an agent that produced no outcome. A command that
// could not be started points at the agent configuration.
func (d *Driver) launchError(phase state.Phase, agentName, role string, err error) *errors.PhaseError {
	if errors.Is(err, errors.ErrSpawnFailed) {
		return phaseError(phase, agentName,
			fmt.Sprintf("%s could not be started, check agent.command (%q)", role, d.cfg.Agent.Command), err)
	}
	return phaseError(phase, agentName, role+" could not run", err)
}

// runPO runs the product owner in the foreground. Success requires the PRD
// to exist afterwards.
func (d *Driver) runPO(ctx context.Context) error {
	const phase = state.PhasePOConversation
	logger := d.logger.WithPhase(string(phase)).WithAgent(AgentPO)

	if err := d.state.SetCurrentAgent(AgentPO); err != nil {
		return err
	}
	logger.Info("starting product owner conversation")

	outcome, err := d.runAgent(ctx, AgentPO, d.promptPO, d.contexts.PO(), agent.IOInherit, nil)
	if err != nil {
		return d.launchError(phase, AgentPO, "product owner", err)
	}

	switch outcome.Status() {
	case agent.StatusSuccess:
		if !fileExists(d.prdFile) {
			return phaseError(phase, AgentPO,
				fmt.Sprintf("product owner finished without writing %s", d.prdFile), errors.ErrPhaseFailed)
		}
		if err := d.state.ClearCurrentAgent(); err != nil {
			return err
		}
		return d.state.Transition(state.PhaseTechLeadDesign)
	case agent.StatusBlocked:
		return d.handleBlocked(ctx, phase, state.RolePO, AgentPO)
	default:
		return phaseError(phase, AgentPO, "product owner failed", errors.ErrPhaseFailed).
			WithExitCode(outcome.ExitCode)
	}
}

// runTechLead runs the tech lead in the background. Success requires the
// architecture document; the tracker's areas then become dev sessions.
func (d *Driver) runTechLead(ctx context.Context) error {
	const phase = state.PhaseTechLeadDesign
	logger := d.logger.WithPhase(string(phase)).WithAgent(AgentTechLead)

	if err := d.state.SetCurrentAgent(AgentTechLead); err != nil {
		return err
	}
	logger.Info("starting tech lead design")

	outcome, err := d.runAgent(ctx, AgentTechLead, d.promptTL, d.contexts.TechLead(), agent.IOPipe, nil)
	if err != nil {
		return d.launchError(phase, AgentTechLead, "tech lead", err)
	}
	logOutput(logger, outcome)

	switch outcome.Status() {
	case agent.StatusSuccess:
		if !fileExists(d.archFile) {
			return phaseError(phase, AgentTechLead,
				fmt.Sprintf("tech lead finished without writing %s", d.archFile), errors.ErrPhaseFailed)
		}
		if err := d.seedSessions(ctx, logger); err != nil {
			return phaseError(phase, AgentTechLead, "could not create dev sessions", err)
		}
		if err := d.state.ClearCurrentAgent(); err != nil {
			return err
		}
		return d.state.Transition(state.PhaseDevSessions)
	case agent.StatusBlocked:
		return d.handleBlocked(ctx, phase, state.RoleTechLead, AgentTechLead)
	default:
		return phaseError(phase, AgentTechLead, "tech lead failed", errors.ErrPhaseFailed).
			WithExitCode(outcome.ExitCode)
	}
}

// seedSessions creates one pending session per area with open issues.
// Areas that already have a session are left alone so a repeated design
// step does not fail.
func (d *Driver) seedSessions(ctx context.Context, logger *logging.Logger) error {
	areas, err := tracker.CollectAreas(ctx, d.deps.Tracker, d.deps.AreaFilter)
	if err != nil {
		return err
	}
	existing := d.state.Snapshot()
	var fresh []state.DevSession
	for _, a := range areas {
		if _, ok := existing.Session(a.Area); ok {
			continue
		}
		fresh = append(fresh, state.DevSession{Area: a.Area, Tickets: a.Tickets})
	}
	if err := d.state.AddDevSessions(fresh); err != nil {
		return err
	}
	for _, ds := range fresh {
		logger.Info("dev session created", logging.KeyArea, ds.Area, "tickets", ds.Tickets)
	}
	if len(areas) == 0 {
		logger.Warn("tracker reported no areas with open issues")
	}
	return nil
}

func logOutput(logger *logging.Logger, outcome agent.Outcome) {
	if outcome.Stdout != "" {
		logger.Debug("agent stdout", "output", outcome.Stdout)
	}
	if outcome.Stderr != "" {
		logger.Debug("agent stderr", "output", outcome.Stderr)
	}
}

// runDevSessions runs one batch of developer sessions and records the
// outcomes. Successful sessions complete, blocked ones go back to pending
// once their question is answered, and failed ones stay running until an
// operator retries them.
func (d *Driver) runDevSessions(ctx context.Context) error {
	const phase = state.PhaseDevSessions
	logger := d.logger.WithPhase(string(phase))

	if err := d.resolveBlockedSessions(ctx); err != nil {
		return err
	}

	snap := d.state.Snapshot()
	pending := snap.SessionsWithStatus(state.SessionPending)
	running := snap.SessionsWithStatus(state.SessionRunning)

	if len(pending) == 0 && len(running) == 0 {
		logger.Info("all dev sessions completed")
		return d.state.Transition(state.PhaseCompleted)
	}
	if len(pending) == 0 {
		return phaseError(phase, "",
			fmt.Sprintf("sessions need manual intervention: %s", joinAreas(running)),
			errors.ErrManualIntervention)
	}

	batch := make([]scheduler.Session, len(pending))
	starting := make(map[string]state.SessionStatus, len(pending))
	agents := make([]string, len(pending))
	for i, s := range pending {
		batch[i] = scheduler.Session{Area: s.Area, Tickets: s.Tickets}
		starting[s.Area] = state.SessionRunning
		agents[i] = scheduler.AgentName(s.Area)
	}
	if err := d.state.SetSessionStatuses(starting); err != nil {
		return err
	}
	if err := d.state.SetCurrentAgent(strings.Join(agents, ",")); err != nil {
		return err
	}

	logger.Info("starting dev sessions", "areas", sessionNames(pending), "parallel", d.cfg.Sessions.Parallel)
	results := d.deps.Sessions.Run(ctx, batch, scheduler.Options{Parallel: d.cfg.Sessions.Parallel})
	if err := ctx.Err(); err != nil {
		return err
	}

	finished := make(map[string]state.SessionStatus)
	var blocked []scheduler.Result
	for _, r := range results {
		switch r.Status {
		case agent.StatusSuccess:
			finished[r.Area] = state.SessionCompleted
		case agent.StatusBlocked:
			finished[r.Area] = state.SessionBlocked
			blocked = append(blocked, r)
		default:
			args := []any{logging.KeyArea, r.Area, "exit_code", r.Outcome.ExitCode}
			if r.Err != nil {
				args = append(args, "error", r.Err.Error(), "severity", errors.GetSeverity(r.Err).String())
			}
			logger.Warn("dev session failed", args...)
		}
	}
	if err := d.state.SetSessionStatuses(finished); err != nil {
		return err
	}
	if err := d.state.ClearCurrentAgent(); err != nil {
		return err
	}

	for _, r := range blocked {
		if err := d.resolveQuestion(ctx, state.RoleDev, r.QuestionFile); err != nil {
			return err
		}
	}
	return nil
}

// resolveBlockedSessions handles sessions recorded as blocked whose
// question was not resolved before the previous run stopped. A session
// without an open question goes straight back to pending.
func (d *Driver) resolveBlockedSessions(ctx context.Context) error {
	for _, s := range d.state.Snapshot().SessionsWithStatus(state.SessionBlocked) {
		path, ok, err := d.deps.Questions.FindLatestUnansweredFrom(scheduler.AgentName(s.Area))
		if err != nil {
			return err
		}
		if ok {
			if err := d.resolveQuestion(ctx, state.RoleDev, path); err != nil {
				return err
			}
			continue
		}
		if err := d.state.UpdateDevSession(s.Area, state.SessionPending); err != nil {
			return err
		}
	}
	return nil
}
