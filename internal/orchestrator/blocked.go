package orchestrator

import (
	"context"
	"strings"

	"github.com/Iron-Ham/agentcrew/internal/agent"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/scheduler"
	"github.com/Iron-Ham/agentcrew/internal/state"
)

// handleBlocked resolves the question left by a PO or tech lead that exited
// blocked. The phase does not change; the agent runs again afterwards.
func (d *Driver) handleBlocked(ctx context.Context, phase state.Phase, role state.AgentRole, agentName string) error {
	path, ok, err := d.deps.Questions.FindLatestUnansweredFrom(agentName)
	if err == nil && !ok {
		path, ok, err = d.deps.Questions.FindLatestUnanswered()
	}
	if err != nil {
		return err
	}
	if !ok {
		return phaseError(phase, agentName, "agent exited blocked without a question", errors.ErrNoQuestion)
	}
	return d.resolveQuestion(ctx, role, path)
}

func waitingFor(route question.Route) string {
	switch route {
	case question.RouteSpawnPO:
		return state.WaitingForPO
	case question.RouteSpawnTechLead:
		return state.WaitingForTechLead
	default:
		return state.WaitingForUser
	}
}

// resolveQuestion records the blocked state, obtains an answer by the
// question's route, writes the response and clears the blocked state. For
// a developer question the asking session goes back to pending.
func (d *Driver) resolveQuestion(ctx context.Context, role state.AgentRole, path string) error {
	q, err := d.deps.Questions.Parse(path)
	if err != nil {
		return err
	}
	route := question.RouteQuestion(q)
	logger := d.logger.WithAgent(q.FromAgent).With("question", q.ID, "route", string(route))

	if err := d.state.SetBlocked(role, path, waitingFor(route)); err != nil {
		return err
	}

	_, answered, err := d.deps.Questions.ReadResponse(path)
	if err != nil {
		return err
	}
	if !answered {
		answer, err := d.answer(ctx, q, route)
		if err != nil {
			return err
		}
		if _, err := d.deps.Questions.WriteResponse(path, answer); err != nil && !errors.Is(err, errors.ErrAlreadyAnswered) {
			return err
		}
		logger.Info("question answered")
	} else {
		logger.Info("question already answered")
	}

	if err := d.state.ClearBlocked(); err != nil {
		return err
	}
	if role == state.RoleDev {
		return d.requeueSession(q.FromAgent)
	}
	return nil
}

// requeueSession moves the blocked session owned by agentName back to
// pending.
func (d *Driver) requeueSession(agentName string) error {
	area, ok := strings.CutPrefix(agentName, scheduler.AgentName(""))
	if !ok {
		return nil
	}
	s, found := d.state.Snapshot().Session(area)
	if !found || s.Status != state.SessionBlocked {
		return nil
	}
	return d.state.UpdateDevSession(area, state.SessionPending)
}

// answer obtains the text of an answer. Questions for the PO or tech lead
// are delegated to that role when enabled; a delegation that fails falls
// back to the human.
func (d *Driver) answer(ctx context.Context, q *question.Question, route question.Route) (string, error) {
	if route != question.RoutePromptUser && d.cfg.Routing.DelegateAnswers {
		answer, err := d.delegate(ctx, q, route)
		if err == nil && answer != "" {
			return answer, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		args := []any{"question", q.ID}
		if err != nil {
			args = append(args, "error", err.Error())
		}
		d.logger.Warn("delegated answer failed, asking the operator", args...)
	}
	return d.deps.Answerer.Answer(ctx, q)
}

// delegate runs the addressed role with the answer prompt. The agent may
// write the response file itself or print the answer on stdout.
func (d *Driver) delegate(ctx context.Context, q *question.Question, route question.Route) (string, error) {
	name := AgentPO
	if route == question.RouteSpawnTechLead {
		name = AgentTechLead
	}
	d.logger.Info("delegating question", "question", q.ID, "to", name)

	responseFile := question.ResponsePath(q.FilePath)
	outcome, err := d.runAgent(ctx, name, d.promptAnswer, d.contexts.Answer(q), agent.IOPipe,
		map[string]string{agent.EnvResponseFile: responseFile})
	if err != nil {
		return "", err
	}
	if outcome.Status() != agent.StatusSuccess {
		return "", errors.NewPhaseError("delegated answer did not succeed", errors.ErrPhaseFailed).
			WithAgent(name).WithExitCode(outcome.ExitCode)
	}

	if text, ok, err := d.deps.Questions.ReadResponse(q.FilePath); err == nil && ok {
		return text, nil
	}
	return strings.TrimSpace(outcome.Stdout), nil
}
