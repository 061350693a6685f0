package state

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
	"github.com/Iron-Ham/agentcrew/internal/util"
)

// Store owns the orchestration state and its file. It is safe for
// concurrent use.
type Store struct {
	path   string
	logger *logging.Logger
	now    func() time.Time

	mu    sync.RWMutex
	state OrchestrationState
}

// NewStore returns a store backed by path holding the initial state. Call
// Load to pick up an existing file.
func NewStore(path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	s := &Store{
		path:   path,
		logger: logger.With("component", "state"),
		now:    time.Now,
	}
	s.state = Initial(s.now())
	return s
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state file. It reports false when no file exists, in which
// case the store holds the initial state. Damaged files never stop a run: a
// file that cannot be decoded is moved aside to state.json.corrupt-<time>
// and the workflow starts over, and a decoded state that breaks an
// invariant is repaired. Only failing to move a damaged file aside yields an
// error, matching ErrStateCorrupted.
func (s *Store) Load() (bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.state = Initial(s.now())
		s.mu.Unlock()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read state file: %w", err)
	}

	var st OrchestrationState
	if err := json.Unmarshal(data, &st); err != nil {
		return false, s.setAside(err)
	}
	if notes := st.Repair(); len(notes) > 0 {
		s.logger.Warn("state file repaired", "path", s.path, "changes", notes)
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.logger.Debug("state loaded",
		"phase", string(st.Phase),
		"sessions", len(st.DevSessions),
		"blocked", st.Blocked.IsBlocked,
	)
	return true, nil
}

// CorruptSuffix prefixes the timestamp appended to a state file that could
// not be decoded.
const CorruptSuffix = ".corrupt-"

// setAside moves an undecodable state file out of the way and resets the
// store to the initial state.
func (s *Store) setAside(decodeErr error) error {
	aside := s.path + CorruptSuffix + s.now().UTC().Format("20060102T150405Z")
	if err := os.Rename(s.path, aside); err != nil {
		return fmt.Errorf("%w: %s: %v (could not move it aside: %v)", errors.ErrStateCorrupted, s.path, decodeErr, err)
	}
	s.logger.Warn("state file unreadable, starting over",
		"path", s.path,
		"moved_to", aside,
		"error", decodeErr.Error(),
	)

	s.mu.Lock()
	s.state = Initial(s.now())
	s.mu.Unlock()
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() OrchestrationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update applies fn to a copy of the state. The result is validated,
// stamped and written to disk before it replaces the in-memory state. If fn
// or the write fails, the previous state is kept.
func (s *Store) Update(fn func(*OrchestrationState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return errors.Wrap(err, "invalid state")
	}
	next.LastUpdated = s.now().UTC()

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := util.AtomicWriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	s.state = next
	return nil
}

// Save persists the current state unchanged apart from the timestamp.
func (s *Store) Save() error {
	return s.Update(func(*OrchestrationState) error { return nil })
}

// Transition moves the workflow to the phase immediately after the current
// one. Any other target is rejected and the state is left untouched.
func (s *Store) Transition(to Phase) error {
	var from Phase
	err := s.Update(func(st *OrchestrationState) error {
		from = st.Phase
		if !IsValidTransition(st.Phase, to) {
			return errors.NewPhaseError(
				fmt.Sprintf("cannot move from %s to %s", st.Phase, to),
				errors.ErrInvalidTransition,
			).WithPhase(string(st.Phase))
		}
		st.Phase = to
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("phase transition", "from", string(from), "to", string(to))
	return nil
}

// SetCurrentAgent records the agent that is about to run.
func (s *Store) SetCurrentAgent(name string) error {
	return s.Update(func(st *OrchestrationState) error {
		st.CurrentAgent = name
		return nil
	})
}

// ClearCurrentAgent records that no agent is running.
func (s *Store) ClearCurrentAgent() error {
	return s.SetCurrentAgent("")
}

// SetBlocked records that agent is waiting on the question at questionFile
// to be answered by waitingFor.
func (s *Store) SetBlocked(agent AgentRole, questionFile, waitingFor string) error {
	err := s.Update(func(st *OrchestrationState) error {
		st.Blocked = BlockedState{
			IsBlocked:    true,
			BlockedAgent: agent,
			QuestionFile: questionFile,
			WaitingFor:   waitingFor,
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("workflow blocked",
		"blocked_agent", string(agent),
		"question", questionFile,
		"waiting_for", waitingFor,
	)
	return nil
}

// ClearBlocked resets the blocked marker.
func (s *Store) ClearBlocked() error {
	return s.Update(func(st *OrchestrationState) error {
		st.Blocked = BlockedState{}
		return nil
	})
}

// AddDevSession appends a pending session for area.
func (s *Store) AddDevSession(area string, tickets []int) error {
	return s.AddDevSessions([]DevSession{{Area: area, Tickets: tickets}})
}

// AddDevSessions appends a pending session for each entry in one write.
// Status is ignored. If any area already has a session nothing is added.
func (s *Store) AddDevSessions(sessions []DevSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return s.Update(func(st *OrchestrationState) error {
		for _, ds := range sessions {
			if st.sessionIndex(ds.Area) >= 0 {
				return errors.NewSessionError("cannot add session", errors.ErrSessionExists).WithArea(ds.Area)
			}
			st.DevSessions = append(st.DevSessions, DevSession{
				Area:    ds.Area,
				Tickets: slices.Clone(ds.Tickets),
				Status:  SessionPending,
			})
		}
		return nil
	})
}

// UpdateDevSession sets the status of the session for area.
func (s *Store) UpdateDevSession(area string, status SessionStatus) error {
	return s.SetSessionStatuses(map[string]SessionStatus{area: status})
}

// SetSessionStatuses sets several session statuses in one write. Every area
// must exist.
func (s *Store) SetSessionStatuses(statuses map[string]SessionStatus) error {
	return s.Update(func(st *OrchestrationState) error {
		for area, status := range statuses {
			i := st.sessionIndex(area)
			if i < 0 {
				return errors.NewSessionError("cannot update session", errors.ErrSessionNotFound).WithArea(area)
			}
			st.DevSessions[i].Status = status
		}
		return nil
	})
}

// RemoveDevSession deletes the session for area.
func (s *Store) RemoveDevSession(area string) error {
	return s.Update(func(st *OrchestrationState) error {
		i := st.sessionIndex(area)
		if i < 0 {
			return errors.NewSessionError("cannot remove session", errors.ErrSessionNotFound).WithArea(area)
		}
		st.DevSessions = slices.Delete(st.DevSessions, i, i+1)
		return nil
	})
}

// ResetStaleSessions returns sessions left running by a driver that exited
// without recording their outcome to pending. It returns the reset areas.
// Callers must hold the driver lock so no live session is reset.
func (s *Store) ResetStaleSessions() ([]string, error) {
	var reset []string
	err := s.Update(func(st *OrchestrationState) error {
		for i := range st.DevSessions {
			if st.DevSessions[i].Status == SessionRunning {
				st.DevSessions[i].Status = SessionPending
				reset = append(reset, st.DevSessions[i].Area)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(reset) > 0 {
		s.logger.Warn("reset stale running sessions", "areas", reset)
	}
	return reset, nil
}
