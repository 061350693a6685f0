// Package state holds the durable orchestration state: the current phase,
// the blocked-question marker, the developer sessions and the agent that
// is currently running.
//
// The state is owned by a Store. Every mutation is applied to a copy,
// validated and written to disk before it becomes visible, so the file on
// disk always reflects the last completed step.
package state

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Phase is a stage of the workflow.
type Phase string

const (
	PhaseInit           Phase = "init"
	PhasePOConversation Phase = "po_conversation"
	PhaseTechLeadDesign Phase = "tech_lead_design"
	PhaseDevSessions    Phase = "dev_sessions"
	PhaseCompleted      Phase = "completed"
)

var phaseOrder = []Phase{
	PhaseInit,
	PhasePOConversation,
	PhaseTechLeadDesign,
	PhaseDevSessions,
	PhaseCompleted,
}

// Phases returns every phase in workflow order.
func Phases() []Phase {
	return slices.Clone(phaseOrder)
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return slices.Contains(phaseOrder, p)
}

// Next returns the phase that follows p. Completed has no successor.
func (p Phase) Next() (Phase, bool) {
	i := slices.Index(phaseOrder, p)
	if i < 0 || i == len(phaseOrder)-1 {
		return "", false
	}
	return phaseOrder[i+1], true
}

// IsValidTransition reports whether to is the immediate successor of from.
func IsValidTransition(from, to Phase) bool {
	next, ok := from.Next()
	return ok && next == to
}

// SessionStatus is the lifecycle status of a developer session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionBlocked   SessionStatus = "blocked"
	SessionCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionRunning, SessionBlocked, SessionCompleted:
		return true
	}
	return false
}

// AgentRole identifies which kind of agent is blocked.
type AgentRole string

const (
	RolePO       AgentRole = "po"
	RoleTechLead AgentRole = "tech_lead"
	RoleDev      AgentRole = "dev"
)

// Valid reports whether r is a known role.
func (r AgentRole) Valid() bool {
	switch r {
	case RolePO, RoleTechLead, RoleDev:
		return true
	}
	return false
}

// Waiting-for values of a BlockedState.
const (
	WaitingForUser     = "user"
	WaitingForPO       = "po"
	WaitingForTechLead = "tech_lead"
)

// DevSession is one area of parallel developer work.
type DevSession struct {
	Area    string        `json:"area"`
	Tickets []int         `json:"tickets"`
	Status  SessionStatus `json:"status"`
}

func (d DevSession) validate() error {
	if d.Area == "" {
		return fmt.Errorf("dev session area must not be empty")
	}
	if len(d.Tickets) == 0 {
		return fmt.Errorf("dev session %q has no tickets", d.Area)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("dev session %q has unknown status %q", d.Area, d.Status)
	}
	return nil
}

// BlockedState records the question the workflow is waiting on. Empty
// strings are stored as JSON null.
type BlockedState struct {
	IsBlocked    bool
	BlockedAgent AgentRole
	QuestionFile string
	WaitingFor   string
}

type blockedJSON struct {
	IsBlocked    bool    `json:"isBlocked"`
	BlockedAgent *string `json:"blockedAgent"`
	QuestionFile *string `json:"questionFile"`
	WaitingFor   *string `json:"waitingFor"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// MarshalJSON implements json.Marshaler.
func (b BlockedState) MarshalJSON() ([]byte, error) {
	return json.Marshal(blockedJSON{
		IsBlocked:    b.IsBlocked,
		BlockedAgent: nullable(string(b.BlockedAgent)),
		QuestionFile: nullable(b.QuestionFile),
		WaitingFor:   nullable(b.WaitingFor),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *BlockedState) UnmarshalJSON(data []byte) error {
	var raw blockedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = BlockedState{
		IsBlocked:    raw.IsBlocked,
		BlockedAgent: AgentRole(deref(raw.BlockedAgent)),
		QuestionFile: deref(raw.QuestionFile),
		WaitingFor:   deref(raw.WaitingFor),
	}
	return nil
}

func (b BlockedState) validate() error {
	set := b.BlockedAgent != "" && b.QuestionFile != "" && b.WaitingFor != ""
	none := b.BlockedAgent == "" && b.QuestionFile == "" && b.WaitingFor == ""

	switch {
	case b.IsBlocked && !set:
		return fmt.Errorf("blocked state is missing agent, question or recipient")
	case !b.IsBlocked && !none:
		return fmt.Errorf("unblocked state must not name an agent, question or recipient")
	case b.IsBlocked && !b.BlockedAgent.Valid():
		return fmt.Errorf("unknown blocked agent %q", b.BlockedAgent)
	case b.IsBlocked && !slices.Contains([]string{WaitingForUser, WaitingForPO, WaitingForTechLead}, b.WaitingFor):
		return fmt.Errorf("unknown waiting-for recipient %q", b.WaitingFor)
	}
	return nil
}

// OrchestrationState is the root aggregate persisted in state.json.
type OrchestrationState struct {
	Phase        Phase
	Blocked      BlockedState
	DevSessions  []DevSession
	CurrentAgent string
	LastUpdated  time.Time
}

type stateJSON struct {
	Phase        Phase        `json:"phase"`
	Blocked      BlockedState `json:"blocked"`
	DevSessions  []DevSession `json:"devSessions"`
	CurrentAgent *string      `json:"currentAgent"`
	LastUpdated  time.Time    `json:"lastUpdated"`
}

// MarshalJSON implements json.Marshaler.
func (s OrchestrationState) MarshalJSON() ([]byte, error) {
	sessions := s.DevSessions
	if sessions == nil {
		sessions = []DevSession{}
	}
	return json.Marshal(stateJSON{
		Phase:        s.Phase,
		Blocked:      s.Blocked,
		DevSessions:  sessions,
		CurrentAgent: nullable(s.CurrentAgent),
		LastUpdated:  s.LastUpdated,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *OrchestrationState) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = OrchestrationState{
		Phase:        raw.Phase,
		Blocked:      raw.Blocked,
		DevSessions:  raw.DevSessions,
		CurrentAgent: deref(raw.CurrentAgent),
		LastUpdated:  raw.LastUpdated,
	}
	return nil
}

// Initial returns the state of a workflow that has not started.
func Initial(now time.Time) OrchestrationState {
	return OrchestrationState{
		Phase:       PhaseInit,
		LastUpdated: now,
	}
}

// Clone returns a deep copy of s.
func (s OrchestrationState) Clone() OrchestrationState {
	c := s
	if s.DevSessions != nil {
		c.DevSessions = make([]DevSession, len(s.DevSessions))
		for i, d := range s.DevSessions {
			d.Tickets = slices.Clone(d.Tickets)
			c.DevSessions[i] = d
		}
	}
	return c
}

// Validate checks every invariant of the aggregate.
func (s OrchestrationState) Validate() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if err := s.Blocked.validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.DevSessions))
	for _, d := range s.DevSessions {
		if err := d.validate(); err != nil {
			return err
		}
		if seen[d.Area] {
			return fmt.Errorf("duplicate dev session for area %q", d.Area)
		}
		seen[d.Area] = true
	}
	return nil
}

// Repair brings a decoded state back within its invariants and describes
// every change it made. An unknown phase resumes at dev_sessions when
// sessions exist and at init otherwise. An incomplete or unknown blocked
// record becomes the unblocked record. Sessions without an area or tickets
// and repeated areas are dropped, and unknown statuses become pending.
func (s *OrchestrationState) Repair() []string {
	var notes []string

	if !s.Phase.Valid() {
		to := PhaseInit
		if len(s.DevSessions) > 0 {
			to = PhaseDevSessions
		}
		notes = append(notes, fmt.Sprintf("unknown phase %q reset to %s", s.Phase, to))
		s.Phase = to
	}

	if err := s.Blocked.validate(); err != nil {
		notes = append(notes, fmt.Sprintf("blocked state cleared: %v", err))
		s.Blocked = BlockedState{}
	}

	kept := s.DevSessions[:0]
	seen := make(map[string]bool, len(s.DevSessions))
	for _, d := range s.DevSessions {
		switch {
		case d.Area == "":
			notes = append(notes, "dropped dev session without an area")
			continue
		case len(d.Tickets) == 0:
			notes = append(notes, fmt.Sprintf("dropped dev session %q without tickets", d.Area))
			continue
		case seen[d.Area]:
			notes = append(notes, fmt.Sprintf("dropped duplicate dev session %q", d.Area))
			continue
		}
		if !d.Status.Valid() {
			notes = append(notes, fmt.Sprintf("dev session %q status %q reset to pending", d.Area, d.Status))
			d.Status = SessionPending
		}
		seen[d.Area] = true
		kept = append(kept, d)
	}
	s.DevSessions = kept

	return notes
}

// Session returns the session for area.
func (s OrchestrationState) Session(area string) (DevSession, bool) {
	i := s.sessionIndex(area)
	if i < 0 {
		return DevSession{}, false
	}
	return s.DevSessions[i], true
}

func (s OrchestrationState) sessionIndex(area string) int {
	return slices.IndexFunc(s.DevSessions, func(d DevSession) bool { return d.Area == area })
}

// SessionsWithStatus returns the sessions in any of the given statuses, in
// state order.
func (s OrchestrationState) SessionsWithStatus(statuses ...SessionStatus) []DevSession {
	var out []DevSession
	for _, d := range s.DevSessions {
		if slices.Contains(statuses, d.Status) {
			out = append(out, d)
		}
	}
	return out
}
