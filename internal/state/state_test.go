package state

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPhase_Next(t *testing.T) {
	tests := []struct {
		from Phase
		want Phase
		ok   bool
	}{
		{PhaseInit, PhasePOConversation, true},
		{PhasePOConversation, PhaseTechLeadDesign, true},
		{PhaseTechLeadDesign, PhaseDevSessions, true},
		{PhaseDevSessions, PhaseCompleted, true},
		{PhaseCompleted, "", false},
		{Phase("bogus"), "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got, ok := tt.from.Next()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Next() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIsValidTransition_AllPairs(t *testing.T) {
	phases := Phases()
	for i, from := range phases {
		for j, to := range phases {
			want := j == i+1
			if got := IsValidTransition(from, to); got != want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestOrchestrationState_Validate(t *testing.T) {
	valid := func() OrchestrationState {
		st := Initial(time.Now())
		st.Phase = PhaseDevSessions
		st.DevSessions = []DevSession{
			{Area: "frontend", Tickets: []int{1, 3}, Status: SessionPending},
			{Area: "backend", Tickets: []int{2}, Status: SessionCompleted},
		}
		return st
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Validate() on valid state = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*OrchestrationState)
	}{
		{"unknown phase", func(s *OrchestrationState) { s.Phase = "review" }},
		{"duplicate area", func(s *OrchestrationState) { s.DevSessions[1].Area = "frontend" }},
		{"empty tickets", func(s *OrchestrationState) { s.DevSessions[0].Tickets = nil }},
		{"empty area", func(s *OrchestrationState) { s.DevSessions[0].Area = "" }},
		{"unknown status", func(s *OrchestrationState) { s.DevSessions[0].Status = "paused" }},
		{"blocked without question", func(s *OrchestrationState) {
			s.Blocked = BlockedState{IsBlocked: true, BlockedAgent: RoleDev, WaitingFor: WaitingForUser}
		}},
		{"unblocked with leftovers", func(s *OrchestrationState) {
			s.Blocked = BlockedState{QuestionFile: "q-001.md"}
		}},
		{"blocked unknown recipient", func(s *OrchestrationState) {
			s.Blocked = BlockedState{IsBlocked: true, BlockedAgent: RoleDev, QuestionFile: "q.md", WaitingFor: "qa"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := valid()
			tt.mutate(&st)
			if err := st.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestOrchestrationState_JSONShape(t *testing.T) {
	st := Initial(time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC))

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{"phase", "blocked", "devSessions", "currentAgent", "lastUpdated"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if raw["currentAgent"] != nil {
		t.Errorf("currentAgent = %v, want null", raw["currentAgent"])
	}
	if sessions, ok := raw["devSessions"].([]any); !ok || len(sessions) != 0 {
		t.Errorf("devSessions = %v, want []", raw["devSessions"])
	}

	blocked := raw["blocked"].(map[string]any)
	if blocked["isBlocked"] != false {
		t.Errorf("isBlocked = %v, want false", blocked["isBlocked"])
	}
	for _, key := range []string{"blockedAgent", "questionFile", "waitingFor"} {
		v, ok := blocked[key]
		if !ok || v != nil {
			t.Errorf("blocked.%s = %v (present=%v), want null", key, v, ok)
		}
	}
}

func TestOrchestrationState_JSONRoundTrip(t *testing.T) {
	in := OrchestrationState{
		Phase: PhaseDevSessions,
		Blocked: BlockedState{
			IsBlocked:    true,
			BlockedAgent: RoleDev,
			QuestionFile: "/work/.agentcrew/questions/q-002.md",
			WaitingFor:   WaitingForTechLead,
		},
		DevSessions:  []DevSession{{Area: "api", Tickets: []int{5}, Status: SessionBlocked}},
		CurrentAgent: "dev-api",
		LastUpdated:  time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"waitingFor":"tech_lead"`) {
		t.Errorf("encoded state missing waitingFor: %s", data)
	}

	var out OrchestrationState
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Blocked != in.Blocked {
		t.Errorf("Blocked = %+v, want %+v", out.Blocked, in.Blocked)
	}
	if out.CurrentAgent != "dev-api" || out.Phase != PhaseDevSessions {
		t.Errorf("decoded = %+v", out)
	}
	if len(out.DevSessions) != 1 || out.DevSessions[0].Tickets[0] != 5 {
		t.Errorf("DevSessions = %+v", out.DevSessions)
	}
}

func TestOrchestrationState_Clone(t *testing.T) {
	st := Initial(time.Now())
	st.DevSessions = []DevSession{{Area: "api", Tickets: []int{5}, Status: SessionPending}}

	c := st.Clone()
	c.DevSessions[0].Tickets[0] = 99
	c.DevSessions[0].Status = SessionCompleted

	if st.DevSessions[0].Tickets[0] != 5 || st.DevSessions[0].Status != SessionPending {
		t.Errorf("Clone shares memory with original: %+v", st.DevSessions[0])
	}
}

func TestOrchestrationState_SessionsWithStatus(t *testing.T) {
	st := Initial(time.Now())
	st.DevSessions = []DevSession{
		{Area: "a", Tickets: []int{1}, Status: SessionPending},
		{Area: "b", Tickets: []int{2}, Status: SessionCompleted},
		{Area: "c", Tickets: []int{3}, Status: SessionBlocked},
	}

	got := st.SessionsWithStatus(SessionPending, SessionBlocked)
	if len(got) != 2 || got[0].Area != "a" || got[1].Area != "c" {
		t.Errorf("SessionsWithStatus() = %+v", got)
	}
	if _, ok := st.Session("b"); !ok {
		t.Error("Session(b) not found")
	}
	if _, ok := st.Session("z"); ok {
		t.Error("Session(z) found, want missing")
	}
}
