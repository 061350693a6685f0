package orchestrator

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Iron-Ham/agentcrew/internal/config"
	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/scheduler"
)

func TestContextRenderer(t *testing.T) {
	base := "/work"
	r := NewContextRenderer(config.Default(), base)
	prd := filepath.Join(base, "docs", "PRD.md")
	arch := filepath.Join(base, "docs", "ARCHITECTURE.md")
	questions := filepath.Join(base, ".agentcrew", "questions")

	tests := []struct {
		name string
		got  string
		want []string
	}{
		{"po", r.PO(), []string{"product owner", prd, questions}},
		{"tech lead", r.TechLead(), []string{prd, arch, "label each with its area"}},
		{"dev", r.Dev(scheduler.Session{Area: "api", Tickets: []int{5, 8}}), []string{`"api" area`, "Tickets: #5, #8", arch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, w := range tt.want {
				if !strings.Contains(tt.got, w) {
					t.Errorf("context missing %q:\n%s", w, tt.got)
				}
			}
		})
	}
}

func TestContextRenderer_Answer(t *testing.T) {
	r := NewContextRenderer(config.Default(), "/work")
	q := &question.Question{
		ID:        "q-002",
		FromAgent: "tech_lead",
		Context:   "Auth design",
		Question:  "Is SSO in scope?",
		Options:   []string{"Yes", "No"},
		FilePath:  "/work/.agentcrew/questions/q-002.md",
	}

	got := r.Answer(q)
	for _, want := range []string{
		"tech_lead needs an answer from you.",
		"Context:\nAuth design",
		"Question:\nIs SSO in scope?",
		"- Yes\n- No",
		"/work/.agentcrew/questions/q-002.response",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Answer() missing %q:\n%s", want, got)
		}
	}

	q.FromAgent, q.Context, q.Options = "", "", nil
	got = r.Answer(q)
	if !strings.HasPrefix(got, "An agent needs an answer") || strings.Contains(got, "Options:") || strings.Contains(got, "Context:") {
		t.Errorf("Answer() without optional parts:\n%s", got)
	}
}
