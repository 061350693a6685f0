package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/agentcrew/internal/agent"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/testutil"
)

// devScript behaves per area: frontend succeeds, backend writes a question
// for the tech lead and exits blocked, anything else fails.
const devScript = `
case "$AGENTCREW_AREA" in
frontend) echo "done $AGENTCREW_TICKETS"; exit 0 ;;
backend)
  printf '# Question from: %s\n\n## For: tech_lead\n\n## Context\nschema\n\n## Question\nWhich DB?\n' "$AGENTCREW_AGENT" > "$AGENTCREW_QUESTIONS_DIR/q-001.md"
  exit 2 ;;
*) echo "failed" >&2; exit 1 ;;
esac
`

func TestRun_RealProcesses(t *testing.T) {
	testutil.SkipIfNoShell(t)
	dir := t.TempDir()
	qs := question.NewStore(filepath.Join(dir, "questions"))
	if err := os.MkdirAll(qs.Dir(), 0o755); err != nil {
		t.Fatal(err)
	}
	prompt := filepath.Join(dir, "dev.md")
	testutil.WriteFile(t, prompt, "develop")

	sup := agent.NewSupervisor(agent.Config{
		Command:     testutil.ShellPath,
		Args:        []string{"-c", devScript, "dev"},
		ContextFlag: "--ctx",
		WorkDir:     dir,
		GracePeriod: 200 * time.Millisecond,
	}, nil)
	s := New(sup, qs, Config{PromptFile: prompt, QuestionsDir: qs.Dir()}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results := s.Run(ctx, threeSessions(), Options{Parallel: true})

	if results[0].Status != agent.StatusSuccess || strings.TrimSpace(results[0].Outcome.Stdout) != "done 1,3" {
		t.Errorf("frontend = %s %q", results[0].Status, results[0].Outcome.Stdout)
	}
	if results[1].Status != agent.StatusBlocked || !results[1].NeedsTechLead {
		t.Errorf("backend = %s needsTechLead=%v err=%v", results[1].Status, results[1].NeedsTechLead, results[1].Err)
	}
	if results[2].Status != agent.StatusError || strings.TrimSpace(results[2].Outcome.Stderr) != "failed" {
		t.Errorf("api = %s %q", results[2].Status, results[2].Outcome.Stderr)
	}
}

func TestRun_MissingAgentCommand(t *testing.T) {
	dir := t.TempDir()
	qs := question.NewStore(filepath.Join(dir, "questions"))
	prompt := filepath.Join(dir, "dev.md")
	testutil.WriteFile(t, prompt, "develop")

	sup := agent.NewSupervisor(agent.Config{
		Command:     filepath.Join(dir, "no-such-agent"),
		ContextFlag: "--ctx",
		WorkDir:     dir,
	}, nil)
	s := New(sup, qs, Config{PromptFile: prompt, QuestionsDir: qs.Dir()}, nil)

	results := s.Run(context.Background(), []Session{{Area: "frontend", Tickets: []int{1}}}, Options{})
	if results[0].Status != agent.StatusError {
		t.Errorf("Status = %s, want error", results[0].Status)
	}
	if !errors.Is(results[0].Err, errors.ErrSpawnFailed) {
		t.Errorf("Err = %v, want ErrSpawnFailed", results[0].Err)
	}
}
