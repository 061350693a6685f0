package question

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Iron-Ham/agentcrew/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "questions"))
	s.now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	s.pollInterval = 50 * time.Millisecond
	return s
}

func mustWrite(t *testing.T, s *Store, from string, to Recipient, question string) string {
	t.Helper()
	path, err := s.Write(from, to, "ctx", question, nil)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return path
}

// setMtime pins a file's modification time relative to a fixed base.
func setMtime(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}

func TestStore_WriteParseRoundTrip(t *testing.T) {
	s := newTestStore(t)
	path, err := s.Write("dev-api", RecipientTechLead, "Ticket #5 needs a schema.\nSee ARCHITECTURE.md.", "Which database?", []string{"Postgres", "SQLite"})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Base(path) != "q-001.md" {
		t.Errorf("path = %s, want q-001.md", path)
	}

	q, err := s.Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if q.ID != "q-001" || q.FilePath != path || q.ModTime.IsZero() {
		t.Errorf("file fields = (%q, %q, %v)", q.ID, q.FilePath, q.ModTime)
	}
	if q.FromAgent != "dev-api" || q.For != RecipientTechLead {
		t.Errorf("header = (%q, %q)", q.FromAgent, q.For)
	}
	if q.Context != "Ticket #5 needs a schema.\nSee ARCHITECTURE.md." || q.Question != "Which database?" {
		t.Errorf("body = (%q, %q)", q.Context, q.Question)
	}
	if !slices.Equal(q.Options, []string{"Postgres", "SQLite"}) {
		t.Errorf("Options = %v", q.Options)
	}
}

func TestStore_WriteSequence(t *testing.T) {
	s := newTestStore(t)

	for i, want := range []string{"q-001.md", "q-002.md", "q-003.md"} {
		if got := filepath.Base(mustWrite(t, s, "po", RecipientUser, "q")); got != want {
			t.Errorf("write %d = %s, want %s", i, got, want)
		}
	}

	// Gaps and stray files do not matter; the next number is max+1.
	if err := os.WriteFile(filepath.Join(s.Dir(), "q-009.md"), []byte("# Question from: po\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(mustWrite(t, s, "po", RecipientUser, "q")); got != "q-010.md" {
		t.Errorf("after q-009 got %s, want q-010.md", got)
	}

	if err := os.WriteFile(filepath.Join(s.Dir(), "q-999.md"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	if got := filepath.Base(mustWrite(t, s, "po", RecipientUser, "q")); got != "q-1000.md" {
		t.Errorf("after q-999 got %s, want q-1000.md", got)
	}
}

func TestStore_List(t *testing.T) {
	s := newTestStore(t)
	if qs, err := s.List(); err != nil || len(qs) != 0 {
		t.Fatalf("List() on missing dir = (%v, %v), want empty", qs, err)
	}

	mustWrite(t, s, "po", RecipientUser, "first")
	if err := os.WriteFile(filepath.Join(s.Dir(), "q-010.md"), Format(&Question{FromAgent: "dev-api", Question: "tenth"}), 0644); err != nil {
		t.Fatal(err)
	}
	mustWrite(t, s, "tech_lead", RecipientPO, "eleventh")

	qs, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	if !slices.Equal(ids, []string{"q-001", "q-010", "q-011"}) {
		t.Errorf("List() ids = %v", ids)
	}
}

func TestStore_FindLatestUnanswered(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.FindLatestUnanswered(); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v, want none", ok, err)
	}

	q1 := mustWrite(t, s, "dev-frontend", RecipientUser, "one")
	q2 := mustWrite(t, s, "dev-api", RecipientUser, "two")
	setMtime(t, q1, time.Minute)
	setMtime(t, q2, 2*time.Minute)

	path, ok, err := s.FindLatestUnanswered()
	if err != nil || !ok || path != q2 {
		t.Fatalf("FindLatestUnanswered() = (%s, %v, %v), want q-002", path, ok, err)
	}

	if _, err := s.WriteResponse(q2, "answer two"); err != nil {
		t.Fatalf("WriteResponse() error = %v", err)
	}
	path, ok, err = s.FindLatestUnanswered()
	if err != nil || !ok || path != q1 {
		t.Fatalf("after answering q-002 = (%s, %v, %v), want q-001", path, ok, err)
	}

	if _, err := s.WriteResponse(q1, "answer one"); err != nil {
		t.Fatalf("WriteResponse() error = %v", err)
	}
	if _, ok, _ := s.FindLatestUnanswered(); ok {
		t.Error("all questions answered, want none")
	}
}

func TestStore_FindLatestUnanswered_ModTimeBeatsName(t *testing.T) {
	s := newTestStore(t)
	q1 := mustWrite(t, s, "po", RecipientUser, "edited later")
	q2 := mustWrite(t, s, "po", RecipientUser, "older")
	setMtime(t, q1, 5*time.Minute)
	setMtime(t, q2, time.Minute)

	if path, _, _ := s.FindLatestUnanswered(); path != q1 {
		t.Errorf("got %s, want the most recently modified q-001", path)
	}
}

func TestStore_FindLatestUnanswered_TieBreak(t *testing.T) {
	s := newTestStore(t)
	q1 := mustWrite(t, s, "po", RecipientUser, "a")
	q2 := mustWrite(t, s, "po", RecipientUser, "b")
	setMtime(t, q1, time.Minute)
	setMtime(t, q2, time.Minute)

	if path, _, _ := s.FindLatestUnanswered(); path != q2 {
		t.Errorf("tie resolved to %s, want q-002", path)
	}
}

func TestStore_FindLatestUnansweredFrom(t *testing.T) {
	s := newTestStore(t)
	front := mustWrite(t, s, "dev-frontend", RecipientTechLead, "front")
	api := mustWrite(t, s, "dev-api", RecipientUser, "api")
	setMtime(t, front, time.Minute)
	setMtime(t, api, 2*time.Minute)

	path, ok, err := s.FindLatestUnansweredFrom("dev-frontend")
	if err != nil || !ok || path != front {
		t.Errorf("FindLatestUnansweredFrom(dev-frontend) = (%s, %v, %v)", path, ok, err)
	}
	if _, ok, _ := s.FindLatestUnansweredFrom("dev-backend"); ok {
		t.Error("dev-backend wrote nothing, want none")
	}
}

func TestStore_Responses(t *testing.T) {
	s := newTestStore(t)
	q := mustWrite(t, s, "po", RecipientUser, "Which colour?")

	if _, ok, err := s.ReadResponse(q); err != nil || ok {
		t.Fatalf("ReadResponse() before answer = (%v, %v)", ok, err)
	}

	respPath, err := s.WriteResponse(q, "  Blue.\nDefinitely blue.  ")
	if err != nil {
		t.Fatalf("WriteResponse() error = %v", err)
	}
	if respPath != filepath.Join(s.Dir(), "q-001.response") {
		t.Errorf("response path = %s", respPath)
	}

	raw, _ := os.ReadFile(respPath)
	want := "# Response\n\nBlue.\nDefinitely blue.\n\nAnswered: 2026-10-18T12:00:00Z\n"
	if string(raw) != want {
		t.Errorf("response file = %q, want %q", raw, want)
	}

	text, ok, err := s.ReadResponse(q)
	if err != nil || !ok || text != "Blue.\nDefinitely blue." {
		t.Errorf("ReadResponse() = (%q, %v, %v)", text, ok, err)
	}

	_, err = s.WriteResponse(q, "Red")
	if !errors.Is(err, errors.ErrAlreadyAnswered) {
		t.Errorf("second WriteResponse() error = %v, want ErrAlreadyAnswered", err)
	}
	if text, _, _ := s.ReadResponse(q); text != "Blue.\nDefinitely blue." {
		t.Errorf("response was rewritten: %q", text)
	}

	_, err = s.WriteResponse(filepath.Join(s.Dir(), "q-404.md"), "x")
	if !errors.Is(err, errors.ErrQuestionNotFound) {
		t.Errorf("WriteResponse(missing) error = %v, want ErrQuestionNotFound", err)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"canonical", "# Response\n\nyes\n\nAnswered: 2026-10-18T12:00:00Z\n", "yes"},
		{"no markers", "just the answer\n", "just the answer"},
		{"no timestamp", "# Response\n\nmulti\nline\n", "multi\nline"},
		{"empty", "# Response\n\n\nAnswered: x\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseResponse(tt.in); got != tt.want {
				t.Errorf("parseResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStore_Resolve(t *testing.T) {
	s := NewStore("/state/questions")
	tests := map[string]string{
		"q-004":            "/state/questions/q-004.md",
		"q-004.md":         "/state/questions/q-004.md",
		"4":                "/state/questions/q-004.md",
		"/other/q-001.md":  "/other/q-001.md",
		"questions/q-2.md": "questions/q-2.md",
	}
	for in, want := range tests {
		if got := s.Resolve(in); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStore_WaitForResponse(t *testing.T) {
	t.Run("returns once a response appears", func(t *testing.T) {
		s := newTestStore(t)
		q := mustWrite(t, s, "po", RecipientUser, "ready?")

		go func() {
			time.Sleep(100 * time.Millisecond)
			_, _ = s.WriteResponse(q, "go ahead")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		text, err := s.WaitForResponse(ctx, q)
		if err != nil || text != "go ahead" {
			t.Errorf("WaitForResponse() = (%q, %v)", text, err)
		}
	})

	t.Run("already answered", func(t *testing.T) {
		s := newTestStore(t)
		q := mustWrite(t, s, "po", RecipientUser, "ready?")
		if _, err := s.WriteResponse(q, "done"); err != nil {
			t.Fatal(err)
		}
		text, err := s.WaitForResponse(context.Background(), q)
		if err != nil || text != "done" {
			t.Errorf("WaitForResponse() = (%q, %v)", text, err)
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		s := newTestStore(t)
		q := mustWrite(t, s, "po", RecipientUser, "ready?")

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		if _, err := s.WaitForResponse(ctx, q); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("WaitForResponse() error = %v, want DeadlineExceeded", err)
		}
	})
}
