package tracker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Iron-Ham/agentcrew/internal/config"
)

type stubTracker struct {
	areas  []string
	issues map[string][]Issue
	err    error
}

func (s *stubTracker) ListAreas(context.Context) ([]string, error) {
	return s.areas, s.err
}

func (s *stubTracker) ListOpenIssuesForArea(_ context.Context, area string) ([]Issue, error) {
	return s.issues[area], nil
}

func TestCollectAreas(t *testing.T) {
	st := &stubTracker{
		areas: []string{"frontend", "backend", "api", "docs"},
		issues: map[string][]Issue{
			"frontend": {{Number: 3}, {Number: 1}},
			"backend":  {{Number: 2}},
			"api":      {{Number: 5}, {Number: 5}},
		},
	}

	got, err := CollectAreas(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("CollectAreas() error = %v", err)
	}
	want := []AreaTickets{
		{Area: "frontend", Tickets: []int{1, 3}},
		{Area: "backend", Tickets: []int{2}},
		{Area: "api", Tickets: []int{5}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectAreas() = %+v, want %+v", got, want)
	}
}

func TestCollectAreas_Error(t *testing.T) {
	st := &stubTracker{err: errors.New("gh: not logged in")}
	if _, err := CollectAreas(context.Background(), st, nil); err == nil {
		t.Error("CollectAreas() error = nil, want error")
	}
}

func TestCollectAreas_NoAreas(t *testing.T) {
	got, err := CollectAreas(context.Background(), &stubTracker{}, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("CollectAreas() = (%v, %v), want empty", got, err)
	}
}

func TestAreaFilter(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		area    string
		want    bool
	}{
		{"no patterns", nil, nil, "frontend", true},
		{"include match", []string{"front*"}, nil, "frontend", true},
		{"include miss", []string{"front*"}, nil, "backend", false},
		{"exclude wins", []string{"*"}, []string{"docs"}, "docs", false},
		{"exclude only", nil, []string{"legacy-*"}, "legacy-api", false},
		{"alternatives", []string{"{api,backend}"}, nil, "api", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewAreaFilter(tt.include, tt.exclude)
			if err != nil {
				t.Fatalf("NewAreaFilter() error = %v", err)
			}
			if got := f.Match(tt.area); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.area, got, tt.want)
			}
		})
	}
}

func TestAreaFilter_InvalidPattern(t *testing.T) {
	if _, err := NewAreaFilter([]string{"api[v"}, nil); err == nil {
		t.Error("NewAreaFilter() error = nil for invalid pattern")
	}
}

func TestCollectAreas_Filtered(t *testing.T) {
	st := &stubTracker{
		areas:  []string{"frontend", "backend"},
		issues: map[string][]Issue{"frontend": {{Number: 1}}, "backend": {{Number: 2}}},
	}
	f, err := NewAreaFilter(nil, []string{"back*"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := CollectAreas(context.Background(), st, f)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Area != "frontend" {
		t.Errorf("CollectAreas() = %+v, want only frontend", got)
	}
}

func TestNew(t *testing.T) {
	gh, err := New(config.TrackerConfig{Provider: config.TrackerGitHub, AreaLabelPrefix: "area:"}, "/work", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gh.(*GitHubTracker); !ok {
		t.Errorf("New(github) = %T", gh)
	}

	ft, err := New(config.TrackerConfig{Provider: config.TrackerFile, File: "areas.yaml"}, "/work", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := ft.(*FileTracker).path; got != filepath.Join("/work", "areas.yaml") {
		t.Errorf("file path = %q", got)
	}

	if _, err := New(config.TrackerConfig{Provider: "jira"}, "/work", nil); err == nil {
		t.Error("New(jira) error = nil")
	}
}

func TestFileTracker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "areas.yaml")
	content := strings.Join([]string{
		"areas:",
		"  - name: frontend",
		"    issues:",
		"      - number: 1",
		"        title: Login page",
		"      - number: 4",
		"        state: closed",
		"      - number: 3",
		"        state: OPEN",
		"  - name: docs",
		"    issues: []",
		"  - name: api",
		"    issues:",
		"      - number: 5",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	ft := NewFileTracker(path)
	ctx := context.Background()

	areas, err := ft.ListAreas(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(areas, []string{"frontend", "docs", "api"}) {
		t.Errorf("ListAreas() = %v", areas)
	}

	issues, err := ft.ListOpenIssuesForArea(ctx, "frontend")
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 || issues[0].Number != 1 || issues[0].Title != "Login page" || issues[1].Number != 3 {
		t.Errorf("ListOpenIssuesForArea(frontend) = %+v", issues)
	}

	got, err := CollectAreas(ctx, ft, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []AreaTickets{{Area: "frontend", Tickets: []int{1, 3}}, {Area: "api", Tickets: []int{5}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectAreas() = %+v, want %+v", got, want)
	}
}

func TestFileTracker_Errors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if _, err := NewFileTracker(filepath.Join(dir, "missing.yaml")).ListAreas(ctx); err == nil {
		t.Error("missing file: error = nil")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("areas:\n  - issues: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileTracker(bad).ListAreas(ctx); err == nil {
		t.Error("nameless area: error = nil")
	}
}
