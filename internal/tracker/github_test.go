package tracker

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// fakeGH answers gh invocations by their leading subcommand.
type fakeGH struct {
	calls   [][]string
	replies map[string]string
	err     error
}

func (f *fakeGH) run(_ context.Context, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, f.err
	}
	key := args[0] + " " + args[1]
	if args[0] == "issue" {
		for i, a := range args {
			if a == "--label" {
				key += " " + args[i+1]
			}
		}
	}
	return []byte(f.replies[key]), nil
}

func newFakeGitHub(repo string, f *fakeGH) *GitHubTracker {
	g := NewGitHubTracker(repo, "area:", nil)
	g.run = f.run
	return g
}

func TestGitHubTracker_ListAreas(t *testing.T) {
	f := &fakeGH{replies: map[string]string{
		"label list": `[{"name":"bug"},{"name":"area:frontend"},{"name":"area:api"},{"name":"area:"},{"name":"area:api"}]`,
	}}
	g := newFakeGitHub("acme/shop", f)

	areas, err := g.ListAreas(context.Background())
	if err != nil {
		t.Fatalf("ListAreas() error = %v", err)
	}
	if !reflect.DeepEqual(areas, []string{"api", "frontend"}) {
		t.Errorf("ListAreas() = %v", areas)
	}
	if got := strings.Join(f.calls[0], " "); !strings.HasSuffix(got, "--repo acme/shop") {
		t.Errorf("args = %q, want --repo", got)
	}
}

func TestGitHubTracker_ListOpenIssuesForArea(t *testing.T) {
	f := &fakeGH{replies: map[string]string{
		"issue list area:api": `[{"number":5,"title":"Rate limits","url":"https://github.com/acme/shop/issues/5","labels":[{"name":"area:api"},{"name":"p1"}]}]`,
	}}
	g := newFakeGitHub("", f)

	issues, err := g.ListOpenIssuesForArea(context.Background(), "api")
	if err != nil {
		t.Fatal(err)
	}
	want := []Issue{{
		Number: 5,
		Title:  "Rate limits",
		URL:    "https://github.com/acme/shop/issues/5",
		Labels: []string{"area:api", "p1"},
	}}
	if !reflect.DeepEqual(issues, want) {
		t.Errorf("issues = %+v, want %+v", issues, want)
	}
	args := strings.Join(f.calls[0], " ")
	if strings.Contains(args, "--repo") {
		t.Errorf("args = %q, want no --repo for empty repo", args)
	}
	if !strings.Contains(args, "--state open") {
		t.Errorf("args = %q, want --state open", args)
	}
}

func TestGitHubTracker_Errors(t *testing.T) {
	g := newFakeGitHub("", &fakeGH{err: errors.New("exit status 4")})
	if _, err := g.ListAreas(context.Background()); err == nil {
		t.Error("ListAreas() error = nil")
	}

	g = newFakeGitHub("", &fakeGH{replies: map[string]string{"label list": "not json"}})
	if _, err := g.ListAreas(context.Background()); err == nil {
		t.Error("ListAreas() with bad JSON error = nil")
	}
}
