package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
)

// runFunc runs the gh CLI with args and returns its stdout.
type runFunc func(ctx context.Context, args ...string) ([]byte, error)

func runGH(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("gh %s: %w\noutput: %s", args[0], err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("gh %s: %w", args[0], err)
	}
	return out, nil
}

// GitHubTracker reads areas from repository labels. A label named
// "<prefix><area>" defines an area, and open issues carrying it belong to it.
type GitHubTracker struct {
	repo   string
	prefix string
	run    runFunc
	logger *logging.Logger
}

// NewGitHubTracker creates a tracker for repo (owner/name). An empty repo
// lets gh use the repository of the working directory.
func NewGitHubTracker(repo, labelPrefix string, logger *logging.Logger) *GitHubTracker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &GitHubTracker{
		repo:   repo,
		prefix: labelPrefix,
		run:    runGH,
		logger: logger.With("component", "tracker"),
	}
}

type ghLabel struct {
	Name string `json:"name"`
}

type ghIssue struct {
	Number int       `json:"number"`
	Title  string    `json:"title"`
	URL    string    `json:"url"`
	Labels []ghLabel `json:"labels"`
}

func (g *GitHubTracker) withRepo(args ...string) []string {
	if g.repo != "" {
		args = append(args, "--repo", g.repo)
	}
	return args
}

// ListAreas implements Tracker.
func (g *GitHubTracker) ListAreas(ctx context.Context) ([]string, error) {
	out, err := g.run(ctx, g.withRepo("label", "list", "--limit", "500", "--json", "name")...)
	if err != nil {
		return nil, err
	}
	var labels []ghLabel
	if err := json.Unmarshal(out, &labels); err != nil {
		return nil, fmt.Errorf("parse gh label list output: %w", err)
	}

	var areas []string
	for _, l := range labels {
		area, ok := strings.CutPrefix(l.Name, g.prefix)
		if ok && area != "" {
			areas = append(areas, area)
		}
	}
	slices.Sort(areas)
	areas = slices.Compact(areas)

	g.logger.Debug("listed areas", "repo", g.repo, "areas", areas)
	return areas, nil
}

// ListOpenIssuesForArea implements Tracker.
func (g *GitHubTracker) ListOpenIssuesForArea(ctx context.Context, area string) ([]Issue, error) {
	out, err := g.run(ctx, g.withRepo(
		"issue", "list",
		"--state", "open",
		"--label", g.prefix+area,
		"--limit", "500",
		"--json", "number,title,url,labels",
	)...)
	if err != nil {
		return nil, err
	}
	var raw []ghIssue
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("parse gh issue list output: %w", err)
	}

	issues := make([]Issue, 0, len(raw))
	for _, r := range raw {
		is := Issue{Number: r.Number, Title: r.Title, URL: r.URL}
		for _, l := range r.Labels {
			is.Labels = append(is.Labels, l.Name)
		}
		issues = append(issues, is)
	}
	g.logger.Debug("listed open issues", "area", area, "count", len(issues))
	return issues, nil
}
