// Package tracker reads work areas and their open issues from an issue
// tracker. Two providers exist: GitHub through the gh CLI, and a local YAML
// file for projects without a hosted tracker.
package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/agentcrew/internal/config"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
)

// Issue is an open ticket in an area.
type Issue struct {
	Number int
	Title  string
	Labels []string
	URL    string
}

// AreaTickets is an area with the numbers of its open issues.
type AreaTickets struct {
	Area    string
	Tickets []int
}

// Tracker lists areas and the open issues in each.
type Tracker interface {
	ListAreas(ctx context.Context) ([]string, error)
	ListOpenIssuesForArea(ctx context.Context, area string) ([]Issue, error)
}

// New returns the tracker selected by cfg. Relative file paths resolve
// against baseDir.
func New(cfg config.TrackerConfig, baseDir string, logger *logging.Logger) (Tracker, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	switch cfg.Provider {
	case config.TrackerGitHub:
		return NewGitHubTracker(cfg.Repo, cfg.AreaLabelPrefix, logger), nil
	case config.TrackerFile:
		path := cfg.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		return NewFileTracker(path), nil
	default:
		return nil, fmt.Errorf("unknown tracker provider %q", cfg.Provider)
	}
}

// AreaFilter selects areas by glob. An area must match at least one include
// pattern (when any are given) and no exclude pattern.
type AreaFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewAreaFilter compiles the include and exclude patterns.
func NewAreaFilter(include, exclude []string) (*AreaFilter, error) {
	f := &AreaFilter{}
	var err error
	if f.include, err = compileAll(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compileAll(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid area pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Match reports whether area passes the filter. A nil filter matches
// everything.
func (f *AreaFilter) Match(area string) bool {
	if f == nil {
		return true
	}
	matches := func(g glob.Glob) bool { return g.Match(area) }
	if len(f.include) > 0 && !slices.ContainsFunc(f.include, matches) {
		return false
	}
	return !slices.ContainsFunc(f.exclude, matches)
}

// CollectAreas lists the areas that pass filter together with their open
// issue numbers. Areas without open issues are left out.
func CollectAreas(ctx context.Context, t Tracker, filter *AreaFilter) ([]AreaTickets, error) {
	areas, err := t.ListAreas(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list areas")
	}

	var out []AreaTickets
	for _, area := range areas {
		if !filter.Match(area) {
			continue
		}
		issues, err := t.ListOpenIssuesForArea(ctx, area)
		if err != nil {
			return nil, errors.Wrapf(err, "list issues for area %s", area)
		}
		if len(issues) == 0 {
			continue
		}
		tickets := make([]int, 0, len(issues))
		for _, is := range issues {
			tickets = append(tickets, is.Number)
		}
		slices.Sort(tickets)
		out = append(out, AreaTickets{Area: area, Tickets: slices.Compact(tickets)})
	}
	return out, nil
}
