package tracker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileTracker reads areas from a YAML file:
//
//	areas:
//	  - name: frontend
//	    issues:
//	      - number: 1
//	        title: Login page
//	      - number: 4
//	        state: closed
//
// Issues without a state are open. Areas are returned in file order.
type FileTracker struct {
	path string
}

// NewFileTracker creates a tracker backed by the YAML file at path.
func NewFileTracker(path string) *FileTracker {
	return &FileTracker{path: path}
}

type areasFile struct {
	Areas []fileArea `yaml:"areas"`
}

type fileArea struct {
	Name   string      `yaml:"name"`
	Issues []fileIssue `yaml:"issues"`
}

type fileIssue struct {
	Number int      `yaml:"number"`
	Title  string   `yaml:"title"`
	State  string   `yaml:"state"`
	Labels []string `yaml:"labels"`
	URL    string   `yaml:"url"`
}

func (f *FileTracker) load() (*areasFile, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read areas file: %w", err)
	}
	var af areasFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("parse areas file %s: %w", f.path, err)
	}
	for _, a := range af.Areas {
		if a.Name == "" {
			return nil, fmt.Errorf("areas file %s: area without a name", f.path)
		}
	}
	return &af, nil
}

// ListAreas implements Tracker.
func (f *FileTracker) ListAreas(ctx context.Context) ([]string, error) {
	af, err := f.load()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(af.Areas))
	var areas []string
	for _, a := range af.Areas {
		if !seen[a.Name] {
			seen[a.Name] = true
			areas = append(areas, a.Name)
		}
	}
	return areas, nil
}

// ListOpenIssuesForArea implements Tracker.
func (f *FileTracker) ListOpenIssuesForArea(ctx context.Context, area string) ([]Issue, error) {
	af, err := f.load()
	if err != nil {
		return nil, err
	}
	var issues []Issue
	for _, a := range af.Areas {
		if a.Name != area {
			continue
		}
		for _, is := range a.Issues {
			if state := strings.ToLower(is.State); state != "" && state != "open" {
				continue
			}
			issues = append(issues, Issue{Number: is.Number, Title: is.Title, Labels: is.Labels, URL: is.URL})
		}
	}
	return issues, nil
}
