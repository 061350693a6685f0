package question

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Recipient is who a question is addressed to.
type Recipient string

const (
	RecipientUser     Recipient = "user"
	RecipientPO       Recipient = "po"
	RecipientTechLead Recipient = "tech_lead"
)

// ParseRecipient normalizes s to a Recipient. Anything outside the known
// set becomes RecipientUser.
func ParseRecipient(s string) Recipient {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch Recipient(norm) {
	case RecipientPO:
		return RecipientPO
	case RecipientTechLead:
		return RecipientTechLead
	default:
		return RecipientUser
	}
}

// Route is the action that resolves a question.
type Route string

const (
	RoutePromptUser    Route = "prompt_user"
	RouteSpawnPO       Route = "spawn_po"
	RouteSpawnTechLead Route = "spawn_tech_lead"
)

// RouteQuestion decides how q is resolved. It depends only on q.For.
func RouteQuestion(q *Question) Route {
	switch q.For {
	case RecipientPO:
		return RouteSpawnPO
	case RecipientTechLead:
		return RouteSpawnTechLead
	default:
		return RoutePromptUser
	}
}

// Question is a parsed question file.
type Question struct {
	// ID is the file stem, e.g. "q-007".
	ID        string
	FromAgent string
	For       Recipient
	Context   string
	Question  string
	Options   []string

	FilePath string
	ModTime  time.Time
}

type section int

const (
	sectionNone section = iota
	sectionContext
	sectionQuestion
	sectionOptions
	sectionSkip
)

// Parse decodes a question file. It never fails: unknown sections are
// dropped, a missing recipient means the user and missing bodies are empty.
func Parse(data []byte) *Question {
	q := &Question{For: RecipientUser}

	var (
		current  = sectionNone
		context  []string
		question []string
	)

	// Lines of any length are kept whole.
	for line := range strings.SplitSeq(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "## "):
			header := strings.ToLower(strings.TrimSpace(trimmed[3:]))
			switch {
			case headerKeyword(header) == "for":
				q.For = ParseRecipient(afterColon(trimmed))
				current = sectionNone
			case strings.Contains(header, "context"):
				current = sectionContext
			case strings.Contains(header, "question"):
				current = sectionQuestion
			case strings.Contains(header, "option"):
				current = sectionOptions
			default:
				current = sectionSkip
			}
			continue

		case strings.HasPrefix(trimmed, "# "):
			if strings.Contains(strings.ToLower(trimmed), "question from") {
				q.FromAgent = afterColon(trimmed)
				current = sectionNone
				continue
			}
		}

		switch current {
		case sectionContext:
			context = append(context, line)
		case sectionQuestion:
			question = append(question, line)
		case sectionOptions:
			if opt := trimOption(trimmed); opt != "" {
				q.Options = append(q.Options, opt)
			}
		}
	}

	q.Context = strings.TrimSpace(strings.Join(context, "\n"))
	q.Question = strings.TrimSpace(strings.Join(question, "\n"))
	return q
}

// headerKeyword returns the part of a section header before any colon, so
// "for: po" and "for : po" both name the recipient.
func headerKeyword(header string) string {
	keyword, _, _ := strings.Cut(header, ":")
	return strings.TrimSpace(keyword)
}

func afterColon(s string) string {
	if _, after, ok := strings.Cut(s, ":"); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// trimOption strips a leading list bullet.
func trimOption(s string) string {
	for _, bullet := range []string{"- ", "* "} {
		if strings.HasPrefix(s, bullet) {
			return strings.TrimSpace(s[len(bullet):])
		}
	}
	return s
}

// Format encodes q in the question file grammar. The Options section is
// omitted when there are no options.
func Format(q *Question) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Question from: %s\n\n", q.FromAgent)
	fmt.Fprintf(&b, "## For: %s\n\n", q.For)
	fmt.Fprintf(&b, "## Context\n\n%s\n\n", strings.TrimSpace(q.Context))
	fmt.Fprintf(&b, "## Question\n\n%s\n", strings.TrimSpace(q.Question))
	if len(q.Options) > 0 {
		b.WriteString("\n## Options\n\n")
		for _, opt := range q.Options {
			b.WriteString(strings.TrimSpace(opt))
			b.WriteByte('\n')
		}
	}
	return []byte(b.String())
}

// idFromPath returns the file stem of a question path.
func idFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
