// Package prompt obtains a human answer to a blocking question. On a
// terminal it shows an interactive form; otherwise it prints the question
// and waits for the response file to be written by "agentcrew answer".
package prompt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/logging"
	"github.com/Iron-Ham/agentcrew/internal/question"
)

// Answerer produces an answer for a question.
type Answerer interface {
	Answer(ctx context.Context, q *question.Question) (string, error)
}

// ResponseWaiter blocks until a response to the question at path exists.
type ResponseWaiter interface {
	WaitForResponse(ctx context.Context, questionPath string) (string, error)
}

// TerminalAnswerer asks the operator.
type TerminalAnswerer struct {
	in     io.Reader
	out    io.Writer
	waiter ResponseWaiter
	logger *logging.Logger

	isTerminal func() bool
	runForm    func(ctx context.Context, m model) (model, error)
}

// NewTerminalAnswerer creates an answerer on stdin and stdout. The waiter
// serves the non-interactive path.
func NewTerminalAnswerer(waiter ResponseWaiter, logger *logging.Logger) *TerminalAnswerer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	a := &TerminalAnswerer{
		in:     os.Stdin,
		out:    os.Stdout,
		waiter: waiter,
		logger: logger.With("component", "prompt"),
	}
	a.isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	a.runForm = a.runProgram
	return a
}

// Answer implements Answerer. Aborting the form returns ErrCanceled.
func (a *TerminalAnswerer) Answer(ctx context.Context, q *question.Question) (string, error) {
	if !a.isTerminal() {
		return a.waitForFile(ctx, q)
	}

	m, err := a.runForm(ctx, newModel(q))
	if err != nil {
		return "", err
	}
	if m.canceled {
		return "", errors.Wrap(errors.ErrCanceled, "answer prompt")
	}
	a.logger.Info("question answered interactively", "question", q.ID)
	return m.answer, nil
}

func (a *TerminalAnswerer) runProgram(ctx context.Context, m model) (model, error) {
	p := tea.NewProgram(m, tea.WithInput(a.in), tea.WithOutput(a.out), tea.WithContext(ctx))
	final, err := p.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model{}, ctxErr
	}
	if err != nil {
		return model{}, fmt.Errorf("answer prompt: %w", err)
	}
	return final.(model), nil
}

func (a *TerminalAnswerer) waitForFile(ctx context.Context, q *question.Question) (string, error) {
	fmt.Fprint(a.out, Render(q))
	fmt.Fprintf(a.out, "\nNo terminal attached. Answer with:\n  agentcrew answer %s \"<your answer>\"\n", q.ID)
	a.logger.Info("waiting for response file", "question", q.ID)
	return a.waiter.WaitForResponse(ctx, q.FilePath)
}

// Render formats q as plain text for non-interactive output.
func Render(q *question.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %s from %s\n", q.ID, q.FromAgent)
	if q.Context != "" {
		fmt.Fprintf(&b, "\nContext:\n%s\n", q.Context)
	}
	fmt.Fprintf(&b, "\n%s\n", q.Question)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, opt)
	}
	return b.String()
}

// resolveChoice maps a numeric entry onto the matching option. Anything else
// is returned as typed.
func resolveChoice(input string, options []string) string {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return options[n-1]
	}
	return input
}
