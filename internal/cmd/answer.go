package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/prompt"
	"github.com/Iron-Ham/agentcrew/internal/question"
)

var answerCmd = &cobra.Command{
	Use:   "answer <question> [text...]",
	Short: "Answer a question raised by an agent",
	Long: `Write the response to a question. The question may be given as an ID
("q-004"), a sequence number ("4"), a file name or a path.

Without answer text an interactive prompt is shown. A running workflow that
is waiting on the question resumes as soon as the response is written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnswer,
}

func init() {
	rootCmd.AddCommand(answerCmd)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	qs := ws.questions()
	path := qs.Resolve(args[0])
	q, err := qs.Parse(path)
	if err != nil {
		return err
	}
	if _, answered, err := qs.ReadResponse(path); err != nil {
		return err
	} else if answered {
		return fmt.Errorf("%s: %w", q.ID, errors.ErrAlreadyAnswered)
	}

	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("answer text is required when not running in a terminal")
		}
		text, err = prompt.NewTerminalAnswerer(qs, nil).Answer(cmd.Context(), q)
		if err != nil {
			return err
		}
	}

	respPath, err := qs.WriteResponse(path, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Answered %s (asked by %s for %s): %s\n",
		q.ID, q.FromAgent, routeLabel(question.RouteQuestion(q)), respPath)
	return nil
}
