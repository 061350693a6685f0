package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentcrew/internal/question"
	"github.com/Iron-Ham/agentcrew/internal/styles"
	"github.com/Iron-Ham/agentcrew/internal/util"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List questions raised by agents",
	Args:  cobra.NoArgs,
	RunE:  runQuestions,
}

var questionsPending bool

func init() {
	rootCmd.AddCommand(questionsCmd)

	questionsCmd.Flags().BoolVar(&questionsPending, "pending", false, "Only show unanswered questions")
}

func runQuestions(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	qs := ws.questions()
	list, err := qs.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	shown := 0
	for _, q := range list {
		_, answered, err := qs.ReadResponse(q.FilePath)
		if err != nil {
			return err
		}
		if questionsPending && answered {
			continue
		}
		status := styles.SuccessMsg.Render("answered")
		if !answered {
			status = styles.WarningMsg.Render("pending")
		}
		fmt.Fprintf(out, "%-8s %-10s %-14s %-16s %s\n",
			q.ID, status, q.FromAgent, "-> "+string(q.For), util.Truncate(util.FirstLine(q.Question), 60))
		shown++
	}
	if shown == 0 {
		if questionsPending {
			fmt.Fprintln(out, "No pending questions.")
		} else {
			fmt.Fprintln(out, "No questions.")
		}
	}
	return nil
}

// routeLabel describes who answers a question routed as r.
func routeLabel(r question.Route) string {
	switch r {
	case question.RouteSpawnPO:
		return "the product owner"
	case question.RouteSpawnTechLead:
		return "the tech lead"
	default:
		return "you"
	}
}
