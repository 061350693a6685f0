package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentcrew/internal/state"
	"github.com/Iron-Ham/agentcrew/internal/styles"
	"github.com/Iron-Ham/agentcrew/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workflow status",
	Long:  `Display the current phase, any blocking question, and every dev session.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	store, found, err := ws.loadState(nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !found {
		fmt.Fprintln(out, "No workflow started. Use 'agentcrew run' to begin.")
		return nil
	}

	lock, running := state.IsLocked(ws.layout.LockFile)
	printStatus(out, store.Snapshot(), lock, running)
	return nil
}

func printStatus(out io.Writer, st state.OrchestrationState, lock *state.Lock, running bool) {
	fmt.Fprintln(out, styles.Title.Render("agentcrew"))
	fmt.Fprintf(out, "Phase:    %s\n", styles.Status(string(st.Phase)))
	if !st.LastUpdated.IsZero() {
		fmt.Fprintf(out, "Updated:  %s\n", humanize.Time(st.LastUpdated))
	}
	if running {
		fmt.Fprintf(out, "Driver:   running (PID %d, started %s)\n", lock.PID, humanize.Time(lock.StartedAt))
	} else {
		fmt.Fprintln(out, "Driver:   not running")
	}
	if st.CurrentAgent != "" {
		fmt.Fprintf(out, "Agent:    %s\n", st.CurrentAgent)
	}

	if b := st.Blocked; b.IsBlocked {
		fmt.Fprintln(out)
		fmt.Fprintln(out, styles.Banner.Render(fmt.Sprintf("BLOCKED %s is waiting for %s", b.BlockedAgent, b.WaitingFor)))
		fmt.Fprintf(out, "Question: %s\n", filepath.Base(b.QuestionFile))
	}

	if len(st.DevSessions) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, styles.Label.Render("Dev sessions"))
	for _, s := range st.DevSessions {
		status := string(s.Status)
		fmt.Fprintf(out, "  %s %-20s %-10s %s\n",
			styles.StatusIcon(status),
			util.Truncate(s.Area, 20),
			styles.Status(status),
			util.JoinInts(s.Tickets, ", ", "#"),
		)
	}
}
