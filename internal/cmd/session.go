package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentcrew/internal/state"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage dev sessions",
	Long:  `Adjust dev sessions by hand while no workflow is running.`,
}

var sessionRetryCmd = &cobra.Command{
	Use:   "retry <area>",
	Short: "Mark a dev session pending so the next run restarts it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionRetry,
}

var sessionRemoveCmd = &cobra.Command{
	Use:   "remove <area>",
	Short: "Remove a dev session from the workflow",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionRemove,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionRetryCmd)
	sessionCmd.AddCommand(sessionRemoveCmd)
}

func runSessionRetry(cmd *cobra.Command, args []string) error {
	return editSessions(cmd, func(store *state.Store) error {
		if err := store.UpdateDevSession(args[0], state.SessionPending); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q is pending and will run on the next 'agentcrew run'.\n", args[0])
		return nil
	})
}

func runSessionRemove(cmd *cobra.Command, args []string) error {
	return editSessions(cmd, func(store *state.Store) error {
		if err := store.RemoveDevSession(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %q removed.\n", args[0])
		return nil
	})
}

func editSessions(cmd *cobra.Command, edit func(*state.Store) error) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	if err := ws.ensureNoDriver(); err != nil {
		return err
	}
	store, found, err := ws.loadState(nil)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no workflow started")
	}
	return edit(store)
}
