package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/agentcrew/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the run log",
	Long: `Print entries from the debug log, including rotated backups, oldest first.

Examples:
  agentcrew logs --level warn
  agentcrew logs --area frontend --since 1h
  agentcrew logs --agent tech_lead --format json`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsLevel  string
	logsAgent  string
	logsArea   string
	logsPhase  string
	logsRun    string
	logsGrep   string
	logsSince  time.Duration
	logsTail   int
	logsFormat string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&logsAgent, "agent", "", "Only entries for this agent")
	logsCmd.Flags().StringVar(&logsArea, "area", "", "Only entries for this dev area")
	logsCmd.Flags().StringVar(&logsPhase, "phase", "", "Only entries for this phase")
	logsCmd.Flags().StringVar(&logsRun, "run", "", "Only entries for this run ID")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Only entries whose message contains this text")
	logsCmd.Flags().DurationVar(&logsSince, "since", 0, "Only entries newer than this (e.g. 30m, 2h)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 0, "Only the last N entries")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format (text, json, csv)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	entries, err := logging.AggregateLogs(ws.layout.LogDir)
	if err != nil {
		return err
	}

	filter := logging.LogFilter{
		Level:           logsLevel,
		RunID:           logsRun,
		Phase:           logsPhase,
		Agent:           logsAgent,
		Area:            logsArea,
		MessageContains: logsGrep,
	}
	if logsSince > 0 {
		filter.StartTime = time.Now().Add(-logsSince)
	}
	entries = logging.FilterLogs(entries, filter)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No log entries.")
		return nil
	}
	return logging.WriteEntries(cmd.OutOrStdout(), entries, logsFormat)
}
