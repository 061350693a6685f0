// Package cmd implements the agentcrew command line.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/agentcrew/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "agentcrew",
	Short: "Run a product owner, a tech lead and parallel developers as agents",
	Long: `agentcrew drives a team of coding agents through a fixed workflow:
a product owner conversation that produces a PRD, a tech lead design that
produces an architecture document and area tickets, and one developer
session per area.

Progress is saved after every step, so a run can be stopped and resumed.
Questions an agent cannot answer are routed to you or to another agent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $XDG_CONFIG_HOME/agentcrew/config.yaml or ./.agentcrew/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".agentcrew")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("AGENTCREW")
	// AGENTCREW_SESSIONS_MAX_PARALLEL overrides sessions.max_parallel
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}
