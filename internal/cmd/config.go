package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/agentcrew/internal/config"
	"github.com/Iron-Ham/agentcrew/internal/errors"
	"github.com/Iron-Ham/agentcrew/internal/util"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Fprintln(cmd.OutOrStdout(), used)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "(none, defaults in effect; searched .agentcrew and %s)\n", config.ConfigDir())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a project config and starter prompts",
	Long: `Create .agentcrew/config.yaml with the default settings and a starter
prompt for each role. Existing files are left untouched.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

// effectiveSettings returns the merged settings without CLI-only keys.
func effectiveSettings() map[string]any {
	settings := viper.AllSettings()
	delete(settings, "config")
	return settings
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return err
	}
	data, err := yaml.Marshal(effectiveSettings())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

var starterPrompts = map[string]string{
	"po": `# Product owner

Talk with the user about what they want to build. When the requirements are
clear, write them to the PRD file named in your context and exit.
`,
	"tech_lead": `# Tech lead

Read the PRD and write an architecture document to the file named in your
context. Split the work into areas and file one issue per task, labelled
with its area.
`,
	"dev": `# Developer

Implement the tickets listed in your context for your area. Stay inside your
area; raise a question when you need a decision from someone else.
`,
	"answer": `# Answer a question

Another agent is blocked on the question in your context. Answer it from what
you know about the product and the design.
`,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cfgPath := filepath.Join(ws.layout.Root, "config.yaml")
	data, err := yaml.Marshal(effectiveSettings())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := writeStarter(cfgPath, data); err != nil {
		return err
	}
	fmt.Fprintf(out, "Config:  %s\n", cfgPath)

	p := ws.cfg.Prompts
	for _, f := range []struct{ key, name string }{
		{"po", p.PO},
		{"tech_lead", p.TechLead},
		{"dev", p.Dev},
		{"answer", p.Answer},
	} {
		path := p.PromptPath(ws.baseDir, f.name)
		if err := writeStarter(path, []byte(starterPrompts[f.key])); err != nil {
			return err
		}
		fmt.Fprintf(out, "Prompt:  %s\n", path)
	}
	return nil
}

// writeStarter creates path with data unless it already exists.
func writeStarter(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := util.WriteFileOnce(path, data, 0o644); err != nil && !errors.Is(err, util.ErrExists) {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
