package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	crewerrors "github.com/Iron-Ham/agentcrew/internal/errors"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Agent.Command != "claude" {
		t.Errorf("Agent.Command = %q, want claude", cfg.Agent.Command)
	}
	if cfg.Agent.ContextFlag != "--append-system-prompt" {
		t.Errorf("Agent.ContextFlag = %q", cfg.Agent.ContextFlag)
	}
	if cfg.Prompts.Dir != "prompts" || cfg.Prompts.PO != "po.md" || cfg.Prompts.Answer != "answer.md" {
		t.Errorf("Prompts = %+v", cfg.Prompts)
	}
	if cfg.Paths.StateDir != ".agentcrew" {
		t.Errorf("Paths.StateDir = %q, want .agentcrew", cfg.Paths.StateDir)
	}
	if !cfg.Sessions.Parallel {
		t.Error("Sessions.Parallel should be true by default")
	}
	if cfg.Sessions.MaxParallel != 0 {
		t.Errorf("Sessions.MaxParallel = %d, want 0", cfg.Sessions.MaxParallel)
	}
	if !cfg.Sessions.ResetStaleOnResume {
		t.Error("Sessions.ResetStaleOnResume should be true by default")
	}
	if !cfg.Routing.DelegateAnswers {
		t.Error("Routing.DelegateAnswers should be true by default")
	}
	if cfg.Tracker.Provider != TrackerGitHub || cfg.Tracker.AreaLabelPrefix != "area:" {
		t.Errorf("Tracker = %+v", cfg.Tracker)
	}
	if !cfg.Logging.Enabled || cfg.Logging.Level != "info" || cfg.Logging.MaxSizeMB != 10 || cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got, want := ConfigDir(), "/custom/config/agentcrew"; got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
		if got, want := ConfigFile(), "/custom/config/agentcrew/config.yaml"; got != want {
			t.Errorf("ConfigFile() = %q, want %q", got, want)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, _ := os.UserHomeDir()
		if got, want := ConfigDir(), filepath.Join(home, ".config", "agentcrew"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestLayout(t *testing.T) {
	t.Run("relative state dir", func(t *testing.T) {
		p := PathsConfig{StateDir: ".agentcrew"}
		l := p.Layout("/repo")

		want := Layout{
			Root:         "/repo/.agentcrew",
			StateFile:    "/repo/.agentcrew/state.json",
			QuestionsDir: "/repo/.agentcrew/questions",
			LogDir:       "/repo/.agentcrew/logs",
			LockFile:     "/repo/.agentcrew/driver.lock",
		}
		if l != want {
			t.Errorf("Layout() = %+v, want %+v", l, want)
		}
	})

	t.Run("absolute state dir", func(t *testing.T) {
		p := PathsConfig{StateDir: "/var/crew"}
		if got := p.Layout("/repo").Root; got != "/var/crew" {
			t.Errorf("Root = %q, want /var/crew", got)
		}
	})

	t.Run("home expansion", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		p := PathsConfig{StateDir: "~/crew"}
		if got, want := p.Layout("/repo").Root, filepath.Join(home, "crew"); got != want {
			t.Errorf("Root = %q, want %q", got, want)
		}
	})
}

func TestResolveDeliverables(t *testing.T) {
	p := Default().Paths
	if got := p.ResolvePRD("/repo"); got != "/repo/docs/PRD.md" {
		t.Errorf("ResolvePRD() = %q", got)
	}
	if got := p.ResolveArchitecture("/repo"); got != "/repo/docs/ARCHITECTURE.md" {
		t.Errorf("ResolveArchitecture() = %q", got)
	}
}

func TestPromptPath(t *testing.T) {
	prompts := Default().Prompts
	if got := prompts.PromptPath("/repo", prompts.Dev); got != "/repo/prompts/dev.md" {
		t.Errorf("PromptPath() = %q, want /repo/prompts/dev.md", got)
	}
	if got := prompts.PromptPath("/repo", "/etc/po.md"); got != "/etc/po.md" {
		t.Errorf("PromptPath(abs) = %q, want /etc/po.md", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Agent.Command != "claude" || !cfg.Sessions.Parallel {
			t.Errorf("Load() did not apply defaults: %+v", cfg)
		}
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()

		path := filepath.Join(t.TempDir(), "config.yaml")
		yaml := `agent:
  command: my-agent
  args: ["-p", "--verbose"]
sessions:
  parallel: false
  max_parallel: 2
  exclude: ["docs*"]
tracker:
  provider: file
`
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatal(err)
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig failed: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if cfg.Agent.Command != "my-agent" || len(cfg.Agent.Args) != 2 {
			t.Errorf("Agent = %+v", cfg.Agent)
		}
		if cfg.Sessions.Parallel || cfg.Sessions.MaxParallel != 2 {
			t.Errorf("Sessions = %+v", cfg.Sessions)
		}
		if cfg.Tracker.Provider != TrackerFile {
			t.Errorf("Tracker.Provider = %q, want file", cfg.Tracker.Provider)
		}
		if cfg.Agent.ContextFlag != "--append-system-prompt" {
			t.Errorf("unset keys should keep defaults, got ContextFlag=%q", cfg.Agent.ContextFlag)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("sessions.max_parallel", -1)
		viper.Set("tracker.provider", "jira")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() should fail on invalid values")
		}
		var verrs ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) != 2 {
			t.Fatalf("Load() error = %v, want 2 ValidationErrors", err)
		}
		if !errors.Is(err, crewerrors.ErrInvalidConfig) {
			t.Error("validation failures should match ErrInvalidConfig")
		}
	})
}
