package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete agentcrew configuration
type Config struct {
	Agent    AgentConfig    `mapstructure:"agent"`
	Prompts  PromptsConfig  `mapstructure:"prompts"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AgentConfig describes how agent processes are launched
type AgentConfig struct {
	// Command is the agent executable, looked up on PATH (default: "claude")
	Command string `mapstructure:"command"`
	// Args are passed before the prompt content
	Args []string `mapstructure:"args"`
	// ContextFlag precedes the rendered context argument
	ContextFlag string `mapstructure:"context_flag"`
	// WorkDir is the working directory of every agent. Empty means the
	// driver's working directory.
	WorkDir string `mapstructure:"work_dir"`
}

// PromptsConfig names the prompt documents handed to each role
type PromptsConfig struct {
	Dir      string `mapstructure:"dir"`
	PO       string `mapstructure:"po"`
	TechLead string `mapstructure:"tech_lead"`
	Dev      string `mapstructure:"dev"`
	// Answer is the prompt used when a role is asked to answer another
	// agent's question
	Answer string `mapstructure:"answer"`
}

// PathsConfig controls where agentcrew keeps its files and where agents
// are expected to leave their deliverables
type PathsConfig struct {
	// StateDir holds state.json, questions/, logs/ and driver.lock
	StateDir string `mapstructure:"state_dir"`
	// PRDFile must exist after the PO conversation succeeds
	PRDFile string `mapstructure:"prd_file"`
	// ArchitectureFile must exist after the tech lead design succeeds
	ArchitectureFile string `mapstructure:"architecture_file"`
}

// SessionsConfig controls the developer session fan-out
type SessionsConfig struct {
	// Parallel runs every pending session at once (default: true)
	Parallel bool `mapstructure:"parallel"`
	// MaxParallel bounds the fan-out; 0 means unbounded
	MaxParallel int `mapstructure:"max_parallel"`
	// Include keeps only areas matching one of these globs
	Include []string `mapstructure:"include"`
	// Exclude drops areas matching any of these globs
	Exclude []string `mapstructure:"exclude"`
	// ResetStaleOnResume moves sessions left "running" by a dead driver
	// back to "pending" on startup (default: true)
	ResetStaleOnResume bool `mapstructure:"reset_stale_on_resume"`
}

// RoutingConfig controls how questions addressed to other agents are answered
type RoutingConfig struct {
	// DelegateAnswers spawns the addressed role to answer po/tech_lead
	// questions instead of asking the human (default: true)
	DelegateAnswers bool `mapstructure:"delegate_answers"`
}

// TrackerConfig selects the issue tracker used to seed dev sessions
type TrackerConfig struct {
	// Provider is "github" (gh CLI) or "file" (YAML areas file)
	Provider string `mapstructure:"provider"`
	// Repo is owner/name for the github provider; empty uses the current repo
	Repo string `mapstructure:"repo"`
	// AreaLabelPrefix identifies area labels, e.g. "area:frontend"
	AreaLabelPrefix string `mapstructure:"area_label_prefix"`
	// File is the YAML areas file for the file provider
	File string `mapstructure:"file"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated log files
	Compress bool `mapstructure:"compress"`
}

// Tracker providers
const (
	TrackerGitHub = "github"
	TrackerFile   = "file"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			Command:     "claude",
			Args:        []string{},
			ContextFlag: "--append-system-prompt",
		},
		Prompts: PromptsConfig{
			Dir:      "prompts",
			PO:       "po.md",
			TechLead: "tech_lead.md",
			Dev:      "dev.md",
			Answer:   "answer.md",
		},
		Paths: PathsConfig{
			StateDir:         ".agentcrew",
			PRDFile:          filepath.Join("docs", "PRD.md"),
			ArchitectureFile: filepath.Join("docs", "ARCHITECTURE.md"),
		},
		Sessions: SessionsConfig{
			Parallel:           true,
			Include:            []string{},
			Exclude:            []string{},
			ResetStaleOnResume: true,
		},
		Routing: RoutingConfig{
			DelegateAnswers: true,
		},
		Tracker: TrackerConfig{
			Provider:        TrackerGitHub,
			AreaLabelPrefix: "area:",
			File:            filepath.Join(".agentcrew", "areas.yaml"),
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("agent.command", defaults.Agent.Command)
	viper.SetDefault("agent.args", defaults.Agent.Args)
	viper.SetDefault("agent.context_flag", defaults.Agent.ContextFlag)
	viper.SetDefault("agent.work_dir", defaults.Agent.WorkDir)

	viper.SetDefault("prompts.dir", defaults.Prompts.Dir)
	viper.SetDefault("prompts.po", defaults.Prompts.PO)
	viper.SetDefault("prompts.tech_lead", defaults.Prompts.TechLead)
	viper.SetDefault("prompts.dev", defaults.Prompts.Dev)
	viper.SetDefault("prompts.answer", defaults.Prompts.Answer)

	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)
	viper.SetDefault("paths.prd_file", defaults.Paths.PRDFile)
	viper.SetDefault("paths.architecture_file", defaults.Paths.ArchitectureFile)

	viper.SetDefault("sessions.parallel", defaults.Sessions.Parallel)
	viper.SetDefault("sessions.max_parallel", defaults.Sessions.MaxParallel)
	viper.SetDefault("sessions.include", defaults.Sessions.Include)
	viper.SetDefault("sessions.exclude", defaults.Sessions.Exclude)
	viper.SetDefault("sessions.reset_stale_on_resume", defaults.Sessions.ResetStaleOnResume)

	viper.SetDefault("routing.delegate_answers", defaults.Routing.DelegateAnswers)

	viper.SetDefault("tracker.provider", defaults.Tracker.Provider)
	viper.SetDefault("tracker.repo", defaults.Tracker.Repo)
	viper.SetDefault("tracker.area_label_prefix", defaults.Tracker.AreaLabelPrefix)
	viper.SetDefault("tracker.file", defaults.Tracker.File)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentcrew")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agentcrew"
	}
	return filepath.Join(home, ".config", "agentcrew")
}

// ConfigFile returns the path to the user config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Layout is the set of files agentcrew keeps under the state directory.
type Layout struct {
	Root         string
	StateFile    string
	QuestionsDir string
	LogDir       string
	LockFile     string
}

// Layout resolves the state directory against baseDir. A leading ~ expands
// to the user's home directory and relative paths are joined to baseDir.
func (p *PathsConfig) Layout(baseDir string) Layout {
	root := expandPath(p.StateDir, baseDir)
	return Layout{
		Root:         root,
		StateFile:    filepath.Join(root, "state.json"),
		QuestionsDir: filepath.Join(root, "questions"),
		LogDir:       filepath.Join(root, "logs"),
		LockFile:     filepath.Join(root, "driver.lock"),
	}
}

// ResolvePRD returns the absolute PRD path.
func (p *PathsConfig) ResolvePRD(baseDir string) string {
	return expandPath(p.PRDFile, baseDir)
}

// ResolveArchitecture returns the absolute architecture document path.
func (p *PathsConfig) ResolveArchitecture(baseDir string) string {
	return expandPath(p.ArchitectureFile, baseDir)
}

// PromptPath returns the path of a prompt document. Relative names are
// resolved under Dir.
func (p *PromptsConfig) PromptPath(baseDir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(expandPath(p.Dir, baseDir), name)
}

func expandPath(path, baseDir string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// ValidTrackerProviders returns the list of supported tracker providers
func ValidTrackerProviders() []string {
	return []string{TrackerGitHub, TrackerFile}
}
