package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/agentcrew/internal/errors"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "sessions.max_parallel")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Is reports configuration errors as errors.ErrInvalidConfig.
func (e ValidationErrors) Is(target error) bool {
	return target == errors.ErrInvalidConfig
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateAgent()...)
	errs = append(errs, c.validatePrompts()...)
	errs = append(errs, c.validatePaths()...)
	errs = append(errs, c.validateSessions()...)
	errs = append(errs, c.validateTracker()...)
	errs = append(errs, c.validateLogging()...)
	return errs
}

func (c *Config) validateAgent() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(c.Agent.Command) == "" {
		errs = append(errs, ValidationError{
			Field:   "agent.command",
			Value:   c.Agent.Command,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.Agent.ContextFlag) == "" {
		errs = append(errs, ValidationError{
			Field:   "agent.context_flag",
			Value:   c.Agent.ContextFlag,
			Message: "must not be empty",
		})
	}
	return errs
}

func (c *Config) validatePrompts() []ValidationError {
	var errs []ValidationError

	for _, f := range []struct{ field, value string }{
		{"prompts.po", c.Prompts.PO},
		{"prompts.tech_lead", c.Prompts.TechLead},
		{"prompts.dev", c.Prompts.Dev},
		{"prompts.answer", c.Prompts.Answer},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, ValidationError{
				Field:   f.field,
				Value:   f.value,
				Message: "must name a prompt document",
			})
		}
	}
	return errs
}

// validatePaths rejects empty values and characters no filesystem accepts
func (c *Config) validatePaths() []ValidationError {
	var errs []ValidationError

	const maxPathLength = 4096
	for _, f := range []struct{ field, value string }{
		{"paths.state_dir", c.Paths.StateDir},
		{"paths.prd_file", c.Paths.PRDFile},
		{"paths.architecture_file", c.Paths.ArchitectureFile},
	} {
		switch {
		case strings.TrimSpace(f.value) == "":
			errs = append(errs, ValidationError{Field: f.field, Value: f.value, Message: "must not be empty"})
		case strings.ContainsRune(f.value, '\x00'):
			errs = append(errs, ValidationError{Field: f.field, Value: f.value, Message: "path contains invalid null character"})
		case len(f.value) > maxPathLength:
			errs = append(errs, ValidationError{
				Field:   f.field,
				Value:   f.value,
				Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
			})
		}
	}
	return errs
}

func (c *Config) validateSessions() []ValidationError {
	var errs []ValidationError

	if c.Sessions.MaxParallel < 0 {
		errs = append(errs, ValidationError{
			Field:   "sessions.max_parallel",
			Value:   c.Sessions.MaxParallel,
			Message: "must be non-negative (0 means unbounded)",
		})
	}

	for field, patterns := range map[string][]string{
		"sessions.include": c.Sessions.Include,
		"sessions.exclude": c.Sessions.Exclude,
	} {
		for _, p := range patterns {
			if _, err := glob.Compile(p); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Value:   p,
					Message: fmt.Sprintf("invalid glob pattern: %v", err),
				})
			}
		}
	}
	slices.SortStableFunc(errs, func(a, b ValidationError) int { return strings.Compare(a.Field, b.Field) })
	return errs
}

func (c *Config) validateTracker() []ValidationError {
	var errs []ValidationError

	if !slices.Contains(ValidTrackerProviders(), c.Tracker.Provider) {
		errs = append(errs, ValidationError{
			Field:   "tracker.provider",
			Value:   c.Tracker.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTrackerProviders(), ", ")),
		})
	}
	if c.Tracker.Provider == TrackerFile && strings.TrimSpace(c.Tracker.File) == "" {
		errs = append(errs, ValidationError{
			Field:   "tracker.file",
			Value:   c.Tracker.File,
			Message: "is required when tracker.provider is \"file\"",
		})
	}
	if c.Tracker.Provider == TrackerGitHub && strings.TrimSpace(c.Tracker.AreaLabelPrefix) == "" {
		errs = append(errs, ValidationError{
			Field:   "tracker.area_label_prefix",
			Value:   c.Tracker.AreaLabelPrefix,
			Message: "must not be empty",
		})
	}
	if c.Tracker.Repo != "" && strings.Count(c.Tracker.Repo, "/") != 1 {
		errs = append(errs, ValidationError{
			Field:   "tracker.repo",
			Value:   c.Tracker.Repo,
			Message: "must be in owner/name form",
		})
	}
	return errs
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB <= 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	} else if c.Logging.MaxSizeMB > maxLogSizeMB {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}
	return errs
}
