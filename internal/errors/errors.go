// Package errors provides centralized error definitions and error handling utilities
// for agentcrew. It defines sentinel errors per subsystem, domain-specific error
// types carrying orchestration context, semantic error types, and classification
// helpers.
//
// # Error Taxonomy
//
// Errors fall into four families that drive how the orchestrator reacts:
//
//   - Configuration errors (ErrInvalidConfig, ValidationError): raised before any
//     subprocess or file is touched. The caller fixes its input and retries.
//   - Spawn errors (SpawnError): the operating system could not create an agent
//     process. They are delivered through a process handle, never as an outcome.
//   - Protocol errors (ErrStateCorrupted): malformed on-disk data. Question files
//     and state files degrade to defaults or are repaired; ErrStateCorrupted is
//     reserved for a damaged state file that cannot be moved aside.
//   - Phase errors (PhaseError): an invalid transition or an unusable agent
//     outcome. Always fatal for the current run.
//
// Agent exit codes (success, error, blocked) are data, not errors, and never
// appear here.
//
// # Usage
//
//	err := errors.NewPhaseError("PRD was not created", errors.ErrPhaseFailed).
//	    WithPhase("po_conversation").WithAgent("po")
//
//	if errors.Is(err, errors.ErrPhaseFailed) { ... }
//
//	var phaseErr *errors.PhaseError
//	if errors.As(err, &phaseErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration sentinel errors
var (
	// ErrInvalidConfig indicates a missing or invalid required input.
	ErrInvalidConfig = New("invalid configuration")
)

// Agent process sentinel errors
var (
	// ErrSpawnFailed indicates that the operating system could not create an agent process.
	ErrSpawnFailed = New("agent process failed to start")
)

// State sentinel errors
var (
	// ErrInvalidTransition indicates a phase transition outside the fixed order.
	ErrInvalidTransition = New("invalid phase transition")
	// ErrSessionExists indicates that a dev session for the area already exists.
	ErrSessionExists = New("dev session already exists")
	// ErrSessionNotFound indicates that no dev session exists for the area.
	ErrSessionNotFound = New("dev session not found")
	// ErrStateCorrupted indicates that the persisted state could not be decoded.
	ErrStateCorrupted = New("state data corrupted")
	// ErrLocked indicates that another driver holds the state directory lock.
	ErrLocked = New("state directory is locked by another driver")
)

// Question protocol sentinel errors
var (
	// ErrAlreadyAnswered indicates that a response already exists for the question.
	ErrAlreadyAnswered = New("question already answered")
	// ErrQuestionNotFound indicates that a question file does not exist.
	ErrQuestionNotFound = New("question not found")
	// ErrNoQuestion indicates that an agent blocked without leaving a question.
	ErrNoQuestion = New("agent blocked without writing a question")
)

// Orchestration sentinel errors
var (
	// ErrPhaseFailed indicates that a phase ended in an outcome it cannot proceed from.
	ErrPhaseFailed = New("phase failed")
	// ErrManualIntervention indicates that only errored sessions remain.
	ErrManualIntervention = New("sessions require manual intervention")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CrewError is the base interface for all agentcrew errors.
type CrewError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// formatWithContext renders "<kind> [k=v, ...]: message: cause".
func formatWithContext(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// PhaseError represents a fatal orchestration failure tied to a workflow phase.
//
// Example:
//
//	err := errors.NewPhaseError("architecture document missing", errors.ErrPhaseFailed)
//	err = err.WithPhase("tech_lead_design").WithAgent("tech_lead")
//	fmt.Println(err) // "phase error [phase=tech_lead_design, agent=tech_lead]: architecture document missing: phase failed"
type PhaseError struct {
	baseError
	Phase    string
	Agent    string
	ExitCode int
}

// NewPhaseError creates a new PhaseError.
func NewPhaseError(message string, cause error) *PhaseError {
	return &PhaseError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			userFacing: true,
		},
		ExitCode: -1,
	}
}

// WithPhase adds the phase name to the error context.
func (e *PhaseError) WithPhase(phase string) *PhaseError {
	e.Phase = phase
	return e
}

// WithAgent adds the agent name to the error context.
func (e *PhaseError) WithAgent(agent string) *PhaseError {
	e.Agent = agent
	return e
}

// WithExitCode records the agent exit code that caused the failure.
func (e *PhaseError) WithExitCode(code int) *PhaseError {
	e.ExitCode = code
	return e
}

// Error returns the formatted error message.
func (e *PhaseError) Error() string {
	var parts []string
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}
	if e.Agent != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.Agent))
	}
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}
	return formatWithContext("phase error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *PhaseError) Is(target error) bool {
	if _, ok := target.(*PhaseError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// SpawnError represents an operating system failure to create an agent process.
//
// Example:
//
//	err := errors.NewSpawnError("exec failed", execErr).WithAgent("dev-frontend").WithCommand("claude")
type SpawnError struct {
	baseError
	Agent   string
	Command string
}

// NewSpawnError creates a new SpawnError.
func NewSpawnError(message string, cause error) *SpawnError {
	return &SpawnError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithAgent adds the agent name to the error context.
func (e *SpawnError) WithAgent(name string) *SpawnError {
	e.Agent = name
	return e
}

// WithCommand adds the executable to the error context.
func (e *SpawnError) WithCommand(command string) *SpawnError {
	e.Command = command
	return e
}

// Error returns the formatted error message.
func (e *SpawnError) Error() string {
	var parts []string
	if e.Agent != "" {
		parts = append(parts, fmt.Sprintf("agent=%s", e.Agent))
	}
	if e.Command != "" {
		parts = append(parts, fmt.Sprintf("command=%s", e.Command))
	}
	return formatWithContext("spawn error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *SpawnError) Is(target error) bool {
	if _, ok := target.(*SpawnError); ok {
		return true
	}
	if target == ErrSpawnFailed {
		return true
	}
	return e.baseError.Is(target)
}

// SessionError represents errors related to a developer session.
//
// Example:
//
//	err := errors.NewSessionError("cannot add session", errors.ErrSessionExists).WithArea("frontend")
type SessionError struct {
	baseError
	Area string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithArea adds the session area to the error context.
func (e *SessionError) WithArea(area string) *SessionError {
	e.Area = area
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.Area != "" {
		parts = append(parts, fmt.Sprintf("area=%s", e.Area))
	}
	return formatWithContext("session error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("question", "q-004")
//	fmt.Println(err) // "question 'q-004' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError represents a resource that already exists.
//
// Example:
//
//	err := errors.NewAlreadyExistsError("response", "q-002")
//	fmt.Println(err) // "response 'q-002' already exists"
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' already exists", resourceType, resourceID),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' already exists: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' already exists", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("agent name is required").WithField("name")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return formatWithContext("validation error", parts, e.message, e.cause)
}

// Is checks if this error matches the target. Validation errors are
// configuration errors and therefore match ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidConfig {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var crewErr CrewError
	if As(err, &crewErr) {
		return crewErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement CrewError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var crewErr CrewError
	if As(err, &crewErr) {
		return crewErr.Severity()
	}
	return SeverityError
}

// IsFatal reports whether err must abort the current run: configuration and
// phase errors are fatal; everything else is handled by explicit branching.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var phaseErr *PhaseError
	return As(err, &phaseErr) || Is(err, ErrInvalidConfig) || Is(err, ErrInvalidTransition)
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
