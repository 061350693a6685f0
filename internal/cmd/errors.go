package cmd

import (
	"github.com/Iron-Ham/agentcrew/internal/errors"
)

// FormatError renders err for the terminal. Errors marked user facing are
// shown as their own message without outer wrapping; the label follows the
// error's severity.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	label := "Error"
	switch errors.GetSeverity(err) {
	case errors.SeverityCritical:
		label = "Fatal"
	case errors.SeverityWarning:
		label = "Warning"
	}

	msg := err.Error()
	if errors.IsUserFacing(err) {
		var crewErr errors.CrewError
		if errors.As(err, &crewErr) {
			msg = crewErr.Error()
		}
	}
	return label + ": " + msg
}
