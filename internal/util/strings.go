// Package util provides small helpers shared across agentcrew: atomic file
// writes and terminal-safe string formatting.
package util

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Truncate shortens s to at most width terminal columns, ending in "..."
// when cut. Styled strings keep their escape sequences intact.
func Truncate(s string, width int) string {
	if width <= 3 {
		return strings.Repeat(".", max(width, 0))
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "...")
}

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for line := range strings.SplitSeq(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// JoinInts formats nums with prefix before each number, separated by sep.
// JoinInts([]int{1, 3}, ", ", "#") is "#1, #3".
func JoinInts(nums []int, sep, prefix string) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = prefix + strconv.Itoa(n)
	}
	return strings.Join(parts, sep)
}
