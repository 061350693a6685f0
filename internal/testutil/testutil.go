// Package testutil provides helpers shared by agentcrew tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ShellPath is the interpreter tests use to stand in for an agent CLI.
const ShellPath = "/bin/sh"

// SkipIfNoShell skips tests that run scripted agents through /bin/sh.
func SkipIfNoShell(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(ShellPath); err != nil {
		t.Skip("requires " + ShellPath)
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// WriteFiles writes each relative path in files under root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, name), content)
	}
}

// ReadFile returns the content of path, failing the test when it is missing.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
