package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExists is returned by WriteFileOnce when the destination already exists.
var ErrExists = errors.New("file already exists")

// AtomicWriteFile writes data to a temp file in the destination directory,
// syncs it and renames it over path. Readers see either the old content or
// the new content, never a partial write.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpPath, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// WriteFileOnce is AtomicWriteFile that refuses to replace an existing file.
// The temp file is hard-linked into place, so two concurrent writers cannot
// both succeed; the loser gets ErrExists.
func WriteFileOnce(path string, data []byte, perm os.FileMode) error {
	if _, err := os.Lstat(path); err == nil {
		return ErrExists
	}

	tmpPath, err := writeTemp(path, data, perm)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if err := os.Link(tmpPath, path); err != nil {
		if os.IsExist(err) {
			return ErrExists
		}
		return fmt.Errorf("failed to link temp file: %w", err)
	}
	return nil
}

func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	fail := func(format string, err error) (string, error) {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf(format, err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		return fail("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fail("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set permissions: %w", err)
	}
	return tmpPath, nil
}
