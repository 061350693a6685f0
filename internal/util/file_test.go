package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "state.json")

	if err := AtomicWriteFile(path, []byte("one"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile() error = %v", err)
	}
	if err := AtomicWriteFile(path, []byte("two"), 0600); err != nil {
		t.Fatalf("AtomicWriteFile() overwrite error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want two", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestWriteFileOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q-001.response")

	if err := WriteFileOnce(path, []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFileOnce() error = %v", err)
	}
	if err := WriteFileOnce(path, []byte("second"), 0644); !errors.Is(err, ErrExists) {
		t.Errorf("second WriteFileOnce() error = %v, want ErrExists", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "first" {
		t.Errorf("content = %q, want first", data)
	}
	assertNoTempFiles(t, dir)
}

func TestWriteFileOnce_Concurrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q-002.response")

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := WriteFileOnce(path, []byte("x"), 0644); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("%d writers succeeded, want exactly 1", successes)
	}
	assertNoTempFiles(t, dir)
}
