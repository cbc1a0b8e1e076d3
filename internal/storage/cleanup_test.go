package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanOrphanedTempFiles(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "cats")
	if err := EnsureDir(sub); err != nil {
		t.Fatal(err)
	}
	old := filepath.Join(sub, ".tmp-123")
	fresh := filepath.Join(root, ".tmp-456")
	keep := filepath.Join(sub, "a.jpg")
	for _, p := range []string{old, fresh, keep} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().Add(-time.Hour)
	for _, p := range []string{old, keep} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	n, err := CleanOrphanedTempFiles(root, 15*time.Minute)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old temp removed, stat err: %v", err)
	}
	for _, p := range []string{fresh, keep} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to remain: %v", p, err)
		}
	}
}

func TestCleanOrphanedTempFiles_MissingRoot(t *testing.T) {
	n, err := CleanOrphanedTempFiles(filepath.Join(t.TempDir(), "nope"), time.Minute)
	if err != nil || n != 0 {
		t.Fatalf("expected no-op for missing root, got %d, %v", n, err)
	}
}
