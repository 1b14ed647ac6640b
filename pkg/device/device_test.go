package device

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestIDStableAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	first := ID(dir)
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("ID returned non-uuid %q: %v", first, err)
	}
	second := ID(dir)
	if second != first {
		t.Fatalf("identity changed between calls: %q vs %q", first, second)
	}
}

func TestIDGarbageFileNotOverwritten(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("not-a-uuid"), 0o600); err != nil {
		t.Fatal(err)
	}
	id := ID(dir)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("fallback id invalid: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "not-a-uuid" {
		t.Fatalf("garbage file was rewritten to %q", b)
	}
}
