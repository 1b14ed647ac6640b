package launcher

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeModule(t *testing.T, dir, name, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script modules are unix-only")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700); err != nil {
		t.Fatal(err)
	}
}

func TestStartCapturesOutput(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "inventory", `echo "module up $HC_USER_ID"`)

	l := &Launcher{ModulesDir: dir, Env: map[string]string{"HC_USER_ID": "u1"}}
	h, err := l.Start(context.Background(), "inventory")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := strings.TrimSpace(h.Stdout.String()); got != "module up u1" {
		t.Fatalf("stdout = %q", got)
	}
}

func TestStartUnknownModule(t *testing.T) {
	l := &Launcher{ModulesDir: t.TempDir()}
	h, err := l.Start(context.Background(), "no-such-module")
	if err == nil {
		t.Fatal("expected error")
	}
	if h != nil {
		t.Fatal("failed spawn must return a nil handle")
	}
}

func TestStopTerminates(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "sleeper", "sleep 30")

	l := &Launcher{ModulesDir: dir}
	h, err := l.Start(context.Background(), "sleeper")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := make(chan struct{})
	go func() {
		_ = h.Stop(5 * time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestNilHandleIsSafe(t *testing.T) {
	var h *Handle
	if err := h.Wait(); err != nil {
		t.Fatalf("nil Wait: %v", err)
	}
	if err := h.Stop(time.Second); err != nil {
		t.Fatalf("nil Stop: %v", err)
	}
}
