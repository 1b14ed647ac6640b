// Package launcher spawns satellite modules as child processes. Module
// executables live in a configured directory (one binary per module) with
// a PATH fallback of hc-module-<name>.
package launcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hangarcore/pkg/logger"
)

// Handle represents a spawned module process.
type Handle struct {
	Module string
	Cmd    *exec.Cmd
	// captured output from the child process
	Stdout bytes.Buffer
	Stderr bytes.Buffer
	// done receives the result of cmd.Wait()
	done chan error
}

// Launcher resolves and starts module executables.
type Launcher struct {
	// ModulesDir holds one executable per module.
	ModulesDir string
	// Env entries are appended to the child environment.
	Env map[string]string
}

// resolve finds the executable for a module name.
func (l *Launcher) resolve(module string) (string, error) {
	if l.ModulesDir != "" {
		p := filepath.Join(l.ModulesDir, module)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if p, err := exec.LookPath("hc-module-" + module); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("module executable not found: %s", module)
}

// Start spawns the module and returns a handle, or (nil, err) when the
// spawn fails. Callers treat a nil handle as non-fatal and surface a
// user-visible error.
func (l *Launcher) Start(ctx context.Context, module string, args ...string) (*Handle, error) {
	bin, err := l.resolve(module)
	if err != nil {
		logger.Log.Error("module_spawn_failed", zap.String("module", module), zap.Error(err))
		return nil, err
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = os.Environ()
	for k, v := range l.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdoutPipe, _ := cmd.StdoutPipe()
	stderrPipe, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		logger.Log.Error("module_spawn_failed", zap.String("module", module), zap.Error(err))
		return nil, fmt.Errorf("start module %s: %w", module, err)
	}

	h := &Handle{Module: module, Cmd: cmd, done: make(chan error, 1)}

	// mirror child output into our streams and keep a copy for diagnostics
	go func() { _, _ = io.Copy(io.MultiWriter(os.Stdout, &h.Stdout), stdoutPipe) }()
	go func() { _, _ = io.Copy(io.MultiWriter(os.Stderr, &h.Stderr), stderrPipe) }()
	go func() { h.done <- cmd.Wait() }()

	logger.Log.Info("module_started", zap.String("module", module), zap.Int("pid", cmd.Process.Pid))
	return h, nil
}

// Wait blocks until the module exits.
func (h *Handle) Wait() error {
	if h == nil {
		return nil
	}
	return <-h.done
}

// Stop asks the module to terminate, killing it after the timeout.
func (h *Handle) Stop(timeout time.Duration) error {
	if h == nil || h.Cmd == nil || h.Cmd.Process == nil {
		return nil
	}
	_ = h.Cmd.Process.Signal(syscall.SIGTERM)
	select {
	case err := <-h.done:
		return err
	case <-time.After(timeout):
		_ = h.Cmd.Process.Kill()
		return fmt.Errorf("killed module %s after timeout", h.Module)
	}
}
