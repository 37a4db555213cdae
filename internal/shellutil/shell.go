// Package shellutil runs external commands on behalf of component build
// modes, FromShell file directives, and filesystem/disk drivers. Everything
// goes through the narrow Executor interface so tests can substitute a
// fake and never touch the host toolchain.
package shellutil

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
)

var log = logger.Logger()

// Executor runs shell commands, kept narrow so callers can substitute a
// fake in tests.
type Executor interface {
	Run(ctx context.Context, shell string, script string, env map[string]string, dir string) (string, error)
	RunStreaming(ctx context.Context, shell string, script string, env map[string]string, dir string, stdout, stderr *os.File) error
}

// DefaultExecutor shells out via os/exec.
type DefaultExecutor struct{}

// Default is the package-level Executor used unless a test substitutes one.
var Default Executor = &DefaultExecutor{}

func buildEnv(env map[string]string) []string {
	merged := os.Environ()
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	return merged
}

// Run executes script with the given interpreter ("nu", "bash", "sh", ...)
// and returns combined stdout+stderr. A non-zero exit is a *imgerr.Error of
// kind KindSubprocessFailed.
func (DefaultExecutor) Run(ctx context.Context, shell string, script string, env map[string]string, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, shell, "-c", script)
	cmd.Env = buildEnv(env)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		log.Debugf("command failed: %s -c %q: %v", shell, script, err)
		return out.String(), imgerr.Wrap(imgerr.KindSubprocessFailed, err, "%s -c %q", shell, truncate(script))
	}
	return out.String(), nil
}

// RunStreaming executes script with stdout/stderr redirected directly to the
// given files, used for FromShell file directives where stdout becomes the
// target file's content.
func (DefaultExecutor) RunStreaming(ctx context.Context, shell string, script string, env map[string]string, dir string, stdout, stderr *os.File) error {
	cmd := exec.CommandContext(ctx, shell, "-c", script)
	cmd.Env = buildEnv(env)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return imgerr.Wrap(imgerr.KindSubprocessFailed, err, "%s -c %q", shell, truncate(script))
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}

// IsCommandAvailable reports whether cmd exists on PATH.
func IsCommandAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}

// OSEnviron returns the process environment as a map.
func OSEnviron() map[string]string {
	out := make(map[string]string, len(os.Environ()))
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		}
	}
	return out
}
