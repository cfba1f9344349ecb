package lvm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Executor runs a volume manager tool and returns its standard output.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError carries the native failure of an lvm tool invocation.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s failed (exit code %d): %s", e.Command, e.ExitCode, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ShellExecutor runs commands on the host, with extra directories appended to PATH
// since the lvm tools usually live in sbin.
type ShellExecutor struct {
	ExtraPath string
}

func NewShellExecutor(extraPath string) *ShellExecutor {
	return &ShellExecutor{ExtraPath: extraPath}
}

func (s *ShellExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, s.lookPath(name), args...)
	cmd.Env = s.env()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// lvm complains about leaked descriptors on stderr otherwise
	cmd.Env = append(cmd.Env, "LVM_SUPPRESS_FD_WARNINGS=1")

	if err := cmd.Run(); err != nil {
		cmdErr := &CommandError{
			Command:  strings.Join(append([]string{name}, args...), " "),
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), cmdErr
	}
	return stdout.Bytes(), nil
}

// lookPath resolves name against PATH first and ExtraPath after it.
func (s *ShellExecutor) lookPath(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	for _, dir := range filepath.SplitList(s.ExtraPath) {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() && fi.Mode()&0o111 != 0 {
			return candidate
		}
	}
	return name
}

func (s *ShellExecutor) env() []string {
	env := os.Environ()
	if s.ExtraPath == "" {
		return env
	}
	for i, e := range env {
		if strings.HasPrefix(e, "PATH=") {
			env[i] = fmt.Sprintf("%s:%s", e, s.ExtraPath)
			return env
		}
	}
	return append(env, fmt.Sprintf("PATH=%s", s.ExtraPath))
}
