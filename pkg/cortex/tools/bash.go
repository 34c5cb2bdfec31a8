package tools

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

const (
	DefaultCommandTimeout = 120 * time.Second
	// DefaultGrace bounds how long a killed process group may take to be reaped
	DefaultGrace = 2 * time.Second
)

// Result is the outcome of one command execution
type Result struct {
	Command  string
	Output   string
	TimedOut bool
	// Cancelled is set when the caller's context ended the command
	Cancelled bool
	ExitCode  int
	Timeout   time.Duration
	Duration  time.Duration
	// Err is set when the command could not be started
	Err error
}

// Runner executes shell commands in their own process group
type Runner struct {
	Shell   []string
	Grace   time.Duration
	WorkDir string
	Env     []string
	Logger  logr.Logger
}

// DefaultRunner returns a Runner using the platform shell
func DefaultRunner(logger logr.Logger) *Runner {
	return &Runner{
		Shell:  defaultShell(),
		Grace:  DefaultGrace,
		Logger: logger.WithName("executor"),
	}
}

func defaultShell() []string {
	if runtime.GOOS == "windows" {
		return []string{"cmd", "/C"}
	}
	return []string{"sh", "-c"}
}

// Execute runs command through the shell with stdout and stderr merged. On
// timeout or cancellation the whole process group is killed and the partial
// output returned. Failures are reported in the Result, never as a panic.
func (r *Runner) Execute(ctx context.Context, command string, timeout time.Duration) Result {
	start := time.Now()
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	grace := r.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	shell := r.Shell
	if len(shell) == 0 {
		shell = defaultShell()
	}

	res := Result{Command: command, Timeout: timeout}
	if strings.TrimSpace(command) == "" {
		res.ExitCode = -1
		res.Err = apperrors.New(apperrors.ErrCodeInvalidInput, "command is required", nil)
		res.Output = "Failed to start command: empty command"
		return res
	}

	var buf lockedBuffer
	args := append(append([]string{}, shell[1:]...), command)
	cmd := exec.Command(shell[0], args...)
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.Dir = r.WorkDir
	if len(r.Env) > 0 {
		cmd.Env = r.Env
	}
	cmd.WaitDelay = grace
	configureProcessGroup(cmd)

	r.Logger.V(1).Info("Starting command", "command", command, "timeout", timeout.String())

	if err := cmd.Start(); err != nil {
		res.ExitCode = -1
		res.Duration = time.Since(start)
		res.Err = apperrors.New(apperrors.ErrCodeSpawnFailed, "failed to start command", err)
		res.Output = fmt.Sprintf("Failed to start command: %v", err)
		r.Logger.Info("Command failed to start", "command", command, "error", err.Error())
		return res
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer.C:
		res.TimedOut = true
		terminateProcessGroup(cmd)
		waitErr = awaitExit(done, grace)
	case <-ctx.Done():
		res.Cancelled = true
		terminateProcessGroup(cmd)
		waitErr = awaitExit(done, grace)
	}

	res.Duration = time.Since(start)
	res.Output = buf.String()
	res.ExitCode = exitCode(cmd, waitErr)
	if res.TimedOut || res.Cancelled {
		res.ExitCode = -1
	}

	r.Logger.V(1).Info("Command finished",
		"command", command,
		"exitCode", res.ExitCode,
		"timedOut", res.TimedOut,
		"cancelled", res.Cancelled,
		"duration", res.Duration.String(),
		"outputBytes", len(res.Output))
	return res
}

// awaitExit waits for the reaper goroutine, giving up after grace
func awaitExit(done <-chan error, grace time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		return stderrors.New("process group did not exit within grace period")
	}
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return 0
}

// Observation renders a result as the text fed back to the model
func Observation(res Result) string {
	if res.Err != nil {
		return res.Output
	}

	out := strings.TrimRight(res.Output, "\r\n")
	if strings.TrimSpace(out) == "" {
		out = "(no output)"
	}

	switch {
	case res.TimedOut:
		out += fmt.Sprintf("\n[command timed out after %s]", res.Timeout)
	case res.Cancelled:
		out += "\n[command cancelled]"
	case res.ExitCode != 0:
		out += fmt.Sprintf("\n[exit code %d]", res.ExitCode)
	}
	return out
}

// Binary returns the executable name of a shell command, skipping sudo and
// leading VAR=value assignments. It returns "" for an empty command.
func Binary(command string) string {
	for _, field := range strings.Fields(command) {
		if field == "sudo" || field == "env" || (strings.Contains(field, "=") && !strings.HasPrefix(field, "-")) {
			continue
		}
		if strings.HasPrefix(field, "-") {
			continue
		}
		return strings.ToLower(filepath.Base(field))
	}
	return ""
}

// TimeoutFor picks the per-tool override for the command's binary, falling back to fallback
func TimeoutFor(command string, fallback time.Duration, overrides map[string]time.Duration) time.Duration {
	if d, ok := overrides[Binary(command)]; ok && d > 0 {
		return d
	}
	return fallback
}

// lockedBuffer is shared by stdout and stderr, which exec copies from separate goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
