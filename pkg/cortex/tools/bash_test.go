package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("process group tests require a POSIX shell")
	}
}

func TestRunner_ExecuteEcho(t *testing.T) {
	skipOnWindows(t)
	r := DefaultRunner(logr.Discard())

	res := r.Execute(context.Background(), "echo hello", 5*time.Second)

	require.NoError(t, res.Err)
	assert.Equal(t, "hello\n", res.Output)
	assert.False(t, res.TimedOut)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello", Observation(res))
}

func TestRunner_MergesStderr(t *testing.T) {
	skipOnWindows(t)
	r := DefaultRunner(logr.Discard())

	res := r.Execute(context.Background(), "echo out; echo err 1>&2; exit 3", 5*time.Second)

	assert.Contains(t, res.Output, "out")
	assert.Contains(t, res.Output, "err")
	assert.Equal(t, 3, res.ExitCode)
	assert.True(t, strings.HasSuffix(Observation(res), "[exit code 3]"))
}

func TestRunner_CommandNotFound(t *testing.T) {
	skipOnWindows(t)
	r := DefaultRunner(logr.Discard())

	res := r.Execute(context.Background(), "definitely-not-a-real-binary-xyz", 5*time.Second)

	assert.NoError(t, res.Err)
	assert.Equal(t, 127, res.ExitCode)
	assert.Contains(t, res.Output, "not found")
}

func TestRunner_TimeoutKillsSignalIgnoringCommand(t *testing.T) {
	skipOnWindows(t)
	r := DefaultRunner(logr.Discard())
	r.Grace = 500 * time.Millisecond

	timeout := 300 * time.Millisecond
	start := time.Now()
	res := r.Execute(context.Background(), `trap "" TERM INT; echo started; sleep 30`, timeout)
	elapsed := time.Since(start)

	assert.True(t, res.TimedOut)
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Output, "started")
	assert.Less(t, elapsed, timeout+r.Grace+time.Second)
	assert.Contains(t, Observation(res), "[command timed out after 300ms]")
}

func TestRunner_TimeoutKillsChildren(t *testing.T) {
	skipOnWindows(t)
	r := DefaultRunner(logr.Discard())
	r.Grace = 500 * time.Millisecond
	marker := filepath.Join(t.TempDir(), "survived")

	res := r.Execute(context.Background(), "(sleep 1; touch "+marker+") & sleep 30", 200*time.Millisecond)
	require.True(t, res.TimedOut)

	time.Sleep(1500 * time.Millisecond)
	_, err := os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "background child outlived the process group kill")
}

func TestRunner_ContextCancellation(t *testing.T) {
	skipOnWindows(t)
	r := DefaultRunner(logr.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	res := r.Execute(ctx, "sleep 30", 10*time.Second)

	assert.True(t, res.Cancelled)
	assert.False(t, res.TimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Contains(t, Observation(res), "[command cancelled]")
}

func TestRunner_SpawnFailure(t *testing.T) {
	r := &Runner{Shell: []string{filepath.Join(t.TempDir(), "no-such-shell"), "-c"}}

	res := r.Execute(context.Background(), "echo hi", time.Second)

	require.Error(t, res.Err)
	assert.True(t, apperrors.Is(res.Err, apperrors.ErrCodeSpawnFailed))
	assert.Equal(t, -1, res.ExitCode)
	assert.Contains(t, res.Output, "Failed to start command")
	assert.Equal(t, res.Output, Observation(res))
}

func TestRunner_EmptyCommand(t *testing.T) {
	r := DefaultRunner(logr.Discard())

	res := r.Execute(context.Background(), "   ", time.Second)

	assert.True(t, apperrors.Is(res.Err, apperrors.ErrCodeInvalidInput))
	assert.Equal(t, -1, res.ExitCode)
}

func TestRunner_WorkDir(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	r := DefaultRunner(logr.Discard())
	r.WorkDir = dir

	res := r.Execute(context.Background(), "pwd", time.Second)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(res.Output))
}

func TestObservation_NoOutput(t *testing.T) {
	assert.Equal(t, "(no output)", Observation(Result{}))
}

func TestBinary(t *testing.T) {
	tests := map[string]string{
		"nmap -sV 10.0.0.5":           "nmap",
		"/usr/bin/Nmap -p 22 host":    "nmap",
		"sudo nmap -sS host":          "nmap",
		"sudo -E masscan host":        "masscan",
		"HTTP_PROXY=x:8080 curl host": "curl",
		"env FOO=1 gobuster dir -u x": "gobuster",
		"":                            "",
		"   ":                         "",
	}
	for command, want := range tests {
		assert.Equal(t, want, Binary(command), command)
	}
}

func TestTimeoutFor(t *testing.T) {
	overrides := map[string]time.Duration{"nmap": 15 * time.Minute}

	assert.Equal(t, 15*time.Minute, TimeoutFor("sudo nmap -p- host", time.Minute, overrides))
	assert.Equal(t, time.Minute, TimeoutFor("curl host", time.Minute, overrides))
	assert.Equal(t, time.Minute, TimeoutFor("nmap host", time.Minute, nil))
}
