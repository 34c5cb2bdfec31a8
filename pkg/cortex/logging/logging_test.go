package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFileName(t *testing.T) {
	day := time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "redai_20250307.log"), FileName("logs", day))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"WARNING", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"CRITICAL", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("TRACE")
	assert.Error(t, err)
}

func TestNew_FileAndConsoleSinks(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	var console bytes.Buffer

	logger, closeFn, err := New(Options{
		Level:          "DEBUG",
		Dir:            dir,
		FileEnabled:    true,
		ConsoleEnabled: true,
		Console:        &console,
		Now:            func() time.Time { return day },
	})
	require.NoError(t, err)

	logger.Info("step recorded", "step", 1)
	logger.V(1).Info("prompt sent")
	logger.Error(errors.New("boom"), "provider failed")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(FileName(dir, day))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"step recorded"`)
	assert.Contains(t, string(data), `"msg":"prompt sent"`)
	assert.Contains(t, string(data), `"msg":"provider failed"`)

	// Console only carries warnings and above
	assert.NotContains(t, console.String(), "step recorded")
	assert.Contains(t, console.String(), "provider failed")
}

func TestNew_InfoLevelDropsVerbose(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	logger, closeFn, err := New(Options{Level: "INFO", Dir: dir, FileEnabled: true, Now: func() time.Time { return now }})
	require.NoError(t, err)

	logger.V(1).Info("hidden")
	logger.Info("shown")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(FileName(dir, now))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNew_NoSinks(t *testing.T) {
	logger, closeFn, err := New(Options{Level: "INFO"})
	require.NoError(t, err)
	logger.Info("dropped")
	assert.NoError(t, closeFn())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "LOUD"})
	assert.Error(t, err)
}
