package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the log sinks
type Options struct {
	// Level is one of DEBUG, INFO, WARNING, ERROR or CRITICAL
	Level          string
	Dir            string
	FileEnabled    bool
	ConsoleEnabled bool
	// Console receives warnings and errors. Defaults to os.Stderr.
	Console io.Writer
	Now     func() time.Time
}

// FileName returns the daily log file path under dir
func FileName(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("redai_%s.log", t.Format("20060102")))
}

// ParseLevel maps a configured level name to a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel, nil
	case "", "INFO":
		return zapcore.InfoLevel, nil
	case "WARNING", "WARN":
		return zapcore.WarnLevel, nil
	case "ERROR", "CRITICAL":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// New builds a logr.Logger writing JSON lines to the daily file at the
// configured level and human-readable warnings to the console.
// The returned func flushes and closes the file.
func New(opts Options) (logr.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), noop, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	var (
		cores []zapcore.Core
		file  *os.File
	)

	if opts.FileEnabled {
		dir := opts.Dir
		if dir == "" {
			dir = "logs"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return logr.Discard(), noop, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err = os.OpenFile(FileName(dir, opts.Now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return logr.Discard(), noop, fmt.Errorf("failed to open log file: %w", err)
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), level))
	}

	if opts.ConsoleEnabled {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		consoleLevel := zapcore.WarnLevel
		if level > consoleLevel {
			consoleLevel = level
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(opts.Console), consoleLevel))
	}

	if len(cores) == 0 {
		return logr.Discard(), noop, nil
	}

	zl := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		_ = zl.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return zapr.NewLogger(zl).WithName("redai"), closeFn, nil
}

func noop() error { return nil }
