package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-logr/logr"
	"github.com/stoewer/go-strcase"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xaviserrafigueras/RedAI/pkg/cortex/config"
	apperrors "github.com/xaviserrafigueras/RedAI/pkg/cortex/errors"
)

// Store is the SQL-backed history log
type Store struct {
	db     *gorm.DB
	logger logr.Logger
}

// Open connects to the configured database and migrates the schema
func Open(ctx context.Context, driver, dsn string, logger logr.Logger) (*Store, error) {
	logger = logger.WithName("store")

	var dialector gorm.Dialector
	switch driver {
	case config.DriverSQLite, "":
		if dsn == "" {
			dsn = "database.db"
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to create database directory", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)"
		}
		dialector = sqlite.Open(dsn)
	case config.DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, fmt.Sprintf("unsupported database driver: %s", driver), nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(logWriter{logger}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to open database", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&ScanResult{}, &AgentMessage{}); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to migrate schema", err)
	}

	logger.V(1).Info("Database ready", "driver", dialector.Name())
	return &Store{db: db, logger: logger}, nil
}

// Append records a command result. kind is normalised to snake case.
func (s *Store) Append(ctx context.Context, target, kind, output, project string) error {
	record := &ScanResult{
		ProjectName: projectOrDefault(project),
		Target:      target,
		CommandType: strcase.SnakeCase(strings.TrimSpace(kind)),
		Output:      output,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.New(apperrors.ErrCodeStoreFailed, "failed to save scan result", err)
	}
	return nil
}

// RecordMessage mirrors one conversation turn
func (s *Store) RecordMessage(ctx context.Context, project, sessionID, role, content string) error {
	record := &AgentMessage{
		ProjectName: projectOrDefault(project),
		SessionID:   sessionID,
		Role:        role,
		Content:     content,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.New(apperrors.ErrCodeStoreFailed, "failed to save agent message", err)
	}
	return nil
}

// History returns the most recent results, newest first. An empty project matches all.
func (s *Store) History(ctx context.Context, project string, limit int) ([]ScanResult, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if project != "" {
		q = q.Where("project_name = ?", project)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var results []ScanResult
	if err := q.Find(&results).Error; err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to load history", err)
	}
	return results, nil
}

// Projects returns the distinct project names in alphabetical order
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).
		Model(&ScanResult{}).
		Distinct("project_name").
		Order("project_name").
		Pluck("project_name", &names).Error
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to list projects", err)
	}
	return names, nil
}

// Messages returns the last limit messages of a project in chronological order
func (s *Store) Messages(ctx context.Context, project string, limit int) ([]AgentMessage, error) {
	q := s.db.WithContext(ctx).
		Where("project_name = ?", projectOrDefault(project)).
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var msgs []AgentMessage
	if err := q.Find(&msgs).Error; err != nil {
		return nil, apperrors.New(apperrors.ErrCodeStoreFailed, "failed to load agent messages", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func projectOrDefault(project string) string {
	if p := strings.TrimSpace(project); p != "" {
		return p
	}
	return DefaultProject
}

// logWriter routes gorm's logger into logr
type logWriter struct {
	logger logr.Logger
}

func (w logWriter) Printf(format string, args ...interface{}) {
	w.logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
