package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Logger writes audit events to a single append-only file, one JSON
// object per line. It is safe for concurrent use.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	writer io.Writer
	path   string
}

// Config configures a file-backed Logger.
type Config struct {
	// FilePath is the path to the audit log file.
	FilePath string
	// CreateDir creates parent directories if they don't exist.
	CreateDir bool
}

// NewLogger opens (or creates) the audit log file for appending.
func NewLogger(cfg Config) (*Logger, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("audit: file path cannot be empty")
	}
	if cfg.CreateDir {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("audit: create directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &Logger{file: f, writer: f, path: cfg.FilePath}, nil
}

// NewNullLogger returns a Logger that discards every event; useful for
// tests and for disabling audit logging in configuration.
func NewNullLogger() *Logger {
	return &Logger{writer: io.Discard}
}

// Log appends event as a single JSON line. Safe for concurrent callers.
func (l *Logger) Log(event *Event) error {
	if event == nil {
		return fmt.Errorf("audit: event cannot be nil")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}
	if syncer, ok := l.writer.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return fmt.Errorf("audit: sync: %w", err)
		}
	}
	return nil
}

// Close closes the underlying file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Path returns the audit log's file path ("" for a null logger).
func (l *Logger) Path() string { return l.path }
