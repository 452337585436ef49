// Package logger wires the process-wide structured loggers. The regular
// logger serves diagnostics; the audit logger records wallet-sensitive events
// (account grants, signing requests, sent transactions) to its own rotating
// file so the trail survives log level changes.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config describes how the loggers should behave.
type Config struct {
	Level       string
	Format      string
	OutputPaths []string
	Audit       AuditConfig
}

// AuditConfig controls the audit trail output.
type AuditConfig struct {
	Enabled    bool
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var (
	mu          sync.Mutex
	base        *slog.Logger
	audit       *slog.Logger
	openClosers []io.Closer
)

// Init configures the global loggers. Calling it again replaces them, which
// tests rely on.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	handler, err := newHandler(cfg)
	if err != nil {
		return err
	}
	base = slog.New(handler)

	audit = base
	if cfg.Audit.Enabled {
		auditHandler, err := newAuditHandler(cfg.Audit)
		if err != nil {
			return err
		}
		audit = slog.New(auditHandler)
	}
	return nil
}

func newHandler(cfg Config) (slog.Handler, error) {
	var writers []io.Writer
	for _, out := range cfg.OutputPaths {
		w, closer, err := openOutput(out)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			openClosers = append(openClosers, closer)
		}
		writers = append(writers, w)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	writer := writers[0]
	if len(writers) > 1 {
		writer = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.NewJSONHandler(writer, opts), nil
	}
	return slog.NewTextHandler(writer, opts), nil
}

func newAuditHandler(cfg AuditConfig) (slog.Handler, error) {
	if cfg.Path == "" {
		return nil, errors.New("audit log path cannot be empty when enabled")
	}
	writer, err := newRotatingWriter(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	if err != nil {
		return nil, err
	}
	openClosers = append(openClosers, writer)
	// Audit entries always record, regardless of the diagnostic level.
	return slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo}), nil
}

func openOutput(path string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(path) {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	default:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
		}
		return file, file, nil
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the diagnostic logger, initialising defaults on first use.
func L() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return base
}

// Audit returns the audit logger, falling back to the diagnostic logger when
// no audit output is configured.
func Audit() *slog.Logger {
	mu.Lock()
	a := audit
	mu.Unlock()
	if a != nil {
		return a
	}
	return L()
}

// Named returns a child diagnostic logger grouped under a component name.
func Named(name string) *slog.Logger {
	return L().WithGroup(name)
}

// Sync closes every file-backed output.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	var err error
	for _, closer := range openClosers {
		err = errors.Join(err, closer.Close())
	}
	openClosers = nil
	return err
}
