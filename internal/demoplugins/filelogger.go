package demoplugins

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jingkaihe/hostext/pkg/plugin"
)

const timestampLayout = "2006-01-02 15:04:05.000"

// FileLogger implements plugin.Logger and its optional Init/Health/Shutdown
// extensions, appending every event as one timestamped line to a file,
// mirroring original_source's logger-file example.
type FileLogger struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewFileLogger opens (creating if needed) path for append and returns a
// logger that writes every event to it.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{path: path, file: f}, nil
}

func (l *FileLogger) Name() string { return "file_logger" }

func (l *FileLogger) LogString(ctx context.Context, msg string) error {
	return l.writeLine(msg)
}

func (l *FileLogger) LogStatus(ctx context.Context, status plugin.StatusEntry) error {
	return l.writeLine(fmt.Sprintf("[%s] %s:%d - %s", severityLabel(status.Severity), status.Filename, status.Line, status.Message))
}

func (l *FileLogger) LogSnapshot(ctx context.Context, snapshot string) error {
	return l.writeLine("[SNAPSHOT] " + snapshot)
}

func (l *FileLogger) Init(ctx context.Context, name string) error {
	return l.writeLine(fmt.Sprintf("=== Logger initialized: %s (writing to: %s) ===", name, l.path))
}

func (l *FileLogger) Health(ctx context.Context) error {
	return l.writeLine("[HEALTH_CHECK] OK")
}

func (l *FileLogger) Shutdown(ctx context.Context, reason plugin.ShutdownReason) {
	_ = l.writeLine(fmt.Sprintf("=== Logger shutting down: %s ===", reason))
}

// Close closes the underlying file. Callers should defer it after
// NewFileLogger succeeds.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

func (l *FileLogger) writeLine(msg string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("[%s] %s\n", time.Now().Format(timestampLayout), msg)
	if _, err := l.file.WriteString(line); err != nil {
		return err
	}
	return l.file.Sync()
}

func severityLabel(s plugin.Severity) string {
	switch s {
	case plugin.SeverityWarning:
		return "WARN"
	case plugin.SeverityError:
		return "ERROR"
	default:
		return "INFO"
	}
}
