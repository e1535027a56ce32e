package demoplugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/hostext/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileLogger(t *testing.T) (*FileLogger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.txt")
	logger, err := NewFileLogger(path)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestFileLogger_LogStringAppendsTimestampedLine(t *testing.T) {
	logger, path := newTestFileLogger(t)
	require.NoError(t, logger.LogString(context.Background(), "hello"))
	content := readFile(t, path)
	assert.Contains(t, content, "hello")
}

func TestFileLogger_LogStatusFormatsSeverity(t *testing.T) {
	logger, path := newTestFileLogger(t)
	err := logger.LogStatus(context.Background(), plugin.StatusEntry{
		Severity: plugin.SeverityError,
		Filename: "main.cpp",
		Line:     10,
		Message:  "boom",
	})
	require.NoError(t, err)
	content := readFile(t, path)
	assert.True(t, strings.Contains(content, "ERROR"))
	assert.True(t, strings.Contains(content, "main.cpp:10"))
	assert.True(t, strings.Contains(content, "boom"))
}

func TestFileLogger_LogSnapshotTagsLine(t *testing.T) {
	logger, path := newTestFileLogger(t)
	require.NoError(t, logger.LogSnapshot(context.Background(), `{"a":1}`))
	assert.Contains(t, readFile(t, path), "[SNAPSHOT]")
}

func TestFileLogger_InitWritesBanner(t *testing.T) {
	logger, path := newTestFileLogger(t)
	require.NoError(t, logger.Init(context.Background(), "file_logger"))
	assert.Contains(t, readFile(t, path), "Logger initialized: file_logger")
}

func TestFileLogger_HealthWritesMarker(t *testing.T) {
	logger, path := newTestFileLogger(t)
	require.NoError(t, logger.Health(context.Background()))
	assert.Contains(t, readFile(t, path), "HEALTH_CHECK")
}

func TestFileLogger_ShutdownWritesReasonAndNeverErrors(t *testing.T) {
	logger, path := newTestFileLogger(t)
	assert.NotPanics(t, func() {
		logger.Shutdown(context.Background(), plugin.ShutdownHostRequested)
	})
	assert.Contains(t, readFile(t, path), "host_requested")
}
