// Package daemon provides daemon event logging infrastructure.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kodflow/supervizio/internal/domain/logging"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Permission mode for log directories (rwxr-x---).
const dirPermissions os.FileMode = 0o750

// Permission mode for log files opened directly (rw-r-----).
const filePermissions os.FileMode = 0o640

// RotationConfig describes the lumberjack rotation policy applied to a
// FileWriter's log file.
type RotationConfig struct {
	// MaxSizeMB is the size in megabytes a log file reaches before rotation.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept; 0 keeps all of them.
	MaxBackups int
	// MaxAgeDays is the number of days a rotated file is retained.
	MaxAgeDays int
	// Compress, when true, gzips rotated files.
	Compress bool
}

// DefaultRotationConfig mirrors the teacher's defaults for daemon log files.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28, Compress: true}
}

// FileWriter writes log events to a rotating file via lumberjack. Writes
// are protected by a mutex for concurrent access safety.
type FileWriter struct {
	mu     sync.Mutex
	file   *lumberjack.Logger
	path   string
	format Formatter
}

// NewFileWriter creates a new file writer with rotation support.
//
// Params:
//   - path: the file path.
//   - rotation: the rotation configuration.
//
// Returns:
//   - *FileWriter: the created file writer.
//   - error: nil on success, error on failure.
func NewFileWriter(path string, rotation RotationConfig) (*FileWriter, error) {
	// nosemgrep: go.lang.correctness.permissions.file_permission.incorrect-default-permission
	// Create log directory with restricted permissions.
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	return &FileWriter{
		file: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
		},
		path:   path,
		format: NewTextFormatter(""),
	}, nil
}

// Write writes a log event to the file.
//
// Params:
//   - event: the log event to write.
//
// Returns:
//   - error: nil on success, error on failure.
func (w *FileWriter) Write(event logging.LogEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	line := w.format.Format(event)
	_, err := w.file.Write([]byte(line + "\n"))
	return err
}

// Close closes the underlying rotating file.
//
// Returns:
//   - error: nil on success, error on failure.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// Ensure FileWriter implements logging.Writer.
var _ logging.Writer = (*FileWriter)(nil)
