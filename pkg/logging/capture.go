package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RunCapture tees a logger's output into memory and, optionally, a per-run log
// file. The captured text is what gets stored in the pipeline run log.
type RunCapture struct {
	logger   *StructuredLogger
	previous io.Writer
	buf      *syncBuffer
	file     *os.File
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// StartCapture redirects logger output through a capture. When folder is empty
// only the in-memory copy is kept.
func StartCapture(logger *StructuredLogger, pipeline, folder string, startedAt time.Time) (*RunCapture, error) {
	c := &RunCapture{
		logger:   logger,
		previous: logger.Output(),
		buf:      &syncBuffer{},
	}

	writers := []io.Writer{c.previous, c.buf}

	if folder != "" {
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log folder %s: %w", folder, err)
		}
		name := fmt.Sprintf("%s_%s.log", pipeline, startedAt.UTC().Format("20060102_150405"))
		file, err := os.Create(filepath.Join(folder, name))
		if err != nil {
			return nil, fmt.Errorf("failed to create run log file: %w", err)
		}
		c.file = file
		writers = append(writers, file)
	}

	logger.SetOutput(io.MultiWriter(writers...))
	return c, nil
}

// Logs returns everything logged since the capture started.
func (c *RunCapture) Logs() string {
	return c.buf.String()
}

// Path returns the run log file path, or "" when no folder was configured.
func (c *RunCapture) Path() string {
	if c.file == nil {
		return ""
	}
	return c.file.Name()
}

// Close restores the logger's original output and closes the run log file.
func (c *RunCapture) Close() error {
	c.logger.SetOutput(c.previous)
	if c.file != nil {
		return c.file.Close()
	}
	return nil
}
