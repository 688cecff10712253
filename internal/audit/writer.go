package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Writer writes audit events to a destination.
type Writer interface {
	Write(event Event) error
	Close() error
}

// stdoutWriter writes audit events to stdout as JSON lines.
type stdoutWriter struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewStdoutWriter creates a writer that emits JSON lines on stdout.
func NewStdoutWriter() Writer {
	return &stdoutWriter{
		encoder: json.NewEncoder(os.Stdout),
	}
}

func (w *stdoutWriter) Write(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(event)
}

func (w *stdoutWriter) Close() error {
	return nil
}

// fileWriter writes audit events to a rotating file.
type fileWriter struct {
	logger  *lumberjack.Logger
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewFileWriter creates a file writer with size and age based rotation.
func NewFileWriter(filename string, maxSizeMB, maxAgeDays, maxBackups int) (Writer, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	logger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxAge:     maxAgeDays,
		MaxBackups: maxBackups,
		LocalTime:  true,
		Compress:   true,
	}

	w := &fileWriter{
		logger:  logger,
		encoder: json.NewEncoder(logger),
	}

	startup := Event{
		Timestamp: time.Now(),
		EventType: EventTypeSystemStartup,
		EventID:   generateEventID(),
	}
	if err := w.Write(startup); err != nil {
		return nil, fmt.Errorf("write startup event: %w", err)
	}
	return w, nil
}

func (w *fileWriter) Write(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(event)
}

func (w *fileWriter) Close() error {
	shutdown := Event{
		Timestamp: time.Now(),
		EventType: EventTypeSystemShutdown,
		EventID:   generateEventID(),
	}
	_ = w.Write(shutdown)
	return w.logger.Close()
}
