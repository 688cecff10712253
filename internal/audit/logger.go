package audit

import (
	"fmt"
	"sync"
	"time"
)

// Logger records audit events without blocking the caller.
type Logger interface {
	// Record enqueues an event; missing common fields are filled in.
	Record(event Event)

	// Flush writes pending events to the sink.
	Flush() error

	// Close flushes remaining events and releases the sink.
	Close() error
}

// Config for the audit logger.
type Config struct {
	Enabled bool

	// Output type: stdout or file
	Type string

	FilePath       string
	FileMaxSize    int // MB
	FileMaxAge     int // Days
	FileMaxBackups int

	BufferSize    int
	FlushInterval time.Duration
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Type:           "stdout",
		BufferSize:     1000,
		FlushInterval:  100 * time.Millisecond,
		FileMaxSize:    100,
		FileMaxAge:     30,
		FileMaxBackups: 10,
	}
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Type != "stdout" && c.Type != "file" {
		return fmt.Errorf("invalid audit type: %s (must be stdout or file)", c.Type)
	}
	if c.Type == "file" && c.FilePath == "" {
		return fmt.Errorf("file path is required for file output")
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1000
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 100 * time.Millisecond
	}
	return nil
}

// NewLogger creates an audit logger from configuration. A disabled
// config yields a no-op logger.
func NewLogger(cfg Config) (Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return NopLogger{}, nil
	}

	var writer Writer
	var err error
	switch cfg.Type {
	case "file":
		writer, err = NewFileWriter(cfg.FilePath, cfg.FileMaxSize, cfg.FileMaxAge, cfg.FileMaxBackups)
		if err != nil {
			return nil, err
		}
	default:
		writer = NewStdoutWriter()
	}

	return newAsyncLogger(writer, cfg), nil
}

// NopLogger discards all events.
type NopLogger struct{}

func (NopLogger) Record(Event) {}
func (NopLogger) Flush() error { return nil }
func (NopLogger) Close() error { return nil }

// asyncLogger buffers events in a ring and flushes them from a
// background goroutine. When the ring is full the oldest event is
// dropped rather than blocking an auth request.
type asyncLogger struct {
	writer Writer

	buffer []Event
	size   int
	head   int
	tail   int
	mu     sync.Mutex

	flushCh  chan struct{}
	doneCh   chan struct{}
	interval time.Duration
}

func newAsyncLogger(writer Writer, cfg Config) *asyncLogger {
	l := &asyncLogger{
		writer:   writer,
		buffer:   make([]Event, cfg.BufferSize),
		size:     cfg.BufferSize,
		flushCh:  make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
		interval: cfg.FlushInterval,
	}
	go l.run()
	return l
}

func (l *asyncLogger) Record(event Event) {
	if event.EventID == "" {
		event.EventID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.buffer[l.tail] = event
	l.tail = (l.tail + 1) % l.size
	if l.tail == l.head {
		l.head = (l.head + 1) % l.size
	}
	l.mu.Unlock()

	select {
	case l.flushCh <- struct{}{}:
	default:
	}
}

func (l *asyncLogger) run() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = l.flush()
		case <-l.flushCh:
			_ = l.flush()
		case <-l.doneCh:
			_ = l.flush()
			return
		}
	}
}

func (l *asyncLogger) Flush() error {
	return l.flush()
}

func (l *asyncLogger) flush() error {
	l.mu.Lock()
	events := l.copyEvents()
	l.mu.Unlock()

	var lastErr error
	for _, event := range events {
		if err := l.writer.Write(event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (l *asyncLogger) copyEvents() []Event {
	if l.head == l.tail {
		return nil
	}

	var events []Event
	i := l.head
	for i != l.tail {
		events = append(events, l.buffer[i])
		i = (i + 1) % l.size
	}
	l.head = l.tail
	return events
}

func (l *asyncLogger) Close() error {
	close(l.doneCh)
	time.Sleep(200 * time.Millisecond)
	return l.writer.Close()
}
