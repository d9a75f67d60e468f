package sinks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arnavsurve/pagestep/pkg/log"
)

// FileSink appends one JSON object per event, so a run's log file can be
// tailed or replayed line by line. The level, time and message keys win over
// fields of the same name.
type FileSink struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// NewFileSink opens path for appending, creating missing directories.
func NewFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory for %q: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", path, err)
	}
	return &FileSink{path: path, file: f, enc: json.NewEncoder(f)}, nil
}

func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(event *log.LogEvent) error {
	entry := make(map[string]any, len(event.Fields)+3)
	for k, v := range event.Fields {
		entry[k] = v
	}
	entry["level"] = levelToString(event.Level)
	entry["time"] = event.Timestamp.UTC().Format(time.RFC3339Nano)
	entry["message"] = event.Message

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("file sink %q: %w", s.path, os.ErrClosed)
	}
	if err := s.enc.Encode(entry); err != nil {
		return fmt.Errorf("writing to %q: %w", s.path, err)
	}
	return nil
}

// Close is safe to call more than once.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
