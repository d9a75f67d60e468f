package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// FileJournal writes one JSON object per line and never truncates.
type FileJournal struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening job journal %q: %w", path, err)
	}
	return &FileJournal{file: f, now: time.Now}, nil
}

func (j *FileJournal) Append(_ context.Context, job types.Job) error {
	data, err := json.Marshal(Entry{Job: job, Timestamp: j.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry for job %s: %w", job.ID, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write journal entry for job %s: %w", job.ID, err)
	}
	return nil
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}

// ReadFile returns every entry of a journal file in write order.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening job journal %q: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}
