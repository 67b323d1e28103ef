package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dockhand/dockhand/pkg/errors"
)

// FileStore keeps run reports as JSON files in a state directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based report store.
// If baseDir is empty, defaults to ~/.local/state/dockhand/runs/
// (honoring XDG_STATE_HOME).
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func defaultDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "dockhand", "runs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "dockhand", "runs"), nil
}

func (s *FileStore) reportPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Save writes the report, assigning an ID when it has none.
func (s *FileStore) Save(r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = NewID()
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(s.reportPath(r.ID), data, 0o600); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}

// Get retrieves a report by ID.
func (s *FileStore) Get(id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.reportPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeReportNotFound, "no report with id %s", id)
		}
		return nil, fmt.Errorf("read report file: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

// List returns all stored reports, newest first. Files that cannot be
// parsed are skipped.
func (s *FileStore) List() ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list()
}

func (s *FileStore) list() ([]*Report, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	var reports []*Report
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var r Report
		if err := json.Unmarshal(data, &r); err != nil {
			continue
		}
		reports = append(reports, &r)
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].StartedAt.After(reports[j].StartedAt)
	})
	return reports, nil
}

// Latest returns the most recent report.
func (s *FileStore) Latest() (*Report, error) {
	reports, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, errors.New(errors.ErrCodeReportNotFound, "no runs recorded yet")
	}
	return reports[0], nil
}

// Prune removes all but the keep most recent reports.
func (s *FileStore) Prune(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.list()
	if err != nil {
		return err
	}
	for i := keep; i < len(reports); i++ {
		if err := os.Remove(s.reportPath(reports[i].ID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove report file: %w", err)
		}
	}
	return nil
}

// Path returns the base directory for report files.
func (s *FileStore) Path() string {
	return s.baseDir
}
