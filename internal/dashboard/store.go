package dashboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Store holds the loaded summary and scenario description for the HTTP
// handlers. Reload swaps both atomically.
type Store struct {
	summaryPath string
	infoPath    string

	mu      sync.RWMutex
	records []Record
	info    string
}

// NewStore returns an empty store; call Reload before serving.
func NewStore(summaryPath, infoPath string) *Store {
	return &Store{summaryPath: summaryPath, infoPath: infoPath}
}

// Reload reads the summary CSV and the markdown description from disk. A
// missing description is not an error.
func (s *Store) Reload() error {
	recs, err := Load(s.summaryPath)
	if err != nil {
		return err
	}
	info, err := os.ReadFile(s.infoPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read scenario description: %w", err)
	}

	s.mu.Lock()
	s.records = recs
	s.info = string(info)
	s.mu.Unlock()
	return nil
}

// Records returns the loaded rows. The slice must not be modified.
func (s *Store) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Info returns the scenario description markdown.
func (s *Store) Info() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// CheckReadiness fails until a summary with at least one row is loaded.
func (s *Store) CheckReadiness(_ context.Context) error {
	if len(s.Records()) == 0 {
		return errors.New("results summary not loaded")
	}
	return nil
}
