// Package envfile appends discovered facts to a shared environment
// file (KEY=value per line) consumed by later build steps. The store
// is append-only: it is never read back, rewritten or deduplicated.
package envfile

import (
	"fmt"
	"os"
	"sync"
)

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store {
	return &Store{path: path}
}

// Append writes one KEY=value line. Safe for concurrent writers.
func (s *Store) Append(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		return fmt.Errorf("appending to %s: %w", s.path, err)
	}

	return nil
}
