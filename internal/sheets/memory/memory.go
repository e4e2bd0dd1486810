package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store is an in-process RangeReader keyed by range.
type Store struct {
	mu     sync.Mutex
	ranges map[string][][]string
}

func New() *Store {
	return &Store{ranges: make(map[string][][]string)}
}

// Put replaces the values served for rng.
func (s *Store) Put(rng string, values [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[rng] = cloneValues(values)
}

// ReadRange returns a copy of the values stored for rng.
func (s *Store) ReadRange(_ context.Context, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.ranges[rng]
	if !ok {
		return nil, fmt.Errorf("range %q not found", rng)
	}
	return cloneValues(values), nil
}

func cloneValues(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
