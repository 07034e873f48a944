package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryFollowStore is a process-local FollowStore for single-instance
// deployments without Redis.
type MemoryFollowStore struct {
	mu     sync.Mutex
	counts map[string]int64
	scores map[string]float64
}

// NewMemoryFollowStore creates an empty in-memory store.
func NewMemoryFollowStore() *MemoryFollowStore {
	return &MemoryFollowStore{
		counts: make(map[string]int64),
		scores: make(map[string]float64),
	}
}

func (s *MemoryFollowStore) GetFollowersCount(_ context.Context, userID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := s.counts[userID]
	return count, ok, nil
}

func (s *MemoryFollowStore) SetFollowersCount(_ context.Context, userID string, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[userID] = count
	return nil
}

func (s *MemoryFollowStore) InvalidateFollowersCount(_ context.Context, userIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range userIDs {
		delete(s.counts, id)
	}
	return nil
}

func (s *MemoryFollowStore) RecordAccess(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[userID]++
	return nil
}

// GetTopHotKeys orders by score descending, then by id for a stable result.
func (s *MemoryFollowStore) GetTopHotKeys(_ context.Context, n int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.scores))
	for id := range s.scores {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool {
		if s.scores[keys[i]] != s.scores[keys[j]] {
			return s.scores[keys[i]] > s.scores[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if n >= 0 && int64(len(keys)) > n {
		keys = keys[:n]
	}
	return keys, nil
}

func (s *MemoryFollowStore) ResetHotKeyScores(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = make(map[string]float64)
	return nil
}

var _ FollowStore = (*MemoryFollowStore)(nil)
