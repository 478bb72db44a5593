package risk

import (
	"context"
	"sync"
	"time"

	"lotto/models"
)

// MemoryStore keeps entries in process. Used by tests and simulations.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]models.RiskEntry
	nextID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]models.RiskEntry)}
}

func (s *MemoryStore) Load(_ context.Context, key Key) (*models.RiskEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *MemoryStore) Save(_ context.Context, e *models.RiskEntry, prevVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{RoundID: e.RoundID, Category: e.Category, Number: e.Number}
	cur, ok := s.entries[key]
	switch {
	case ok && cur.Version != prevVersion:
		return ErrVersionConflict
	case !ok && prevVersion != 0:
		return ErrVersionConflict
	}

	now := time.Now()
	if !ok {
		s.nextID++
		e.ID = s.nextID
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	s.entries[key] = *e
	return nil
}

func (s *MemoryStore) List(_ context.Context, roundID uint, cat models.BetCategory) ([]models.RiskEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RiskEntry
	for k, e := range s.entries {
		if k.RoundID == roundID && k.Category == cat {
			out = append(out, e)
		}
	}
	return out, nil
}
