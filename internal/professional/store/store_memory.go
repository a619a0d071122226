package store

import (
	"context"
	"sync"
	"time"

	"credentia/internal/professional/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[id.ProfessionalID]*models.Professional
}

// NewMemoryStore creates an empty in-memory professional store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[id.ProfessionalID]*models.Professional)}
}

func (s *MemoryStore) Create(_ context.Context, professional *models.Professional) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[professional.ID]; exists {
		return sentinel.ErrConflict
	}
	professional.RecordVersion = 1
	now := time.Now()
	professional.CreatedAt = now
	professional.UpdatedAt = now
	clone := *professional
	s.records[professional.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Professional, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[professionalID]
	if !ok || record.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *MemoryStore) UpdateSnapshot(_ context.Context, orgID id.OrgID, professionalID id.ProfessionalID, expectedVersion int64, snapshot models.Snapshot) (*models.Professional, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[professionalID]
	if !ok || record.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	if record.RecordVersion != expectedVersion {
		return nil, sentinel.ErrConflict
	}
	record.ApplySnapshot(snapshot)
	record.RecordVersion++
	record.UpdatedAt = time.Now()
	clone := *record
	return &clone, nil
}
