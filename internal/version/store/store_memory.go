package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"credentia/internal/version/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	versions map[id.VersionID]*models.Version
	changes  map[id.VersionID][]models.Change
	numbers  map[id.OrgID]int64
	nextRow  int64
}

// NewMemoryStore creates an empty in-memory version store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions: make(map[id.VersionID]*models.Version),
		changes:  make(map[id.VersionID][]models.Change),
		numbers:  make(map[id.OrgID]int64),
	}
}

func (s *MemoryStore) NextNumber(_ context.Context, orgID id.OrgID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers[orgID]++
	return s.numbers[orgID], nil
}

func (s *MemoryStore) Create(_ context.Context, version *models.Version, changes []models.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.versions[version.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *version
	s.versions[version.ID] = &clone

	stored := make([]models.Change, len(changes))
	copy(stored, changes)
	for i := range stored {
		s.nextRow++
		stored[i].ID = s.nextRow
	}
	s.changes[version.ID] = stored
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.versions[versionID]
	if !ok || version.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	clone := *version
	return &clone, nil
}

func (s *MemoryStore) ListByProfessional(_ context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Version
	for _, version := range s.versions {
		if version.OrgID != orgID || version.ProfessionalID != professionalID {
			continue
		}
		clone := *version
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number > result[j].Number })
	return result, nil
}

func (s *MemoryStore) ListChanges(_ context.Context, orgID id.OrgID, versionID id.VersionID) ([]models.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.versions[versionID]
	if !ok || version.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	stored := s.changes[versionID]
	result := make([]models.Change, len(stored))
	copy(result, stored)
	return result, nil
}

func (s *MemoryStore) Current(_ context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, version := range s.versions {
		if version.OrgID == orgID && version.ProfessionalID == professionalID && version.IsCurrent {
			clone := *version
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) MarkApplied(_ context.Context, orgID id.OrgID, versionID id.VersionID, actor id.ActorID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	version, ok := s.versions[versionID]
	if !ok || version.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	if version.Status != models.StatusPending {
		return sentinel.ErrConflict
	}
	for _, other := range s.versions {
		if other.OrgID == orgID && other.ProfessionalID == version.ProfessionalID {
			other.IsCurrent = false
		}
	}
	version.Status = models.StatusApplied
	version.IsCurrent = true
	version.AppliedAt = &at
	version.AppliedBy = &actor
	return nil
}

func (s *MemoryStore) MarkRejected(_ context.Context, orgID id.OrgID, versionID id.VersionID, actor id.ActorID, at time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	version, ok := s.versions[versionID]
	if !ok || version.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	if version.Status != models.StatusPending {
		return sentinel.ErrConflict
	}
	version.Status = models.StatusRejected
	version.RejectedAt = &at
	version.RejectedBy = &actor
	version.RejectReason = reason
	return nil
}
