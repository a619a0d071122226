package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"credentia/internal/alert/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	alerts map[id.AlertID]*models.Alert
}

// NewMemoryStore creates an empty in-memory alert store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{alerts: make(map[id.AlertID]*models.Alert)}
}

func (s *MemoryStore) Create(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.alerts {
		if existing.OrgID == alert.OrgID && existing.ProcessID == alert.ProcessID && existing.IsOpen() {
			return sentinel.ErrConflict
		}
	}
	clone := *alert
	s.alerts[alert.ID] = &clone
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[alertID]
	if !ok || alert.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	clone := *alert
	return &clone, nil
}

func (s *MemoryStore) OpenByProcess(_ context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, alert := range s.alerts {
		if alert.OrgID == orgID && alert.ProcessID == processID && alert.IsOpen() {
			clone := *alert
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByProcess(_ context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Alert
	for _, alert := range s.alerts {
		if alert.OrgID == orgID && alert.ProcessID == processID {
			clone := *alert
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RaisedAt.Before(result[j].RaisedAt) })
	return result, nil
}

func (s *MemoryStore) Close(_ context.Context, orgID id.OrgID, alertID id.AlertID, status models.Status, actor id.ActorID, at time.Time, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[alertID]
	if !ok || alert.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	if !alert.IsOpen() {
		return sentinel.ErrConflict
	}
	alert.Status = status
	alert.ResolvedBy = &actor
	alert.ResolvedAt = &at
	alert.ResolutionNote = note
	return nil
}
