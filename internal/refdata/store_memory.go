package refdata

import (
	"context"
	"sync"

	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs. It also
// acts as the seed container: tests and the dev server provision orgs
// through Put methods.
type MemoryStore struct {
	mu       sync.RWMutex
	types    map[id.OrgID][]DocumentType
	settings map[id.OrgID]*OrgSettings
}

// NewMemoryStore creates an empty in-memory refdata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		types:    make(map[id.OrgID][]DocumentType),
		settings: make(map[id.OrgID]*OrgSettings),
	}
}

// PutDocumentType registers a catalog entry for the org.
func (s *MemoryStore) PutDocumentType(documentType DocumentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[documentType.OrgID] = append(s.types[documentType.OrgID], documentType)
}

// PutSettings registers the org's settings.
func (s *MemoryStore) PutSettings(settings OrgSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := settings
	s.settings[settings.OrgID] = &clone
}

func (s *MemoryStore) ActiveDocumentTypes(_ context.Context, orgID id.OrgID) ([]DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []DocumentType
	for _, documentType := range s.types[orgID] {
		if documentType.Active {
			active = append(active, documentType)
		}
	}
	return active, nil
}

func (s *MemoryStore) Settings(_ context.Context, orgID id.OrgID) (*OrgSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *settings
	return &clone, nil
}
