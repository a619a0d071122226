package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"credentia/internal/document/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[id.DocumentID]*models.Document
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: make(map[id.DocumentID]*models.Document)}
}

func cloneDocument(doc *models.Document) *models.Document {
	clone := *doc
	if doc.File != nil {
		file := *doc.File
		clone.File = &file
	}
	clone.Reviews = make([]models.ReviewEntry, len(doc.Reviews))
	copy(clone.Reviews, doc.Reviews)
	return &clone
}

func (s *MemoryStore) CreateAll(_ context.Context, documents []*models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range documents {
		if _, exists := s.documents[doc.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	now := time.Now()
	for _, doc := range documents {
		doc.CreatedAt = now
		doc.UpdatedAt = now
		s.documents[doc.ID] = cloneDocument(doc)
	}
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, documentID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[documentID]
	if !ok || doc.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (s *MemoryStore) ListByProcess(_ context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Document
	for _, doc := range s.documents {
		if doc.OrgID == orgID && doc.ProcessID == processID {
			result = append(result, cloneDocument(doc))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order == result[j].Order {
			return result[i].TypeName < result[j].TypeName
		}
		return result[i].Order < result[j].Order
	})
	return result, nil
}

func (s *MemoryStore) Update(_ context.Context, document *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.documents[document.ID]
	if !ok || existing.OrgID != document.OrgID {
		return sentinel.ErrNotFound
	}
	document.CreatedAt = existing.CreatedAt
	document.UpdatedAt = time.Now()
	s.documents[document.ID] = cloneDocument(document)
	return nil
}

func (s *MemoryStore) FindReusableSource(_ context.Context, orgID id.OrgID, professionalID id.ProfessionalID, typeID id.DocumentTypeID, excludeProcess id.ProcessID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *models.Document
	for _, doc := range s.documents {
		if doc.OrgID != orgID || doc.ProfessionalID != professionalID || doc.TypeID != typeID {
			continue
		}
		if doc.ProcessID == excludeProcess || doc.Status != models.StatusApproved || doc.AlertFlagged {
			continue
		}
		if best == nil || doc.UpdatedAt.After(best.UpdatedAt) {
			best = doc
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	return cloneDocument(best), nil
}
