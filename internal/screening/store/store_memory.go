package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"credentia/internal/screening/models"
	"credentia/internal/screening/step"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
)

// MemoryStore is an in-memory Store for unit tests and local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	processes map[id.ProcessID]*models.Process
	steps     map[id.ProcessID]map[step.Type]*step.Step
}

// NewMemoryStore creates an empty in-memory screening store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		processes: make(map[id.ProcessID]*models.Process),
		steps:     make(map[id.ProcessID]map[step.Type]*step.Step),
	}
}

func cloneProcess(p *models.Process) *models.Process {
	clone := *p
	clone.ConfiguredSteps = append([]step.Type(nil), p.ConfiguredSteps...)
	clone.StepInfo = append([]models.StepSummary(nil), p.StepInfo...)
	return &clone
}

func cloneStep(s *step.Step) *step.Step {
	clone := *s
	if s.Payload != nil {
		clone.Payload = make(map[string]any, len(s.Payload))
		for k, v := range s.Payload {
			clone.Payload[k] = v
		}
	}
	return &clone
}

func (s *MemoryStore) CreateProcess(_ context.Context, process *models.Process, steps []*step.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.processes[process.ID]; exists {
		return sentinel.ErrConflict
	}
	now := time.Now()
	process.LockVersion = 1
	process.CreatedAt = now
	process.UpdatedAt = now
	s.processes[process.ID] = cloneProcess(process)

	rows := make(map[step.Type]*step.Step, len(steps))
	for _, row := range steps {
		if _, dup := rows[row.Type]; dup {
			return sentinel.ErrConflict
		}
		row.LockVersion = 1
		row.CreatedAt = now
		row.UpdatedAt = now
		rows[row.Type] = cloneStep(row)
	}
	s.steps[process.ID] = rows
	return nil
}

func (s *MemoryStore) FindProcess(_ context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	process, ok := s.processes[processID]
	if !ok || process.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	return cloneProcess(process), nil
}

func (s *MemoryStore) FindActiveByProfessional(_ context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, process := range s.processes {
		if process.OrgID == orgID && process.ProfessionalID == professionalID && !process.Terminal() {
			return cloneProcess(process), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByProfessional(_ context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Process
	for _, process := range s.processes {
		if process.OrgID == orgID && process.ProfessionalID == professionalID {
			result = append(result, cloneProcess(process))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *MemoryStore) ListExpirable(_ context.Context, orgID id.OrgID) ([]*models.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var result []*models.Process
	for _, process := range s.processes {
		if process.OrgID == orgID && process.IsExpired(now) {
			result = append(result, cloneProcess(process))
		}
	}
	return result, nil
}

func (s *MemoryStore) UpdateProcess(_ context.Context, process *models.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.processes[process.ID]
	if !ok || existing.OrgID != process.OrgID {
		return sentinel.ErrNotFound
	}
	if existing.LockVersion != process.LockVersion {
		return sentinel.ErrConflict
	}
	process.LockVersion++
	process.CreatedAt = existing.CreatedAt
	process.UpdatedAt = time.Now()
	s.processes[process.ID] = cloneProcess(process)
	return nil
}

func (s *MemoryStore) ListSteps(_ context.Context, orgID id.OrgID, processID id.ProcessID) ([]*step.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	process, ok := s.processes[processID]
	if !ok || process.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	var result []*step.Step
	for _, row := range s.steps[processID] {
		result = append(result, cloneStep(row))
	}
	step.SortSteps(result)
	return result, nil
}

func (s *MemoryStore) FindStep(_ context.Context, orgID id.OrgID, processID id.ProcessID, stepType step.Type) (*step.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	process, ok := s.processes[processID]
	if !ok || process.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	row, ok := s.steps[processID][stepType]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneStep(row), nil
}

func (s *MemoryStore) HasStep(_ context.Context, orgID id.OrgID, processID id.ProcessID, stepType step.Type) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	process, ok := s.processes[processID]
	if !ok || process.OrgID != orgID {
		return false, sentinel.ErrNotFound
	}
	_, has := s.steps[processID][stepType]
	return has, nil
}

func (s *MemoryStore) CreateStep(_ context.Context, row *step.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.steps[row.ProcessID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if _, exists := rows[row.Type]; exists {
		return sentinel.ErrConflict
	}
	now := time.Now()
	row.LockVersion = 1
	row.CreatedAt = now
	row.UpdatedAt = now
	rows[row.Type] = cloneStep(row)
	return nil
}

func (s *MemoryStore) UpdateStep(_ context.Context, row *step.Step, expectedLock int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.steps[row.ProcessID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing, ok := rows[row.Type]
	if !ok {
		return sentinel.ErrNotFound
	}
	if existing.LockVersion != expectedLock {
		return sentinel.ErrConflict
	}
	row.LockVersion = expectedLock + 1
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = time.Now()
	rows[row.Type] = cloneStep(row)
	return nil
}
