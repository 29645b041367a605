package mappings

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"LEX-PDFMAP/internal/models"
)

// MemoryStore keeps mappings in a map. Used for dry runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[string]models.FieldMapping
	requests map[string]string
	now      func() time.Time
	last     time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[string]models.FieldMapping),
		requests: make(map[string]string),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, templateID string, m models.FieldMapping) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m = normalize(templateID, m)
	if err := Validate(m); err != nil {
		return "", err
	}
	if id, ok := s.existing(m); ok {
		return id, nil
	}
	return s.insert(m), nil
}

func (s *MemoryStore) CreateBatch(ctx context.Context, templateID string, ms []models.FieldMapping) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepared := make([]models.FieldMapping, len(ms))
	for i, m := range ms {
		m = normalize(templateID, m)
		if err := Validate(m); err != nil {
			return nil, err
		}
		prepared[i] = m
	}

	ids := make([]string, len(prepared))
	for i, m := range prepared {
		if id, ok := s.existing(m); ok {
			ids[i] = id
			continue
		}
		ids[i] = s.insert(m)
	}
	return ids, nil
}

// existing must be called with the lock held.
func (s *MemoryStore) existing(m models.FieldMapping) (string, bool) {
	if m.ID != "" {
		if _, ok := s.mappings[m.ID]; ok {
			return m.ID, true
		}
	}
	if m.RequestID != "" {
		if id, ok := s.requests[m.RequestID]; ok {
			return id, true
		}
	}
	return "", false
}

// insert must be called with the lock held.
func (s *MemoryStore) insert(m models.FieldMapping) string {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	// creation times are strictly increasing so List keeps insertion order
	now := s.now()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	m.CreatedAt = now
	m.UpdatedAt = now
	s.mappings[m.ID] = m
	if m.RequestID != "" {
		s.requests[m.RequestID] = m.ID
	}
	return m.ID
}

func (s *MemoryStore) List(ctx context.Context, templateID string) ([]models.FieldMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FieldMapping, 0)
	for _, m := range s.mappings {
		if m.TemplateID == templateID {
			out = append(out, m)
		}
	}
	sortMappings(out)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.FieldMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, req UpdateRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mappings[id]
	if !ok {
		return ErrNotFound
	}
	updated := req.Apply(m)
	if err := Validate(updated); err != nil {
		return err
	}
	updated.UpdatedAt = s.now()
	s.mappings[id] = updated
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.mappings[id]; ok {
		delete(s.mappings, id)
		if m.RequestID != "" {
			delete(s.requests, m.RequestID)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteByTemplate(ctx context.Context, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, m := range s.mappings {
		if m.TemplateID == templateID {
			delete(s.mappings, id)
			if m.RequestID != "" {
				delete(s.requests, m.RequestID)
			}
		}
	}
	return nil
}
