package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"LEX-PDFMAP/internal/models"
)

// In-memory repositories for single-process tools and tests.

type MemoryTemplates struct {
	mu        sync.RWMutex
	templates map[string]models.PdfTemplate
}

func NewMemoryTemplates() *MemoryTemplates {
	return &MemoryTemplates{templates: make(map[string]models.PdfTemplate)}
}

func (r *MemoryTemplates) Create(_ context.Context, t *models.PdfTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = t.CreatedAt
	stored := *t
	stored.Mappings = nil
	r.templates[t.ID] = stored
	return nil
}

func (r *MemoryTemplates) Get(_ context.Context, id string) (*models.PdfTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return &t, nil
}

func (r *MemoryTemplates) List(_ context.Context, filter TemplateFilter) ([]models.PdfTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.PdfTemplate, 0, len(r.templates))
	for _, t := range r.templates {
		if filter.TenantID != "" && t.TenantID != filter.TenantID {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryTemplates) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.templates[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	delete(r.templates, id)
	return nil
}

type MemoryBundles struct {
	mu      sync.RWMutex
	bundles map[string]models.Bundle
}

func NewMemoryBundles() *MemoryBundles {
	return &MemoryBundles{bundles: make(map[string]models.Bundle)}
}

// Put stores b, replacing a bundle with the same id.
func (r *MemoryBundles) Put(b models.Bundle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]models.BundleTemplate, len(b.Items))
	copy(items, b.Items)
	b.Items = items
	r.bundles[b.ID] = b
}

func (r *MemoryBundles) Get(_ context.Context, id string) (*models.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bundles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, id)
	}
	items := make([]models.BundleTemplate, len(b.Items))
	copy(items, b.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].DisplayOrder < items[j].DisplayOrder })
	b.Items = items
	return &b, nil
}

type MemoryRuns struct {
	mu   sync.RWMutex
	runs []models.FillRun
}

func NewMemoryRuns() *MemoryRuns {
	return &MemoryRuns{}
}

func (r *MemoryRuns) Create(_ context.Context, run *models.FillRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.UpdatedAt = run.CreatedAt
	r.runs = append(r.runs, *run)
	return nil
}

func (r *MemoryRuns) List(_ context.Context, filter RunFilter, limit, offset int) ([]models.FillRun, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.FillRun
	// newest first
	for i := len(r.runs) - 1; i >= 0; i-- {
		run := r.runs[i]
		if filter.Kind != "" && run.Kind != strings.ToLower(filter.Kind) {
			continue
		}
		if filter.Status != "" && run.Status != strings.ToLower(filter.Status) {
			continue
		}
		if filter.TemplateID != "" && run.TemplateID != filter.TemplateID {
			continue
		}
		matched = append(matched, run)
	}

	total := int64(len(matched))
	if offset < 0 {
		offset = 0
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}
