package services

import (
	"context"
	"log"

	"LEX-PDFMAP/internal/models"
)

// RunService keeps the audit trail of fill and bundle requests.
type RunService struct {
	runs RunRepository
}

func NewRunService(runs RunRepository) *RunService {
	return &RunService{runs: runs}
}

// Record saves run. A failure is logged and never fails the request that
// produced the run.
func (s *RunService) Record(ctx context.Context, run *models.FillRun) {
	if s == nil || s.runs == nil {
		return
	}
	if err := s.runs.Create(context.WithoutCancel(ctx), run); err != nil {
		log.Printf("[runs] failed to save run %s: %v", run.ID, err)
	}
}

func (s *RunService) List(ctx context.Context, filter RunFilter, limit, offset int) ([]models.FillRun, int64, error) {
	return s.runs.List(ctx, filter, limit, offset)
}

type RunStats struct {
	Total       int64          `json:"total_runs"`
	ByKind      map[string]int `json:"kinds"`
	ByStatus    map[string]int `json:"statuses"`
	Files       int            `json:"files"`
	Failures    int            `json:"failures"`
	AvgDuration int64          `json:"avg_duration_ms"`
	Templates   map[string]int `json:"templates"`
}

// Stats aggregates every recorded run.
func (s *RunService) Stats(ctx context.Context) (*RunStats, error) {
	runs, total, err := s.runs.List(ctx, RunFilter{}, 0, 0)
	if err != nil {
		return nil, err
	}

	stats := &RunStats{
		Total:     total,
		ByKind:    make(map[string]int),
		ByStatus:  make(map[string]int),
		Templates: make(map[string]int),
	}
	var duration int64
	for _, run := range runs {
		stats.ByKind[run.Kind]++
		stats.ByStatus[run.Status]++
		stats.Files += run.Files
		stats.Failures += run.Failures
		duration += run.DurationMS
		if run.TemplateID != "" {
			stats.Templates[run.TemplateID]++
		}
	}
	if len(runs) > 0 {
		stats.AvgDuration = duration / int64(len(runs))
	}
	return stats, nil
}
