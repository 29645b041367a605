package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/storage"
)

type FillRequest struct {
	TemplateID string            `json:"-"`
	Subject    processor.Profile `json:"subject"`
	Org        processor.Profile `json:"organization"`
	// Archive keeps a copy of the output in storage.
	Archive bool `json:"archive"`
}

type FillResult struct {
	PDF         []byte
	Filename    string
	RunID       string
	ArchivePath string
}

type FillService struct {
	templates *TemplateService
	store     mappings.Store
	engine    *processor.FillEngine
	blob      storage.Blob
	runs      *RunService
}

func NewFillService(templates *TemplateService, store mappings.Store, engine *processor.FillEngine, blob storage.Blob, runs *RunService) *FillService {
	return &FillService{templates: templates, store: store, engine: engine, blob: blob, runs: runs}
}

// Fill renders one template for one subject. The template itself is never
// changed.
func (s *FillService) Fill(ctx context.Context, req FillRequest) (*FillResult, error) {
	start := time.Now()
	run := &models.FillRun{
		ID:         uuid.New().String(),
		Kind:       models.RunKindFill,
		TemplateID: req.TemplateID,
	}

	res, err := s.fill(ctx, req, run.ID)
	run.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		s.runs.Record(ctx, run)
		return nil, err
	}

	run.Status = models.RunStatusCompleted
	run.Files = 1
	run.ArchivePath = res.ArchivePath
	s.runs.Record(ctx, run)
	log.Printf("[fill] template %s filled in %dms", req.TemplateID, run.DurationMS)
	return res, nil
}

func (s *FillService) fill(ctx context.Context, req FillRequest, runID string) (*FillResult, error) {
	data, template, err := s.templates.Download(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}

	pdf, err := s.engine.Fill(data, list, req.Subject, req.Org)
	if err != nil {
		return nil, err
	}

	res := &FillResult{PDF: pdf, RunID: runID, Filename: fmt.Sprintf("%s.pdf", fileStem(template.Name))}
	if req.Archive {
		objectName := storage.ArchiveObjectName(runID, res.Filename)
		if _, err := s.blob.Upload(ctx, bytes.NewReader(pdf), objectName, "application/pdf"); err != nil {
			log.Printf("[fill] failed to archive output of template %s: %v", req.TemplateID, err)
		} else {
			res.ArchivePath = objectName
		}
	}
	return res, nil
}
