package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"LEX-PDFMAP/internal/bundle"
	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/storage"
)

type BundleRequest struct {
	BundleID string            `json:"-"`
	Subject  processor.Profile `json:"subject"`
	Org      processor.Profile `json:"organization"`
	Archive  bool              `json:"archive"`
}

type BundleResult struct {
	*bundle.Result
	Filename    string `json:"filename"`
	RunID       string `json:"run_id"`
	ArchivePath string `json:"archive_path,omitempty"`
}

type BundleService struct {
	bundles   BundleRepository
	templates *TemplateService
	store     mappings.Store
	assembler *bundle.Assembler
	blob      storage.Blob
	runs      *RunService
}

func NewBundleService(bundles BundleRepository, templates *TemplateService, store mappings.Store, filler bundle.Filler, blob storage.Blob, runs *RunService, workers int) *BundleService {
	s := &BundleService{
		bundles:   bundles,
		templates: templates,
		store:     store,
		blob:      blob,
		runs:      runs,
	}
	s.assembler = bundle.NewAssembler(s, filler, bundle.Options{Workers: workers})
	return s
}

// Load implements bundle.Source.
func (s *BundleService) Load(ctx context.Context, templateID string) (*bundle.Template, error) {
	data, template, err := s.templates.Download(ctx, templateID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	return &bundle.Template{Name: template.Name, Bytes: data, Mappings: list}, nil
}

// Assemble fills every template of a bundle and returns the archive. Items
// that fail are reported in the result; only an empty result is an error.
func (s *BundleService) Assemble(ctx context.Context, req BundleRequest) (*BundleResult, error) {
	b, err := s.bundles.Get(ctx, req.BundleID)
	if err != nil {
		return nil, err
	}

	items := make([]bundle.Item, len(b.Items))
	for i, it := range b.Items {
		items[i] = bundle.Item{TemplateID: it.TemplateID, DisplayOrder: it.DisplayOrder}
	}

	start := time.Now()
	run := &models.FillRun{
		ID:       uuid.New().String(),
		Kind:     models.RunKindBundle,
		BundleID: b.ID,
	}

	res, err := s.assembler.Assemble(ctx, items, req.Subject, req.Org)
	run.DurationMS = time.Since(start).Milliseconds()
	if err != nil {
		run.Status = models.RunStatusFailed
		var empty *bundle.EmptyBundleError
		if errors.As(err, &empty) {
			run.Failures = len(empty.Failures)
		}
		run.Error = err.Error()
		s.runs.Record(ctx, run)
		return nil, err
	}

	out := &BundleResult{Result: res, RunID: run.ID, Filename: fileStem(b.Name) + ".zip"}
	if req.Archive {
		objectName := storage.ArchiveObjectName(run.ID, out.Filename)
		if _, err := s.blob.Upload(ctx, bytes.NewReader(res.Archive), objectName, "application/zip"); err != nil {
			log.Printf("[bundle] failed to archive bundle %s: %v", b.ID, err)
		} else {
			out.ArchivePath = objectName
		}
	}

	run.Status = models.RunStatusCompleted
	if len(res.Failures) > 0 {
		run.Status = models.RunStatusPartial
	}
	run.Files = len(res.Files)
	run.Failures = len(res.Failures)
	run.ArchivePath = out.ArchivePath
	s.runs.Record(ctx, run)
	return out, nil
}

func fileStem(name string) string {
	return bundle.SanitizeName(name)
}
