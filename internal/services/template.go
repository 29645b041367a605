package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"LEX-PDFMAP/internal/catalog"
	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/storage"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type UploadRequest struct {
	Filename    string
	ContentType string
	Name        string
	Category    string
	TenantID    string
	Data        []byte
}

type UploadResult struct {
	Template *models.PdfTemplate `json:"template"`
	// SuggestedFields are DOCX placeholders that match catalog keys.
	SuggestedFields []string `json:"suggested_fields,omitempty"`
	Converted       bool     `json:"converted"`
}

// DetectResult is the outcome of widget detection. Found is zero with a
// message when the document has no form widgets.
type DetectResult struct {
	Found    int                   `json:"found"`
	Mappings []models.FieldMapping `json:"mappings"`
	Message  string                `json:"message,omitempty"`
}

const noFieldsMessage = "no fields found"

type TemplateService struct {
	templates TemplateRepository
	mappings  mappings.Store
	blob      storage.Blob
	converter DocxConverter
}

// NewTemplateService wires the template lifecycle. converter may be nil, in
// which case DOCX uploads are refused.
func NewTemplateService(templates TemplateRepository, store mappings.Store, blob storage.Blob, converter DocxConverter) *TemplateService {
	return &TemplateService{
		templates: templates,
		mappings:  store,
		blob:      blob,
		converter: converter,
	}
}

func isDocx(filename, contentType string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".docx") || contentType == docxContentType
}

// Upload stores a template. PDFs are kept as uploaded; DOCX files are
// converted first. Bytes that do not parse as a PDF are rejected with a
// processor.TemplateLoadError.
func (s *TemplateService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	data := req.Data
	result := &UploadResult{}

	if isDocx(req.Filename, req.ContentType) {
		if s.converter == nil {
			return nil, fmt.Errorf("%w: DOCX conversion is not configured", processor.ErrTemplateLoad)
		}
		info, err := processor.InspectDocx(data)
		if err != nil {
			return nil, &processor.TemplateLoadError{Err: err}
		}
		for _, p := range info.Placeholders {
			if _, ok := catalog.Lookup(p); ok {
				result.SuggestedFields = append(result.SuggestedFields, p)
			}
		}
		data, err = s.converter.ConvertDocxToPDF(ctx, data, req.Filename, info.Landscape)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", req.Filename, err)
		}
		result.Converted = true
	}

	doc, err := processor.Inspect(data)
	if err != nil {
		return nil, err
	}

	templateID := uuid.New().String()
	filename := req.Filename
	if result.Converted {
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".pdf"
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	objectName := storage.TemplateObjectName(templateID, filename)
	uploaded, err := s.blob.Upload(ctx, bytes.NewReader(data), objectName, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to upload template: %w", err)
	}

	template := &models.PdfTemplate{
		ID:           templateID,
		Name:         name,
		Category:     req.Category,
		TenantID:     req.TenantID,
		StoragePath:  objectName,
		OriginalName: req.Filename,
		FileSize:     uploaded.Size,
		PageCount:    doc.PageCount,
	}
	if err := s.templates.Create(ctx, template); err != nil {
		if derr := s.blob.Delete(ctx, objectName); derr != nil {
			log.Printf("[storage] failed to remove orphaned %s: %v", objectName, derr)
		}
		return nil, err
	}

	result.Template = template
	return result, nil
}

func (s *TemplateService) Get(ctx context.Context, templateID string) (*models.PdfTemplate, error) {
	return s.templates.Get(ctx, templateID)
}

func (s *TemplateService) List(ctx context.Context, filter TemplateFilter) ([]models.PdfTemplate, error) {
	return s.templates.List(ctx, filter)
}

// Download returns the stored template bytes.
func (s *TemplateService) Download(ctx context.Context, templateID string) ([]byte, *models.PdfTemplate, error) {
	template, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	data, err := storage.ReadAll(ctx, s.blob, template.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read template %s: %w", templateID, err)
	}
	return data, template, nil
}

// Delete removes the template, its mappings and its stored bytes. A failure
// to remove the bytes is logged and does not fail the call.
func (s *TemplateService) Delete(ctx context.Context, templateID string) error {
	template, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return err
	}
	if err := s.mappings.DeleteByTemplate(ctx, templateID); err != nil {
		return fmt.Errorf("failed to delete mappings: %w", err)
	}
	if err := s.templates.Delete(ctx, templateID); err != nil {
		return err
	}
	if err := s.blob.Delete(ctx, template.StoragePath); err != nil {
		log.Printf("[storage] warning: failed to delete %s: %v", template.StoragePath, err)
	}
	return nil
}

// DetectWidgets runs widget detection on a stored template and inserts the
// results in one batch.
func (s *TemplateService) DetectWidgets(ctx context.Context, templateID string) (*DetectResult, error) {
	data, _, err := s.Download(ctx, templateID)
	if err != nil {
		return nil, err
	}

	res, err := DetectBytes(data)
	if err != nil || res.Found == 0 {
		return res, err
	}

	ids, err := s.mappings.CreateBatch(ctx, templateID, res.Mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to save detected mappings: %w", err)
	}
	for i := range res.Mappings {
		res.Mappings[i].ID = ids[i]
		res.Mappings[i].TemplateID = templateID
	}
	log.Printf("[detect] template %s: saved %d detected fields", templateID, len(ids))
	return res, nil
}

// DetectBytes runs widget detection on unsaved bytes.
func DetectBytes(data []byte) (*DetectResult, error) {
	found, err := processor.DetectWidgets(data)
	if err != nil {
		return nil, err
	}
	res := &DetectResult{Found: len(found), Mappings: found}
	if len(found) == 0 {
		res.Message = noFieldsMessage
	}
	return res, nil
}
