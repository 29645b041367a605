package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/starwalkn/gotenberg-go-client/v8"
	"github.com/starwalkn/gotenberg-go-client/v8/document"
)

// DocxConverter turns a DOCX upload into PDF bytes.
type DocxConverter interface {
	ConvertDocxToPDF(ctx context.Context, docx []byte, filename string, landscape bool) ([]byte, error)
}

// PDFService converts DOCX templates through a Gotenberg instance.
type PDFService struct {
	client     *gotenberg.Client
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

func NewPDFService(gotenbergURL string, timeout time.Duration) (*PDFService, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	client, err := gotenberg.NewClient(gotenbergURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gotenberg client: %w", err)
	}

	return &PDFService{
		client:     client,
		timeout:    timeout,
		maxRetries: 3,
		backoff:    time.Second,
	}, nil
}

func (s *PDFService) ConvertDocxToPDF(ctx context.Context, docx []byte, filename string, landscape bool) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		pdf, err := s.convert(ctx, docx, filename, landscape)
		if err == nil {
			return pdf, nil
		}

		lastErr = err
		log.Printf("[templates] PDF conversion attempt %d/%d failed: %v", attempt, s.maxRetries, err)

		if attempt < s.maxRetries {
			time.Sleep(time.Duration(attempt) * s.backoff)
		}
	}

	return nil, fmt.Errorf("failed to convert document after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *PDFService) convert(ctx context.Context, docx []byte, filename string, landscape bool) ([]byte, error) {
	convertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// fresh reader per attempt
	doc, err := document.FromReader(filename, bytes.NewReader(docx))
	if err != nil {
		return nil, fmt.Errorf("failed to create document from reader: %w", err)
	}

	req := gotenberg.NewLibreOfficeRequest(doc)
	if landscape {
		req.Landscape()
	}

	resp, err := s.client.Send(convertCtx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gotenberg returned %s", resp.Status)
	}
	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read converted document: %w", err)
	}
	return pdf, nil
}
