package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal/bundle"
	"LEX-PDFMAP/internal/editor"
	"LEX-PDFMAP/internal/geometry"
	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/services"
	"LEX-PDFMAP/internal/storage"
)

// Machine-readable error codes. Clients branch on these, never on messages.
const (
	CodeTemplateLoad   = "template_load_error"
	CodeEmptyBundle    = "empty_bundle"
	CodeNotFound       = "not_found"
	CodeInvalidMapping = "invalid_mapping"
	CodePageOutOfRange = "page_out_of_range"
	CodeInvalidRequest = "invalid_request"
	CodeInternal       = "internal_error"
)

type ErrorResponse struct {
	Error    string           `json:"error"`
	Code     string           `json:"code"`
	Failures []bundle.Failure `json:"failures,omitempty"`
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, processor.ErrTemplateLoad):
		return http.StatusUnprocessableEntity, CodeTemplateLoad
	case errors.Is(err, bundle.ErrEmptyBundle):
		return http.StatusUnprocessableEntity, CodeEmptyBundle
	case errors.Is(err, services.ErrPageOutOfRange), errors.Is(err, editor.ErrPageOutOfRange):
		return http.StatusBadRequest, CodePageOutOfRange
	case errors.Is(err, mappings.ErrInvalidMapping):
		return http.StatusBadRequest, CodeInvalidMapping
	case errors.Is(err, services.ErrTemplateNotFound),
		errors.Is(err, services.ErrBundleNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, mappings.ErrNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, services.ErrInvalidEvent),
		errors.Is(err, editor.ErrNoSelection),
		errors.Is(err, editor.ErrNotPlacing),
		errors.Is(err, geometry.ErrInvalidScale):
		return http.StatusBadRequest, CodeInvalidRequest
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: err.Error(), Code: code}
	if status == http.StatusInternalServerError {
		log.Printf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
		resp.Error = "Internal server error"
	}

	var empty *bundle.EmptyBundleError
	if errors.As(err, &empty) {
		resp.Failures = empty.Failures
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalidRequest})
}
