package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"LEX-PDFMAP/internal/bundle"
	"LEX-PDFMAP/internal/editor"
	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/services"
	"LEX-PDFMAP/internal/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"template load", &processor.TemplateLoadError{Err: errors.New("bad xref")}, http.StatusUnprocessableEntity, CodeTemplateLoad},
		{"empty bundle", &bundle.EmptyBundleError{Items: 2}, http.StatusUnprocessableEntity, CodeEmptyBundle},
		{"mapping not found", fmt.Errorf("failed to update: %w", mappings.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{"template not found", services.ErrTemplateNotFound, http.StatusNotFound, CodeNotFound},
		{"object not found", storage.ErrObjectNotFound, http.StatusNotFound, CodeNotFound},
		{"invalid mapping", fmt.Errorf("%w: width must be positive", mappings.ErrInvalidMapping), http.StatusBadRequest, CodeInvalidMapping},
		{"page out of range", services.ErrPageOutOfRange, http.StatusBadRequest, CodePageOutOfRange},
		{"editor page", editor.ErrPageOutOfRange, http.StatusBadRequest, CodePageOutOfRange},
		{"no selection", editor.ErrNoSelection, http.StatusBadRequest, CodeInvalidRequest},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
