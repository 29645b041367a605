package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal/services"
)

// MaxUploadSize bounds template and detect uploads.
const MaxUploadSize = 50 << 20

type TemplateHandler struct {
	templates *services.TemplateService
}

func NewTemplateHandler(templates *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// readUpload returns the bytes of the multipart file under field.
func readUpload(c *gin.Context, field string) ([]byte, string, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		badRequest(c, "No file uploaded")
		return nil, "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "Failed to read uploaded file")
		return nil, "", "", false
	}
	return data, header.Filename, header.Header.Get("Content-Type"), true
}

func (h *TemplateHandler) Upload(c *gin.Context) {
	data, filename, contentType, ok := readUpload(c, "template")
	if !ok {
		return
	}

	res, err := h.templates.Upload(c.Request.Context(), services.UploadRequest{
		Filename:    filename,
		ContentType: contentType,
		Name:        c.PostForm("name"),
		Category:    c.PostForm("category"),
		TenantID:    c.PostForm("tenant_id"),
		Data:        data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *TemplateHandler) List(c *gin.Context) {
	list, err := h.templates.List(c.Request.Context(), services.TemplateFilter{
		TenantID: c.Query("tenant_id"),
		Category: c.Query("category"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": list, "total": len(list)})
}

func (h *TemplateHandler) Get(c *gin.Context) {
	t, err := h.templates.Get(c.Request.Context(), c.Param("templateId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.templates.Delete(c.Request.Context(), c.Param("templateId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Detect saves the form widgets of a stored template as mappings.
func (h *TemplateHandler) Detect(c *gin.Context) {
	res, err := h.templates.DetectWidgets(c.Request.Context(), c.Param("templateId"))
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Found == 0 {
		status = http.StatusOK
	}
	c.JSON(status, res)
}

// DetectUpload runs detection on an uploaded PDF without storing anything.
func (h *TemplateHandler) DetectUpload(c *gin.Context) {
	data, _, _, ok := readUpload(c, "file")
	if !ok {
		return
	}
	res, err := services.DetectBytes(data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
