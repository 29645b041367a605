package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
	"LEX-PDFMAP/internal/services"
)

type MappingHandler struct {
	mappings *services.MappingService
}

func NewMappingHandler(mappings *services.MappingService) *MappingHandler {
	return &MappingHandler{mappings: mappings}
}

func (h *MappingHandler) List(c *gin.Context) {
	list, err := h.mappings.List(c.Request.Context(), c.Param("templateId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mappings": list, "total": len(list)})
}

func (h *MappingHandler) Create(c *gin.Context) {
	var m models.FieldMapping
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, "Invalid mapping: "+err.Error())
		return
	}
	created, err := h.mappings.Create(c.Request.Context(), c.Param("templateId"), m)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Update applies a partial update. Keys absent from the body are left alone;
// an explicit null clears width, height, font_size or trigger_value.
func (h *MappingHandler) Update(c *gin.Context) {
	var req mappings.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid update: "+err.Error())
		return
	}
	updated, err := h.mappings.Update(c.Request.Context(), c.Param("mappingId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *MappingHandler) Delete(c *gin.Context) {
	if err := h.mappings.Delete(c.Request.Context(), c.Param("mappingId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
