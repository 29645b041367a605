package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal/services"
)

type RunsHandler struct {
	runs *services.RunService
}

func NewRunsHandler(runs *services.RunService) *RunsHandler {
	return &RunsHandler{runs: runs}
}

type RunsResponse struct {
	Runs       interface{} `json:"runs"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// List returns fill and bundle runs, newest first, with pagination
func (h *RunsHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	runs, total, err := h.runs.List(c.Request.Context(), services.RunFilter{
		Kind:       c.Query("kind"),
		Status:     c.Query("status"),
		TemplateID: c.Query("template_id"),
	}, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch runs", "code": CodeInternal})
		return
	}

	c.JSON(http.StatusOK, RunsResponse{
		Runs:       runs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

func (h *RunsHandler) Stats(c *gin.Context) {
	stats, err := h.runs.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch run stats", "code": CodeInternal})
		return
	}
	c.JSON(http.StatusOK, stats)
}
