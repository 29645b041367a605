package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal/services"
)

type EditorHandler struct {
	sessions *services.EditorSessions
}

func NewEditorHandler(sessions *services.EditorSessions) *EditorHandler {
	return &EditorHandler{sessions: sessions}
}

type OpenSessionRequest struct {
	Scale float64 `json:"scale"`
}

type EventsRequest struct {
	Events []services.EditorEvent `json:"events" binding:"required"`
}

// EventsResponse carries the session state even when an event failed, so the
// client can redraw what was applied before it.
type EventsResponse struct {
	*services.EditorState
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

func (h *EditorHandler) Open(c *gin.Context) {
	req := OpenSessionRequest{Scale: 1}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	st, err := h.sessions.Open(c.Request.Context(), c.Param("templateId"), req.Scale)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *EditorHandler) Events(c *gin.Context) {
	var req EventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid events: "+err.Error())
		return
	}

	st, err := h.sessions.Apply(c.Request.Context(), c.Param("sessionId"), req.Events)
	if st == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		status, code := classify(err)
		c.JSON(status, EventsResponse{EditorState: st, Error: err.Error(), Code: code})
		return
	}
	c.JSON(http.StatusOK, EventsResponse{EditorState: st})
}

func (h *EditorHandler) Reconcile(c *gin.Context) {
	st, err := h.sessions.Reconcile(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *EditorHandler) Close(c *gin.Context) {
	if err := h.sessions.Close(c.Param("sessionId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
