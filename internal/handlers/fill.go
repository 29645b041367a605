package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal/services"
)

type FillHandler struct {
	fill    *services.FillService
	bundles *services.BundleService
}

func NewFillHandler(fill *services.FillService, bundles *services.BundleService) *FillHandler {
	return &FillHandler{fill: fill, bundles: bundles}
}

// bindArchive reads the optional body and lets ?archive= override it.
func bindArchive(c *gin.Context, body any, archive *bool) bool {
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(body); err != nil {
			badRequest(c, "Invalid request body: "+err.Error())
			return false
		}
	}
	if v := c.Query("archive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "archive must be true or false")
			return false
		}
		*archive = b
	}
	return true
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

// Fill returns the filled PDF of one template.
func (h *FillHandler) Fill(c *gin.Context) {
	var req services.FillRequest
	if !bindArchive(c, &req, &req.Archive) {
		return
	}
	req.TemplateID = c.Param("templateId")

	res, err := h.fill.Fill(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(res.Filename))
	c.Header("X-Run-ID", res.RunID)
	if res.ArchivePath != "" {
		c.Header("X-Archive-Path", res.ArchivePath)
	}
	c.Data(http.StatusOK, "application/pdf", res.PDF)
}

// Assemble returns the zip archive of a bundle. Templates that could not be
// filled are counted in X-Bundle-Failures and left out of the archive.
func (h *FillHandler) Assemble(c *gin.Context) {
	var req services.BundleRequest
	if !bindArchive(c, &req, &req.Archive) {
		return
	}
	req.BundleID = c.Param("bundleId")

	res, err := h.bundles.Assemble(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(res.Filename))
	c.Header("X-Run-ID", res.RunID)
	c.Header("X-Bundle-Files", strconv.Itoa(len(res.Files)))
	c.Header("X-Bundle-Failures", strconv.Itoa(len(res.Failures)))
	if res.ArchivePath != "" {
		c.Header("X-Archive-Path", res.ArchivePath)
	}
	c.Data(http.StatusOK, "application/zip", res.Archive)
}
