package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal/catalog"
	"LEX-PDFMAP/internal/services"
)

// Services is everything the HTTP API talks to.
type Services struct {
	Templates *services.TemplateService
	Mappings  *services.MappingService
	Fill      *services.FillService
	Bundles   *services.BundleService
	Editor    *services.EditorSessions
	Runs      *services.RunService
}

// NewRouter builds the engine with every route under /api/v1.
func NewRouter(svc Services, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), CORS(allowOrigins))

	r.GET("/health", Health)

	templates := NewTemplateHandler(svc.Templates)
	mappingsH := NewMappingHandler(svc.Mappings)
	fill := NewFillHandler(svc.Fill, svc.Bundles)
	editor := NewEditorHandler(svc.Editor)
	runs := NewRunsHandler(svc.Runs)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", Health)
		v1.GET("/catalog", Catalog)
		v1.POST("/detect", templates.DetectUpload)

		v1.POST("/templates", templates.Upload)
		v1.GET("/templates", templates.List)
		v1.GET("/templates/:templateId", templates.Get)
		v1.DELETE("/templates/:templateId", templates.Delete)
		v1.POST("/templates/:templateId/detect", templates.Detect)

		v1.GET("/templates/:templateId/mappings", mappingsH.List)
		v1.POST("/templates/:templateId/mappings", mappingsH.Create)
		v1.PATCH("/mappings/:mappingId", mappingsH.Update)
		v1.DELETE("/mappings/:mappingId", mappingsH.Delete)

		v1.POST("/templates/:templateId/fill", fill.Fill)
		v1.POST("/bundles/:bundleId/assemble", fill.Assemble)

		v1.POST("/templates/:templateId/editor/sessions", editor.Open)
		v1.POST("/editor/sessions/:sessionId/events", editor.Events)
		v1.POST("/editor/sessions/:sessionId/reconcile", editor.Reconcile)
		v1.DELETE("/editor/sessions/:sessionId", editor.Close)

		v1.GET("/runs", runs.List)
		v1.GET("/runs/stats", runs.Stats)
	}
	return r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func Catalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": catalog.All(), "groups": catalog.Groups()})
}

// CORS allows the configured origins. A "*" entry allows every origin and an
// empty list rejects every cross-origin request.
func CORS(allowOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition", "X-Run-ID", "X-Archive-Path", "X-Bundle-Files", "X-Bundle-Failures"},
		MaxAge:        12 * time.Hour,
	}
	switch {
	case slices.Contains(allowOrigins, "*"):
		cfg.AllowAllOrigins = true
	case len(allowOrigins) == 0:
		cfg.AllowOriginFunc = func(string) bool { return false }
	default:
		cfg.AllowOrigins = allowOrigins
	}
	return cors.New(cfg)
}
