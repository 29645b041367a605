package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"LEX-PDFMAP/internal"
	"LEX-PDFMAP/internal/config"
	"LEX-PDFMAP/internal/handlers"
	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/processor"
	"LEX-PDFMAP/internal/services"
	"LEX-PDFMAP/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := internal.InitDB(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer internal.CloseDB()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var blob storage.Blob
	var janitor *storage.Janitor
	switch cfg.Storage.Backend {
	case "gcs":
		gcs, err := storage.NewGCSClient(ctx, cfg.GCS.BucketName, cfg.GCS.ProjectID, cfg.GCS.CredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize GCS client: %v", err)
		}
		blob = gcs
	default:
		local, err := storage.NewLocalStore(cfg.Storage.LocalRoot)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		// Archived outputs older than ARCHIVE_MAX_AGE are removed.
		janitor = storage.NewJanitor(local, cfg.Storage.ArchiveMaxAge, time.Hour)
		janitor.Start()
		blob = local
	}
	defer blob.Close()

	pdfService, err := services.NewPDFService(cfg.Gotenberg.URL, cfg.Gotenberg.Timeout)
	if err != nil {
		log.Fatalf("Failed to initialize PDF service: %v", err)
	}

	engine := processor.NewFillEngine(processor.FillConfig{
		DateLayout:      cfg.Fill.DateFormat,
		DefaultFontSize: cfg.Fill.DefaultFontSize,
		MinFontSize:     cfg.Fill.MinFontSize,
		Debug:           cfg.Server.Debug(),
	})

	templateRepo := services.NewGormTemplates(internal.DB)
	store := mappings.NewGormStore(internal.DB)
	runService := services.NewRunService(services.NewGormRuns(internal.DB))
	templateService := services.NewTemplateService(templateRepo, store, blob, pdfService)
	sessions := services.NewEditorSessions(templateRepo, store, cfg.Editor.SessionTTL)
	sweeperDone := make(chan struct{})
	go func() {
		sessions.Run(ctx, time.Minute)
		close(sweeperDone)
	}()

	r := handlers.NewRouter(handlers.Services{
		Templates: templateService,
		Mappings:  services.NewMappingService(templateRepo, store),
		Fill:      services.NewFillService(templateService, store, engine, blob, runService),
		Bundles: services.NewBundleService(services.NewGormBundles(internal.DB), templateService, store,
			engine, blob, runService, cfg.Fill.BundleWorkers),
		Editor: sessions,
		Runs:   runService,
	}, cfg.Server.AllowOrigins)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down server...")
		if janitor != nil {
			janitor.Stop()
		}
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 15*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting server on :%s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	// Open editor sessions persist what they still have queued.
	cancel()
	<-sweeperDone
}
