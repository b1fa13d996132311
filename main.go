package main

import (
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"eventreel/config"
	"eventreel/db"
	"eventreel/handlers"
	"eventreel/logging"
	"eventreel/pipeline"
	"eventreel/server"
	"eventreel/services/content"
	"eventreel/services/footage"
	"eventreel/services/llm_service"
	"eventreel/services/notify"
	"eventreel/services/ocr"
	"eventreel/video"
)

func main() {
	cfg := config.Load()

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	llm := buildLLMService(cfg, logger)
	intelligence := content.NewService(llm, logger)
	extractor := ocr.NewDocExtractor(logger)

	catalog := footage.NewPexelsClient(logger, footage.PexelsClientConfig{
		BaseURL:         cfg.CatalogAPIURL,
		APIKey:          cfg.CatalogAPIKey,
		RequestTimeout:  cfg.CatalogRequestTimeout,
		ConnectTimeout:  cfg.CatalogConnectTimeout,
		DownloadTimeout: cfg.CatalogDownloadTimeout,
		MaxRetries:      cfg.CatalogMaxRetries,
	})
	downloader := footage.NewCatalogDownloader(catalog, cfg.TempDir, logger)

	jobStore := buildJobStore(cfg, logger)

	var notifier footage.FailureNotifier
	if cfg.TwilioAccountSID != "" && cfg.AlertPhoneNumber != "" {
		notifier = notify.NewSMSNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken,
			cfg.TwilioFromNumber, cfg.AlertPhoneNumber, logger)
	}

	locator := footage.NewService(downloader, jobStore, logger, notifier, footage.ServiceConfig{
		Tries:      cfg.QueueTries,
		Backoff:    cfg.QueueBackoff,
		RetryUntil: cfg.QueueRetryUntil,
	})

	fonts := video.NewFontResolver(cfg.FontDir, cfg.FontOverride, logger)
	composer := video.NewComposer(logger, cfg.OutputDir, video.OutputSpec{
		Width:    cfg.VideoWidth,
		Height:   cfg.VideoHeight,
		FPS:      cfg.VideoFPS,
		Duration: cfg.VideoDuration,
		Format:   cfg.VideoFormat,
	}, fonts)

	outputCleanup := video.NewOutputCleanupService(logger, cfg.OutputDir, cfg.OutputRetention)
	outputCleanup.StartCleanupSchedule(1 * time.Hour)

	orchestrator := pipeline.NewOrchestrator(logger, extractor, intelligence, locator, composer,
		pipeline.OrchestratorConfig{
			AccessCode:    cfg.AccessCode,
			MaxTextLength: cfg.MaxTextLength,
			PollInterval:  cfg.QueuePollInterval,
			WaitTimeout:   cfg.QueueWaitTimeout,
		})

	reelHandler := handlers.NewReelHandler(orchestrator, jobStore, cfg.TempDir, cfg.MaxUploadBytes, logger)

	r := server.SetupRoutes(cfg.RoutePrefix, reelHandler)
	n := setupNegroni(r)

	if cfg.Environment == "production" {
		server.ServeProduction(n, cfg.Domains, cfg.CertCacheDir)
	} else {
		srv := &http.Server{
			Addr:        ":" + cfg.HTTPPort,
			Handler:     n,
			IdleTimeout: time.Minute,
			ReadTimeout: 30 * time.Second,
			// The pipeline renders inside the request.
			WriteTimeout: 10 * time.Minute,
		}
		server.ServeDevelopment(srv)
	}
}

func buildLLMService(cfg config.Config, logger *slog.Logger) llm_service.LLMService {
	switch cfg.LLMProvider {
	case "gemini":
		return llm_service.NewGeminiService(logger, cfg.LLMAPIURL, cfg.LLMAPIKey)
	default:
		return llm_service.NewOpenAIService(logger, cfg.LLMAPIURL, cfg.LLMAPIKey, cfg.LLMModel)
	}
}

// buildJobStore picks the Postgres-backed registry when DATABASE_URL is set
// and falls back to the in-memory one otherwise. Either way the cleanup
// ticker runs for the life of the process.
func buildJobStore(cfg config.Config, logger *slog.Logger) footage.JobStore {
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to the database: %v", err)
		}
		store := footage.NewPostgresJobStore(pool, logger)
		store.StartCleanup(cfg.JobRetention, 10*time.Minute)
		return store
	}

	store := footage.NewMemoryJobStore(logger)
	store.StartCleanup(cfg.JobRetention, 10*time.Minute)
	return store
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()

	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())

	n.UseHandler(r)
	return n
}

func initLogger() (*slog.Logger, error) {
	logDir := filepath.Join("logs", "reel")

	fileHandler, err := logging.NewDailyFileHandler(logDir, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	if err != nil {
		return nil, err
	}

	return slog.New(fileHandler), nil
}
