package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/truthlens/app/analysis"
	"github.com/lysyi3m/truthlens/app/api"
	"github.com/lysyi3m/truthlens/app/cfg"
	"github.com/lysyi3m/truthlens/app/confidence"
	"github.com/lysyi3m/truthlens/app/database"
	"github.com/lysyi3m/truthlens/app/evidence"
	"github.com/lysyi3m/truthlens/app/feed"
	"github.com/lysyi3m/truthlens/app/forensics"
	"github.com/lysyi3m/truthlens/app/imagecheck"
	"github.com/lysyi3m/truthlens/app/llm"
	"github.com/lysyi3m/truthlens/app/ocr"
	"github.com/lysyi3m/truthlens/app/social"
	"github.com/lysyi3m/truthlens/app/tasks"
	"github.com/lysyi3m/truthlens/app/textcheck"
	"github.com/lysyi3m/truthlens/app/trust"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(appCfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting TruthLens", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	tiers, err := trust.Load(appCfg.TrustTiersFile)
	if err != nil {
		return err
	}
	signatures, err := forensics.LoadSignatures(appCfg.SignaturesFile)
	if err != nil {
		return err
	}

	model, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      appCfg.ModelAPIKey,
		BaseURL:     appCfg.ModelBaseURL,
		Model:       appCfg.ModelName,
		Temperature: appCfg.ModelTemperature,
		Timeout:     appCfg.ModelTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create language model client: %w", err)
	}

	httpClient := &http.Client{}
	feedParser := feed.NewParser()

	retriever, posts := newRetriever(appCfg, model, httpClient, feedParser)

	var extractor ocr.Extractor = ocr.Nop{}
	if tesseract := ocr.NewTesseract(appCfg.TesseractPath, appCfg.OCRLanguage, appCfg.OCRTimeout); tesseract.Available() {
		extractor = tesseract
	} else {
		slog.Warn("OCR disabled: tesseract binary not found", "path", appCfg.TesseractPath)
	}

	textPipeline := textcheck.New(model, retriever, confidence.NewEngine(tiers), extractor, posts)
	imagePipeline := imagecheck.New(model, forensics.NewAnalyzer(signatures), extractor)
	analyzer := analysis.NewAnalyzer(textPipeline, imagePipeline, appCfg.MinTextLength)
	service := analysis.NewService(analyzer, database.NewAnalysisRepository(db), tiers)
	if n, err := service.RecoverUnfinished(); err != nil {
		return fmt.Errorf("failed to recover unfinished analyses: %w", err)
	} else if n > 0 {
		slog.Warn("Marked analyses interrupted by the previous run as failed", "count", n)
	}

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load feed configurations: %w", err)
	}
	slog.Info("Feed configurations loaded", "count", configCache.GetConfigCount(), "dir", appCfg.FeedsDir)

	feedRepo := database.NewFeedRepository(db)
	trendRepo := database.NewTrendRepository(db)
	filterer := feed.NewFilterer()

	scheduler := tasks.NewScheduler(configCache, feedRepo, trendRepo, httpClient, feedParser, filterer, textPipeline,
		tasks.Options{
			UserAgent:   appCfg.UserAgent,
			Interval:    time.Duration(appCfg.SchedulerInterval) * time.Second,
			WorkerCount: appCfg.WorkerCount,
		})
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(service, configCache, feedRepo, trendRepo,
		feed.NewGenerator(appCfg.BaseURL, appCfg.Version), filterer, scheduler,
		api.NewImageFetcher(httpClient, appCfg.UserAgent, appCfg.FetchTimeout, appCfg.MaxUploadSize),
		api.Options{MaxUploadSize: appCfg.MaxUploadSize, Version: appCfg.Version})

	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout: 30 * time.Second,
		// Synchronous analyses wait on the model and every evidence provider.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("TruthLens shutdown complete")
	return nil
}

// newRetriever builds the evidence retriever from whichever providers are
// configured. Providers without credentials are skipped.
func newRetriever(appCfg *cfg.Cfg, model llm.LanguageModel, httpClient *http.Client,
	feedParser *feed.Parser) (*evidence.Retriever, social.PostLookup) {
	pc := evidence.ProviderConfig{HTTPClient: httpClient, Timeout: appCfg.ProviderTimeout}

	var factChecks []evidence.FactCheckProvider
	var search []evidence.SearchProvider

	if appCfg.GoogleAPIKey != "" {
		if p, err := evidence.NewGoogleFactCheck(appCfg.GoogleAPIKey, pc); err != nil {
			slog.Warn("Fact-check provider disabled", "provider", "google_factcheck", "error", err)
		} else {
			factChecks = append(factChecks, p)
		}
	}
	if len(appCfg.FactCheckFeeds) > 0 {
		if p, err := evidence.NewFeedFactChecker(httpClient, feedParser, appCfg.FactCheckFeeds,
			appCfg.UserAgent, appCfg.FetchTimeout); err != nil {
			slog.Warn("Fact-check provider disabled", "provider", "feeds", "error", err)
		} else {
			factChecks = append(factChecks, p)
		}
	}

	if appCfg.TavilyAPIKey != "" {
		if p, err := evidence.NewTavily(appCfg.TavilyAPIKey, pc); err != nil {
			slog.Warn("Search provider disabled", "provider", "tavily", "error", err)
		} else {
			search = append(search, p)
		}
	}
	if appCfg.SerperAPIKey != "" {
		if p, err := evidence.NewSerper(appCfg.SerperAPIKey, pc); err != nil {
			slog.Warn("Search provider disabled", "provider", "serper", "error", err)
		} else {
			search = append(search, p)
		}
	}
	if appCfg.GoogleAPIKey != "" && appCfg.GoogleCSEID != "" {
		if p, err := evidence.NewGoogleSearch(appCfg.GoogleAPIKey, appCfg.GoogleCSEID, pc); err != nil {
			slog.Warn("Search provider disabled", "provider", "google", "error", err)
		} else {
			search = append(search, p)
		}
	}
	if len(search) == 0 {
		slog.Warn("No web search provider configured, evidence will use placeholders")
	}

	var searcher evidence.SocialSearcher
	var posts social.PostLookup
	if appCfg.XBearerToken != "" {
		x, err := social.NewXClient(httpClient, social.XConfig{
			BearerToken: appCfg.XBearerToken,
			Timeout:     appCfg.ProviderTimeout,
		})
		if err != nil {
			slog.Warn("X integration disabled", "error", err)
		} else {
			searcher, posts = x, x
		}
	}

	fetcher := evidence.NewHTTPFetcher(httpClient, appCfg.UserAgent, appCfg.FetchTimeout)

	slog.Info("Evidence providers configured", "fact_checks", len(factChecks), "search", len(search), "social", posts != nil)

	return evidence.NewRetriever(model, factChecks, search, searcher, fetcher), posts
}
