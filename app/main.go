package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loydmilligan/dailies-sub000/app/actions"
	"github.com/loydmilligan/dailies-sub000/app/api"
	"github.com/loydmilligan/dailies-sub000/app/capture"
	"github.com/loydmilligan/dailies-sub000/app/cfg"
	"github.com/loydmilligan/dailies-sub000/app/classify"
	"github.com/loydmilligan/dailies-sub000/app/database"
	"github.com/loydmilligan/dailies-sub000/app/provider"
	"github.com/loydmilligan/dailies-sub000/app/tasks"
	"github.com/loydmilligan/dailies-sub000/app/taxonomy"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Dailies server", "version", cfg.GetVersion())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	contentRepo := database.NewContentRepository(db)
	taxonomyRepo := database.NewTaxonomyRepository(db)
	logRepo := database.NewLogRepository(db)

	providers := buildProviders(appCfg)
	analysisChain := provider.NewChain(providers)

	registry := actions.NewRegistry()
	for _, handler := range []actions.Handler{
		actions.NewBiasAnalyzer(analysisChain),
		actions.NewQualityScorer(analysisChain),
		actions.NewCredibilityScorer(analysisChain),
		actions.NewLoadedLanguageDetector(analysisChain),
		actions.NewSummarizer(analysisChain),
		actions.NewEntityExtractor(analysisChain),
		actions.NewPoliticalAnalyzer(analysisChain),
	} {
		if err := registry.Register(handler); err != nil {
			slog.Error("Failed to register action handler", "handler", handler.Name(), "error", err)
			os.Exit(1)
		}
	}

	if err := taxonomy.Seed(appCfg.TaxonomyFile, taxonomyRepo); err != nil {
		slog.Error("Failed to seed taxonomy", "file", appCfg.TaxonomyFile, "error", err)
		os.Exit(1)
	}

	taxonomyCache := taxonomy.NewCache(taxonomyRepo, registry.Names())
	if err := taxonomyCache.Reload(); err != nil {
		slog.Error("Failed to load taxonomy", "error", err)
		os.Exit(1)
	}
	snapshot := taxonomyCache.Current()
	slog.Info("Taxonomy loaded",
		"categories", len(snapshot.Categories),
		"matchers", len(snapshot.Matchers),
		"aliases", len(snapshot.Aliases))

	resultCache := classify.NewResultCache(classify.DefaultCacheCapacity)
	orchestrator := classify.NewOrchestrator(providers, taxonomyCache, resultCache, logRepo)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	extractor := capture.NewExtractor(httpClient, appCfg.UserAgent)
	feedSource := capture.NewFeedSource(httpClient, appCfg.UserAgent)

	executor := actions.NewExecutor(registry, taxonomyCache, contentRepo, logRepo)
	analyzerFactory := tasks.NewAnalyzeContentTaskFactory(executor)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval_seconds", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(contentRepo, orchestrator, feedSource, analyzerFactory)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(contentRepo, logRepo, taxonomyCache, extractor, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

// buildProviders constructs the classification providers in configured
// order. Unknown names are skipped with a warning.
func buildProviders(appCfg *cfg.Cfg) []provider.Provider {
	timeout := time.Duration(appCfg.ProviderTimeout) * time.Second

	providers := make([]provider.Provider, 0, len(appCfg.ProviderOrder))
	for _, name := range appCfg.ProviderOrder {
		switch name {
		case "openai":
			providers = append(providers, provider.NewOpenAIProvider(provider.OpenAIOptions{
				Name:    "openai",
				APIKey:  appCfg.OpenAIAPIKey,
				BaseURL: appCfg.OpenAIBaseUrl,
				Model:   appCfg.OpenAIModel,
				Timeout: timeout,
			}))
		case "local":
			providers = append(providers, provider.NewOpenAIProvider(provider.OpenAIOptions{
				Name:    "local",
				BaseURL: appCfg.LocalEndpoint,
				Model:   appCfg.LocalModel,
				Timeout: timeout,
			}))
		default:
			slog.Warn("Unknown provider in configuration, skipping", "provider", name)
		}
	}

	for _, p := range providers {
		slog.Info("Provider configured", "name", p.Name(), "available", p.Available())
	}

	return providers
}
