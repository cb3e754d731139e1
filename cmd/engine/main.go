package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flona/broll-engine/internal/api"
	"github.com/flona/broll-engine/internal/artifact"
	"github.com/flona/broll-engine/internal/config"
	"github.com/flona/broll-engine/internal/db"
	"github.com/flona/broll-engine/internal/fetch"
	"github.com/flona/broll-engine/internal/logging"
	"github.com/flona/broll-engine/internal/media"
	"github.com/flona/broll-engine/internal/metrics"
	"github.com/flona/broll-engine/internal/oracle"
	"github.com/flona/broll-engine/internal/plan"
	"github.com/flona/broll-engine/internal/render"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, dir := range []string{cfg.DataDir(), cfg.OutputDir(), cfg.TempDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting b-roll engine",
		"version", config.Version,
		"commit", config.GitCommit,
		"data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := plan.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}
	logger.Info("api token ready", "token", logging.SanitizeToken(authToken))

	fetcher := fetch.NewHTTPFetcher(cfg.FetchTimeout(), logger)

	var planOracle plan.Oracle
	oracleConfigured := cfg.GeminiProject() != ""
	if oracleConfigured {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		g, err := oracle.NewGemini(ctx, cfg.GeminiProject(), cfg.GeminiLocation(), cfg.GeminiModel(), fetcher, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to initialize gemini oracle: %w", err)
		}
		defer g.Close()
		planOracle = g
		logger.Info("gemini oracle configured",
			"project", cfg.GeminiProject(),
			"location", cfg.GeminiLocation(),
			"model", cfg.GeminiModel())
	} else {
		planOracle = oracle.NewUnconfigured(logger)
		logger.Warn("no oracle configured, plan generation disabled",
			"hint", "set "+config.EnvGeminiProject)
	}

	assembler := plan.NewAssembler(planOracle, repo, logging.WithComponent(logger, "plan"))

	doctor := render.NewCachedDoctor(logger)
	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if caps, err := doctor.Refresh(initCtx); err != nil {
		logger.Warn("initial render tool probe failed", "error", err)
	} else if !caps.Available {
		logger.Warn("ffmpeg tools not found on PATH, rendering will fail")
	} else {
		logger.Info("render tools detected", "ffmpeg", caps.FFmpegPath, "ffprobe", caps.FFprobePath)
	}
	initCancel()

	m := metrics.New()

	renderLogger := logging.WithComponent(logger, "render")
	compositor := render.NewFFmpegCompositor(fetcher, media.NewFFprobe(logger), cfg.TempDir(), renderLogger)
	manager := render.NewManager(repo, compositor, m, cfg.OutputDir(),
		cfg.RenderWorkers(), cfg.RenderQueueSize(), cfg.RenderTimeout(), renderLogger)
	manager.Start()

	apiServer := api.NewServer(api.ServerConfig{
		Port:              cfg.Port(),
		Assembler:         assembler,
		Repository:        repo,
		RenderManager:     manager,
		Artifacts:         artifact.NewStore(cfg.OutputDir(), logger),
		Doctor:            doctor,
		Metrics:           m,
		SampleSourcesPath: cfg.SampleSourcesPath(),
		OracleConfigured:  oracleConfigured,
		OracleTimeout:     cfg.OracleTimeout(),
		Logger:            logger,
		StartTime:         startTime,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	manager.Stop()

	logger.Info("shutdown complete")
	return nil
}

func ensureAuthToken(repo plan.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetSetting(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetSetting(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
