package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/atorsvn/neku-bot/internal/agent"
	"github.com/atorsvn/neku-bot/internal/channel"
	"github.com/atorsvn/neku-bot/internal/channel/discord"
	"github.com/atorsvn/neku-bot/internal/chat"
	"github.com/atorsvn/neku-bot/internal/config"
	"github.com/atorsvn/neku-bot/internal/emotion"
	"github.com/atorsvn/neku-bot/internal/history"
	"github.com/atorsvn/neku-bot/internal/logging"
	"github.com/atorsvn/neku-bot/internal/media"
	"github.com/atorsvn/neku-bot/internal/pipeline"
	"github.com/atorsvn/neku-bot/internal/server"
	"github.com/atorsvn/neku-bot/internal/tts"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the bot configuration file")
	flag.Parse()

	// Local dev only; deployments set DISCORD_TOKEN directly.
	_ = godotenv.Load()

	logger := logging.WithComponent("main")
	logger.Info("starting neku-bot", "version", version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	token := os.Getenv("DISCORD_TOKEN")
	if cfg.Discord.Enabled && token == "" {
		logger.Error("DISCORD_TOKEN not set in environment")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tools := media.NewFFmpegToolset()

	// The animation grid is loaded once and shared read-only by every request.
	gridCache, err := os.MkdirTemp("", "neku-grid-*")
	if err != nil {
		logger.Error("failed to create grid cache", "error", err)
		os.Exit(1)
	}
	defer os.RemoveAll(gridCache)

	grid, err := media.LoadGrid(ctx, tools, cfg.Grid.Folder, gridCache, cfg.Grid.Rows, logging.WithComponent("grid"))
	if err != nil {
		logger.Error("failed to load animation grid", "error", err)
		os.Exit(1)
	}

	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		logger.Error("failed to open conversation store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	chatClient, err := chat.NewOllamaClient(&cfg.Ollama, cfg.Persona, store)
	if err != nil {
		logger.Error("failed to create chat client", "error", err)
		os.Exit(1)
	}
	if err := chatClient.Health(ctx); err != nil {
		logger.Warn("chat backend not reachable at startup", "error", err)
	}

	p := pipeline.New(
		chatClient,
		emotion.NewClient(&cfg.Emotion),
		tts.NewClient(&cfg.TTS),
		media.NewMerger(tools, tools, logging.WithComponent("merger")),
		media.NewClassifier(tools, logging.WithComponent("classifier")),
		media.NewCompositor(tools, logging.WithComponent("compositor")),
		media.NewMuxer(tools, logging.WithComponent("muxer")),
		grid,
		cfg.Media.OutputDir,
		logging.WithComponent("pipeline"),
	)
	manager := pipeline.NewManager(p)

	// Operational surface: health, status and metrics.
	opsSrv := server.New(cfg, chatClient, logging.WithComponent("server"))
	go func() {
		if err := opsSrv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	var adapters []channel.Adapter
	if cfg.Discord.Enabled {
		adapters = append(adapters, discord.NewAdapter(token, cfg.Discord.CommandPrefix))
	}
	if len(adapters) == 0 {
		logger.Error("no channel adapters enabled")
		os.Exit(1)
	}

	loop := agent.NewLoop(manager, logging.WithComponent("agent"))
	for _, adapter := range adapters {
		if err := adapter.Start(ctx); err != nil {
			logger.Error("failed to start adapter", "adapter", adapter.Name(), "error", err)
			os.Exit(1)
		}
		logger.Info("adapter started", "adapter", adapter.Name())
		go loop.Run(ctx, adapter)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	logger.Info("cancelling in-flight requests")
	manager.CancelAll()

	for _, adapter := range adapters {
		if err := adapter.Stop(); err != nil {
			logger.Error("failed to stop adapter", "adapter", adapter.Name(), "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down http server", "error", err)
	}
	logger.Info("shutdown complete")
}
