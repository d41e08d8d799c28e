// nekugen builds media assets for a prompt without Discord: the same pipeline
// as the bot, run once from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/atorsvn/neku-bot/internal/chat"
	"github.com/atorsvn/neku-bot/internal/config"
	"github.com/atorsvn/neku-bot/internal/emotion"
	"github.com/atorsvn/neku-bot/internal/history"
	"github.com/atorsvn/neku-bot/internal/logging"
	"github.com/atorsvn/neku-bot/internal/media"
	"github.com/atorsvn/neku-bot/internal/pipeline"
	"github.com/atorsvn/neku-bot/internal/tts"
)

type options struct {
	configPath string
	outputDir  string
	userID     string
	model      string
	langCode   string
	voice      string
	speed      float64
	dbPath     string
	gridFolder string
	gridRows   int
}

func main() {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "nekugen <prompt>",
		Short: "Generate a video reply for a prompt using the Neku pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "config.yaml", "Path to the bot configuration file")
	flags.StringVar(&opts.outputDir, "output-dir", "artifacts", "Directory to store generated files")
	flags.StringVar(&opts.userID, "user-id", "offline-user", "Identifier used when storing context")
	flags.StringVar(&opts.model, "model", "", "Chat model name (overrides config)")
	flags.StringVar(&opts.langCode, "lang-code", "", "TTS language code (overrides config)")
	flags.StringVar(&opts.voice, "voice", "", "TTS voice preset (overrides config)")
	flags.Float64Var(&opts.speed, "speed", 0, "Speech speed multiplier (overrides config)")
	flags.StringVar(&opts.dbPath, "db-path", "", "Location of the conversation store (overrides config)")
	flags.StringVar(&opts.gridFolder, "grid-folder", "", "Folder containing the grid animation videos (overrides config)")
	flags.IntVar(&opts.gridRows, "grid-rows", 0, "Number of rows in the animation grid (overrides config)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, prompt string, opts *options) error {
	_ = godotenv.Load()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return err
	}

	tools := media.NewFFmpegToolset()

	gridCache, err := os.MkdirTemp("", "neku-grid-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(gridCache)

	grid, err := media.LoadGrid(ctx, tools, cfg.Grid.Folder, gridCache, cfg.Grid.Rows, logging.WithComponent("grid"))
	if err != nil {
		return fmt.Errorf("load animation grid: %w", err)
	}

	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	chatClient, err := chat.NewOllamaClient(&cfg.Ollama, cfg.Persona, store)
	if err != nil {
		return err
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
		opts.outputDir,
		logging.WithComponent("pipeline"),
	)

	res, err := p.Run(ctx, "offline", opts.userID, prompt)
	if err != nil {
		return err
	}

	summaryPath := filepath.Join(filepath.Dir(res.Video), "summary.json")
	if err := res.WriteSummary(summaryPath); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	fmt.Printf("Emotion: %s (confidence: %.2f%%)\n", res.Emotion.Label, res.Emotion.Score*100)
	fmt.Printf("Video saved to: %s\n", res.Video)
	fmt.Printf("Audio saved to: %s\n", res.Audio)
	fmt.Printf("Subtitles saved to: %s\n", res.SRT)
	fmt.Printf("Segments JSON saved to: %s\n", res.Segments)
	fmt.Printf("Summary saved to: %s\n", summaryPath)
	return nil
}

func applyOverrides(cfg *config.Config, opts *options) {
	if opts.model != "" {
		cfg.Ollama.Model = opts.model
	}
	if opts.langCode != "" {
		cfg.TTS.LangCode = opts.langCode
	}
	if opts.voice != "" {
		cfg.TTS.Voice = opts.voice
	}
	if opts.speed != 0 {
		cfg.TTS.Speed = opts.speed
	}
	if opts.dbPath != "" {
		cfg.History.DBPath = opts.dbPath
	}
	if opts.gridFolder != "" {
		cfg.Grid.Folder = opts.gridFolder
	}
	if opts.gridRows != 0 {
		cfg.Grid.Rows = opts.gridRows
	}
	cfg.Media.OutputDir = opts.outputDir
}
