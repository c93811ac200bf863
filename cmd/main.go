package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Robertiks/erase-watermark/internal/config"
	"github.com/Robertiks/erase-watermark/internal/logging"
	"github.com/Robertiks/erase-watermark/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Print(err)
		return 1
	}

	bindFlags(flag.CommandLine, cfg)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Print(err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Print("Failed to initialize logger: ", err)
		return 1
	}
	defer logger.Sync()

	client, err := cfg.SetupClient(logger)
	if err != nil {
		logger.Error("Failed to set up client", zap.Error(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eraser := service.NewImageEraser(client, logger)
	processor := service.NewImageProcessor(eraser, cfg.Workers, cfg.Limit,
		service.WithLogger(logger),
		service.WithKeyLabel(cfg.MaskedAPIKey()),
	)

	if _, err := processor.ProcessImages(ctx, cfg.InputDir, cfg.OutputDir); err != nil {
		logger.Error("Batch failed", zap.Error(err))
		return 1
	}
	return 0
}

// bindFlags registers each option under its short and long name.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	for _, name := range []string{"i", "input"} {
		fs.StringVar(&cfg.InputDir, name, cfg.InputDir, "Input directory containing images with watermarks")
	}
	for _, name := range []string{"o", "output"} {
		fs.StringVar(&cfg.OutputDir, name, cfg.OutputDir, "Output directory for processed images")
	}
	for _, name := range []string{"w", "workers"} {
		fs.IntVar(&cfg.Workers, name, cfg.Workers, "Number of concurrent workers")
	}
	for _, name := range []string{"a", "api-key"} {
		fs.StringVar(&cfg.APIKey, name, cfg.APIKey, "API key for dewatermark.ai service")
	}
	for _, name := range []string{"l", "limit"} {
		fs.IntVar(&cfg.Limit, name, cfg.Limit, "Maximum number of images to process using the API")
	}
}
