package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Robertiks/erase-watermark/internal/config"
	"github.com/Robertiks/erase-watermark/internal/logging"
	"github.com/Robertiks/erase-watermark/internal/model"
	"github.com/Robertiks/erase-watermark/internal/service"
)

// go run ./cmd/erase -a <key> photo.jpg
// go run ./cmd/erase -o clean.jpg photo.jpg

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		log.Print(err)
		return 1
	}

	output := flag.String("o", "", "Output image path (defaults to <name>_dewatermarked<ext>)")
	flag.StringVar(&cfg.APIKey, "a", cfg.APIKey, "API key for dewatermark.ai service")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 1
	}
	input := flag.Arg(0)

	if _, err := os.Stat(input); err != nil {
		fmt.Printf("Error: Input file '%s' does not exist.\n", input)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(input)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer logger.Sync()

	client, err := cfg.SetupClient(logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Processing %s...\n", input)
	res := service.NewImageEraser(client, logger).Process(ctx, model.Request{
		InputPath:  input,
		OutputPath: outPath,
		UseAPI:     true,
	})
	if !res.Success {
		fmt.Printf("Error: %s\n", res.Message())
		return 1
	}

	fmt.Printf("Watermark removed successfully! Result saved as '%s'\n", outPath)
	return 0
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(filepath.Dir(input), stem+"_dewatermarked"+ext)
}
