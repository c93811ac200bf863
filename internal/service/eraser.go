package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Robertiks/erase-watermark/internal/dewatermark"
	"github.com/Robertiks/erase-watermark/internal/model"
)

// ImageEraser handles one file: read, erase, write. It never returns an error;
// every failure is folded into the result.
type ImageEraser struct {
	client *dewatermark.Client
	logger *zap.Logger
}

func NewImageEraser(client *dewatermark.Client, logger *zap.Logger) *ImageEraser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageEraser{
		client: client,
		logger: logger,
	}
}

func (e *ImageEraser) Process(ctx context.Context, req model.Request) model.Result {
	name := filepath.Base(req.InputPath)
	if err := e.process(ctx, req); err != nil {
		e.logger.Warn("Failed to process image",
			zap.String("file", name),
			zap.Bool("use_api", req.UseAPI),
			zap.Error(err))
		return model.Failed(name, req.UseAPI, err)
	}
	return model.Succeeded(name, req.UseAPI)
}

func (e *ImageEraser) process(ctx context.Context, req model.Request) error {
	imageBytes, err := os.ReadFile(req.InputPath)
	if err != nil {
		return fmt.Errorf("%w: %w", dewatermark.ErrIO, err)
	}

	// Each call gets its own snapshot; the shared client is never mutated.
	result, err := e.client.WithUseAPI(req.UseAPI).Erase(ctx, imageBytes)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return fmt.Errorf("%w: %w", dewatermark.ErrIO, err)
	}
	if err := os.WriteFile(req.OutputPath, result, 0o644); err != nil {
		return fmt.Errorf("%w: %w", dewatermark.ErrIO, err)
	}
	return nil
}
