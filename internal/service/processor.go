package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Robertiks/erase-watermark/internal/model"
)

// ImageProcessor fans a directory of images out over a bounded worker pool.
// Only the first limit files in discovery order are sent to the API.
type ImageProcessor struct {
	eraser     *ImageEraser
	concurrent int
	limit      int
	out        io.Writer
	logger     *zap.Logger
	progress   time.Duration
	keyLabel   string

	mu sync.Mutex
}

type ProcessorOption func(*ImageProcessor)

// WithOutput sets where status lines and the summary are printed.
func WithOutput(w io.Writer) ProcessorOption {
	return func(p *ImageProcessor) { p.out = w }
}

func WithLogger(logger *zap.Logger) ProcessorOption {
	return func(p *ImageProcessor) { p.logger = logger }
}

// WithKeyLabel sets the (masked) API key shown in the run header.
func WithKeyLabel(label string) ProcessorOption {
	return func(p *ImageProcessor) { p.keyLabel = label }
}

// WithProgressInterval sets how often progress is logged. Zero disables it.
func WithProgressInterval(d time.Duration) ProcessorOption {
	return func(p *ImageProcessor) { p.progress = d }
}

func NewImageProcessor(eraser *ImageEraser, concurrent, limit int, opts ...ProcessorOption) *ImageProcessor {
	p := &ImageProcessor{
		eraser:     eraser,
		concurrent: concurrent,
		limit:      limit,
		out:        os.Stdout,
		logger:     zap.NewNop(),
		progress:   4 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.concurrent < 1 {
		p.concurrent = 1
	}
	return p
}

// ProcessImages processes every image directly inside inputDir and writes the
// results under outputDir with the same file names.
func (p *ImageProcessor) ProcessImages(ctx context.Context, inputDir, outputDir string) (model.Summary, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return model.Summary{}, fmt.Errorf("creating output directory: %w", err)
	}

	images, err := CollectImages(inputDir)
	if err != nil {
		return model.Summary{}, err
	}
	if len(images) == 0 {
		p.printf("No image files found in %s\n", inputDir)
		return model.Summary{OutputDir: outputDir, APILimit: p.limit}, nil
	}

	p.printf("Found %d images to process\n", len(images))
	if p.keyLabel != "" {
		p.printf("Using API key: %s\n", p.keyLabel)
	}
	p.printf("API usage limit: %d images\n", p.limit)

	return p.Run(ctx, images, outputDir), nil
}

// Run processes the given files. Quota is assigned before any task starts so
// eligibility depends only on the order of images.
func (p *ImageProcessor) Run(ctx context.Context, images []string, outputDir string) model.Summary {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))
	start := time.Now()

	requests, apiUsed := PlanRequests(images, outputDir, p.limit)
	if apiUsed < len(requests) {
		p.printf("\nAPI limit of %d images reached. Processing remaining images without API.\n", p.limit)
	}

	totalCount := len(requests)
	results := make(chan model.Result, totalCount)
	var processedCount int32

	stop := p.startProgress(logger, &processedCount, totalCount)
	defer stop()

	logger.Info("Starting batch",
		zap.Int("images", totalCount),
		zap.Int("workers", p.concurrent),
		zap.Int("api_limit", p.limit))

	go func() {
		g := new(errgroup.Group)
		g.SetLimit(p.concurrent)

		for _, req := range requests {
			req := req
			g.Go(func() error {
				if req.UseAPI {
					p.printf("Processing %s with API...\n", filepath.Base(req.InputPath))
				} else {
					p.printf("Processing %s without API (original will be returned)...\n", filepath.Base(req.InputPath))
				}
				results <- p.eraser.Process(ctx, req)
				atomic.AddInt32(&processedCount, 1)
				return nil
			})
		}

		_ = g.Wait()
		close(results)
	}()

	summary := model.Summary{
		RunID:     runID,
		Total:     totalCount,
		APIUsed:   apiUsed,
		APILimit:  p.limit,
		OutputDir: outputDir,
	}

	i := 0
	for res := range results {
		i++
		if res.Success {
			summary.Successful++
			p.printf("[%d/%d] ✓ %s\n", i, totalCount, res.Name)
		} else {
			summary.Failed++
			p.printf("[%d/%d] ✗ %s - Error: %s\n", i, totalCount, res.Name, res.Message())
			logger.Error("Image failed",
				zap.String("file", res.Name),
				zap.String("kind", string(res.Kind)),
				zap.Error(res.Err))
		}
	}
	summary.Elapsed = time.Since(start)

	p.printSummary(summary)
	logger.Info("Batch finished",
		zap.Int("successful", summary.Successful),
		zap.Int("failed", summary.Failed),
		zap.Int("api_used", summary.APIUsage()),
		zap.Duration("elapsed", summary.Elapsed))
	return summary
}

// PlanRequests assigns API eligibility in order: the first limit images use the
// API, the rest pass through. It also returns how many were made eligible.
func PlanRequests(images []string, outputDir string, limit int) ([]model.Request, int) {
	requests := make([]model.Request, 0, len(images))
	apiUsed := 0
	for _, imagePath := range images {
		useAPI := apiUsed < limit
		if useAPI {
			apiUsed++
		}
		requests = append(requests, model.Request{
			InputPath:  imagePath,
			OutputPath: filepath.Join(outputDir, filepath.Base(imagePath)),
			UseAPI:     useAPI,
		})
	}
	return requests, apiUsed
}

// CollectImages lists regular image files directly inside dir, sorted by name.
func CollectImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	var images []string
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if !isImageFile(path) || !isRegular(path, entry) {
			continue
		}
		images = append(images, path)
	}
	return images, nil
}

func isRegular(path string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".jpg" || ext == ".jpeg" || ext == ".png"
}

func (p *ImageProcessor) startProgress(logger *zap.Logger, processed *int32, total int) func() {
	if p.progress <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(p.progress)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n := atomic.LoadInt32(processed)
				if int(n) < total {
					logger.Info("Progress",
						zap.Int32("processed", n),
						zap.Int("total", total),
						zap.String("percent", fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)))
				}
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}

func (p *ImageProcessor) printSummary(s model.Summary) {
	p.printf("\nProcessing complete!\n")
	p.printf("Time taken: %.2f seconds\n", s.Elapsed.Seconds())
	p.printf("Images processed: %d successful, %d failed\n", s.Successful, s.Failed)
	p.printf("API usage: %d/%d images processed with API\n", s.APIUsage(), s.APILimit)
	p.printf("Processed images saved to: %s\n", s.OutputDir)
}

func (p *ImageProcessor) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}
