package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"

	"shopee-shorts-pipeline/01_products"
	"shopee-shorts-pipeline/02_narration"
	"shopee-shorts-pipeline/03_render"
	"shopee-shorts-pipeline/04_metadata"
	"shopee-shorts-pipeline/05_upload"
	"shopee-shorts-pipeline/06_report"
	"shopee-shorts-pipeline/config"
	"shopee-shorts-pipeline/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	skipUpload := flag.Bool("skip-upload", false, "render only, do not upload")
	productsFile := flag.String("products", "", "read products from a JSON/YAML file instead of Shopee")
	dailyReport := flag.Bool("daily-report", false, "send today's stats to Telegram and exit")
	flag.Parse()

	// .env is for local runs; CI passes real environment variables
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 2
	}
	if *productsFile != "" {
		cfg.Products.Source = "file"
		cfg.Products.File = *productsFile
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "shopee-shorts",
		Level:      hclog.LevelFromString(cfg.Log.Level),
		JSONFormat: cfg.Log.JSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := report.NewNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, "", logger)
	stats, err := report.OpenStats(cfg.Paths.StatsDB)
	if err != nil {
		logger.Warn("run statistics disabled", "error", err)
	} else {
		defer stats.Close()
	}

	if *dailyReport {
		return sendDailyReport(stats, notifier, logger)
	}

	for _, dir := range []string{cfg.Paths.Output, cfg.Paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("failed to create dir", "dir", dir, "error", err)
			return 1
		}
	}

	runID := uuid.NewString()
	runDir := filepath.Join(cfg.Paths.Output, "runs", runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		logger.Error("failed to create run dir", "error", err)
		return 1
	}
	logger = logger.With("run_id", runID[:8])
	logger.Info("pipeline starting", "run_dir", runDir)

	p := &pipeline{
		cfg:        cfg,
		logger:     logger,
		runDir:     runDir,
		skipUpload: *skipUpload,
		state: &types.PipelineState{
			RunID:     runID,
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
	started := time.Now()
	runErr := p.run(ctx)

	p.state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	if runErr != nil {
		p.state.Error = runErr.Error()
	}
	saveJSON(filepath.Join(runDir, "pipeline_state.json"), p.state, logger)

	if stats != nil {
		if err := stats.Record(p.record(started)); err != nil {
			logger.Warn("could not record run statistics", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		notifier.SendError(runErr)
		return 1
	}
	if p.state.Upload != nil && p.state.Upload.Success {
		notifier.SendSuccess(*p.state.Upload)
	}
	logger.Info("pipeline complete", "video", p.state.VideoFile, "elapsed", time.Since(started).Round(time.Millisecond))
	return 0
}

type pipeline struct {
	cfg        *config.Config
	logger     hclog.Logger
	runDir     string
	skipUpload bool
	state      *types.PipelineState
}

func (p *pipeline) run(ctx context.Context) error {
	cfg := p.cfg

	p.logger.Info("stage 1: products")
	src := products.New(cfg, p.logger)
	prods, err := products.Run(ctx, src, cfg.Products.Limit, p.logger)
	if err != nil {
		return fmt.Errorf("stage 1 products: %w", err)
	}
	p.state.Products = prods
	saveJSON(filepath.Join(p.runDir, "products.json"), prods, p.logger)

	p.logger.Info("stage 2: narration")
	narr := narration.New(ctx, cfg, p.logger).Run(ctx, prods, p.runDir)
	p.state.AudioFile = narr.AudioPath
	p.state.ScriptFile = narr.ScriptPath

	p.logger.Info("stage 3: render")
	caps := render.DetectCapabilities(cfg.Render.FontRegular, cfg.Render.FontBold, p.logger)
	gen := render.NewGenerator(cfg, caps, p.logger)
	defer gen.Cleanup()

	if err := gen.Init(ctx); err != nil {
		return fmt.Errorf("stage 3 render init: %w", err)
	}
	videoPath, err := gen.GenerateVideo(ctx, prods, narr.AudioPath)
	p.state.RenderBackend = string(gen.Backend())
	if err != nil {
		return fmt.Errorf("stage 3 render: %w", err)
	}
	p.state.VideoFile = videoPath

	p.logger.Info("stage 4: metadata")
	meta := metadata.Build(prods, time.Now(), cfg.Upload.AffiliateTag)
	meta.Visibility = cfg.Upload.Visibility
	p.state.Metadata = &meta
	saveJSON(filepath.Join(p.runDir, "metadata.json"), meta, p.logger)

	if p.skipUpload || !cfg.Upload.Enabled {
		p.logger.Info("stage 5: upload skipped")
		return nil
	}
	p.logger.Info("stage 5: upload")
	result, err := upload.New(cfg, p.logger).Run(ctx, videoPath, meta)
	p.state.Upload = &result
	if path, logErr := upload.LogUpload(cfg.Paths.Logs, result, videoPath); logErr != nil {
		p.logger.Warn("could not save upload log", "error", logErr)
	} else {
		p.logger.Debug("upload log saved", "path", path)
	}
	if err != nil {
		return fmt.Errorf("stage 5 upload: %w", err)
	}
	return nil
}

func (p *pipeline) record(started time.Time) report.RunRecord {
	rec := report.RunRecord{
		RunID:           p.state.RunID,
		StartedAt:       started,
		FinishedAt:      time.Now(),
		ProductsScraped: len(p.state.Products),
		VideoCreated:    p.state.VideoFile != "",
		RenderBackend:   p.state.RenderBackend,
		VideoFile:       p.state.VideoFile,
		Failed:          p.state.Error != "",
		Error:           p.state.Error,
	}
	if up := p.state.Upload; up != nil && up.Success {
		rec.Uploaded = true
		rec.VideoURL = up.URL
	}
	return rec
}

func sendDailyReport(stats *report.StatsStore, notifier *report.Notifier, logger hclog.Logger) int {
	if stats == nil {
		logger.Error("daily report needs the stats database")
		return 1
	}
	today, err := stats.Daily(time.Now())
	if err != nil {
		logger.Error("could not read stats", "error", err)
		return 1
	}
	logger.Info("daily stats", "created", today.VideosCreated, "uploaded", today.VideosUploaded,
		"errors", today.Errors, "products", today.ProductsScraped)
	if !notifier.SendDailyReport(today) && notifier.Enabled() {
		return 1
	}
	return 0
}

func saveJSON(path string, v any, logger hclog.Logger) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		logger.Warn("could not save JSON", "path", path, "error", err)
	}
}
