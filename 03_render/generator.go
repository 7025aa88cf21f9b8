package render

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"shopee-shorts-pipeline/config"
	"shopee-shorts-pipeline/types"
)

// Generator turns a ranked product list into one encoded video. It starts on
// the rich backend when DetectCapabilities allows it and drops to the simple
// backend, for good, the first time the rich backend fails.
type Generator struct {
	video    types.VideoConfig
	basename string
	logger   hclog.Logger

	rich    ThumbnailRenderer
	simple  ThumbnailRenderer
	staging *Staging
	seq     *Sequencer
	encoder *Encoder
	runner  CommandRunner
	now     func() time.Time

	stateMu        sync.RWMutex
	state          Backend
	fallbackReason string

	// one encode per staging directory at a time; also guards backendReady
	runMu        sync.Mutex
	backendReady bool
}

// Option configures a Generator
type Option func(*Generator)

// WithRichRenderer replaces the canvas backend
func WithRichRenderer(r ThumbnailRenderer) Option {
	return func(g *Generator) { g.rich = r }
}

// WithSimpleRenderer replaces the SVG backend
func WithSimpleRenderer(r ThumbnailRenderer) Option {
	return func(g *Generator) { g.simple = r }
}

// WithRunner replaces the subprocess runner used for ffmpeg and ffprobe
func WithRunner(r CommandRunner) Option {
	return func(g *Generator) { g.runner = r }
}

// WithClock sets the clock used to stamp output file names
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator wires the backends, staging and encoder from config. caps is the
// result of DetectCapabilities; render.backend can force either backend.
func NewGenerator(cfg *config.Config, caps Capabilities, logger hclog.Logger, opts ...Option) *Generator {
	logger = logger.Named("render")
	video := cfg.VideoSpec()

	slide := SlideOptions{
		Video:           video,
		HotLabel:        cfg.Render.HotLabel,
		PlaceholderText: cfg.Render.PlaceholderText,
		NameMaxChars:    cfg.Render.NameMaxChars,
	}
	if slide.PlaceholderText == "" {
		slide.PlaceholderText = "Product Image"
	}

	g := &Generator{
		video:    video,
		basename: cfg.Video.Basename,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.rich == nil {
		g.rich = NewRichRenderer(RichOptions{
			SlideOptions:   slide,
			FontRegular:    cfg.Render.FontRegular,
			FontBold:       cfg.Render.FontBold,
			Fetcher:        NewImageFetcher(cfg.ImageTimeout()),
			CoverageSample: VietnameseSample,
		}, logger)
	}
	if g.simple == nil {
		g.simple = NewSimpleRenderer(slide, RSVGRasterizer{Bin: cfg.Render.RasterizerBin}, logger)
	}

	g.staging = NewStaging(cfg.Paths.Output, logger, cfg.Render.MinFreeMB)
	g.seq = NewSequencer(g.staging, logger)
	g.encoder = NewEncoder(EncodeSettings{
		FFmpegBin:    cfg.Encode.FFmpegBin,
		FFprobeBin:   cfg.Encode.FFprobeBin,
		VideoCodec:   cfg.Encode.VideoCodec,
		Preset:       cfg.Encode.Preset,
		CRF:          cfg.Encode.CRF,
		AudioCodec:   cfg.Encode.AudioCodec,
		AudioBitrate: cfg.Encode.AudioBitrate,
		Timeout:      cfg.EncodeTimeout(),
	}, g.runner, logger)

	switch strings.ToLower(cfg.Render.Backend) {
	case string(BackendSimple):
		g.state = BackendSimple
		g.fallbackReason = "simple backend forced by config"
	case string(BackendRich):
		if caps.Rich {
			g.state = BackendRich
		} else {
			logger.Warn("rich backend requested but unavailable", "reason", caps.Reason)
			g.state = BackendSimple
			g.fallbackReason = caps.Reason
		}
	default:
		if caps.Rich {
			g.state = BackendRich
		} else {
			g.state = BackendSimple
			g.fallbackReason = caps.Reason
		}
	}

	logger.Info("render backend selected", "backend", g.state)
	return g
}

// Backend reports which backend currently serves thumbnails
func (g *Generator) Backend() Backend {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.state
}

// FallbackReason is why the simple backend is in use, empty while rich serves
func (g *Generator) FallbackReason() string {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()
	return g.fallbackReason
}

// OutputDir is where finished videos are written
func (g *Generator) OutputDir() string { return g.staging.OutputDir() }

func (g *Generator) switchToSimple(cause error) {
	g.stateMu.Lock()
	defer g.stateMu.Unlock()
	if g.state == BackendSimple {
		return
	}
	g.state = BackendSimple
	g.fallbackReason = cause.Error()
	g.logger.Warn("rich backend failed, switching to simple for the rest of the run", "error", cause)
}

// Init prepares the staging area and, the first time, the active backend. A
// rich backend that cannot initialize is replaced by the simple one; staging
// failures are returned. Init waits for a running GenerateVideo to finish.
func (g *Generator) Init(ctx context.Context) error {
	g.runMu.Lock()
	defer g.runMu.Unlock()
	return g.init(ctx)
}

// init requires runMu
func (g *Generator) init(ctx context.Context) error {
	if err := g.staging.Init(ctx); err != nil {
		return err
	}
	if g.backendReady {
		return nil
	}

	if g.Backend() == BackendRich {
		if err := g.rich.Init(); err != nil {
			g.switchToSimple(err)
		}
	}
	if g.Backend() == BackendSimple {
		if err := g.simple.Init(); err != nil {
			return RenderError("init_simple", err)
		}
	}
	g.backendReady = true
	return nil
}

// GenerateThumbnail renders one slide on the current backend, retrying on the
// simple backend when the rich one fails.
func (g *Generator) GenerateThumbnail(ctx context.Context, product types.Product, index int) (*Thumbnail, error) {
	if g.Backend() == BackendRich {
		thumb, err := g.rich.Thumbnail(ctx, product, index)
		if err == nil {
			return thumb, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.switchToSimple(err)
		if err := g.simple.Init(); err != nil {
			return nil, RenderError("init_simple", err)
		}
	}
	return g.simple.Thumbnail(ctx, product, index)
}

// GenerateVideo stages one frame run per product and encodes them, with the
// narration when audioPath resolves to a file and a silent track otherwise.
// Staging is left in place; callers run Cleanup when they are done.
func (g *Generator) GenerateVideo(ctx context.Context, products []types.Product, audioPath string) (string, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	if len(products) == 0 {
		return "", ValidationError("generate_video", ErrNoProducts)
	}
	if err := g.init(ctx); err != nil {
		return "", err
	}

	g.logger.Info("generating video", "products", len(products), "backend", g.Backend(),
		"width", g.video.Width, "height", g.video.Height, "fps", g.video.FPS, "duration", g.video.Duration)

	set, err := g.seq.Stage(ctx, products, g.video, g.GenerateThumbnail)
	if err != nil {
		return "", err
	}

	return g.encoder.Encode(ctx, EncodeJob{
		FramesPattern: filepath.Join(set.Dir, set.Pattern),
		FrameCount:    set.Count,
		FPS:           g.video.FPS,
		Width:         g.video.Width,
		Height:        g.video.Height,
		DurationCap:   g.video.Duration,
		AudioPath:     audioPath,
		OutputPath:    g.staging.OutputPath(g.basename, g.now()),
	})
}

// Cleanup removes the staged frames. It is safe to call more than once.
func (g *Generator) Cleanup() {
	g.staging.Cleanup()
}
