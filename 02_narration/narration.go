package narration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/api/option"

	"shopee-shorts-pipeline/config"
	"shopee-shorts-pipeline/types"
)

// Generator produces the narration track for a video
type Generator struct {
	synth  Synthesizer
	logger hclog.Logger
	now    func() time.Time
}

// New picks the engine from cfg. An engine that cannot be set up is logged
// and the generator runs text-only.
func New(ctx context.Context, cfg *config.Config, logger hclog.Logger) *Generator {
	logger = logger.Named("narration")
	g := &Generator{logger: logger, now: time.Now}

	switch cfg.Narration.Engine {
	case "google":
		var opts []option.ClientOption
		if cfg.Narration.Credentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Narration.Credentials))
		}
		tts, err := NewGoogleTTS(ctx, VoiceOptions{
			LanguageCode: cfg.Narration.LanguageCode,
			Voice:        cfg.Narration.Voice,
			Gender:       cfg.Narration.Gender,
			SpeakingRate: cfg.Narration.SpeakingRate,
			Pitch:        cfg.Narration.Pitch,
		}, opts...)
		if err != nil {
			logger.Warn("google TTS unavailable, narration will be text-only", "error", err)
			return g
		}
		g.synth = tts
	case "command":
		tts, err := NewCommandTTS(cfg.Narration.Command, "", logger)
		if err != nil {
			logger.Warn("command TTS unavailable, narration will be text-only", "error", err)
			return g
		}
		g.synth = tts
	}
	return g
}

// NewWithSynthesizer is used when the caller already has an engine. synth may be nil.
func NewWithSynthesizer(synth Synthesizer, logger hclog.Logger) *Generator {
	return &Generator{synth: synth, logger: logger.Named("narration"), now: time.Now}
}

// Result says what narration produced. AudioPath is empty when the video
// should be encoded with a silent track.
type Result struct {
	Script     string
	AudioPath  string
	ScriptPath string
}

// Run never fails the pipeline. Any TTS problem downgrades to a saved text script.
func (g *Generator) Run(ctx context.Context, products []types.Product, outDir string) Result {
	script := WriteScript(products)
	res := Result{Script: script}

	if g.synth != nil {
		audioPath, err := g.synthesize(ctx, script, outDir)
		if err == nil {
			g.logger.Info("narration audio ready", "engine", g.synth.Name(), "path", audioPath)
			res.AudioPath = audioPath
			return res
		}
		g.logger.Warn("TTS failed, continuing without audio", "engine", g.synth.Name(), "error", err)
	} else {
		g.logger.Info("no TTS engine configured, continuing without audio")
	}

	path, err := SaveTextScript(outDir, TextScript(products), g.now())
	if err != nil {
		g.logger.Warn("could not save text script", "error", err)
		return res
	}
	g.logger.Info("text script saved", "path", path)
	res.ScriptPath = path
	return res
}

func (g *Generator) synthesize(ctx context.Context, script, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}
	path := filepath.Join(outDir, fmt.Sprintf("tts_%d.mp3", g.now().UnixMilli()))
	if err := g.synth.Synthesize(ctx, script, path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
