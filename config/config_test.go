package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1080, cfg.Video.Width)
	assert.Equal(t, 1920, cfg.Video.Height)
	assert.Equal(t, 30, cfg.Video.FPS)
	assert.Equal(t, 30.0, cfg.Video.Duration)
	assert.Equal(t, "output", cfg.Paths.Output)
	assert.Equal(t, "shopee_top5", cfg.Video.Basename)
	assert.Equal(t, 10*time.Second, cfg.ImageTimeout())
	assert.Equal(t, 5*time.Minute, cfg.EncodeTimeout())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
video:
  width: 720
  height: 1280
  fps: 24
render:
  backend: simple
products:
  source: mock
  limit: 3
`), 0644))

	t.Setenv("VIDEO_FPS", "25")
	t.Setenv("VIDEO_DURATION", "12.5")
	t.Setenv("OUTPUT_DIR", "/tmp/shorts")
	t.Setenv("YOUTUBE_REFRESH_TOKEN", "refresh")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 720, cfg.Video.Width)
	assert.Equal(t, 25, cfg.Video.FPS, "environment wins over the file")
	assert.Equal(t, 12.5, cfg.Video.Duration)
	assert.Equal(t, "simple", cfg.Render.Backend)
	assert.Equal(t, "/tmp/shorts", cfg.Paths.Output)
	assert.Equal(t, "refresh", cfg.Upload.RefreshToken)
	assert.Equal(t, 3, cfg.Products.Limit)
	assert.Equal(t, "ffmpeg", cfg.Encode.FFmpegBin, "unset keys keep defaults")

	spec := cfg.VideoSpec()
	assert.Equal(t, 720, spec.Width)
	assert.Equal(t, 25, spec.FPS)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("VIDEO_WIDTH", "wide")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIDEO_WIDTH")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero width", func(c *Config) { c.Video.Width = 0 }, "video.width"},
		{"negative height", func(c *Config) { c.Video.Height = -1 }, "video.height"},
		{"zero fps", func(c *Config) { c.Video.FPS = 0 }, "video.fps"},
		{"zero duration", func(c *Config) { c.Video.Duration = 0 }, "video.duration"},
		{"unknown backend", func(c *Config) { c.Render.Backend = "cairo" }, "render.backend"},
		{"unknown source", func(c *Config) { c.Products.Source = "lazada" }, "products.source"},
		{"file without path", func(c *Config) { c.Products.Source = "file" }, "products.file"},
		{"unknown engine", func(c *Config) { c.Narration.Engine = "espeak" }, "narration.engine"},
		{"tiny name cap", func(c *Config) { c.Render.NameMaxChars = 3 }, "render.name_max_chars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	cfg := Default()
	cfg.Render.Backend = "RICH"
	assert.NoError(t, cfg.Validate(), "backend names are case-insensitive")
}
