package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"shopee-shorts-pipeline/types"
)

type Config struct {
	Video     VideoConfig     `yaml:"video"`
	Render    RenderConfig    `yaml:"render"`
	Encode    EncodeConfig    `yaml:"encode"`
	Products  ProductsConfig  `yaml:"products"`
	Narration NarrationConfig `yaml:"narration"`
	Upload    UploadConfig    `yaml:"upload"`
	Notify    NotifyConfig    `yaml:"notify"`
	Paths     PathsConfig     `yaml:"paths"`
	Log       LogConfig       `yaml:"log"`
}

type VideoConfig struct {
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	FPS      int     `yaml:"fps"`
	Duration float64 `yaml:"duration"`
	Basename string  `yaml:"basename"`
}

type RenderConfig struct {
	// Backend is auto, rich or simple. auto checks the rich backend once at startup.
	Backend         string `yaml:"backend"`
	FontRegular     string `yaml:"font_regular"`
	FontBold        string `yaml:"font_bold"`
	ImageTimeoutSec int    `yaml:"image_timeout_sec"`
	HotLabel        string `yaml:"hot_label"`
	PlaceholderText string `yaml:"placeholder_text"`
	NameMaxChars    int    `yaml:"name_max_chars"`
	RasterizerBin   string `yaml:"rasterizer_bin"`
	MinFreeMB       uint64 `yaml:"min_free_mb"`
}

type EncodeConfig struct {
	FFmpegBin    string `yaml:"ffmpeg_bin"`
	FFprobeBin   string `yaml:"ffprobe_bin"`
	VideoCodec   string `yaml:"video_codec"`
	Preset       string `yaml:"preset"`
	CRF          int    `yaml:"crf"`
	AudioCodec   string `yaml:"audio_codec"`
	AudioBitrate string `yaml:"audio_bitrate"`
	TimeoutSec   int    `yaml:"timeout_sec"`
}

type ProductsConfig struct {
	// Source is shopee, file or mock. shopee falls back to mock on failure.
	Source     string `yaml:"source"`
	File       string `yaml:"file"`
	Limit      int    `yaml:"limit"`
	BaseURL    string `yaml:"base_url"`
	Keyword    string `yaml:"keyword"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type NarrationConfig struct {
	// Engine is google, command or none.
	Engine       string  `yaml:"engine"`
	Command      string  `yaml:"command"`
	LanguageCode string  `yaml:"language_code"`
	Voice        string  `yaml:"voice"`
	Gender       string  `yaml:"gender"`
	SpeakingRate float64 `yaml:"speaking_rate"`
	Pitch        float64 `yaml:"pitch"`
	Credentials  string  `yaml:"credentials"`
}

type UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Visibility      string `yaml:"visibility"`
	CategoryID      string `yaml:"category_id"`
	DefaultLanguage string `yaml:"default_language"`
	MadeForKids     bool   `yaml:"made_for_kids"`
	AffiliateTag    string `yaml:"affiliate_tag"`
	ClientID        string `yaml:"-"`
	ClientSecret    string `yaml:"-"`
	RefreshToken    string `yaml:"-"`
}

type NotifyConfig struct {
	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

type PathsConfig struct {
	Output  string `yaml:"output"`
	Logs    string `yaml:"logs"`
	StatsDB string `yaml:"stats_db"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Video: VideoConfig{
			Width:    1080,
			Height:   1920,
			FPS:      30,
			Duration: 30,
			Basename: "shopee_top5",
		},
		Render: RenderConfig{
			Backend:         "auto",
			ImageTimeoutSec: 10,
			HotLabel:        "🔥 HOT SHOPEE 🔥",
			PlaceholderText: "Product Image",
			NameMaxChars:    30,
			RasterizerBin:   "rsvg-convert",
			MinFreeMB:       256,
		},
		Encode: EncodeConfig{
			FFmpegBin:    "ffmpeg",
			FFprobeBin:   "ffprobe",
			VideoCodec:   "libx264",
			Preset:       "fast",
			CRF:          23,
			AudioCodec:   "aac",
			AudioBitrate: "192k",
			TimeoutSec:   300,
		},
		Products: ProductsConfig{
			Source:     "shopee",
			Limit:      5,
			BaseURL:    "https://shopee.vn",
			TimeoutSec: 15,
		},
		Narration: NarrationConfig{
			Engine:       "google",
			LanguageCode: "vi-VN",
			Voice:        "vi-VN-Standard-A",
			Gender:       "FEMALE",
			SpeakingRate: 1.0,
		},
		Upload: UploadConfig{
			Enabled:         true,
			Visibility:      "public",
			CategoryID:      "22",
			DefaultLanguage: "vi",
		},
		Paths: PathsConfig{
			Output:  "output",
			Logs:    "logs",
			StatsDB: "logs/stats.db",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads config.yaml on top of the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	ints := map[string]*int{
		"VIDEO_WIDTH":  &c.Video.Width,
		"VIDEO_HEIGHT": &c.Video.Height,
		"VIDEO_FPS":    &c.Video.FPS,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	if v := os.Getenv("VIDEO_DURATION"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("VIDEO_DURATION: %w", err)
		}
		c.Video.Duration = d
	}

	strs := map[string]*string{
		"OUTPUT_DIR":                     &c.Paths.Output,
		"FFMPEG_PATH":                    &c.Encode.FFmpegBin,
		"FFPROBE_PATH":                   &c.Encode.FFprobeBin,
		"RENDER_BACKEND":                 &c.Render.Backend,
		"TTS_COMMAND":                    &c.Narration.Command,
		"GOOGLE_APPLICATION_CREDENTIALS": &c.Narration.Credentials,
		"AFFILIATE_TAG":                  &c.Upload.AffiliateTag,
		"YOUTUBE_CLIENT_ID":              &c.Upload.ClientID,
		"YOUTUBE_CLIENT_SECRET":          &c.Upload.ClientSecret,
		"YOUTUBE_REFRESH_TOKEN":          &c.Upload.RefreshToken,
		"TELEGRAM_BOT_TOKEN":             &c.Notify.TelegramToken,
		"TELEGRAM_CHAT_ID":               &c.Notify.TelegramChatID,
		"SHOPEE_BASE_URL":                &c.Products.BaseURL,
		"LOG_LEVEL":                      &c.Log.Level,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	return nil
}

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error in field '" + e.Field + "': " + e.Message
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Video.Width <= 0 {
		return &ValidationError{Field: "video.width", Message: "must be positive"}
	}
	if c.Video.Height <= 0 {
		return &ValidationError{Field: "video.height", Message: "must be positive"}
	}
	if c.Video.FPS <= 0 {
		return &ValidationError{Field: "video.fps", Message: "must be positive"}
	}
	if c.Video.Duration <= 0 {
		return &ValidationError{Field: "video.duration", Message: "must be positive"}
	}
	if c.Video.Basename == "" {
		return &ValidationError{Field: "video.basename", Message: "must not be empty"}
	}

	switch strings.ToLower(c.Render.Backend) {
	case "auto", "rich", "simple":
	default:
		return &ValidationError{Field: "render.backend", Message: "must be auto, rich or simple"}
	}
	switch c.Products.Source {
	case "shopee", "file", "mock":
	default:
		return &ValidationError{Field: "products.source", Message: "must be shopee, file or mock"}
	}
	if c.Products.Source == "file" && c.Products.File == "" {
		return &ValidationError{Field: "products.file", Message: "required when source is file"}
	}
	if c.Products.Limit <= 0 {
		return &ValidationError{Field: "products.limit", Message: "must be positive"}
	}
	switch c.Narration.Engine {
	case "google", "command", "none":
	default:
		return &ValidationError{Field: "narration.engine", Message: "must be google, command or none"}
	}
	if c.Render.NameMaxChars < 4 {
		return &ValidationError{Field: "render.name_max_chars", Message: "must be at least 4"}
	}
	return nil
}

// VideoSpec returns the render geometry shared by all stages
func (c *Config) VideoSpec() types.VideoConfig {
	return types.VideoConfig{
		Width:    c.Video.Width,
		Height:   c.Video.Height,
		FPS:      c.Video.FPS,
		Duration: c.Video.Duration,
	}
}

func (c *Config) ImageTimeout() time.Duration {
	return time.Duration(c.Render.ImageTimeoutSec) * time.Second
}

func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Encode.TimeoutSec) * time.Second
}

func (c *Config) ProductsTimeout() time.Duration {
	return time.Duration(c.Products.TimeoutSec) * time.Second
}
