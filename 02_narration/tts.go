package narration

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"google.golang.org/api/option"
	"google.golang.org/api/texttospeech/v1"
)

// Synthesizer turns narration text into an audio file at outPath
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text, outPath string) error
}

// VoiceOptions selects the Cloud TTS voice
type VoiceOptions struct {
	LanguageCode string
	Voice        string
	Gender       string
	SpeakingRate float64
	Pitch        float64
}

// GoogleTTS calls the Cloud Text-to-Speech REST API and writes MP3
type GoogleTTS struct {
	svc   *texttospeech.Service
	voice VoiceOptions
}

// NewGoogleTTS uses application default credentials unless opts say otherwise
func NewGoogleTTS(ctx context.Context, voice VoiceOptions, opts ...option.ClientOption) (*GoogleTTS, error) {
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create texttospeech client: %w", err)
	}
	return &GoogleTTS{svc: svc, voice: voice}, nil
}

func (g *GoogleTTS) Name() string { return "google" }

func (g *GoogleTTS) Synthesize(ctx context.Context, text, outPath string) error {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.voice.LanguageCode,
			Name:         g.voice.Voice,
			SsmlGender:   strings.ToUpper(g.voice.Gender),
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
			SpeakingRate:  g.voice.SpeakingRate,
			Pitch:         g.voice.Pitch,
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return fmt.Errorf("decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return errors.New("synthesize returned no audio")
	}
	return os.WriteFile(outPath, audio, 0644)
}

// CommandTTS shells out to an external TTS program.
// edge-tts is called with its own flags, *.py scripts go through python3, and
// anything else is invoked as `<cmd> --text ... --output ...`.
type CommandTTS struct {
	command  string
	voice    string
	attempts int
	backoff  time.Duration
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
	logger   hclog.Logger
}

// NewCommandTTS resolves command, falling back to edge-tts on PATH
func NewCommandTTS(command, voice string, logger hclog.Logger) (*CommandTTS, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return nil, errors.New("no TTS engine found: set TTS_COMMAND or install edge-tts (pip install edge-tts)")
		}
		command = "edge-tts"
	}
	if voice == "" {
		voice = "vi-VN-HoaiMyNeural"
	}
	return &CommandTTS{
		command:  command,
		voice:    voice,
		attempts: 3,
		backoff:  2 * time.Second,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		logger: logger.Named("tts"),
	}, nil
}

func (c *CommandTTS) Name() string { return c.command }

func (c *CommandTTS) args(text, outPath string) (string, []string) {
	switch {
	case c.command == "edge-tts":
		return "edge-tts", []string{"--voice", c.voice, "--text", text, "--write-media", outPath}
	case strings.HasSuffix(c.command, ".py"):
		return "python3", []string{c.command, "--text", text, "--output", outPath}
	default:
		return c.command, []string{"--text", text, "--output", outPath}
	}
}

// Synthesize retries with a linearly growing pause between attempts
func (c *CommandTTS) Synthesize(ctx context.Context, text, outPath string) error {
	name, args := c.args(text, outPath)

	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		var out []byte
		out, err = c.run(ctx, name, args...)
		if err == nil {
			if info, statErr := os.Stat(outPath); statErr != nil || info.Size() == 0 {
				err = fmt.Errorf("%s produced no audio at %s", name, outPath)
			} else {
				return nil
			}
		}
		if len(out) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
		}
		if attempt == c.attempts {
			break
		}
		c.logger.Warn("TTS attempt failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, c.attempts, err)
}
