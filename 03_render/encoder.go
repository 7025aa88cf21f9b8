package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	silentAudioSource = "anullsrc=channel_layout=stereo:sample_rate=48000"
	diagnosticLines   = 20
)

// EncodeSettings are the encoder binaries and codec knobs, fixed for a process
type EncodeSettings struct {
	FFmpegBin    string
	FFprobeBin   string
	VideoCodec   string
	Preset       string
	CRF          int
	AudioCodec   string
	AudioBitrate string
	Timeout      time.Duration
}

// DefaultEncodeSettings mirrors the defaults in config.yaml
func DefaultEncodeSettings() EncodeSettings {
	return EncodeSettings{
		FFmpegBin:    "ffmpeg",
		FFprobeBin:   "ffprobe",
		VideoCodec:   "libx264",
		Preset:       "fast",
		CRF:          23,
		AudioCodec:   "aac",
		AudioBitrate: "192k",
		Timeout:      5 * time.Minute,
	}
}

// EncodeJob is one encode of a staged frame sequence.
// FramesPattern is a full path with a printf frame index, e.g. output/frames/frame_%06d.png.
// An empty AudioPath selects the silent track.
type EncodeJob struct {
	FramesPattern string
	FrameCount    int
	FPS           int
	Width         int
	Height        int
	DurationCap   float64
	AudioPath     string
	OutputPath    string
}

// CommandRunner runs an external binary to completion
type CommandRunner interface {
	Run(ctx context.Context, bin string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

// ExecRunner runs commands with os/exec
func ExecRunner() CommandRunner { return execRunner{} }

func (execRunner) Run(ctx context.Context, bin string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// BuildArgs constructs the ffmpeg arguments for a job. Input 0 is the frame
// sequence, input 1 is the narration or a generated silent stereo track.
func BuildArgs(job EncodeJob, s EncodeSettings) []string {
	fps := strconv.Itoa(job.FPS)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-framerate", fps,
		"-start_number", "0",
		"-i", job.FramesPattern,
	}

	if job.AudioPath != "" {
		args = append(args, "-i", job.AudioPath)
	} else {
		args = append(args, "-f", "lavfi", "-i", silentAudioSource)
	}

	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
			job.Width, job.Height, job.Width, job.Height),
		"-c:v", s.VideoCodec,
		"-preset", s.Preset,
		"-crf", strconv.Itoa(s.CRF),
		"-pix_fmt", "yuv420p",
		"-r", fps,
		"-c:a", s.AudioCodec,
		"-b:a", s.AudioBitrate,
		"-t", strconv.FormatFloat(job.DurationCap, 'f', 3, 64),
		"-movflags", "+faststart",
		job.OutputPath,
	)
	return args
}

// Encoder drives ffmpeg over a staged frame sequence
type Encoder struct {
	settings EncodeSettings
	runner   CommandRunner
	logger   hclog.Logger
}

// NewEncoder creates a new Encoder. A nil runner executes real subprocesses.
func NewEncoder(settings EncodeSettings, runner CommandRunner, logger hclog.Logger) *Encoder {
	if runner == nil {
		runner = ExecRunner()
	}
	return &Encoder{settings: settings, runner: runner, logger: logger.Named("encoder")}
}

// Encode runs one encode and returns the output path. Any failure removes the
// partial output and comes back as an encode error carrying ffmpeg's stderr.
func (e *Encoder) Encode(ctx context.Context, job EncodeJob) (string, error) {
	if job.FrameCount <= 0 {
		return "", EncodeError("encode", ErrNoFrames).WithDetail("pattern", job.FramesPattern)
	}
	if job.Width <= 0 || job.Height <= 0 || job.FPS <= 0 || job.DurationCap <= 0 {
		return "", ValidationError("encode", fmt.Errorf("invalid geometry %dx%d@%d for %.3fs",
			job.Width, job.Height, job.FPS, job.DurationCap))
	}

	job.AudioPath = e.resolveAudio(job.AudioPath)

	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0755); err != nil {
		return "", StagingError("create_output_dir", err)
	}

	runCtx := ctx
	if e.settings.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.settings.Timeout)
		defer cancel()
	}

	args := BuildArgs(job, e.settings)
	e.logger.Info("encoding video",
		"frames", job.FrameCount,
		"fps", job.FPS,
		"size", fmt.Sprintf("%dx%d", job.Width, job.Height),
		"duration", job.DurationCap,
		"silent_audio", job.AudioPath == "",
		"output", job.OutputPath)
	e.logger.Debug("ffmpeg command", "bin", e.settings.FFmpegBin, "args", strings.Join(args, " "))

	start := time.Now()
	_, stderr, err := e.runner.Run(runCtx, e.settings.FFmpegBin, args...)
	if err != nil {
		e.removePartial(job.OutputPath)
		cause := fmt.Errorf("%w: %v", ErrEncodeFailed, err)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			cause = fmt.Errorf("%w: timed out after %s", ErrEncodeFailed, e.settings.Timeout)
		}
		encErr := EncodeError("run_ffmpeg", cause).WithDetail("diagnostic", stderrTail(stderr, diagnosticLines))
		e.logger.Error("ffmpeg failed", "error", err, "output", job.OutputPath)
		return "", encErr
	}

	if err := e.verify(ctx, job); err != nil {
		e.removePartial(job.OutputPath)
		return "", err
	}

	e.logger.Info("video encoded", "output", job.OutputPath, "elapsed", time.Since(start).Round(time.Millisecond))
	return job.OutputPath, nil
}

// resolveAudio returns path when it names a readable, non-empty file, else ""
func (e *Encoder) resolveAudio(path string) string {
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		e.logger.Warn("narration audio unusable, encoding silent track", "audio", path, "error", err)
		return ""
	}
	return path
}

func (e *Encoder) verify(ctx context.Context, job EncodeJob) error {
	info, err := os.Stat(job.OutputPath)
	if err != nil {
		return EncodeError("verify_output", fmt.Errorf("%w: %v", ErrOutputInvalid, err))
	}
	if info.Size() == 0 {
		return EncodeError("verify_output", fmt.Errorf("%w: empty file", ErrOutputInvalid))
	}

	if e.settings.FFprobeBin == "" {
		return nil
	}
	if e.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.Timeout)
		defer cancel()
	}
	measured, err := e.probeDuration(ctx, job.OutputPath)
	if err != nil {
		e.logger.Warn("could not measure output duration", "output", job.OutputPath, "error", err)
		return nil
	}
	limit := job.DurationCap + 1/float64(job.FPS)
	if measured > limit {
		return EncodeError("verify_output", fmt.Errorf("%w: duration %.3fs exceeds cap %.3fs", ErrOutputInvalid, measured, job.DurationCap)).
			WithDetail("measured_duration", measured)
	}
	e.logger.Debug("output duration verified", "measured", measured, "cap", job.DurationCap)
	return nil
}

func (e *Encoder) probeDuration(ctx context.Context, path string) (float64, error) {
	out, _, err := e.runner.Run(ctx, e.settings.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

func (e *Encoder) removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("failed to remove partial output", "output", path, "error", err)
	}
}

// stderrTail keeps the last n lines of ffmpeg's stderr
func stderrTail(stderr []byte, n int) string {
	lines := strings.Split(strings.TrimSpace(string(stderr)), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
