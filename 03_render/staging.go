package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/disk"
)

const (
	framesDirName = "frames"
	framePrefix   = "frame_"
	frameExt      = ".png"
)

var ErrInsufficientSpace = errors.New("not enough free disk space for frame staging")

// Staging owns the output directory and the frame scratch directory under it
// for the lifetime of one render.
type Staging struct {
	outputDir string
	framesDir string
	minFreeMB uint64
	logger    hclog.Logger
}

// NewStaging creates a new Staging rooted at outputDir. minFreeMB of 0 skips the disk check.
func NewStaging(outputDir string, logger hclog.Logger, minFreeMB uint64) *Staging {
	return &Staging{
		outputDir: outputDir,
		framesDir: filepath.Join(outputDir, framesDirName),
		minFreeMB: minFreeMB,
		logger:    logger.Named("staging"),
	}
}

func (s *Staging) OutputDir() string { return s.outputDir }
func (s *Staging) FramesDir() string { return s.framesDir }

// Init creates the output and frame directories. Existing directories are fine.
// Frames left behind by an interrupted run are removed so they cannot leak into
// the next encode.
func (s *Staging) Init(ctx context.Context) error {
	for _, dir := range []string{s.outputDir, s.framesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return StagingError("create_dir", err).WithDetail("dir", dir)
		}
	}

	if stale := s.removeFrames(); stale > 0 {
		s.logger.Warn("removed stale frames from previous run", "count", stale, "dir", s.framesDir)
	}

	if s.minFreeMB == 0 {
		return nil
	}
	usage, err := disk.UsageWithContext(ctx, s.framesDir)
	if err != nil {
		s.logger.Warn("could not read free disk space, continuing", "dir", s.framesDir, "error", err)
		return nil
	}
	freeMB := usage.Free / (1024 * 1024)
	if freeMB < s.minFreeMB {
		return StagingError("check_space", ErrInsufficientSpace).
			WithDetail("free_mb", freeMB).
			WithDetail("required_mb", s.minFreeMB)
	}
	s.logger.Debug("staging ready", "dir", s.framesDir, "free_mb", freeMB)
	return nil
}

// FramePattern is the printf-style file name the encoder reads frames with
func FramePattern(width int) string {
	return fmt.Sprintf("%s%%0%dd%s", framePrefix, width, frameExt)
}

// FramePath is the staged path of frame i, zero-padded to width digits
func (s *Staging) FramePath(i, width int) string {
	return filepath.Join(s.framesDir, fmt.Sprintf("%s%0*d%s", framePrefix, width, i, frameExt))
}

// OutputPath is <output>/<basename>_<epoch-ms>.mp4
func (s *Staging) OutputPath(basename string, t time.Time) string {
	return filepath.Join(s.outputDir, fmt.Sprintf("%s_%d.mp4", basename, t.UnixMilli()))
}

// Cleanup deletes every staged file and then the frame directory itself.
// It never fails: problems are logged and a missing directory is a no-op.
func (s *Staging) Cleanup() {
	entries, err := os.ReadDir(s.framesDir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to list staging dir", "dir", s.framesDir, "error", err)
		return
	}
	for _, e := range entries {
		p := filepath.Join(s.framesDir, e.Name())
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove staged file", "file", p, "error", err)
		}
	}
	if err := os.Remove(s.framesDir); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove staging dir", "dir", s.framesDir, "error", err)
		return
	}
	s.logger.Debug("staging cleaned", "dir", s.framesDir, "files", len(entries))
}

func (s *Staging) removeFrames() int {
	entries, err := os.ReadDir(s.framesDir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, framePrefix) || !strings.HasSuffix(name, frameExt) {
			continue
		}
		if os.Remove(filepath.Join(s.framesDir, name)) == nil {
			n++
		}
	}
	return n
}
