package render

import (
	"context"
	"math"
	"os"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"shopee-shorts-pipeline/types"
)

const minIndexWidth = 6

// FrameSet describes what the sequencer staged for the encoder
type FrameSet struct {
	Dir        string
	Pattern    string
	Count      int
	PerProduct int
	IndexWidth int
}

// ThumbnailFunc renders one product; index is the 0-based position in the list
type ThumbnailFunc func(ctx context.Context, product types.Product, index int) (*Thumbnail, error)

// FramesPerProduct is floor(duration / n * fps). It is 0 when the slot is
// shorter than one frame; callers treat that as a configuration problem.
func FramesPerProduct(video types.VideoConfig, n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(video.Duration / float64(n) * float64(video.FPS)))
}

// FrameIndexWidth is the zero-pad width for frame numbers: at least 6 digits,
// more when the configured duration needs it.
func FrameIndexWidth(video types.VideoConfig) int {
	maxIndex := int(math.Ceil(video.Duration*float64(video.FPS))) - 1
	if w := len(strconv.Itoa(maxIndex)); w > minIndexWidth {
		return w
	}
	return minIndexWidth
}

// Sequencer renders each product once and stages its frame run in order
type Sequencer struct {
	staging *Staging
	logger  hclog.Logger
}

// NewSequencer creates a new Sequencer writing into staging
func NewSequencer(staging *Staging, logger hclog.Logger) *Sequencer {
	return &Sequencer{staging: staging, logger: logger.Named("sequencer")}
}

// Stage renders each product once, in order, and writes the buffer to
// FramesPerProduct consecutive frame files. Frame numbers run globally across
// products so lexical order is playback order.
func (s *Sequencer) Stage(ctx context.Context, products []types.Product, video types.VideoConfig, render ThumbnailFunc) (FrameSet, error) {
	width := FrameIndexWidth(video)
	perProduct := FramesPerProduct(video, len(products))
	set := FrameSet{
		Dir:        s.staging.FramesDir(),
		Pattern:    FramePattern(width),
		PerProduct: perProduct,
		IndexWidth: width,
	}

	if perProduct == 0 {
		s.logger.Warn("slot shorter than one frame, products will not be visible",
			"products", len(products), "duration", video.Duration, "fps", video.FPS)
	}

	for i, p := range products {
		if err := ctx.Err(); err != nil {
			return set, err
		}

		thumb, err := render(ctx, p, i)
		if err != nil {
			return set, err
		}

		for f := 0; f < perProduct; f++ {
			path := s.staging.FramePath(set.Count, width)
			if err := os.WriteFile(path, thumb.PNG, 0644); err != nil {
				return set, StagingError("write_frame", err).WithDetail("frame", path)
			}
			set.Count++
		}
		s.logger.Debug("staged product", "rank", i+1, "frames", perProduct, "total", set.Count)
	}

	s.logger.Info("frames staged", "count", set.Count, "per_product", perProduct, "dir", set.Dir)
	return set, nil
}
