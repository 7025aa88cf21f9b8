package render

import (
	"context"

	"shopee-shorts-pipeline/types"
)

// Backend names a thumbnail rendering strategy
type Backend string

const (
	BackendRich   Backend = "rich"
	BackendSimple Backend = "simple"
)

// Thumbnail is one rendered slide, PNG encoded at the full frame size
type Thumbnail struct {
	PNG    []byte
	Rank   int
	Width  int
	Height int
}

// ThumbnailRenderer is implemented by both backends. Implementations are not
// safe for concurrent use.
type ThumbnailRenderer interface {
	Backend() Backend
	// Init acquires whatever the backend needs to draw. It is called once.
	Init() error
	Thumbnail(ctx context.Context, product types.Product, index int) (*Thumbnail, error)
}
