package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/image/font"

	"shopee-shorts-pipeline/types"
)

// SlideOptions is the slide content shared by both backends
type SlideOptions struct {
	Video           types.VideoConfig
	HotLabel        string
	PlaceholderText string
	NameMaxChars    int
}

// RichOptions configures the canvas backend. Empty font paths fall back to
// the system candidates, then the bundled Go fonts.
type RichOptions struct {
	SlideOptions
	FontRegular    string
	FontBold       string
	Fetcher        *ImageFetcher
	// CoverageSample is text both fonts must draw for Init to succeed; empty skips the check
	CoverageSample string
}

type richFaces struct {
	placeholder font.Face
	badge       font.Face
	name        font.Face
	price       font.Face
	label       font.Face
}

// RichRenderer draws slides on a canvas with the real product photo
type RichRenderer struct {
	opts   RichOptions
	logger hclog.Logger
	fonts  *FontSet
	faces  richFaces
	dc     *gg.Context
}

// NewRichRenderer creates a new RichRenderer. Nothing is loaded until Init.
func NewRichRenderer(opts RichOptions, logger hclog.Logger) *RichRenderer {
	if opts.Fetcher == nil {
		opts.Fetcher = NewImageFetcher(0)
	}
	return &RichRenderer{opts: opts, logger: logger.Named("rich")}
}

func (r *RichRenderer) Backend() Backend { return BackendRich }

// Init parses fonts, builds every face used on a slide and allocates the canvas
func (r *RichRenderer) Init() (err error) {
	defer func() {
		// gg panics on surfaces it cannot allocate
		if p := recover(); p != nil {
			err = CapabilityError("init_rich", fmt.Errorf("allocate canvas: %v", p))
		}
	}()

	fonts, err := LoadFonts(r.opts.FontRegular, r.opts.FontBold)
	if err != nil {
		return CapabilityError("init_rich", err)
	}
	if r.opts.CoverageSample != "" {
		if err := fonts.CheckCoverage(r.opts.CoverageSample); err != nil {
			return CapabilityError("init_rich", err)
		}
	}

	sizes := []struct {
		dst  *font.Face
		bold bool
		px   float64
	}{
		{&r.faces.placeholder, false, 32},
		{&r.faces.badge, true, 36},
		{&r.faces.name, true, 48},
		{&r.faces.price, true, 54},
		{&r.faces.label, true, 32},
	}
	for _, s := range sizes {
		f := fonts.Regular
		if s.bold {
			f = fonts.Bold
		}
		face, err := NewFace(f, s.px)
		if err != nil {
			return CapabilityError("init_rich", fmt.Errorf("font face %.0fpx: %w", s.px, err))
		}
		*s.dst = face
	}

	v := r.opts.Video
	if v.Width <= 0 || v.Height <= 0 {
		return CapabilityError("init_rich", fmt.Errorf("invalid canvas size %dx%d", v.Width, v.Height))
	}
	r.fonts = fonts
	r.dc = gg.NewContext(v.Width, v.Height)
	r.logger.Debug("rich renderer ready", "width", v.Width, "height", v.Height)
	return nil
}

// Thumbnail draws one slide. A photo that cannot be fetched is replaced by a
// placeholder panel with the same bounds; that is logged, never returned.
func (r *RichRenderer) Thumbnail(ctx context.Context, product types.Product, index int) (*Thumbnail, error) {
	if r.dc == nil {
		return nil, RenderError("rich_thumbnail", fmt.Errorf("renderer not initialized"))
	}
	v := r.opts.Video
	w, h := float64(v.Width), float64(v.Height)
	dc := r.dc

	grad := gg.NewLinearGradient(0, 0, 0, h)
	grad.AddColorStop(0, colorGradientTop)
	grad.AddColorStop(1, colorGradientBot)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	region := PhotoRegion(v)
	photo, err := r.opts.Fetcher.Fetch(ctx, product.Image)
	if err != nil {
		r.logger.Warn("product image unavailable, drawing placeholder", "rank", index+1, "error", err)
		r.drawPlaceholder(region)
	} else {
		fitted := imaging.Fill(photo, region.Dx(), region.Dy(), imaging.Center, imaging.Lanczos)
		dc.DrawImage(fitted, region.Min.X, region.Min.Y)
	}

	dc.SetColor(colorGold)
	dc.DrawCircle(badgeX, badgeY, badgeRadius)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetFontFace(r.faces.badge)
	dc.DrawStringAnchored("#"+strconv.Itoa(index+1), badgeX, badgeTextY, 0.5, 0)

	dc.SetColor(color.White)
	dc.SetFontFace(r.faces.name)
	name := r.text(product.Name)
	for i, line := range WrapText(name, w*nameMaxWidth, FaceMeasurer(r.faces.name)) {
		dc.DrawStringAnchored(line, w/2, h*nameTop+float64(i)*nameLineStep, 0.5, 0)
	}

	dc.SetColor(colorGold)
	dc.SetFontFace(r.faces.price)
	dc.DrawStringAnchored(r.text(product.Price), w/2, h*richPriceY, 0.5, 0)

	dc.SetColor(colorHot)
	dc.SetFontFace(r.faces.label)
	dc.DrawStringAnchored(r.text(r.opts.HotLabel), w/2, h*richLabelY, 0.5, 0)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, RenderError("rich_encode_png", err)
	}
	return &Thumbnail{PNG: buf.Bytes(), Rank: index + 1, Width: v.Width, Height: v.Height}, nil
}

func (r *RichRenderer) drawPlaceholder(region image.Rectangle) {
	dc := r.dc
	dc.SetColor(color.White)
	dc.DrawRoundedRectangle(float64(region.Min.X), float64(region.Min.Y),
		float64(region.Dx()), float64(region.Dy()), panelRadius)
	dc.Fill()

	cx := float64(region.Min.X+region.Max.X) / 2
	cy := float64(region.Min.Y+region.Max.Y) / 2
	dc.SetColor(colorPlaceholder)
	dc.SetFontFace(r.faces.placeholder)
	dc.DrawStringAnchored(r.opts.PlaceholderText, cx, cy, 0.5, 0.5)
}

// text prepares s for the bold face. Emoji are dropped quietly; losing any
// other rune means the font is wrong for the content and is logged.
func (r *RichRenderer) text(s string) string {
	kept, dropped := drawable(r.fonts.Bold, s)
	var lost []rune
	for _, c := range dropped {
		if !decorative(c) {
			lost = append(lost, c)
		}
	}
	if len(lost) > 0 {
		r.logger.Warn("font has no glyph for some characters, they were dropped", "text", s, "dropped", string(lost))
	}
	return kept
}
