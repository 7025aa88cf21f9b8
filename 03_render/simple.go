package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"text/template"

	"github.com/hashicorp/go-hclog"

	"shopee-shorts-pipeline/types"
)

// Rasterizer turns an SVG document into a PNG of exactly width x height
type Rasterizer interface {
	Rasterize(ctx context.Context, svg []byte, width, height int) ([]byte, error)
}

// RSVGRasterizer pipes SVG through rsvg-convert.
// Requires librsvg: apt install librsvg2-bin (Linux), brew install librsvg (macOS).
type RSVGRasterizer struct {
	Bin string
}

func (r RSVGRasterizer) Rasterize(ctx context.Context, svg []byte, width, height int) ([]byte, error) {
	bin := r.Bin
	if bin == "" {
		bin = "rsvg-convert"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-w", strconv.Itoa(width),
		"-h", strconv.Itoa(height),
		"-f", "png",
	)
	cmd.Stdin = bytes.NewReader(svg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

var slideTemplate = template.Must(template.New("slide").Funcs(template.FuncMap{"x": xmlText}).Parse(
	`<svg width="{{.W}}" height="{{.H}}" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <linearGradient id="bg" x1="0%" y1="0%" x2="0%" y2="100%">
      <stop offset="0%" stop-color="{{.GradTop}}"/>
      <stop offset="100%" stop-color="{{.GradBot}}"/>
    </linearGradient>
  </defs>
  <rect width="100%" height="100%" fill="url(#bg)"/>
  <circle cx="{{.BadgeX}}" cy="{{.BadgeY}}" r="{{.BadgeR}}" fill="{{.BadgeFill}}"/>
  <text x="{{.BadgeX}}" y="{{.BadgeTextY}}" text-anchor="middle" font-family="Arial, sans-serif" font-size="36" font-weight="bold" fill="#000000">#{{.Rank}}</text>
  <rect x="{{.PX}}" y="{{.PY}}" width="{{.PW}}" height="{{.PH}}" rx="{{.PR}}" fill="#FFFFFF"/>
  <text x="{{.CX}}" y="{{.PCY}}" text-anchor="middle" dominant-baseline="middle" font-family="Arial, sans-serif" font-size="32" fill="{{.PlaceholderFg}}">{{x .Placeholder}}</text>
  <text x="{{.CX}}" y="{{.NameY}}" text-anchor="middle" font-family="Arial, sans-serif" font-size="{{.NameSize}}" font-weight="bold" fill="#FFFFFF">{{x .Name}}</text>
  <text x="{{.CX}}" y="{{.PriceY}}" text-anchor="middle" font-family="Arial, sans-serif" font-size="48" font-weight="bold" fill="{{.PriceFill}}">{{x .Price}}</text>
  <text x="{{.CX}}" y="{{.LabelY}}" text-anchor="middle" font-family="Arial, sans-serif" font-size="32" font-weight="bold" fill="{{.LabelFill}}">{{x .Label}}</text>
  <text x="{{.CX}}" y="{{.SoldY}}" text-anchor="middle" font-family="Arial, sans-serif" font-size="28" fill="#FFFFFF">{{x .Sold}}</text>
</svg>
`))

type slideDoc struct {
	W             int
	H             int
	GradTop       string
	GradBot       string
	BadgeX        float64
	BadgeY        float64
	BadgeR        float64
	BadgeTextY    float64
	BadgeFill     string
	Rank          int
	PX            int
	PY            int
	PW            int
	PH            int
	PR            float64
	CX            float64
	PCY           float64
	Placeholder   string
	PlaceholderFg string
	Name          string
	NameSize      int
	Price         string
	Label         string
	Sold          string
	NameY         float64
	PriceY        float64
	LabelY        float64
	SoldY         float64
	PriceFill     string
	LabelFill     string
}

func xmlText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// SimpleRenderer composes each slide as an SVG document and rasterizes it in
// one pass. It never touches the network; the photo area is always a placeholder.
type SimpleRenderer struct {
	opts       SlideOptions
	rasterizer Rasterizer
	logger     hclog.Logger
}

func NewSimpleRenderer(opts SlideOptions, rasterizer Rasterizer, logger hclog.Logger) *SimpleRenderer {
	if rasterizer == nil {
		rasterizer = RSVGRasterizer{}
	}
	return &SimpleRenderer{opts: opts, rasterizer: rasterizer, logger: logger.Named("simple")}
}

func (s *SimpleRenderer) Backend() Backend { return BackendSimple }

func (s *SimpleRenderer) Init() error { return nil }

// Document builds the SVG for one slide
func (s *SimpleRenderer) Document(product types.Product, index int) ([]byte, error) {
	v := s.opts.Video
	w, h := float64(v.Width), float64(v.Height)
	region := PhotoRegion(v)

	sold := product.Sold
	if sold == "" {
		sold = defaultSold
	}
	name := TruncateText(product.Name, s.opts.NameMaxChars)

	doc := slideDoc{
		W:             v.Width,
		H:             v.Height,
		GradTop:       gradientTop,
		GradBot:       gradientBot,
		BadgeX:        badgeX,
		BadgeY:        badgeY,
		BadgeR:        badgeRadius,
		BadgeTextY:    badgeTextY,
		BadgeFill:     badgeFill,
		Rank:          index + 1,
		PX:            region.Min.X,
		PY:            region.Min.Y,
		PW:            region.Dx(),
		PH:            region.Dy(),
		PR:            panelRadius,
		CX:            w / 2,
		PCY:           float64(region.Min.Y+region.Max.Y) / 2,
		Placeholder:   s.opts.PlaceholderText,
		PlaceholderFg: placeholderFg,
		Name:          name,
		NameSize:      nameFontSize(name, w*nameMaxWidth),
		Price:         product.Price,
		Label:         s.opts.HotLabel,
		Sold:          sold,
		NameY:         h * nameTop,
		PriceY:        h * simplePriceY,
		LabelY:        h * simpleLabelY,
		SoldY:         h * simpleSoldY,
		PriceFill:     priceFill,
		LabelFill:     labelFill,
	}

	var buf bytes.Buffer
	if err := slideTemplate.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nameFontSize shrinks the single-line name until its estimated width fits.
// The rasterizer picks the font, so glyph advances are not known here.
func nameFontSize(name string, maxWidth float64) int {
	size := simpleNamePx
	for size > simpleNameMin && EstimatedMeasurer(float64(size))(name) > maxWidth {
		size -= 2
	}
	return size
}

// Thumbnail rasterizes the slide. A rasterizer failure is fatal for the slide.
func (s *SimpleRenderer) Thumbnail(ctx context.Context, product types.Product, index int) (*Thumbnail, error) {
	v := s.opts.Video
	svg, err := s.Document(product, index)
	if err != nil {
		return nil, RenderError("simple_document", err)
	}

	data, err := s.rasterizer.Rasterize(ctx, svg, v.Width, v.Height)
	if err != nil {
		return nil, RenderError("rasterize", err).WithDetail("rank", index+1)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, RenderError("rasterize", fmt.Errorf("rasterizer output is not a PNG: %w", err))
	}
	if cfg.Width != v.Width || cfg.Height != v.Height {
		return nil, RenderError("rasterize", fmt.Errorf("rasterized %dx%d, want %dx%d",
			cfg.Width, cfg.Height, v.Width, v.Height))
	}

	s.logger.Debug("slide rasterized", "rank", index+1, "bytes", len(data))
	return &Thumbnail{PNG: data, Rank: index + 1, Width: v.Width, Height: v.Height}, nil
}
