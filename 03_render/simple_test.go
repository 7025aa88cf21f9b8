package render

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopee-shorts-pipeline/types"
)

// fakeRasterizer records the documents it is given and returns a blank PNG
type fakeRasterizer struct {
	docs     [][]byte
	err      error
	wrongDim bool
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, svg []byte, width, height int) ([]byte, error) {
	f.docs = append(f.docs, svg)
	if f.err != nil {
		return nil, f.err
	}
	if f.wrongDim {
		width /= 2
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(width, height, color.White)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
}

func simpleOpts() SlideOptions {
	return SlideOptions{
		Video:           types.VideoConfig{Width: 1080, Height: 1920, FPS: 30, Duration: 30},
		HotLabel:        "🔥 HOT SHOPEE 🔥",
		PlaceholderText: "Product Image",
		NameMaxChars:    30,
	}
}

func TestSimpleDocument(t *testing.T) {
	s := NewSimpleRenderer(simpleOpts(), &fakeRasterizer{}, hclog.NewNullLogger())
	doc, err := s.Document(types.Product{
		Name:  "Áo thun nam nữ form rộng phong cách Hàn Quốc",
		Price: "₫89.000",
		Image: "https://cf.shopee.vn/file/abc",
	}, 0)
	require.NoError(t, err)
	svg := string(doc)

	// well-formed XML
	require.NoError(t, xml.Unmarshal(doc, &svgRoot{}))

	assert.Contains(t, svg, `width="1080" height="1920"`)
	assert.Contains(t, svg, ">#1</text>")
	assert.Contains(t, svg, `font-size="36" font-weight="bold" fill="#FFFFFF">Áo thun nam nữ form rộng ph...`)
	assert.Contains(t, svg, ">₫89.000</text>")
	assert.Contains(t, svg, ">0 đã bán</text>", "missing sold count gets a default")
	assert.Contains(t, svg, `x="216" y="288" width="648" height="648" rx="20"`, "placeholder uses the photo region")
	assert.Contains(t, svg, `y="1248`)
	assert.Contains(t, svg, `y="1440`)
	assert.Contains(t, svg, `y="1632`)
	assert.Contains(t, svg, `y="1766.4`)
	assert.NotContains(t, svg, "<image", "the simple backend never embeds photos")
	assert.NotContains(t, svg, "cf.shopee.vn")
}

func TestSimpleDocumentShrinksLongNames(t *testing.T) {
	opts := simpleOpts()
	opts.Video = types.VideoConfig{Width: 540, Height: 960, FPS: 30, Duration: 30}
	s := NewSimpleRenderer(opts, &fakeRasterizer{}, hclog.NewNullLogger())

	// 30 runes at 36px estimate 594px against a 486px budget
	doc, err := s.Document(types.Product{Name: "Áo thun nam nữ form rộng phong cách Hàn Quốc"}, 0)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `font-size="28" font-weight="bold" fill="#FFFFFF">Áo thun`)

	doc, err = s.Document(types.Product{Name: "Giày"}, 0)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `font-size="36" font-weight="bold" fill="#FFFFFF">Giày`)

	assert.Equal(t, simpleNameMin, nameFontSize(strings.Repeat("x", 200), 100), "never below the floor")
}

func TestSimpleDocumentEscapesText(t *testing.T) {
	s := NewSimpleRenderer(simpleOpts(), &fakeRasterizer{}, hclog.NewNullLogger())
	doc, err := s.Document(types.Product{Name: `Kem <chống> nắng & "SPF50"`, Price: "₫1", Sold: "5 đã bán"}, 4)
	require.NoError(t, err)

	require.NoError(t, xml.Unmarshal(doc, &svgRoot{}))
	assert.Contains(t, string(doc), "Kem &lt;chống&gt; nắng &amp;")
	assert.Contains(t, string(doc), ">#5</text>")
	assert.Contains(t, string(doc), ">5 đã bán</text>")
}

func TestSimpleThumbnail(t *testing.T) {
	raster := &fakeRasterizer{}
	s := NewSimpleRenderer(simpleOpts(), raster, hclog.NewNullLogger())

	th, err := s.Thumbnail(context.Background(), types.Product{Name: "Giày sneaker", Price: "₫299.000"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, th.Rank)
	assert.Equal(t, 1080, th.Width)
	require.Len(t, raster.docs, 1)
	assert.True(t, strings.HasPrefix(string(raster.docs[0]), "<svg"))
}

func TestSimpleThumbnailFailures(t *testing.T) {
	tests := []struct {
		name   string
		raster *fakeRasterizer
	}{
		{"rasterizer error", &fakeRasterizer{err: errors.New("rsvg-convert: not found")}},
		{"wrong dimensions", &fakeRasterizer{wrongDim: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSimpleRenderer(simpleOpts(), tt.raster, hclog.NewNullLogger())
			_, err := s.Thumbnail(context.Background(), types.Product{Name: "x"}, 0)
			require.Error(t, err)
			assert.Equal(t, KindRender, KindOf(err))
		})
	}
}
