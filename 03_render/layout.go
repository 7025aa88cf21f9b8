package render

import (
	"image"
	"image/color"
	"math"

	"shopee-shorts-pipeline/types"
)

// Slide geometry shared by both backends. Vertical positions are fractions of the frame height.
const (
	photoTop      = 0.15
	nameTop       = 0.65
	nameLineStep  = 60.0
	nameMaxWidth  = 0.9
	richPriceY    = 0.85
	richLabelY    = 0.92
	simplePriceY  = 0.75
	simpleLabelY  = 0.85
	simpleSoldY   = 0.92
	simpleNamePx  = 36
	simpleNameMin = 20
	badgeX        = 100.0
	badgeY        = 100.0
	badgeRadius   = 50.0
	badgeTextY    = 110.0
	panelRadius   = 20.0
	defaultSold   = "0 đã bán"
	gradientTop   = "#FF6B6B"
	gradientBot   = "#FF8E53"
	badgeFill     = "#FFD700"
	priceFill     = "#FFD700"
	labelFill     = "#FF0000"
	placeholderFg = "#666666"
)

var (
	colorGradientTop = color.RGBA{0xFF, 0x6B, 0x6B, 0xFF}
	colorGradientBot = color.RGBA{0xFF, 0x8E, 0x53, 0xFF}
	colorGold        = color.RGBA{0xFF, 0xD7, 0x00, 0xFF}
	colorHot         = color.RGBA{0xFF, 0x00, 0x00, 0xFF}
	colorPlaceholder = color.RGBA{0x66, 0x66, 0x66, 0xFF}
)

// PhotoRegion is the square the product photo occupies: 60% of the width or
// 40% of the height, whichever is smaller, centered and anchored at 15% height.
// The placeholder panel uses exactly the same bounds.
func PhotoRegion(video types.VideoConfig) image.Rectangle {
	w := float64(video.Width)
	h := float64(video.Height)
	side := math.Min(w*0.6, h*0.4)
	x := (w - side) / 2
	y := h * photoTop
	return image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+side)), int(math.Round(y+side)),
	)
}
