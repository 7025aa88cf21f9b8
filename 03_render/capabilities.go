package render

import (
	"fmt"

	"github.com/fogleman/gg"
	"github.com/hashicorp/go-hclog"
)

// Capabilities is the result of checking the rich backend once at startup
type Capabilities struct {
	Rich   bool
	Reason string
}

// DetectCapabilities checks that the fonts parse, that they can draw Vietnamese
// text and that a canvas can be drawn on.
// The result is passed to NewGenerator; nothing is cached globally.
func DetectCapabilities(fontRegular, fontBold string, logger hclog.Logger) (caps Capabilities) {
	logger = logger.Named("capabilities")
	defer func() {
		if p := recover(); p != nil {
			caps = Capabilities{Rich: false, Reason: fmt.Sprintf("canvas check panicked: %v", p)}
		}
		if caps.Rich {
			logger.Info("rich rendering available")
		} else {
			logger.Warn("rich rendering unavailable, slides will use the simple backend", "reason", caps.Reason)
		}
	}()

	fonts, err := LoadFonts(fontRegular, fontBold)
	if err != nil {
		return Capabilities{Reason: err.Error()}
	}
	if err := fonts.CheckCoverage(VietnameseSample); err != nil {
		return Capabilities{Reason: err.Error()}
	}
	face, err := NewFace(fonts.Bold, 12)
	if err != nil {
		return Capabilities{Reason: fmt.Sprintf("font face: %v", err)}
	}

	dc := gg.NewContext(8, 8)
	dc.SetFontFace(face)
	dc.DrawStringAnchored("#1", 4, 4, 0.5, 0.5)
	if dc.Image() == nil {
		return Capabilities{Reason: "canvas produced no image"}
	}
	return Capabilities{Rich: true}
}
