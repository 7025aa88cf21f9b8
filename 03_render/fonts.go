package render

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// System fonts with Vietnamese coverage, tried before the bundled Go fonts
var (
	regularCandidates = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
		"/usr/share/fonts/noto/NotoSans-Regular.ttf",
		"/Library/Fonts/Arial Unicode.ttf",
	}
	boldCandidates = []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
		"/usr/share/fonts/truetype/noto/NotoSans-Bold.ttf",
		"/usr/share/fonts/noto/NotoSans-Bold.ttf",
		"/Library/Fonts/Arial Bold.ttf",
	}
)

// VietnameseSample holds runes a slide font must draw: stacked diacritics,
// the barred d and the dong sign.
const VietnameseSample = "ữộố₫đ"

// FontSet holds the two parsed families used on a slide
type FontSet struct {
	Regular *opentype.Font
	Bold    *opentype.Font
}

// LoadFonts parses the configured font files. An empty path means the first
// installed system candidate, then the bundled Go font. A configured path that
// cannot be parsed is an error.
func LoadFonts(regularPath, boldPath string) (*FontSet, error) {
	regular, err := loadFont(regularPath, regularCandidates, goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("regular font: %w", err)
	}
	bold, err := loadFont(boldPath, boldCandidates, gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("bold font: %w", err)
	}
	return &FontSet{Regular: regular, Bold: bold}, nil
}

// CheckCoverage fails with ErrFontCoverage when either family has no glyph
// for a rune of sample.
func (fs *FontSet) CheckCoverage(sample string) error {
	families := []struct {
		name string
		font *opentype.Font
	}{
		{"regular", fs.Regular},
		{"bold", fs.Bold},
	}
	for _, fam := range families {
		if missing := MissingGlyphs(fam.font, sample); len(missing) > 0 {
			return fmt.Errorf("%w: %s font has no glyph for %q", ErrFontCoverage, fam.name, string(missing))
		}
	}
	return nil
}

// MissingGlyphs lists the runes of s that f cannot draw, whitespace excepted
func MissingGlyphs(f *opentype.Font, s string) []rune {
	var buf sfnt.Buffer
	var missing []rune
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		if idx, err := f.GlyphIndex(&buf, r); err != nil || idx == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

func loadFont(path string, candidates []string, bundled []byte) (*opentype.Font, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFontMissing, err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrFontMissing, path, err)
		}
		return f, nil
	}

	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err != nil {
			continue
		}
		if f, err := opentype.Parse(data); err == nil {
			return f, nil
		}
	}
	return opentype.Parse(bundled)
}

// NewFace builds a face where one point is one pixel
func NewFace(f *opentype.Font, sizePx float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// drawable drops runes the font has no glyph for and tidies the spacing they
// leave behind. The dropped runes are returned so callers can report them.
func drawable(f *opentype.Font, s string) (string, []rune) {
	var buf sfnt.Buffer
	var dropped []rune
	kept := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if idx, err := f.GlyphIndex(&buf, r); err != nil || idx == 0 {
			dropped = append(dropped, r)
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(kept), " "), dropped
}

// decorative reports runes that are expected to be missing from text fonts:
// emoji and other pictographs, plus the selectors and joiners that build them.
func decorative(r rune) bool {
	return unicode.Is(unicode.So, r) ||
		unicode.Is(unicode.Variation_Selector, r) ||
		unicode.Is(unicode.Join_Control, r)
}
