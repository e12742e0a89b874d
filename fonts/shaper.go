package fonts

import (
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// Glyph is one shaped glyph. Advances are in font units.
type Glyph struct {
	ID       int
	Cluster  int
	XAdvance float64
	YAdvance float64
}

// Shape runs full HarfBuzz shaping over text, kerning included.
func (f *Face) Shape(text string) []Glyph {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	script := detectScript(runes)
	// shaping at one point per font unit keeps advances in font units
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      f.face,
		Size:      fixed.I(int(f.upem)),
		Script:    script,
		Language:  language.DefaultLanguage(),
	}
	var shaper shaping.HarfbuzzShaper
	output := shaper.Shape(input)

	glyphs := make([]Glyph, 0, len(output.Glyphs))
	for _, g := range output.Glyphs {
		glyphs = append(glyphs, Glyph{
			ID:       int(g.GlyphID),
			Cluster:  g.ClusterIndex,
			XAdvance: float64(g.XAdvance) / 64,
			YAdvance: float64(g.YAdvance) / 64,
		})
	}
	return glyphs
}

// Advance is the shaped advance of a single rune in font units.
func (f *Face) Advance(r rune) float64 {
	total := 0.0
	for _, g := range f.Shape(string(r)) {
		total += g.XAdvance
	}
	return total
}

// Measure returns the width of text in points at the given size.
func Measure(face *Face, text string, size float64) float64 {
	if face == nil {
		return 0
	}
	total := 0.0
	for _, g := range face.Shape(text) {
		total += g.XAdvance
	}
	return total * size / face.upem
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	best := language.Latin
	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			best = script
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Han, r):
		return language.Han
	}
	return language.Unknown
}
