package overlay

import (
	"fmt"
	"math"
	"strings"

	"github.com/wudi/pdfsnap/contentstream"
	"github.com/wudi/pdfsnap/document"
	"github.com/wudi/pdfsnap/fonts"
	"github.com/wudi/pdfsnap/ir/raw"
)

// textStyle is everything a text generator needs besides the geometry.
type textStyle struct {
	face   *fonts.Face
	tag    string
	size   float64
	alignH HAlign
	alignV VAlign
	color  Color
	// cursive draws glyph by glyph with shaped advances.
	cursive bool
}

// fitPolicy chooses between wrapping at a fixed size and fitting the size
// to the box.
type fitPolicy int

const (
	policyWrap fitPolicy = iota
	policyFit
	// policyLine draws the value as a single line at the style's size.
	policyLine
)

// fitChars is the hard-wrap width used before size fitting.
const fitChars = 25

// drawText lays out value in box and appends one content stream with a
// text object per line.
func drawText(doc *document.Document, frame pageFrame, box Box, style textStyle, policy fitPolicy) error {
	var lines []string
	var offsetY float64
	size := style.size

	switch policy {
	case policyLine:
		lines = []string{box.Value}
	case policyWrap:
		chars := int(clamp(box.W/math.Max(size, 1)*fonts.LineHeight, 5, 120))
		wrapped, count, _ := fonts.Wrap(style.face, fonts.HardWrap(box.Value, chars), size, box.W)
		if count > 0 {
			lines = strings.Split(wrapped, "\n")
		}
		textH := float64(count) * size * fonts.LineHeight
		switch style.alignV {
		case AlignMiddle:
			offsetY = (box.H - textH) / 2
		case AlignBottom:
			offsetY = box.H - textH
		}
	case policyFit:
		layout, ok := fonts.FitFontSize(style.face, fonts.HardWrap(box.Value, fitChars), box.W, box.H)
		if !ok {
			return fmt.Errorf("%w: field %q in %gx%g", ErrFontFit, box.Field, box.W, box.H)
		}
		size = layout.FontSize
		if layout.Lines > 0 {
			lines = strings.Split(layout.Text, "\n")
		}
		textH := float64(layout.Lines) * size * fonts.LineHeight
		switch style.alignV {
		case AlignMiddle:
			offsetY = (box.H-textH)/2 + 0.6*size
		case AlignBottom:
			offsetY = box.H - textH + 1.0*size
		default:
			offsetY = 0.25 * size
		}
	}
	if len(lines) == 0 {
		return nil
	}

	var b contentstream.Builder
	r, g, bl := style.color.Components()
	for i, line := range lines {
		width := fonts.Measure(style.face, line, size)
		x := box.X
		switch style.alignH {
		case AlignCenter:
			x += (box.W - width) / 2
		case AlignRight:
			x += box.W - width
		}
		lineTop := box.Y + offsetY + float64(i)*size*fonts.LineHeight
		b.Nums("rg", r, g, bl)
		b.Op("BT")
		b.Op("Tf", raw.NameLiteral(style.tag), raw.NumberFloat(size))
		b.Nums("Tm", 1, 0, 0, 1, frame.left+x, frame.baseline(lineTop, size))
		if style.cursive {
			showGlyphs(&b, style.face, line, size)
		} else {
			b.Op("Tj", raw.Str(encodeWinAnsi(line)))
		}
		b.Op("ET")
	}
	return doc.AppendContent(frame.ref, b.Bytes())
}

// showGlyphs shows each shaped glyph separately and moves the line origin
// by its advance, less a fixed tightening of three quarters of the scaled
// size.
func showGlyphs(b *contentstream.Builder, face *fonts.Face, line string, size float64) {
	runes := []rune(line)
	scale := size / face.UnitsPerEm()
	for _, g := range face.Shape(line) {
		r := ' '
		if g.Cluster >= 0 && g.Cluster < len(runes) {
			r = runes[g.Cluster]
		}
		b.Op("Tj", raw.Str(encodeWinAnsi(string(r))))
		if g.XAdvance != 0 {
			adv := g.XAdvance*scale - size*scale*0.75
			b.Nums("Td", adv, 0)
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
