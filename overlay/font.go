package overlay

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/pdfsnap/document"
	"github.com/wudi/pdfsnap/fonts"
	"github.com/wudi/pdfsnap/ir/raw"
)

// Resource names under which fonts are registered on every page.
const (
	TagSansSerif = "pdf-SansSerif"
	TagSerif     = "pdf-Serif"
	TagMono      = "pdf-Mono"
	TagCursive   = "pdf-Cursive"
)

var baseFonts = []struct {
	tag      string
	baseFont string
}{
	{TagSerif, "Times-Roman"},
	{TagSansSerif, "Helvetica"},
	{TagMono, "Courier"},
}

// FontTag maps a family to its resource name.
func FontTag(family fonts.Family) string {
	switch family {
	case fonts.Serif:
		return TagSerif
	case fonts.Mono:
		return TagMono
	case fonts.Cursive:
		return TagCursive
	default:
		return TagSansSerif
	}
}

// registered reports whether tag is already a font resource of the first
// page. Fonts are always registered on every page at once.
func registered(doc *document.Document, tag string) (bool, error) {
	pages := doc.Pages()
	if len(pages) == 0 {
		return false, nil
	}
	res, err := doc.PageResources(pages[0])
	if err != nil {
		return false, err
	}
	fontsDict, err := doc.ResourceCategory(res, document.CategoryFont)
	if err != nil {
		return false, err
	}
	_, ok := fontsDict.Get(tag)
	return ok, nil
}

// RegisterBaseFonts adds Times-Roman, Helvetica and Courier as WinAnsi Type1
// fonts to every page. No glyph data is embedded. Calling it again is a no-op.
func RegisterBaseFonts(doc *document.Document) error {
	done, err := registered(doc, TagSansSerif)
	if err != nil {
		return fmt.Errorf("register base fonts: %w", err)
	}
	if done {
		return nil
	}
	for _, bf := range baseFonts {
		font := raw.Dict()
		font.Set("Type", raw.NameLiteral("Font"))
		font.Set("Subtype", raw.NameLiteral("Type1"))
		font.Set("BaseFont", raw.NameLiteral(bf.baseFont))
		font.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
		ref := doc.Add(font)
		if err := doc.RegisterResource(doc.Pages(), document.CategoryFont, bf.tag, ref); err != nil {
			return fmt.Errorf("register %s: %w", bf.tag, err)
		}
	}
	return nil
}

const (
	firstChar = 32
	lastChar  = 126
)

// EmbedTrueType embeds the whole font file of face and registers it under
// tag on every page. A second call with the same tag is a no-op.
func EmbedTrueType(doc *document.Document, tag string, face *fonts.Face) error {
	done, err := registered(doc, tag)
	if err != nil {
		return fmt.Errorf("embed %s: %w", tag, err)
	}
	if done {
		return nil
	}

	data := face.Data()
	fileDict := raw.Dict()
	fileDict.Set("Length1", raw.NumberInt(int64(len(data))))
	fileRef := doc.Add(raw.NewStream(fileDict, data))

	baseFont := postScriptName(face)
	descriptor := raw.Dict()
	descriptor.Set("Type", raw.NameLiteral("FontDescriptor"))
	descriptor.Set("FontName", raw.NameLiteral(baseFont))
	descriptor.Set("Flags", raw.NumberInt(32))
	descriptor.Set("Ascent", raw.NumberInt(800))
	descriptor.Set("Descent", raw.NumberInt(-450))
	descriptor.Set("CapHeight", raw.NumberInt(800))
	descriptor.Set("ItalicAngle", raw.NumberInt(0))
	descriptor.Set("AvgWidth", raw.NumberInt(419))
	descriptor.Set("MaxWidth", raw.NumberInt(1728))
	descriptor.Set("FontWeight", raw.NumberInt(400))
	descriptor.Set("StemV", raw.NumberInt(41))
	descriptor.Set("XHeight", raw.NumberInt(250))
	descriptor.Set("FontBBox", raw.Ints(-464, -450, 1264, 800))
	descriptor.Set("FontFile2", raw.RefTo(fileRef))
	descriptorRef := doc.Add(descriptor)

	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("TrueType"))
	font.Set("BaseFont", raw.NameLiteral(baseFont))
	font.Set("FirstChar", raw.NumberInt(firstChar))
	font.Set("LastChar", raw.NumberInt(lastChar))
	font.Set("Widths", widths(face))
	font.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	font.Set("FontDescriptor", raw.RefTo(descriptorRef))
	fontRef := doc.Add(font)

	if err := doc.RegisterResource(doc.Pages(), document.CategoryFont, tag, fontRef); err != nil {
		return fmt.Errorf("embed %s: %w", tag, err)
	}
	return nil
}

// widths returns the advance of each code in [firstChar, lastChar] in
// thousandths of an em.
func widths(face *fonts.Face) *raw.ArrayObj {
	arr := raw.NewArray()
	scale := 1000 / face.UnitsPerEm()
	for code := firstChar; code <= lastChar; code++ {
		r := charmap.Windows1252.DecodeByte(byte(code))
		arr.Append(raw.NumberInt(int64(math.Round(face.Advance(r) * scale))))
	}
	return arr
}

func postScriptName(face *fonts.Face) string {
	name := strings.Map(func(r rune) rune {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>[]{}/%#", r) {
			return -1
		}
		return r
	}, face.PostScriptName())
	if name == "" {
		return "EmbeddedFont"
	}
	return name
}

// encodeWinAnsi maps text to WinAnsi bytes; runes outside the code page
// become '?'.
func encodeWinAnsi(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
		} else {
			out = append(out, '?')
		}
	}
	return out
}
