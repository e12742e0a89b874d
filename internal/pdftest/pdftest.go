// Package pdftest builds small template documents for tests.
package pdftest

import (
	"bytes"
	"context"

	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/writer"
)

type Options struct {
	Pages int
	// Width and Height default to US Letter.
	Width, Height float64
	// Content is drawn on every page.
	Content string
	// WithForm adds an AcroForm with one text widget per page.
	WithForm bool
	// InheritResources puts the font resources on the page tree root.
	InheritResources bool
}

// Document returns the raw object graph of a template.
func Document(opts Options) *raw.Document {
	if opts.Pages <= 0 {
		opts.Pages = 1
	}
	if opts.Width == 0 {
		opts.Width, opts.Height = 612, 792
	}
	if opts.Content == "" {
		opts.Content = "BT /F1 12 Tf 1 0 0 1 72 700 Tm (Template) Tj ET"
	}
	doc := raw.NewDocument("1.7")

	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("Type1"))
	font.Set("BaseFont", raw.NameLiteral("Helvetica"))
	fontRef := doc.Add(font)

	resources := func() *raw.DictObj {
		fonts := raw.Dict()
		fonts.Set("F1", raw.RefTo(fontRef))
		res := raw.Dict()
		res.Set("Font", fonts)
		return res
	}

	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pagesRef := doc.Add(pages)
	if opts.InheritResources {
		pages.Set("Resources", resources())
		pages.Set("MediaBox", raw.Floats(0, 0, opts.Width, opts.Height))
	}

	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.RefTo(pagesRef))
	catalogRef := doc.Add(catalog)
	doc.Trailer.Set("Root", raw.RefTo(catalogRef))

	kids := raw.NewArray()
	fields := raw.NewArray()
	for i := 0; i < opts.Pages; i++ {
		content := raw.NewStream(raw.Dict(), []byte(opts.Content))
		contentRef := doc.Add(content)

		page := raw.Dict()
		page.Set("Type", raw.NameLiteral("Page"))
		page.Set("Parent", raw.RefTo(pagesRef))
		page.Set("Contents", raw.RefTo(contentRef))
		if !opts.InheritResources {
			page.Set("Resources", resources())
			page.Set("MediaBox", raw.Floats(0, 0, opts.Width, opts.Height))
		}
		pageRef := doc.Add(page)
		kids.Append(raw.RefTo(pageRef))

		if opts.WithForm {
			widget := raw.Dict()
			widget.Set("Type", raw.NameLiteral("Annot"))
			widget.Set("Subtype", raw.NameLiteral("Widget"))
			widget.Set("FT", raw.NameLiteral("Tx"))
			widget.Set("T", raw.Str([]byte("field")))
			widget.Set("Rect", raw.Floats(10, 10, 100, 30))
			widget.Set("P", raw.RefTo(pageRef))
			widgetRef := doc.Add(widget)
			page.Set("Annots", raw.NewArray(raw.RefTo(widgetRef)))
			fields.Append(raw.RefTo(widgetRef))
		}
	}
	pages.Set("Kids", kids)
	pages.Set("Count", raw.NumberInt(int64(opts.Pages)))

	if opts.WithForm {
		form := raw.Dict()
		form.Set("Fields", fields)
		catalog.Set("AcroForm", raw.RefTo(doc.Add(form)))
	}
	return doc
}

// Bytes serializes a template built from opts.
func Bytes(opts Options) []byte {
	return Serialize(Document(opts))
}

// Serialize writes doc and panics on failure, which only happens for
// documents without a Root.
func Serialize(doc *raw.Document) []byte {
	var buf bytes.Buffer
	if err := writer.New(writer.Config{}).Write(context.Background(), doc, &buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
