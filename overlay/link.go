package overlay

import (
	"fmt"

	"github.com/wudi/pdfsnap/document"
	"github.com/wudi/pdfsnap/ir/raw"
)

// addLink adds a borderless URI link annotation covering box.
func addLink(doc *document.Document, frame pageFrame, x, y, w, h float64, uri string) error {
	r := frame.rect(x, y, w, h)

	action := raw.Dict()
	action.Set("S", raw.NameLiteral("URI"))
	action.Set("URI", raw.Str([]byte(uri)))

	annot := raw.Dict()
	annot.Set("Type", raw.NameLiteral("Annot"))
	annot.Set("Subtype", raw.NameLiteral("Link"))
	annot.Set("Rect", raw.Floats(r.LLX, r.LLY, r.URX, r.URY))
	annot.Set("Border", raw.Ints(0, 0, 0))
	annot.Set("A", action)
	ref := raw.RefTo(doc.Add(annot))

	page, err := doc.PageDict(frame.ref)
	if err != nil {
		return fmt.Errorf("add link: %w", err)
	}
	existing, ok := page.Get("Annots")
	if !ok {
		page.Set("Annots", raw.NewArray(ref))
		return nil
	}
	switch v := existing.(type) {
	case *raw.ArrayObj:
		v.Append(ref)
	case raw.RefObj:
		if arr, ok := doc.Resolve(v).(*raw.ArrayObj); ok {
			arr.Append(ref)
			return nil
		}
		page.Set("Annots", raw.NewArray(ref))
	default:
		page.Set("Annots", raw.NewArray(ref))
	}
	return nil
}
