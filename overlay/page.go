package overlay

import (
	"github.com/wudi/pdfsnap/coords"
	"github.com/wudi/pdfsnap/document"
	"github.com/wudi/pdfsnap/ir/raw"
)

// pageFrame converts top-down variable geometry into page space.
type pageFrame struct {
	ref    raw.ObjectRef
	left   float64
	top    float64
	width  float64
	height float64
}

func frameOf(doc *document.Document, page raw.ObjectRef) (pageFrame, error) {
	x0, y0, x1, y1, err := doc.MediaBox(page)
	if err != nil {
		return pageFrame{}, err
	}
	return pageFrame{ref: page, left: x0, top: y1, width: x1 - x0, height: y1 - y0}, nil
}

// rect places a top-down box on the page.
func (p pageFrame) rect(x, y, w, h float64) coords.Rect {
	r := coords.FromTop(x, y, w, h, p.height)
	shift := p.top - p.height
	return coords.Rect{LLX: r.LLX + p.left, LLY: r.LLY + shift, URX: r.URX + p.left, URY: r.URY + shift}
}

// baseline is the page-space y of a text line whose top is lineTop.
func (p pageFrame) baseline(lineTop, size float64) float64 {
	return p.top - lineTop - size*0.2
}
