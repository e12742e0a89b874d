package contentstream

import (
	"math"

	"github.com/wudi/pdfsnap/coords"
	"github.com/wudi/pdfsnap/ir/raw"
)

// DefaultFontSize is reported when no text is shown at all.
const DefaultFontSize = 11.0

// SizeTracer tallies shown characters per effective font size, where the
// effective size is the Tf size scaled by the text matrix.
type SizeTracer struct {
	size   float64
	matrix coords.Matrix
	tally  map[float64]int
}

func NewSizeTracer() *SizeTracer {
	return &SizeTracer{size: DefaultFontSize, matrix: coords.Identity(), tally: make(map[float64]int)}
}

// Trace feeds the operations of one content stream. The text state carries
// over between streams of the same page.
func (t *SizeTracer) Trace(ops []Operation) {
	for _, op := range ops {
		switch op.Operator {
		case "Tf":
			if n := len(op.Operands); n > 0 {
				if size, ok := raw.AsFloat(op.Operands[n-1]); ok {
					t.size = size
				}
			}
		case "Tm":
			if len(op.Operands) == 6 {
				var m coords.Matrix
				for i, o := range op.Operands {
					m[i], _ = raw.AsFloat(o)
				}
				t.matrix = m
			}
		case "BT":
			t.matrix = coords.Identity()
		case "Tj", "'":
			if len(op.Operands) > 0 {
				t.count(op.Operands[len(op.Operands)-1])
			}
		case "\"":
			if len(op.Operands) == 3 {
				t.count(op.Operands[2])
			}
		case "TJ":
			if len(op.Operands) == 1 {
				if arr, ok := op.Operands[0].(*raw.ArrayObj); ok {
					for _, item := range arr.Items {
						t.count(item)
					}
				}
			}
		}
	}
}

func (t *SizeTracer) count(o raw.Object) {
	s, ok := o.(raw.StringObj)
	if !ok || len(s.Bytes) == 0 {
		return
	}
	eff := math.Round(t.size*t.matrix.VerticalScale()*100) / 100
	t.tally[eff] += len(s.Bytes)
}

// MostUsed returns the size with the largest character count; ties go to
// the larger size.
func (t *SizeTracer) MostUsed() float64 {
	best, bestCount := DefaultFontSize, 0
	for size, n := range t.tally {
		if size <= 0 {
			continue
		}
		if n > bestCount || (n == bestCount && size > best) {
			best, bestCount = size, n
		}
	}
	return best
}
