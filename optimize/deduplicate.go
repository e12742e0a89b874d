package optimize

import (
	"context"

	"github.com/wudi/pdfsnap/ir/raw"
)

// structural dictionaries keep their identity even when two are byte-equal;
// merging two identical pages would drop a page from the tree.
var keepIdentity = map[string]bool{
	"Catalog": true,
	"Pages":   true,
	"Page":    true,
	"Annot":   true,
}

func (o *Optimizer) combineObjects(ctx context.Context, doc *raw.Document, includeStreams, includeOthers bool) error {
	changed := true
	for changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed = false
		seen := make(map[string]raw.ObjectRef)
		replacements := make(map[raw.ObjectRef]raw.ObjectRef)

		for _, ref := range doc.Refs() {
			obj := doc.Objects[ref]
			_, isStream := obj.(*raw.StreamObj)
			if isStream && !includeStreams {
				continue
			}
			if !isStream && !includeOthers {
				continue
			}
			if d, ok := obj.(*raw.DictObj); ok && keepIdentity[d.Name("Type")] {
				continue
			}

			h := hashObject(obj)
			if original, ok := seen[h]; ok {
				replacements[ref] = original
				changed = true
			} else {
				seen[h] = ref
			}
		}

		if len(replacements) > 0 {
			applyReplacements(doc, replacements)
			for dup := range replacements {
				delete(doc.Objects, dup)
			}
		}
	}
	return nil
}

func applyReplacements(doc *raw.Document, replacements map[raw.ObjectRef]raw.ObjectRef) {
	for _, obj := range doc.Objects {
		replaceRefsInObject(obj, replacements)
	}
	if doc.Trailer != nil {
		replaceRefsInObject(doc.Trailer, replacements)
	}
}

func replaceRefsInObject(obj raw.Object, replacements map[raw.ObjectRef]raw.ObjectRef) {
	switch t := obj.(type) {
	case *raw.ArrayObj:
		for i, val := range t.Items {
			if ref, ok := val.(raw.RefObj); ok {
				if newRef, found := replacements[ref.R]; found {
					t.Items[i] = raw.RefTo(newRef)
				}
			} else {
				replaceRefsInObject(val, replacements)
			}
		}
	case *raw.DictObj:
		for key, val := range t.KV {
			if ref, ok := val.(raw.RefObj); ok {
				if newRef, found := replacements[ref.R]; found {
					t.KV[key] = raw.RefTo(newRef)
				}
			} else {
				replaceRefsInObject(val, replacements)
			}
		}
	case *raw.StreamObj:
		replaceRefsInObject(t.Dictionary(), replacements)
	}
}
