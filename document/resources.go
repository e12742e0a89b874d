package document

import (
	"fmt"

	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/optimize"
)

type ResourceCategory string

const (
	CategoryFont    ResourceCategory = "Font"
	CategoryXObject ResourceCategory = "XObject"
)

// letter is the media box assumed when no page in the chain declares one.
var letter = [4]float64{0, 0, 612, 792}

// maxInheritDepth bounds Parent chains; real page trees are shallow.
const maxInheritDepth = 64

// inherited walks the page and its ancestors for key.
func (d *Document) inherited(page *raw.DictObj, key string) (raw.Object, bool) {
	node := page
	for depth := 0; node != nil && depth < maxInheritDepth; depth++ {
		if v, ok := node.Get(key); ok {
			return v, true
		}
		parent, _ := node.Get("Parent")
		node, _ = d.raw.Resolve(parent).(*raw.DictObj)
	}
	return nil, false
}

// PageResources returns the page's own resource dictionary, creating it when
// missing. Inherited or indirect resources are copied onto the page first so
// later writes stay local to it.
func (d *Document) PageResources(page raw.ObjectRef) (*raw.DictObj, error) {
	dict, err := d.PageDict(page)
	if err != nil {
		return nil, err
	}
	if res, ok := dict.KV["Resources"].(*raw.DictObj); ok {
		return res, nil
	}

	var local *raw.DictObj
	if obj, ok := d.inherited(dict, "Resources"); ok {
		switch v := d.raw.Resolve(obj).(type) {
		case *raw.DictObj:
			local = raw.Clone(v).(*raw.DictObj)
		case raw.NullObj:
			local = raw.Dict()
		default:
			return nil, fmt.Errorf("%w: resources of page %s are %s", ErrResourceAccess, page, v.Type())
		}
	} else {
		local = raw.Dict()
	}
	dict.Set("Resources", local)
	return local, nil
}

// ResourceCategory returns the named subdictionary of res, creating it or
// copying an indirect one in place.
func (d *Document) ResourceCategory(res *raw.DictObj, category ResourceCategory) (*raw.DictObj, error) {
	key := string(category)
	obj, ok := res.Get(key)
	if !ok {
		sub := raw.Dict()
		res.Set(key, sub)
		return sub, nil
	}
	if sub, ok := obj.(*raw.DictObj); ok {
		return sub, nil
	}
	switch v := d.raw.Resolve(obj).(type) {
	case *raw.DictObj:
		sub := raw.Clone(v).(*raw.DictObj)
		res.Set(key, sub)
		return sub, nil
	case raw.NullObj:
		sub := raw.Dict()
		res.Set(key, sub)
		return sub, nil
	default:
		return nil, fmt.Errorf("%w: /%s resources are %s", ErrResourceAccess, key, v.Type())
	}
}

// RegisterResource binds name to ref in the category of every listed page.
func (d *Document) RegisterResource(pages []raw.ObjectRef, category ResourceCategory, name string, ref raw.ObjectRef) error {
	for _, page := range pages {
		res, err := d.PageResources(page)
		if err != nil {
			return err
		}
		sub, err := d.ResourceCategory(res, category)
		if err != nil {
			return err
		}
		sub.Set(name, raw.RefTo(ref))
	}
	return nil
}

// AppendContent adds a new content stream after the page's existing ones.
// Existing streams are never rewritten.
func (d *Document) AppendContent(page raw.ObjectRef, data []byte) error {
	dict, err := d.PageDict(page)
	if err != nil {
		return err
	}
	ref := raw.RefTo(d.raw.Add(raw.NewStream(raw.Dict(), data)))

	existing, ok := dict.Get("Contents")
	if !ok {
		dict.Set("Contents", ref)
		return nil
	}
	switch v := existing.(type) {
	case *raw.ArrayObj:
		v.Append(ref)
	case raw.RefObj:
		switch target := d.raw.Resolve(v).(type) {
		case *raw.ArrayObj:
			target.Append(ref)
		case *raw.StreamObj:
			dict.Set("Contents", raw.NewArray(v, ref))
		case raw.NullObj:
			dict.Set("Contents", ref)
		default:
			return fmt.Errorf("%w: page %s contents are %s", ErrResourceAccess, page, target.Type())
		}
	default:
		return fmt.Errorf("%w: page %s contents are %s", ErrResourceAccess, page, v.Type())
	}
	return nil
}

// ContentStreams returns the page's content streams in paint order.
func (d *Document) ContentStreams(page raw.ObjectRef) ([]*raw.StreamObj, error) {
	dict, err := d.PageDict(page)
	if err != nil {
		return nil, err
	}
	contents, ok := dict.Get("Contents")
	if !ok {
		return nil, nil
	}
	var out []*raw.StreamObj
	switch v := d.raw.Resolve(contents).(type) {
	case *raw.StreamObj:
		out = append(out, v)
	case *raw.ArrayObj:
		for _, item := range v.Items {
			if s, ok := d.raw.Resolve(item).(*raw.StreamObj); ok {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// MediaBox returns the page's (possibly inherited) media box as
// (x0, y0, x1, y1). Pages without one anywhere in their chain are Letter.
func (d *Document) MediaBox(page raw.ObjectRef) (float64, float64, float64, float64, error) {
	dict, err := d.PageDict(page)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	obj, ok := d.inherited(dict, "MediaBox")
	if !ok {
		return letter[0], letter[1], letter[2], letter[3], nil
	}
	arr, ok := d.raw.Resolve(obj).(*raw.ArrayObj)
	if !ok || arr.Len() != 4 {
		return 0, 0, 0, 0, fmt.Errorf("%w: malformed MediaBox on page %s", ErrResourceAccess, page)
	}
	var box [4]float64
	for i, item := range arr.Items {
		v, ok := raw.AsFloat(d.raw.Resolve(item))
		if !ok {
			return 0, 0, 0, 0, fmt.Errorf("%w: non-numeric MediaBox on page %s", ErrResourceAccess, page)
		}
		box[i] = v
	}
	return box[0], box[1], box[2], box[3], nil
}

// PageSize returns the width and height of the page's media box.
func (d *Document) PageSize(page raw.ObjectRef) (float64, float64, error) {
	x0, y0, x1, y1, err := d.MediaBox(page)
	if err != nil {
		return 0, 0, err
	}
	return x1 - x0, y1 - y0, nil
}

// StripAcroForms removes the interactive form, every page's annotations and
// whatever objects become unreachable as a result. It returns the number of
// pruned objects; a second call finds nothing to do.
func (d *Document) StripAcroForms() (int, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return 0, err
	}
	catalog.Delete("AcroForm")
	for _, page := range d.pages {
		dict, err := d.PageDict(page)
		if err != nil {
			return 0, err
		}
		dict.Delete("Annots")
	}
	return optimize.Prune(d.raw), nil
}
