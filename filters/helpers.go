package filters

import "github.com/wudi/pdfsnap/ir/raw"

// ExtractFilters reads Filter and DecodeParms entries from a stream dictionary.
// Params are aligned with names; missing entries are nil.
func ExtractFilters(dict *raw.DictObj) ([]string, []*raw.DictObj) {
	var names []string
	var params []*raw.DictObj

	filterObj, ok := dict.Get("Filter")
	if !ok {
		return names, params
	}

	switch f := filterObj.(type) {
	case raw.NameObj:
		names = append(names, f.Val)
	case *raw.ArrayObj:
		for _, item := range f.Items {
			if n, ok := item.(raw.NameObj); ok {
				names = append(names, n.Val)
			}
		}
	}
	if len(names) == 0 {
		return names, params
	}

	params = make([]*raw.DictObj, len(names))
	pObj, ok := dict.Get("DecodeParms")
	if !ok {
		return names, params
	}
	switch p := pObj.(type) {
	case *raw.DictObj:
		params[0] = p
	case *raw.ArrayObj:
		for i, item := range p.Items {
			if d, ok := item.(*raw.DictObj); ok && i < len(params) {
				params[i] = d
			}
		}
	}
	return names, params
}
