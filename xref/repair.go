package xref

import (
	"context"
	"errors"
	"io"

	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/scanner"
)

// Repair scans the entire file to reconstruct the xref table from
// "<num> <gen> obj" headers and the last readable trailer. Later definitions
// of the same object number win, matching incremental-update semantics.
func Repair(ctx context.Context, data []byte) (*Table, error) {
	s := scanner.New(data, scanner.Config{})
	or := scanner.NewObjectReader(s)
	t := newTable("repair")
	var lastTrailer *raw.DictObj
	var catalog raw.ObjectRef

	var window []scanner.Token
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// skip one byte past the damage and keep scanning
			if seekErr := s.Seek(s.Position() + 1); seekErr != nil {
				break
			}
			window = window[:0]
			continue
		}
		switch {
		case tok.Type == scanner.TokenKeyword && tok.Str == "obj" && len(window) == 2 &&
			window[0].Type == scanner.TokenNumber && window[0].IsInt &&
			window[1].Type == scanner.TokenNumber && window[1].IsInt:
			num := int(window[0].Int)
			t.entries[num] = Entry{Kind: EntryInUse, Offset: window[0].Pos, Gen: int(window[1].Int)}
			if catalog.Num == 0 && peekCatalog(data, s.Position()) {
				catalog = raw.ObjectRef{Num: num, Gen: int(window[1].Int)}
			}
		case tok.Type == scanner.TokenKeyword && tok.Str == "trailer":
			or.Reset()
			if obj, err := or.ReadObject(); err == nil {
				if dict, ok := obj.(*raw.DictObj); ok {
					lastTrailer = dict
				}
			}
		}
		window = append(window, tok)
		if len(window) > 2 {
			window = window[len(window)-2:]
		}
	}

	if len(t.entries) == 0 {
		return nil, errors.New("repair failed: no objects found")
	}
	if lastTrailer != nil {
		t.merge(nil, lastTrailer)
	}
	if _, ok := t.Trailer.Get("Root"); !ok && catalog.Num != 0 {
		t.Trailer.Set("Root", raw.RefTo(catalog))
	}
	if _, ok := t.Trailer.Get("Root"); !ok {
		return nil, errors.New("repair failed: no catalog found")
	}
	return t, nil
}

// peekCatalog reports whether the object body starting at pos declares
// /Type /Catalog before its endobj.
func peekCatalog(data []byte, pos int64) bool {
	s := scanner.New(data, scanner.Config{})
	if err := s.Seek(pos); err != nil {
		return false
	}
	or := scanner.NewObjectReader(s)
	obj, err := or.ReadObject()
	if err != nil {
		return false
	}
	d, ok := obj.(*raw.DictObj)
	return ok && d.Name("Type") == "Catalog"
}
