package scanner

import (
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfsnap/ir/raw"
)

// ObjectReader assembles raw objects from a token stream. It keeps a small
// pushback buffer so callers can peek at keywords such as "stream".
type ObjectReader struct {
	s       *Scanner
	pending []Token
}

func NewObjectReader(s *Scanner) *ObjectReader { return &ObjectReader{s: s} }

func (r *ObjectReader) Scanner() *Scanner { return r.s }

func (r *ObjectReader) Next() (Token, error) {
	if n := len(r.pending); n > 0 {
		tok := r.pending[n-1]
		r.pending = r.pending[:n-1]
		return tok, nil
	}
	return r.s.Next()
}

func (r *ObjectReader) Unread(tok Token) { r.pending = append(r.pending, tok) }

// Reset drops pushed-back tokens, typically after a Seek on the scanner.
func (r *ObjectReader) Reset() { r.pending = r.pending[:0] }

// ReadObject parses one direct object. Stream payloads are not consumed.
func (r *ObjectReader) ReadObject() (raw.Object, error) {
	tok, err := r.Next()
	if err != nil {
		return nil, err
	}
	return r.objectFrom(tok)
}

func (r *ObjectReader) objectFrom(tok Token) (raw.Object, error) {
	switch tok.Type {
	case TokenNumber:
		if tok.IsInt {
			return raw.NumberInt(tok.Int), nil
		}
		return raw.NumberFloat(tok.Float), nil
	case TokenRef:
		return raw.Ref(int(tok.Int), tok.Gen), nil
	case TokenName:
		return raw.NameLiteral(tok.Str), nil
	case TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case TokenBoolean:
		return raw.Bool(tok.Bool), nil
	case TokenNull:
		return raw.NullObj{}, nil
	case TokenArray:
		return r.readArray()
	case TokenDict:
		return r.readDict()
	default:
		return nil, fmt.Errorf("unexpected %s token %q at offset %d", tok.Type, tok.Str, tok.Pos)
	}
}

func (r *ObjectReader) readArray() (raw.Object, error) {
	arr := raw.NewArray()
	for {
		tok, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("unterminated array")
			}
			return nil, err
		}
		if tok.Type == TokenKeyword && tok.Str == "]" {
			return arr, nil
		}
		item, err := r.objectFrom(tok)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (r *ObjectReader) readDict() (raw.Object, error) {
	dict := raw.Dict()
	for {
		tok, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("unterminated dictionary")
			}
			return nil, err
		}
		if tok.Type == TokenKeyword && tok.Str == ">>" {
			return dict, nil
		}
		if tok.Type != TokenName {
			return nil, fmt.Errorf("dictionary key must be a name, got %s at offset %d", tok.Type, tok.Pos)
		}
		valTok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if valTok.Type == TokenKeyword && valTok.Str == ">>" {
			// key without value; treat as null and close
			dict.Set(tok.Str, raw.NullObj{})
			return dict, nil
		}
		val, err := r.objectFrom(valTok)
		if err != nil {
			return nil, err
		}
		// a null value is equivalent to the key being absent
		if _, isNull := val.(raw.NullObj); isNull {
			continue
		}
		dict.Set(tok.Str, val)
	}
}

// Indirect is one "N G obj ... endobj" definition.
type Indirect struct {
	Ref    raw.ObjectRef
	Object raw.Object
}

// ReadIndirect parses an indirect object at the scanner's position. length
// maps the stream dictionary to its payload length, or -1 when unknown.
func (r *ObjectReader) ReadIndirect(length func(*raw.DictObj) int64) (Indirect, error) {
	numTok, err := r.Next()
	if err != nil {
		return Indirect{}, err
	}
	genTok, err := r.Next()
	if err != nil {
		return Indirect{}, err
	}
	objTok, err := r.Next()
	if err != nil {
		return Indirect{}, err
	}
	if numTok.Type != TokenNumber || !numTok.IsInt || genTok.Type != TokenNumber || !genTok.IsInt ||
		objTok.Type != TokenKeyword || objTok.Str != "obj" {
		return Indirect{}, fmt.Errorf("expected object header at offset %d", numTok.Pos)
	}
	ref := raw.ObjectRef{Num: int(numTok.Int), Gen: int(genTok.Int)}

	tok, err := r.Next()
	if err != nil {
		return Indirect{}, err
	}
	if tok.Type == TokenKeyword && tok.Str == "endobj" {
		return Indirect{Ref: ref, Object: raw.NullObj{}}, nil
	}
	obj, err := r.objectFrom(tok)
	if err != nil {
		return Indirect{}, fmt.Errorf("object %s: %w", ref, err)
	}

	if dict, ok := obj.(*raw.DictObj); ok {
		n := int64(-1)
		if length != nil {
			n = length(dict)
		}
		r.s.SetNextStreamLength(n)
		next, err := r.Next()
		if err == nil && next.Type == TokenStream {
			obj = raw.NewStream(dict, next.Bytes)
		} else if err == nil {
			r.Unread(next)
		}
		r.s.SetNextStreamLength(-1)
	}

	// endobj is optional in damaged files
	if end, err := r.Next(); err == nil && !(end.Type == TokenKeyword && end.Str == "endobj") {
		r.Unread(end)
	}
	return Indirect{Ref: ref, Object: obj}, nil
}
