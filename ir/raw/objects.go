package raw

import "sort"

// NameObj is a PDF name without the leading slash.
type NameObj struct{ Val string }

func (n NameObj) Type() string     { return "name" }
func (n NameObj) IsIndirect() bool { return false }
func (n NameObj) Value() string    { return n.Val }

// NumberObj holds either an integer or a real.
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string     { return "number" }
func (n NumberObj) IsIndirect() bool { return false }
func (n NumberObj) Int() int64 {
	if n.IsInt {
		return n.I
	}
	return int64(n.F)
}
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }

type BoolObj struct{ V bool }

func (b BoolObj) Type() string     { return "boolean" }
func (b BoolObj) IsIndirect() bool { return false }
func (b BoolObj) Value() bool      { return b.V }

type NullObj struct{}

func (n NullObj) Type() string     { return "null" }
func (n NullObj) IsIndirect() bool { return false }

// StringObj is a literal or hexadecimal string. Hex only affects serialization.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string     { return "string" }
func (s StringObj) IsIndirect() bool { return false }
func (s StringObj) Value() []byte    { return s.Bytes }
func (s StringObj) IsHex() bool      { return s.Hex }

type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string     { return "array" }
func (a *ArrayObj) IsIndirect() bool { return false }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Len() int        { return len(a.Items) }
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// DictObj maps names (without slash) to objects.
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string     { return "dict" }
func (d *DictObj) IsIndirect() bool { return false }
func (d *DictObj) Get(key string) (Object, bool) {
	if d == nil {
		return nil, false
	}
	o, ok := d.KV[key]
	return o, ok
}
func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}
func (d *DictObj) Delete(key string) { delete(d.KV, key) }

// Keys returns the keys in sorted order so serialization is deterministic.
func (d *DictObj) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
func (d *DictObj) Len() int { return len(d.KV) }

// Name returns the name stored under key, or "".
func (d *DictObj) Name(key string) string {
	if v, ok := d.Get(key); ok {
		if n, ok := v.(NameObj); ok {
			return n.Val
		}
	}
	return ""
}

// Int returns the integer stored under key.
func (d *DictObj) Int(key string) (int64, bool) {
	if v, ok := d.Get(key); ok {
		if n, ok := v.(NumberObj); ok {
			return n.Int(), true
		}
	}
	return 0, false
}

type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string      { return "stream" }
func (s *StreamObj) IsIndirect() bool  { return false }
func (s *StreamObj) RawData() []byte   { return s.Data }
func (s *StreamObj) Length() int64     { return int64(len(s.Data)) }
func (s *StreamObj) Dictionary() *DictObj {
	if s.Dict == nil {
		s.Dict = Dict()
	}
	return s.Dict
}

type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string     { return "ref" }
func (r RefObj) IsIndirect() bool { return true }
func (r RefObj) Ref() ObjectRef   { return r.R }

// Helpers
func NameLiteral(v string) NameObj                    { return NameObj{Val: v} }
func NumberInt(i int64) NumberObj                     { return NumberObj{I: i, IsInt: true} }
func NumberFloat(f float64) NumberObj                 { return NumberObj{F: f, IsInt: false} }
func Bool(v bool) BoolObj                             { return BoolObj{V: v} }
func Str(bytes []byte) StringObj                      { return StringObj{Bytes: bytes} }
func HexStr(bytes []byte) StringObj                   { return StringObj{Bytes: bytes, Hex: true} }
func NewArray(items ...Object) *ArrayObj              { return &ArrayObj{Items: items} }
func Dict() *DictObj                                  { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj { return &StreamObj{Dict: dict, Data: data} }
func Ref(num, gen int) RefObj                         { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }
func RefTo(r ObjectRef) RefObj                        { return RefObj{R: r} }

// Ints builds an array of integers.
func Ints(vals ...int64) *ArrayObj {
	arr := &ArrayObj{Items: make([]Object, len(vals))}
	for i, v := range vals {
		arr.Items[i] = NumberInt(v)
	}
	return arr
}

// Floats builds an array of reals.
func Floats(vals ...float64) *ArrayObj {
	arr := &ArrayObj{Items: make([]Object, len(vals))}
	for i, v := range vals {
		arr.Items[i] = NumberFloat(v)
	}
	return arr
}

// AsFloat reports the numeric value of obj.
func AsFloat(obj Object) (float64, bool) {
	n, ok := obj.(NumberObj)
	if !ok {
		return 0, false
	}
	return n.Float(), true
}

// Clone returns a deep copy of obj. References are copied as-is; the objects
// they point to are shared.
func Clone(obj Object) Object {
	switch v := obj.(type) {
	case *DictObj:
		out := &DictObj{KV: make(map[string]Object, len(v.KV))}
		for k, item := range v.KV {
			out.KV[k] = Clone(item)
		}
		return out
	case *ArrayObj:
		out := &ArrayObj{Items: make([]Object, len(v.Items))}
		for i, item := range v.Items {
			out.Items[i] = Clone(item)
		}
		return out
	case *StreamObj:
		data := append([]byte(nil), v.Data...)
		var dict *DictObj
		if v.Dict != nil {
			dict = Clone(v.Dict).(*DictObj)
		}
		return &StreamObj{Dict: dict, Data: data}
	case StringObj:
		return StringObj{Bytes: append([]byte(nil), v.Bytes...), Hex: v.Hex}
	default:
		return obj
	}
}
