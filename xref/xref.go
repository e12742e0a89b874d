package xref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/recovery"
	"github.com/wudi/pdfsnap/scanner"
)

var ErrNoXRef = errors.New("cross-reference information not found")

type EntryKind int

const (
	EntryFree EntryKind = iota
	EntryInUse
	EntryCompressed
)

// Entry locates one object. In-use objects live at Offset; compressed
// objects are item Index of the object stream numbered Stream.
type Entry struct {
	Kind   EntryKind
	Offset int64
	Gen    int
	Stream int
	Index  int
}

// Table is the merged view of every cross-reference section of a file.
type Table struct {
	entries map[int]Entry
	Trailer *raw.DictObj
	// Type is "table", "stream", or "repair".
	Type string
}

func newTable(kind string) *Table {
	return &Table{entries: make(map[int]Entry), Trailer: raw.Dict(), Type: kind}
}

func (t *Table) Lookup(objNum int) (Entry, bool) {
	e, ok := t.entries[objNum]
	if !ok || e.Kind == EntryFree {
		return Entry{}, false
	}
	return e, true
}

// Objects returns the in-use object numbers in ascending order.
func (t *Table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k, e := range t.entries {
		if e.Kind != EntryFree {
			out = append(out, k)
		}
	}
	sort.Ints(out)
	return out
}

// merge adds entries from an older section; existing (newer) entries win.
func (t *Table) merge(older map[int]Entry, trailer *raw.DictObj) {
	for num, e := range older {
		if _, ok := t.entries[num]; !ok {
			t.entries[num] = e
		}
	}
	for _, k := range trailerKeys {
		v, ok := trailer.Get(k)
		if !ok {
			continue
		}
		if _, exists := t.Trailer.Get(k); !exists {
			t.Trailer.Set(k, v)
		}
	}
}

// trailerKeys are the entries carried into the merged trailer. Stream-specific
// keys of cross-reference streams (W, Index, Filter) stay behind.
var trailerKeys = []string{"Size", "Root", "Info", "ID", "Encrypt"}

type ResolverConfig struct {
	MaxXRefDepth int
	Recovery     recovery.Strategy
	Filters      *filters.Pipeline
}

type Resolver struct {
	cfg ResolverConfig
}

func NewResolver(cfg ResolverConfig) *Resolver {
	if cfg.MaxXRefDepth <= 0 {
		cfg.MaxXRefDepth = 64
	}
	if cfg.Filters == nil {
		cfg.Filters = filters.DefaultPipeline(filters.Limits{})
	}
	return &Resolver{cfg: cfg}
}

// Resolve follows startxref and the Prev chain. Classic tables and
// cross-reference streams (including hybrid XRefStm files) are supported.
func (r *Resolver) Resolve(ctx context.Context, data []byte) (*Table, error) {
	offset, err := startXRef(data)
	if err != nil {
		return nil, err
	}
	result := newTable("table")
	visited := make(map[int64]bool)
	pending := []int64{offset}
	for depth := 0; len(pending) > 0; depth++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if depth >= r.cfg.MaxXRefDepth {
			return nil, fmt.Errorf("xref chain deeper than %d sections", r.cfg.MaxXRefDepth)
		}
		off := pending[0]
		pending = pending[1:]
		if visited[off] {
			continue
		}
		visited[off] = true

		entries, trailer, kind, err := r.readSection(ctx, data, off)
		if err != nil {
			return nil, fmt.Errorf("xref section at %d: %w", off, err)
		}
		if depth == 0 {
			result.Type = kind
		}
		// a hybrid file's XRefStm is read before the table's Prev section
		var next []int64
		if stm, ok := trailer.Int("XRefStm"); ok {
			next = append(next, stm)
		}
		if prev, ok := trailer.Int("Prev"); ok {
			next = append(next, prev)
		}
		result.merge(entries, trailer)
		pending = append(next, pending...)
	}
	if _, ok := result.Trailer.Get("Root"); !ok {
		return nil, errors.New("trailer has no Root entry")
	}
	return result, nil
}

func startXRef(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoXRef
	}
	rest := bytes.TrimLeft(data[idx+len("startxref"):], " \t\r\n\f\x00")
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	off, err := strconv.ParseInt(string(rest[:end]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse startxref: %w", err)
	}
	if off <= 0 || off >= int64(len(data)) {
		return 0, fmt.Errorf("xref offset out of range: %d", off)
	}
	return off, nil
}

func (r *Resolver) readSection(ctx context.Context, data []byte, off int64) (map[int]Entry, *raw.DictObj, string, error) {
	s := scanner.New(data, scanner.Config{Recovery: r.cfg.Recovery})
	if err := s.Seek(off); err != nil {
		return nil, nil, "", err
	}
	or := scanner.NewObjectReader(s)
	tok, err := or.Next()
	if err != nil {
		return nil, nil, "", err
	}
	if tok.Type == scanner.TokenKeyword && tok.Str == "xref" {
		entries, trailer, err := readTable(or)
		return entries, trailer, "table", err
	}
	or.Unread(tok)
	entries, trailer, err := r.readStream(ctx, or)
	return entries, trailer, "stream", err
}

// readTable parses the subsections after the "xref" keyword and the trailer.
func readTable(or *scanner.ObjectReader) (map[int]Entry, *raw.DictObj, error) {
	entries := make(map[int]Entry)
	for {
		tok, err := or.Next()
		if err != nil {
			return nil, nil, fmt.Errorf("reading xref table: %w", err)
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "trailer" {
			break
		}
		countTok, err := or.Next()
		if err != nil {
			return nil, nil, err
		}
		if tok.Type != scanner.TokenNumber || countTok.Type != scanner.TokenNumber {
			return nil, nil, fmt.Errorf("invalid xref subsection header at offset %d", tok.Pos)
		}
		start, count := int(tok.Int), int(countTok.Int)
		for i := 0; i < count; i++ {
			offTok, err := or.Next()
			if err != nil {
				return nil, nil, err
			}
			genTok, err := or.Next()
			if err != nil {
				return nil, nil, err
			}
			kindTok, err := or.Next()
			if err != nil {
				return nil, nil, err
			}
			if offTok.Type != scanner.TokenNumber || genTok.Type != scanner.TokenNumber || kindTok.Type != scanner.TokenKeyword {
				return nil, nil, fmt.Errorf("invalid xref entry at offset %d", offTok.Pos)
			}
			num := start + i
			if _, seen := entries[num]; seen {
				continue
			}
			switch kindTok.Str {
			case "n":
				entries[num] = Entry{Kind: EntryInUse, Offset: offTok.Int, Gen: int(genTok.Int)}
			case "f":
				entries[num] = Entry{Kind: EntryFree, Gen: int(genTok.Int)}
			default:
				return nil, nil, fmt.Errorf("invalid xref entry type %q", kindTok.Str)
			}
		}
	}
	obj, err := or.ReadObject()
	if err != nil {
		return nil, nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(*raw.DictObj)
	if !ok {
		return nil, nil, errors.New("trailer is not a dictionary")
	}
	return entries, trailer, nil
}

// readStream parses a cross-reference stream object (PDF 1.5+).
func (r *Resolver) readStream(ctx context.Context, or *scanner.ObjectReader) (map[int]Entry, *raw.DictObj, error) {
	ind, err := or.ReadIndirect(func(d *raw.DictObj) int64 {
		if n, ok := d.Int("Length"); ok {
			return n
		}
		return -1
	})
	if err != nil {
		return nil, nil, err
	}
	stream, ok := ind.Object.(*raw.StreamObj)
	if !ok || stream.Dict.Name("Type") != "XRef" {
		return nil, nil, errors.New("expected xref stream")
	}
	payload, err := r.cfg.Filters.DecodeStream(ctx, stream)
	if err != nil {
		return nil, nil, err
	}

	widths, err := intArray(stream.Dict, "W")
	if err != nil || len(widths) != 3 {
		return nil, nil, errors.New("xref stream has invalid W")
	}
	size, _ := stream.Dict.Int("Size")
	index := []int64{0, size}
	if _, ok := stream.Dict.Get("Index"); ok {
		if index, err = intArray(stream.Dict, "Index"); err != nil || len(index)%2 != 0 {
			return nil, nil, errors.New("xref stream has invalid Index")
		}
	}

	rowLen := int(widths[0] + widths[1] + widths[2])
	if rowLen == 0 {
		return nil, nil, errors.New("xref stream has zero-width rows")
	}
	entries := make(map[int]Entry)
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := int(index[i]), int(index[i+1])
		for j := 0; j < count; j++ {
			if pos+rowLen > len(payload) {
				return entries, stream.Dict, nil
			}
			row := payload[pos : pos+rowLen]
			pos += rowLen
			typ := int64(1)
			if widths[0] > 0 {
				typ = readField(row[:widths[0]])
			}
			f2 := readField(row[widths[0] : widths[0]+widths[1]])
			f3 := readField(row[widths[0]+widths[1]:])
			num := start + j
			switch typ {
			case 0:
				entries[num] = Entry{Kind: EntryFree, Gen: int(f3)}
			case 1:
				entries[num] = Entry{Kind: EntryInUse, Offset: f2, Gen: int(f3)}
			case 2:
				entries[num] = Entry{Kind: EntryCompressed, Stream: int(f2), Index: int(f3)}
			}
		}
	}
	return entries, stream.Dict, nil
}

func readField(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

func intArray(d *raw.DictObj, key string) ([]int64, error) {
	obj, _ := d.Get(key)
	arr, ok := obj.(*raw.ArrayObj)
	if !ok {
		return nil, fmt.Errorf("%s is not an array", key)
	}
	out := make([]int64, 0, arr.Len())
	for _, item := range arr.Items {
		n, ok := item.(raw.NumberObj)
		if !ok || n.Int() < 0 {
			return nil, fmt.Errorf("%s has a non-integer item", key)
		}
		out = append(out, n.Int())
	}
	return out, nil
}
