package parser

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/recovery"
	"github.com/wudi/pdfsnap/scanner"
	"github.com/wudi/pdfsnap/xref"
)

// loader materializes objects addressed by the xref table, including objects
// packed into object streams.
type loader struct {
	data     []byte
	table    *xref.Table
	filters  *filters.Pipeline
	recovery recovery.Strategy

	objStreams map[int]*objectStream
	loading    map[int]bool
}

type objectStream struct {
	offsets []int64
	nums    []int
	data    []byte
}

func newLoader(data []byte, table *xref.Table, pipeline *filters.Pipeline, rec recovery.Strategy) *loader {
	return &loader{
		data:       data,
		table:      table,
		filters:    pipeline,
		recovery:   rec,
		objStreams: make(map[int]*objectStream),
		loading:    make(map[int]bool),
	}
}

func (l *loader) load(ctx context.Context, objNum int) (raw.ObjectRef, raw.Object, error) {
	entry, ok := l.table.Lookup(objNum)
	if !ok {
		return raw.ObjectRef{}, nil, fmt.Errorf("object %d not in xref", objNum)
	}
	if l.loading[objNum] {
		return raw.ObjectRef{}, nil, fmt.Errorf("object %d: circular load", objNum)
	}
	l.loading[objNum] = true
	defer delete(l.loading, objNum)

	switch entry.Kind {
	case xref.EntryCompressed:
		obj, err := l.loadCompressed(ctx, objNum, entry)
		return raw.ObjectRef{Num: objNum}, obj, err
	default:
		return l.loadAt(entry.Offset, objNum)
	}
}

func (l *loader) loadAt(offset int64, objNum int) (raw.ObjectRef, raw.Object, error) {
	s := scanner.New(l.data, scanner.Config{Recovery: l.recovery})
	s.SetRecoveryLocation(recovery.Location{ObjectNum: objNum, Component: "loader"})
	if err := s.Seek(offset); err != nil {
		return raw.ObjectRef{}, nil, err
	}
	ind, err := scanner.NewObjectReader(s).ReadIndirect(l.streamLength)
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	if ind.Ref.Num != objNum {
		return raw.ObjectRef{}, nil, fmt.Errorf("xref points object %d at object %d", objNum, ind.Ref.Num)
	}
	return ind.Ref, ind.Object, nil
}

// streamLength resolves /Length, following an indirect reference when needed.
func (l *loader) streamLength(dict *raw.DictObj) int64 {
	v, ok := dict.Get("Length")
	if !ok {
		return -1
	}
	switch n := v.(type) {
	case raw.NumberObj:
		return n.Int()
	case raw.RefObj:
		if l.loading[n.R.Num] {
			return -1
		}
		entry, ok := l.table.Lookup(n.R.Num)
		if !ok || entry.Kind != xref.EntryInUse {
			return -1
		}
		l.loading[n.R.Num] = true
		defer delete(l.loading, n.R.Num)
		if _, obj, err := l.loadAt(entry.Offset, n.R.Num); err == nil {
			if num, ok := obj.(raw.NumberObj); ok {
				return num.Int()
			}
		}
	}
	return -1
}

func (l *loader) loadCompressed(ctx context.Context, objNum int, entry xref.Entry) (raw.Object, error) {
	os, err := l.objectStream(ctx, entry.Stream)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", entry.Stream, err)
	}
	idx := entry.Index
	if idx >= len(os.nums) || os.nums[idx] != objNum {
		// the index is a hint; fall back to a search by number
		idx = -1
		for i, n := range os.nums {
			if n == objNum {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("object %d missing from object stream %d", objNum, entry.Stream)
		}
	}
	s := scanner.New(os.data, scanner.Config{Recovery: l.recovery})
	if err := s.Seek(os.offsets[idx]); err != nil {
		return nil, err
	}
	return scanner.NewObjectReader(s).ReadObject()
}

func (l *loader) objectStream(ctx context.Context, num int) (*objectStream, error) {
	if os, ok := l.objStreams[num]; ok {
		return os, nil
	}
	entry, ok := l.table.Lookup(num)
	if !ok || entry.Kind != xref.EntryInUse {
		return nil, errors.New("object stream not found")
	}
	_, obj, err := l.loadAt(entry.Offset, num)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*raw.StreamObj)
	if !ok || stream.Dict.Name("Type") != "ObjStm" {
		return nil, errors.New("not an object stream")
	}
	payload, err := l.filters.DecodeStream(ctx, stream)
	if err != nil {
		return nil, err
	}
	n, _ := stream.Dict.Int("N")
	first, _ := stream.Dict.Int("First")
	if first < 0 || first > int64(len(payload)) {
		return nil, fmt.Errorf("invalid First %d", first)
	}

	hdr := scanner.New(payload[:first], scanner.Config{})
	os := &objectStream{data: payload}
	for i := int64(0); i < n; i++ {
		numTok, err := hdr.Next()
		if err != nil {
			break
		}
		offTok, err := hdr.Next()
		if err != nil {
			break
		}
		os.nums = append(os.nums, int(numTok.Int))
		os.offsets = append(os.offsets, first+offTok.Int)
	}
	l.objStreams[num] = os
	return os, nil
}
