package optimize

import (
	"bytes"
	"context"
	"testing"

	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/ir/raw"
)

func newDoc(objects map[raw.ObjectRef]raw.Object) *raw.Document {
	doc := raw.NewDocument("1.7")
	doc.Objects = objects
	return doc
}

func TestCombineIdenticalIndirectObjects(t *testing.T) {
	doc := newDoc(map[raw.ObjectRef]raw.Object{
		{Num: 1}: raw.NewArray(raw.NumberInt(1), raw.NumberInt(2)),
		{Num: 2}: raw.NewArray(raw.NumberInt(1), raw.NumberInt(2)),
		{Num: 3}: raw.NewArray(raw.NumberInt(3)),
		{Num: 4}: raw.NewArray(raw.Ref(1, 0), raw.Ref(2, 0)),
	})

	if err := New(Config{CombineIdenticalIndirectObjects: true}).Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(doc.Objects) != 3 {
		t.Fatalf("expected 3 objects after merge, got %d", len(doc.Objects))
	}
	refs := doc.Objects[raw.ObjectRef{Num: 4}].(*raw.ArrayObj)
	if refs.Items[0].(raw.RefObj).R != refs.Items[1].(raw.RefObj).R {
		t.Fatalf("references were not redirected: %v", refs.Items)
	}
}

func TestCombineKeepsIdenticalPages(t *testing.T) {
	page := func() *raw.DictObj {
		d := raw.Dict()
		d.Set("Type", raw.NameLiteral("Page"))
		d.Set("Parent", raw.Ref(3, 0))
		return d
	}
	doc := newDoc(map[raw.ObjectRef]raw.Object{
		{Num: 1}: page(),
		{Num: 2}: page(),
	})
	if err := New(Config{CombineIdenticalIndirectObjects: true}).Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if len(doc.Objects) != 2 {
		t.Fatalf("identical pages must not be merged")
	}
}

func TestCompressStreams(t *testing.T) {
	content := bytes.Repeat([]byte("BT /F1 12 Tf (hello) Tj ET\n"), 20)
	already := raw.Dict()
	already.Set("Filter", raw.NameLiteral("DCTDecode"))
	doc := newDoc(map[raw.ObjectRef]raw.Object{
		{Num: 1}: raw.NewStream(raw.Dict(), append([]byte(nil), content...)),
		{Num: 2}: raw.NewStream(already, []byte{0xff, 0xd8}),
	})
	if err := New(Config{CompressStreams: true}).Optimize(context.Background(), doc); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	s := doc.Objects[raw.ObjectRef{Num: 1}].(*raw.StreamObj)
	if s.Dict.Name("Filter") != "FlateDecode" || len(s.Data) >= len(content) {
		t.Fatalf("stream not compressed")
	}
	out, err := filters.DefaultPipeline(filters.Limits{}).DecodeStream(context.Background(), s)
	if err != nil || !bytes.Equal(out, content) {
		t.Fatalf("compressed stream does not decode back: %v", err)
	}
	if jpeg := doc.Objects[raw.ObjectRef{Num: 2}].(*raw.StreamObj); !bytes.Equal(jpeg.Data, []byte{0xff, 0xd8}) {
		t.Fatalf("filtered stream was modified")
	}
}

func TestPrune(t *testing.T) {
	doc := newDoc(map[raw.ObjectRef]raw.Object{
		{Num: 1}: raw.NewArray(raw.Ref(2, 0)),
		{Num: 2}: raw.NumberInt(7),
		{Num: 3}: raw.NumberInt(9),
	})
	doc.Trailer.Set("Root", raw.Ref(1, 0))
	if removed := Prune(doc); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := doc.Objects[raw.ObjectRef{Num: 3}]; ok {
		t.Fatalf("unreachable object kept")
	}
}
