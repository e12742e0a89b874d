package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/internal/pdftest"
	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/recovery"
)

func TestParseClassicTable(t *testing.T) {
	data := pdftest.Bytes(pdftest.Options{Pages: 2, WithForm: true})
	doc, err := NewDocumentParser(Config{}).Parse(context.Background(), data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Version != "1.7" {
		t.Fatalf("unexpected version %q", doc.Version)
	}
	catalog, ok := doc.Resolve(mustGet(t, doc.Trailer, "Root")).(*raw.DictObj)
	if !ok || catalog.Name("Type") != "Catalog" {
		t.Fatalf("catalog not resolved")
	}
	pages := doc.Resolve(mustGet(t, catalog, "Pages")).(*raw.DictObj)
	if n, _ := pages.Int("Count"); n != 2 {
		t.Fatalf("expected 2 pages, got %d", n)
	}
	var streams int
	for _, obj := range doc.Objects {
		if s, ok := obj.(*raw.StreamObj); ok {
			streams++
			if string(s.Data) != "BT /F1 12 Tf 1 0 0 1 72 700 Tm (Template) Tj ET" {
				t.Fatalf("unexpected content %q", s.Data)
			}
		}
	}
	if streams != 2 {
		t.Fatalf("expected 2 content streams, got %d", streams)
	}
}

func mustGet(t *testing.T, d *raw.DictObj, key string) raw.Object {
	t.Helper()
	v, ok := d.Get(key)
	if !ok {
		t.Fatalf("missing key %s", key)
	}
	return v
}

// buildCompressedPDF writes a PDF 1.5 file whose catalog and page tree live
// in an object stream addressed by a cross-reference stream.
func buildCompressedPDF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	offsets := map[int]int{}
	buf.WriteString("%PDF-1.5\n")

	offsets[3] = buf.Len()
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 300 400] /Contents 4 0 R >>\nendobj\n")
	offsets[4] = buf.Len()
	content := "BT (x) Tj ET"
	fmt.Fprintf(&buf, "4 0 obj\n<< /Length 7 0 R >>\nstream\n%s\nendstream\nendobj\n", content)
	offsets[7] = buf.Len()
	fmt.Fprintf(&buf, "7 0 obj\n%d\nendobj\n", len(content))

	obj1 := "<< /Type /Catalog /Pages 2 0 R >>"
	obj2 := "<< /Type /Pages /Kids [3 0 R] /Count 1 >>"
	header := fmt.Sprintf("1 0 2 %d ", len(obj1)+1)
	body := header + obj1 + " " + obj2
	packed, err := filters.FlateEncode([]byte(body))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	offsets[5] = buf.Len()
	fmt.Fprintf(&buf, "5 0 obj\n<< /Type /ObjStm /N 2 /First %d /Filter /FlateDecode /Length %d >>\nstream\n", len(header), len(packed))
	buf.Write(packed)
	buf.WriteString("\nendstream\nendobj\n")

	var rows []byte
	row := func(typ byte, f2 int, f3 int) {
		rows = append(rows, typ, byte(f2>>24), byte(f2>>16), byte(f2>>8), byte(f2), byte(f3>>8), byte(f3))
	}
	row(0, 0, 65535)
	row(2, 5, 0)
	row(2, 5, 1)
	row(1, offsets[3], 0)
	row(1, offsets[4], 0)
	row(1, offsets[5], 0)
	xrefOffset := buf.Len()
	row(1, xrefOffset, 0)
	row(1, offsets[7], 0)
	xrefData, err := filters.FlateEncode(rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fmt.Fprintf(&buf, "6 0 obj\n<< /Type /XRef /Size 8 /W [1 4 2] /Root 1 0 R /Filter /FlateDecode /Length %d >>\nstream\n", len(xrefData))
	buf.Write(xrefData)
	buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefOffset)
	return buf.Bytes()
}

func TestParseObjectAndXRefStreams(t *testing.T) {
	doc, err := NewDocumentParser(Config{}).Parse(context.Background(), buildCompressedPDF(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	catalog, ok := doc.Objects[raw.ObjectRef{Num: 1}].(*raw.DictObj)
	if !ok || catalog.Name("Type") != "Catalog" {
		t.Fatalf("catalog from object stream missing: %#v", doc.Objects[raw.ObjectRef{Num: 1}])
	}
	content, ok := doc.Objects[raw.ObjectRef{Num: 4}].(*raw.StreamObj)
	if !ok || string(content.Data) != "BT (x) Tj ET" {
		t.Fatalf("indirect length stream not read: %#v", doc.Objects[raw.ObjectRef{Num: 4}])
	}
	for _, num := range []int{5, 6} {
		if _, ok := doc.Objects[raw.ObjectRef{Num: num}]; ok {
			t.Fatalf("structural object %d should be dropped", num)
		}
	}
	if _, ok := doc.Trailer.Get("W"); ok {
		t.Fatalf("xref stream keys leaked into trailer")
	}
}

func TestParseRepairsBrokenXRef(t *testing.T) {
	data := pdftest.Bytes(pdftest.Options{Pages: 1})
	idx := bytes.LastIndex(data, []byte("startxref"))
	broken := append(append([]byte(nil), data[:idx]...), []byte("startxref\n999999\n%%EOF\n")...)

	if _, err := NewDocumentParser(Config{Recovery: recovery.NewStrictStrategy()}).Parse(context.Background(), broken); err == nil {
		t.Fatalf("strict parsing should fail on a bad startxref")
	}
	rec := recovery.NewLenientStrategy(nil)
	doc, err := NewDocumentParser(Config{Recovery: rec}).Parse(context.Background(), broken)
	if err != nil {
		t.Fatalf("lenient parse: %v", err)
	}
	if len(doc.Objects) == 0 || len(rec.Errors) == 0 {
		t.Fatalf("expected repaired objects and a recorded error")
	}
}

func TestParseRejectsEncrypted(t *testing.T) {
	doc := pdftest.Document(pdftest.Options{})
	enc := raw.Dict()
	enc.Set("Filter", raw.NameLiteral("Standard"))
	doc.Trailer.Set("Encrypt", raw.RefTo(doc.Add(enc)))
	data := serializeWithEncrypt(t, doc)
	_, err := NewDocumentParser(Config{}).Parse(context.Background(), data)
	if !errors.Is(err, ErrEncrypted) {
		t.Fatalf("expected ErrEncrypted, got %v", err)
	}
}

// serializeWithEncrypt appends the Encrypt entry the writer does not emit.
func serializeWithEncrypt(t *testing.T, doc *raw.Document) []byte {
	t.Helper()
	data := pdftest.Serialize(doc)
	encRef, _ := doc.Trailer.Get("Encrypt")
	r := encRef.(raw.RefObj).R
	return bytes.Replace(data, []byte("trailer\n<<"), []byte(fmt.Sprintf("trailer\n<</Encrypt %d 0 R", r.Num)), 1)
}

func TestParseRejectsNonPDF(t *testing.T) {
	if _, err := NewDocumentParser(Config{}).Parse(context.Background(), []byte("hello")); !errors.Is(err, ErrNotPDF) {
		t.Fatalf("expected ErrNotPDF, got %v", err)
	}
}
