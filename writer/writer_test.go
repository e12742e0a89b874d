package writer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wudi/pdfsnap/ir/raw"
)

func TestPrimitive(t *testing.T) {
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("Font"))
	dict.Set("Name", raw.NameLiteral("pdf Sans#1"))
	dict.Set("W", raw.NewArray(raw.NumberInt(1), raw.NumberFloat(0.5), raw.NumberFloat(-2.25)))
	dict.Set("S", raw.Str([]byte("a(b)\\c\n")))
	dict.Set("H", raw.HexStr([]byte{0xde, 0xad}))
	dict.Set("R", raw.Ref(3, 0))
	dict.Set("B", raw.Bool(true))

	got := string(Primitive(dict))
	want := `<</B true/H <DEAD>/Name /pdf#20Sans#231/R 3 0 R/S (a\(b\)\\c\n)/Type /Font/W [1 0.5 -2.25]>>`
	if got != want {
		t.Fatalf("unexpected serialization:\n got %s\nwant %s", got, want)
	}
}

func TestFormatReal(t *testing.T) {
	cases := map[float64]string{
		0:          "0",
		1.5:        "1.5",
		-0.00001:   "0",
		612:        "612",
		1e-7:       "0",
		123.456789: "123.4568",
		1e12:       "1000000000000",
	}
	for in, want := range cases {
		if got := FormatReal(in); got != want {
			t.Errorf("FormatReal(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestEscapeLiteralStringOctal(t *testing.T) {
	got := string(EscapeLiteralString([]byte{'A', 0xe9, 0x01}))
	if got != `(A\351\001)` {
		t.Fatalf("unexpected escape: %s", got)
	}
}

func TestWriteProducesValidXRef(t *testing.T) {
	doc := raw.NewDocument("1.4")
	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", raw.Ref(2, 0))
	doc.Objects[raw.ObjectRef{Num: 1}] = catalog
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray())
	pages.Set("Count", raw.NumberInt(0))
	doc.Objects[raw.ObjectRef{Num: 2}] = pages
	doc.Objects[raw.ObjectRef{Num: 4}] = raw.NewStream(raw.Dict(), []byte("q Q"))
	doc.Trailer.Set("Root", raw.Ref(1, 0))

	var out bytes.Buffer
	if err := New(Config{}).Write(context.Background(), doc, &out); err != nil {
		t.Fatalf("write: %v", err)
	}
	data := out.Bytes()
	if !bytes.HasPrefix(data, []byte("%PDF-1.4\n")) {
		t.Fatalf("missing header: %q", data[:12])
	}
	for _, num := range []string{"1 0 obj", "2 0 obj", "4 0 obj"} {
		idx := bytes.Index(data, []byte(num))
		if idx < 0 {
			t.Fatalf("object %q missing", num)
		}
		entry := []byte(strings.Repeat("0", 10-len(itoa(idx))) + itoa(idx) + " 00000 n")
		if !bytes.Contains(data, entry) {
			t.Fatalf("xref entry for %q at %d missing", num, idx)
		}
	}
	if !bytes.Contains(data, []byte("/Length 3")) {
		t.Fatalf("stream length not set")
	}
	if !bytes.Contains(data, []byte("0000000000 00001 f")) {
		t.Fatalf("gap at object 3 should be a free entry")
	}
	if !bytes.Contains(data, []byte("/Size 5")) || !bytes.Contains(data, []byte("/ID [<")) {
		t.Fatalf("trailer incomplete: %s", data[bytes.Index(data, []byte("trailer")):])
	}
}

func TestWriteRequiresRoot(t *testing.T) {
	doc := raw.NewDocument("1.7")
	if err := New(Config{}).Write(context.Background(), doc, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for missing Root")
	}
}

func itoa(i int) string {
	var b []byte
	if i == 0 {
		return "0"
	}
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	return string(b)
}
