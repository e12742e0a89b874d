package writer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/wudi/pdfsnap/ir/raw"
)

type Config struct {
	// Version overrides the document's header version when set.
	Version string
	// Deterministic derives the file ID from content instead of keeping
	// the template's ID.
	Deterministic bool
}

// Writer serializes a raw.Document as a single-revision PDF with a classic
// cross-reference table.
type Writer struct {
	cfg Config
}

func New(cfg Config) *Writer { return &Writer{cfg: cfg} }

// SerializeObject renders one indirect object definition. Stream /Length is
// set from the payload.
func (w *Writer) SerializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	if s, ok := obj.(*raw.StreamObj); ok {
		s.Dictionary().Set("Length", raw.NumberInt(int64(len(s.Data))))
	}
	buf.Write(Primitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

func (w *Writer) Write(ctx context.Context, doc *raw.Document, out io.Writer) error {
	if doc == nil || doc.Trailer == nil {
		return errors.New("document has no trailer")
	}
	if _, ok := doc.Trailer.Get("Root"); !ok {
		return errors.New("trailer has no Root entry")
	}
	version := w.cfg.Version
	if version == "" {
		version = doc.Version
	}
	if version == "" {
		version = "1.7"
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-" + version + "\n%\xE2\xE3\xCF\xD3\n")

	refs := doc.Refs()
	offsets := make(map[int]int64, len(refs))
	gens := make(map[int]int, len(refs))
	hash := sha256.New()
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ref.Num <= 0 {
			continue
		}
		offsets[ref.Num] = int64(buf.Len())
		gens[ref.Num] = ref.Gen
		serialized := w.SerializeObject(ref, doc.Objects[ref])
		hash.Write(serialized)
		buf.Write(serialized)
	}

	maxNum := 0
	for num := range offsets {
		if num > maxNum {
			maxNum = num
		}
	}
	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxNum; i++ {
		if off, ok := offsets[i]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", off, gens[i])
		} else {
			buf.WriteString("0000000000 00001 f \n")
		}
	}

	trailer := raw.Dict()
	trailer.Set("Size", raw.NumberInt(int64(maxNum+1)))
	for _, k := range []string{"Root", "Info", "ID"} {
		if v, ok := doc.Trailer.Get(k); ok {
			trailer.Set(k, v)
		}
	}
	if _, ok := trailer.Get("ID"); !ok || w.cfg.Deterministic {
		id := hash.Sum(nil)[:16]
		trailer.Set("ID", raw.NewArray(raw.HexStr(id), raw.HexStr(id)))
	}
	buf.WriteString("trailer\n")
	buf.Write(Primitive(trailer))
	buf.WriteString("\nstartxref\n")
	buf.WriteString(strconv.Itoa(xrefOffset))
	buf.WriteString("\n%%EOF\n")

	_, err := out.Write(buf.Bytes())
	return err
}
