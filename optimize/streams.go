package optimize

import (
	"context"

	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/ir/raw"
)

// compressStreams flate-encodes every unfiltered stream when that makes it
// smaller. Already-filtered streams are left untouched.
func (o *Optimizer) compressStreams(ctx context.Context, doc *raw.Document) error {
	for _, ref := range doc.Refs() {
		if err := ctx.Err(); err != nil {
			return err
		}
		stream, ok := doc.Objects[ref].(*raw.StreamObj)
		if !ok || len(stream.Data) == 0 {
			continue
		}
		dict := stream.Dictionary()
		if _, filtered := dict.Get("Filter"); filtered {
			continue
		}
		compressed, err := filters.FlateEncode(stream.Data)
		if err != nil {
			return err
		}
		if len(compressed) >= len(stream.Data) {
			continue
		}
		stream.Data = compressed
		dict.Set("Filter", raw.NameLiteral("FlateDecode"))
		dict.Set("Length", raw.NumberInt(int64(len(compressed))))
		dict.Delete("DecodeParms")
	}
	return nil
}
