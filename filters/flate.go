package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfsnap/ir/raw"
)

type flateDecoder struct {
	maxSize int64
}

// NewFlateDecoder returns a FlateDecode decoder. maxSize bounds the inflated
// output when positive.
func NewFlateDecoder(maxSize int64) Decoder { return flateDecoder{maxSize: maxSize} }

func (flateDecoder) Name() string { return "FlateDecode" }

func (d flateDecoder) Decode(ctx context.Context, in []byte, params *raw.DictObj) ([]byte, error) {
	out, err := d.inflate(in)
	if err != nil {
		return nil, err
	}
	return applyPredictor(out, params)
}

func (d flateDecoder) inflate(in []byte) ([]byte, error) {
	var r io.ReadCloser
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		// some producers omit the zlib header and write a bare deflate stream
		r = flate.NewReader(bytes.NewReader(in))
	} else {
		r = zr
	}
	defer r.Close()

	var src io.Reader = r
	if d.maxSize > 0 {
		src = io.LimitReader(r, d.maxSize+1)
	}
	var out bytes.Buffer
	_, err = io.Copy(&out, src)
	if d.maxSize > 0 && int64(out.Len()) > d.maxSize {
		return nil, errors.New("decompressed size exceeds limit")
	}
	// truncated streams are common; keep what was inflated
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		if out.Len() == 0 {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

// FlateEncode compresses data with zlib framing, as FlateDecode expects.
func FlateEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func intParam(params *raw.DictObj, key string, def int) int {
	if v, ok := params.Int(key); ok {
		return int(v)
	}
	return def
}

// applyPredictor undoes PNG (10-15) and TIFF (2) predictors.
func applyPredictor(data []byte, params *raw.DictObj) ([]byte, error) {
	predictor := intParam(params, "Predictor", 1)
	if predictor <= 1 {
		return data, nil
	}
	colors := intParam(params, "Colors", 1)
	bpc := intParam(params, "BitsPerComponent", 8)
	columns := intParam(params, "Columns", 1)
	if colors < 1 || bpc < 1 || columns < 1 {
		return nil, fmt.Errorf("invalid predictor parameters colors=%d bpc=%d columns=%d", colors, bpc, columns)
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (colors*bpc*columns + 7) / 8

	if predictor == 2 {
		if bpc != 8 {
			return nil, fmt.Errorf("tiff predictor with %d bits per component", bpc)
		}
		out := append([]byte(nil), data...)
		for row := 0; row+rowLen <= len(out); row += rowLen {
			for i := bpp; i < rowLen; i++ {
				out[row+i] += out[row+i-bpp]
			}
		}
		return out, nil
	}
	if predictor < 10 {
		return nil, fmt.Errorf("unsupported predictor %d", predictor)
	}

	out := make([]byte, 0, len(data)/(rowLen+1)*rowLen)
	prev := make([]byte, rowLen)
	for pos := 0; pos+1 <= len(data); pos += rowLen + 1 {
		end := pos + 1 + rowLen
		if end > len(data) {
			break
		}
		filter := data[pos]
		row := append([]byte(nil), data[pos+1:end]...)
		for i := 0; i < rowLen; i++ {
			var left, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch filter {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("invalid png filter type %d", filter)
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
