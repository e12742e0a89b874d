package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/wudi/pdfsnap/contentstream"
	"github.com/wudi/pdfsnap/document"
	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/ir/raw"
)

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/png":  png.Decode,
	"image/gif":  gif.Decode,
	"image/bmp":  bmp.Decode,
	"image/tiff": tiff.Decode,
	"image/webp": webp.Decode,
}

// imageXObject builds the image XObject for data of the given MIME type.
// JPEG data is embedded as is; everything else is re-encoded as flate RGB
// with an SMask when the image has transparency.
func imageXObject(doc *document.Document, data []byte, contentType string) (*raw.StreamObj, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: content type %q", ErrImageDecode, contentType)
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		mediaType = "image/jpeg"
	}

	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("XObject"))
	dict.Set("Subtype", raw.NameLiteral("Image"))
	dict.Set("BitsPerComponent", raw.NumberInt(8))

	if mediaType == "image/jpeg" {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
		}
		dict.Set("Width", raw.NumberInt(int64(cfg.Width)))
		dict.Set("Height", raw.NumberInt(int64(cfg.Height)))
		dict.Set("ColorSpace", raw.NameLiteral(jpegColorSpace(cfg.ColorModel)))
		dict.Set("Filter", raw.NameLiteral("DCTDecode"))
		return raw.NewStream(dict, data), nil
	}

	decode, ok := decoders[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported type %q", ErrImageDecode, mediaType)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrImageDecode)
	}
	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
			if c.A != 0xff {
				opaque = false
			}
		}
	}

	pixels, err := filters.FlateEncode(rgb)
	if err != nil {
		return nil, err
	}
	dict.Set("Width", raw.NumberInt(int64(w)))
	dict.Set("Height", raw.NumberInt(int64(h)))
	dict.Set("ColorSpace", raw.NameLiteral("DeviceRGB"))
	dict.Set("Filter", raw.NameLiteral("FlateDecode"))

	if !opaque {
		mask, err := filters.FlateEncode(alpha)
		if err != nil {
			return nil, err
		}
		maskDict := raw.Dict()
		maskDict.Set("Type", raw.NameLiteral("XObject"))
		maskDict.Set("Subtype", raw.NameLiteral("Image"))
		maskDict.Set("Width", raw.NumberInt(int64(w)))
		maskDict.Set("Height", raw.NumberInt(int64(h)))
		maskDict.Set("ColorSpace", raw.NameLiteral("DeviceGray"))
		maskDict.Set("BitsPerComponent", raw.NumberInt(8))
		maskDict.Set("Filter", raw.NameLiteral("FlateDecode"))
		dict.Set("SMask", raw.RefTo(doc.Add(raw.NewStream(maskDict, mask))))
	}
	return raw.NewStream(dict, pixels), nil
}

func jpegColorSpace(m color.Model) string {
	switch m {
	case color.GrayModel:
		return "DeviceGray"
	case color.CMYKModel:
		return "DeviceCMYK"
	default:
		return "DeviceRGB"
	}
}

// imageName returns a fresh XObject resource name.
func imageName() string {
	return "Im" + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// drawImage embeds the image and paints it stretched over the box.
func drawImage(doc *document.Document, frame pageFrame, box Box, data []byte, contentType string) error {
	xobj, err := imageXObject(doc, data, contentType)
	if err != nil {
		return err
	}
	ref := doc.Add(xobj)
	name := imageName()
	if err := doc.RegisterResource([]raw.ObjectRef{frame.ref}, document.CategoryXObject, name, ref); err != nil {
		return err
	}

	placement := frame.rect(box.X, box.Y, box.W, box.H).Placement()
	var b contentstream.Builder
	b.Op("q")
	b.Nums("cm", placement[:]...)
	b.Op("Do", raw.NameLiteral(name))
	b.Op("Q")
	return doc.AppendContent(frame.ref, b.Bytes())
}
