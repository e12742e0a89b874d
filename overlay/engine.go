package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/wudi/pdfsnap/contentstream"
	"github.com/wudi/pdfsnap/document"
	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/fonts"
	"github.com/wudi/pdfsnap/observability"
)

var ErrInvalidVariable = errors.New("invalid variable")

// ImageSource fetches the image a variable points at.
type ImageSource interface {
	Image(ctx context.Context, url string) (data []byte, contentType string, err error)
}

type FooterConfig struct {
	// URL is the verification link prefix; the code is appended to it.
	URL   string
	Label string
}

type Config struct {
	Fonts  *fonts.Registry
	Images ImageSource
	Footer FooterConfig
	// Lenient repairs damaged templates instead of rejecting them.
	Lenient bool
	Limits  filters.Limits
	Logger  observability.Logger
	Tracer  observability.Tracer
	// Now is used for the generation timestamp; defaults to time.Now.
	Now func() time.Time
}

// Engine turns a template and a list of variables into a finished PDF.
// It holds no per-request state and may be shared.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Fonts == nil {
		return nil, errors.New("overlay: font registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NopTracer()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Footer.Label == "" {
		cfg.Footer.Label = "Verification Code"
	}
	return &Engine{cfg: cfg}, nil
}

type Request struct {
	Template  []byte
	Variables Variables
	// Footer stamps every page with the verification caption and link.
	Footer bool
}

type Result struct {
	PDF              []byte
	TemplateHash     string
	SchemaHash       string
	Timestamp        int64
	VerificationCode string
	Pages            int
}

// Generate runs the whole pipeline. Any failure aborts the request and no
// output is produced.
func (e *Engine) Generate(ctx context.Context, req Request) (_ *Result, err error) {
	ctx, span := e.cfg.Tracer.StartSpan(ctx, "overlay.generate")
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	schema, err := json.Marshal(req.Variables)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVariable, err)
	}
	res := &Result{
		TemplateHash: fmt.Sprintf("%x", crc32.ChecksumIEEE(req.Template)),
		SchemaHash:   fmt.Sprintf("%x", crc32.ChecksumIEEE(schema)),
		Timestamp:    e.cfg.Now().Unix(),
	}
	res.VerificationCode = fmt.Sprintf("%d-%s-%s", res.Timestamp, res.TemplateHash, res.SchemaHash)
	logger := e.cfg.Logger.With(observability.String("verification_code", res.VerificationCode))

	doc, err := document.Load(ctx, req.Template, document.Options{
		Lenient: e.cfg.Lenient,
		Limits:  e.cfg.Limits,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	pruned, err := doc.StripAcroForms()
	if err != nil {
		return nil, err
	}
	defaultSize := MostUsedFontSize(ctx, doc)
	logger.Debug("template loaded",
		observability.Int("pages", len(doc.Pages())),
		observability.Int("pruned_objects", pruned),
		observability.Float("default_font_size", defaultSize))

	if err := RegisterBaseFonts(doc); err != nil {
		return nil, err
	}

	for i, v := range req.Variables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.apply(ctx, doc, v, defaultSize); err != nil {
			return nil, fmt.Errorf("variable %d (%s %q): %w", i, v.Kind(), v.Geometry().Field, err)
		}
	}

	if req.Footer {
		if err := e.stampFooter(doc, res.VerificationCode); err != nil {
			return nil, err
		}
	}

	if err := doc.Compress(ctx); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if res.PDF, err = doc.Bytes(ctx); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	res.Pages = len(doc.Pages())
	logger.Info("document generated",
		observability.Int("variables", len(req.Variables)),
		observability.Int("bytes", len(res.PDF)))
	return res, nil
}

func (e *Engine) apply(ctx context.Context, doc *document.Document, v Variable, defaultSize float64) error {
	box := v.Geometry()
	page, err := doc.Page(box.Page)
	if err != nil {
		return err
	}
	frame, err := frameOf(doc, page)
	if err != nil {
		return err
	}

	switch v := v.(type) {
	case *TextVariable:
		family, err := fonts.ParseFamily(v.FontFamily)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidVariable, err)
		}
		weight, err := fonts.ParseWeight(v.FontWeight)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidVariable, err)
		}
		style := textStyle{
			face:   e.cfg.Fonts.Lookup(family, weight, false),
			tag:    FontTag(family),
			size:   valueOr(v.FontSize, defaultSize),
			alignH: valueOr(v.AlignH, AlignLeft),
			alignV: valueOr(v.AlignV, AlignTop),
			color:  valueOr(v.Color, Black),
		}
		if family == fonts.Cursive {
			if err := EmbedTrueType(doc, TagCursive, style.face); err != nil {
				return err
			}
			style.cursive = true
		}
		policy := policyWrap
		if !valueOr(v.Wrap, true) {
			policy = policyFit
		}
		return drawText(doc, frame, box, style, policy)

	case *SignatureVariable:
		face := e.cfg.Fonts.Lookup(fonts.Cursive, fonts.Regular, false)
		if err := EmbedTrueType(doc, TagCursive, face); err != nil {
			return err
		}
		style := textStyle{
			face:    face,
			tag:     TagCursive,
			size:    valueOr(v.FontSize, defaultSize),
			alignH:  valueOr(v.AlignH, AlignCenter),
			alignV:  valueOr(v.AlignV, AlignBottom),
			color:   valueOr(v.Color, Black),
			cursive: true,
		}
		return drawText(doc, frame, box, style, policyFit)

	case *ImageVariable:
		if e.cfg.Images == nil {
			return fmt.Errorf("%w: no image source configured", ErrNetwork)
		}
		data, contentType, err := e.cfg.Images.Image(ctx, box.Value)
		if err != nil {
			return err
		}
		return drawImage(doc, frame, box, data, contentType)
	}
	return fmt.Errorf("%w: unsupported variable %T", ErrInvalidVariable, v)
}

// Footer box, in top-down page coordinates relative to the page size.
const (
	footerRight  = 350
	footerBottom = 20
	footerWidth  = 220
	footerHeight = 12
	footerSize   = 9
)

var footerColor = Color{R: 0x80, G: 0x80, B: 0x80}

func (e *Engine) stampFooter(doc *document.Document, code string) error {
	face := e.cfg.Fonts.Lookup(fonts.SansSerif, fonts.Regular, false)
	for _, page := range doc.Pages() {
		frame, err := frameOf(doc, page)
		if err != nil {
			return err
		}
		box := Box{
			X: frame.width - footerRight,
			Y: frame.height - footerBottom,
			W: footerWidth,
			H: footerHeight,
		}
		if e.cfg.Footer.URL != "" {
			if err := addLink(doc, frame, box.X, box.Y, box.W, box.H, e.cfg.Footer.URL+code); err != nil {
				return err
			}
		}
		box.Value = e.cfg.Footer.Label + ": " + code
		style := textStyle{face: face, tag: TagSansSerif, size: footerSize, alignH: AlignLeft, alignV: AlignTop, color: footerColor}
		if err := drawText(doc, frame, box, style, policyLine); err != nil {
			return err
		}
	}
	return nil
}

// MostUsedFontSize returns the font size that shows the most characters
// across all pages of the template.
func MostUsedFontSize(ctx context.Context, doc *document.Document) float64 {
	pipeline := filters.DefaultPipeline(filters.Limits{})
	tracer := contentstream.NewSizeTracer()
	for _, page := range doc.Pages() {
		streams, err := doc.ContentStreams(page)
		if err != nil {
			continue
		}
		for _, s := range streams {
			data, err := pipeline.DecodeStream(ctx, s)
			if err != nil {
				continue
			}
			// a stream that stops parsing still contributes what came before
			ops, _ := contentstream.Decode(data)
			tracer.Trace(ops)
		}
	}
	return tracer.MostUsed()
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

