package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/observability"
	"github.com/wudi/pdfsnap/recovery"
	"github.com/wudi/pdfsnap/xref"
)

var (
	ErrNotPDF    = errors.New("missing %PDF header")
	ErrEncrypted = errors.New("encrypted documents are not supported")
)

// Config controls high-level PDF parsing (xref resolution + object loading).
type Config struct {
	// Recovery decides how damaged constructs are handled. Nil means strict.
	Recovery recovery.Strategy
	Limits   filters.Limits
	// MaxObjects bounds the number of indirect objects loaded.
	MaxObjects int
	Logger     observability.Logger
}

// DocumentParser builds a raw.Document using xref tables/streams and the object loader.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.MaxObjects <= 0 {
		cfg.MaxObjects = 1_000_000
	}
	return &DocumentParser{cfg: cfg}
}

func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	version, err := detectHeaderVersion(data)
	if err != nil {
		return nil, err
	}
	pipeline := filters.DefaultPipeline(p.cfg.Limits)

	table, err := xref.NewResolver(xref.ResolverConfig{Recovery: p.cfg.Recovery, Filters: pipeline}).Resolve(ctx, data)
	if err != nil {
		if !p.tolerate(err, "xref") {
			return nil, fmt.Errorf("resolve xref: %w", err)
		}
		p.cfg.Logger.Warn("rebuilding cross-reference table", observability.Error("error", err))
		if table, err = xref.Repair(ctx, data); err != nil {
			return nil, fmt.Errorf("repair xref: %w", err)
		}
	}
	if _, ok := table.Trailer.Get("Encrypt"); ok {
		return nil, ErrEncrypted
	}
	objects := table.Objects()
	if len(objects) > p.cfg.MaxObjects {
		return nil, fmt.Errorf("document has %d objects, limit is %d", len(objects), p.cfg.MaxObjects)
	}

	l := newLoader(data, table, pipeline, p.cfg.Recovery)
	doc := raw.NewDocument(version)
	doc.Trailer = table.Trailer

	for _, objNum := range objects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if objNum == 0 {
			continue
		}
		ref, obj, err := l.load(ctx, objNum)
		if err != nil {
			if !p.tolerate(err, "loader") {
				return nil, fmt.Errorf("load object %d: %w", objNum, err)
			}
			continue
		}
		if isStructural(obj) {
			continue
		}
		doc.Objects[ref] = obj
	}
	if err := p.checkRoot(doc); err != nil {
		return nil, err
	}
	p.cfg.Logger.Debug("parsed pdf",
		observability.String("version", version),
		observability.String("xref", table.Type),
		observability.Int("objects", len(doc.Objects)),
	)
	return doc, nil
}

func (p *DocumentParser) tolerate(err error, component string) bool {
	if p.cfg.Recovery == nil {
		return false
	}
	return p.cfg.Recovery.OnError(err, recovery.Location{Component: "parser:" + component}) != recovery.ActionFail
}

func (p *DocumentParser) checkRoot(doc *raw.Document) error {
	rootObj, ok := doc.Trailer.Get("Root")
	if !ok {
		return errors.New("trailer has no Root entry")
	}
	catalog, ok := doc.Resolve(rootObj).(*raw.DictObj)
	if !ok {
		return errors.New("document catalog is missing or not a dictionary")
	}
	if _, ok := catalog.Get("Pages"); !ok {
		return errors.New("document catalog has no Pages entry")
	}
	return nil
}

// isStructural reports objects that only describe the file layout. They are
// dropped because the writer emits a fresh classic cross-reference table.
func isStructural(obj raw.Object) bool {
	s, ok := obj.(*raw.StreamObj)
	if !ok {
		return false
	}
	switch s.Dict.Name("Type") {
	case "XRef", "ObjStm":
		return true
	}
	return false
}

var headerRe = regexp.MustCompile(`%PDF-(\d\.\d)`)

func detectHeaderVersion(data []byte) (string, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return "", ErrNotPDF
	}
	m := headerRe.FindSubmatch(head)
	if m == nil {
		return "1.7", nil
	}
	return string(m[1]), nil
}
