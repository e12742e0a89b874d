// Package document adapts a parsed template into the page-level operations
// the overlay engine needs.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdfsnap/filters"
	"github.com/wudi/pdfsnap/ir/raw"
	"github.com/wudi/pdfsnap/observability"
	"github.com/wudi/pdfsnap/optimize"
	"github.com/wudi/pdfsnap/parser"
	"github.com/wudi/pdfsnap/recovery"
	"github.com/wudi/pdfsnap/writer"
)

var (
	ErrTemplateLoad   = errors.New("template could not be loaded")
	ErrPageNotFound   = errors.New("page not found")
	ErrResourceAccess = errors.New("unexpected document structure")
)

type Options struct {
	// Lenient repairs damaged templates instead of rejecting them.
	Lenient bool
	Limits  filters.Limits
	Logger  observability.Logger
}

// Document owns the object graph of one template for the duration of a
// request.
type Document struct {
	raw    *raw.Document
	pages  []raw.ObjectRef
	logger observability.Logger
}

func Load(ctx context.Context, data []byte, opts Options) (*Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger{}
	}
	var strategy recovery.Strategy = recovery.NewStrictStrategy()
	if opts.Lenient {
		strategy = recovery.NewLenientStrategy(logger)
	}
	rd, err := parser.NewDocumentParser(parser.Config{
		Recovery: strategy,
		Limits:   opts.Limits,
		Logger:   logger,
	}).Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateLoad, err)
	}
	d := &Document{raw: rd, logger: logger}
	if d.pages, err = d.collectPages(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateLoad, err)
	}
	if len(d.pages) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrTemplateLoad)
	}
	return d, nil
}

// FromRaw wraps an already built object graph.
func FromRaw(rd *raw.Document) (*Document, error) {
	d := &Document{raw: rd, logger: observability.NopLogger{}}
	var err error
	if d.pages, err = d.collectPages(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) Raw() *raw.Document { return d.raw }

// Pages lists the page references in template order.
func (d *Document) Pages() []raw.ObjectRef {
	return append([]raw.ObjectRef(nil), d.pages...)
}

func (d *Document) Page(index int) (raw.ObjectRef, error) {
	if index < 0 || index >= len(d.pages) {
		return raw.ObjectRef{}, fmt.Errorf("%w: index %d of %d", ErrPageNotFound, index, len(d.pages))
	}
	return d.pages[index], nil
}

func (d *Document) Object(ref raw.ObjectRef) (raw.Object, bool) {
	obj, ok := d.raw.Objects[ref]
	return obj, ok
}

func (d *Document) Resolve(obj raw.Object) raw.Object { return d.raw.Resolve(obj) }

func (d *Document) Set(ref raw.ObjectRef, obj raw.Object) { d.raw.Objects[ref] = obj }

// Add stores obj under a new object number.
func (d *Document) Add(obj raw.Object) raw.ObjectRef { return d.raw.Add(obj) }

func (d *Document) Catalog() (*raw.DictObj, error) {
	root, _ := d.raw.Trailer.Get("Root")
	catalog, ok := d.raw.Resolve(root).(*raw.DictObj)
	if !ok {
		return nil, fmt.Errorf("%w: catalog is not a dictionary", ErrResourceAccess)
	}
	return catalog, nil
}

// PageDict returns the dictionary of a page.
func (d *Document) PageDict(page raw.ObjectRef) (*raw.DictObj, error) {
	dict, ok := d.raw.Objects[page].(*raw.DictObj)
	if !ok {
		return nil, fmt.Errorf("%w: page %s is not a dictionary", ErrResourceAccess, page)
	}
	return dict, nil
}

func (d *Document) collectPages() ([]raw.ObjectRef, error) {
	catalog, err := d.Catalog()
	if err != nil {
		return nil, err
	}
	root, ok := catalog.Get("Pages")
	if !ok {
		return nil, fmt.Errorf("%w: catalog has no page tree", ErrResourceAccess)
	}
	rootRef, ok := root.(raw.RefObj)
	if !ok {
		return nil, fmt.Errorf("%w: page tree root is not a reference", ErrResourceAccess)
	}

	var pages []raw.ObjectRef
	visited := make(map[raw.ObjectRef]bool)
	var walk func(ref raw.ObjectRef) error
	walk = func(ref raw.ObjectRef) error {
		if visited[ref] {
			return nil
		}
		visited[ref] = true
		node, ok := d.raw.Objects[ref].(*raw.DictObj)
		if !ok {
			return nil
		}
		kidsObj, hasKids := node.Get("Kids")
		if node.Name("Type") == "Page" || (!hasKids && node.Name("Type") != "Pages") {
			pages = append(pages, ref)
			return nil
		}
		kids, ok := d.raw.Resolve(kidsObj).(*raw.ArrayObj)
		if !ok {
			return fmt.Errorf("%w: Kids of %s is not an array", ErrResourceAccess, ref)
		}
		for _, kid := range kids.Items {
			if kr, ok := kid.(raw.RefObj); ok {
				if err := walk(kr.R); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(rootRef.R); err != nil {
		return nil, err
	}
	return pages, nil
}

// Compress deduplicates objects and flate-encodes plain streams.
func (d *Document) Compress(ctx context.Context) error {
	return optimize.New(optimize.DefaultConfig()).Optimize(ctx, d.raw)
}

func (d *Document) Save(ctx context.Context, w io.Writer) error {
	return writer.New(writer.Config{}).Write(ctx, d.raw, w)
}

func (d *Document) Bytes(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Save(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
