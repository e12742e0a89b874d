package document

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/pdfsnap/internal/pdftest"
	"github.com/wudi/pdfsnap/ir/raw"
)

func load(t *testing.T, opts pdftest.Options) *Document {
	t.Helper()
	doc, err := Load(context.Background(), pdftest.Bytes(opts), Options{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return doc
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load(context.Background(), []byte("hello"), Options{Lenient: true})
	if !errors.Is(err, ErrTemplateLoad) {
		t.Fatalf("expected ErrTemplateLoad, got %v", err)
	}
}

func TestPages(t *testing.T) {
	doc := load(t, pdftest.Options{Pages: 3})
	if n := len(doc.Pages()); n != 3 {
		t.Fatalf("expected 3 pages, got %d", n)
	}
	if _, err := doc.Page(2); err != nil {
		t.Fatalf("Page(2): %v", err)
	}
	for _, idx := range []int{-1, 3, 5} {
		if _, err := doc.Page(idx); !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("Page(%d): expected ErrPageNotFound, got %v", idx, err)
		}
	}
}

func TestPageTreeCycleTerminates(t *testing.T) {
	rd := pdftest.Document(pdftest.Options{Pages: 1})
	catalog := rd.Resolve(rd.Trailer.KV["Root"]).(*raw.DictObj)
	pagesRef := catalog.KV["Pages"].(raw.RefObj)
	pages := rd.Objects[pagesRef.R].(*raw.DictObj)
	pages.KV["Kids"].(*raw.ArrayObj).Append(pagesRef)

	doc, err := FromRaw(rd)
	if err != nil {
		t.Fatalf("FromRaw failed: %v", err)
	}
	if n := len(doc.Pages()); n != 1 {
		t.Fatalf("expected 1 page, got %d", n)
	}
}

func TestPageResourcesMaterializesInherited(t *testing.T) {
	doc := load(t, pdftest.Options{InheritResources: true})
	page, _ := doc.Page(0)
	res, err := doc.PageResources(page)
	if err != nil {
		t.Fatalf("PageResources failed: %v", err)
	}
	fonts, err := doc.ResourceCategory(res, CategoryFont)
	if err != nil {
		t.Fatalf("ResourceCategory failed: %v", err)
	}
	if _, ok := fonts.Get("F1"); !ok {
		t.Fatalf("inherited font F1 was lost")
	}
	fonts.Set("pdf-SansSerif", raw.Ref(99, 0))

	dict, _ := doc.PageDict(page)
	parent := doc.Resolve(dict.KV["Parent"]).(*raw.DictObj)
	parentFonts := parent.KV["Resources"].(*raw.DictObj).KV["Font"].(*raw.DictObj)
	if _, ok := parentFonts.Get("pdf-SansSerif"); ok {
		t.Fatalf("write leaked into the inherited dictionary")
	}
	again, _ := doc.PageResources(page)
	if again != res {
		t.Fatalf("second call must return the page-local dictionary")
	}
}

func TestResourceCategoryRejectsNonDict(t *testing.T) {
	doc := load(t, pdftest.Options{})
	res := raw.Dict()
	res.Set("Font", raw.NumberInt(3))
	if _, err := doc.ResourceCategory(res, CategoryFont); !errors.Is(err, ErrResourceAccess) {
		t.Fatalf("expected ErrResourceAccess, got %v", err)
	}
	sub, err := doc.ResourceCategory(raw.Dict(), CategoryXObject)
	if err != nil || sub == nil {
		t.Fatalf("expected created category, got %v", err)
	}
}

func TestAppendContent(t *testing.T) {
	doc := load(t, pdftest.Options{})
	page, _ := doc.Page(0)
	before, _ := doc.ContentStreams(page)

	if err := doc.AppendContent(page, []byte("q Q")); err != nil {
		t.Fatalf("AppendContent failed: %v", err)
	}
	if err := doc.AppendContent(page, []byte("BT ET")); err != nil {
		t.Fatalf("AppendContent failed: %v", err)
	}
	streams, err := doc.ContentStreams(page)
	if err != nil {
		t.Fatalf("ContentStreams failed: %v", err)
	}
	if len(streams) != len(before)+2 {
		t.Fatalf("expected %d streams, got %d", len(before)+2, len(streams))
	}
	if streams[0] != before[0] {
		t.Fatalf("original stream was replaced")
	}
	if string(streams[2].Data) != "BT ET" {
		t.Fatalf("streams out of order")
	}
}

func TestAppendContentToIndirectArray(t *testing.T) {
	doc := load(t, pdftest.Options{})
	page, _ := doc.Page(0)
	dict, _ := doc.PageDict(page)
	arrRef := doc.Add(raw.NewArray(dict.KV["Contents"]))
	dict.Set("Contents", raw.RefTo(arrRef))

	if err := doc.AppendContent(page, []byte("q Q")); err != nil {
		t.Fatalf("AppendContent failed: %v", err)
	}
	if arr := doc.Resolve(raw.RefTo(arrRef)).(*raw.ArrayObj); arr.Len() != 2 {
		t.Fatalf("expected append in place, got %d items", arr.Len())
	}
}

func TestMediaBox(t *testing.T) {
	doc := load(t, pdftest.Options{Width: 300, Height: 400, InheritResources: true})
	page, _ := doc.Page(0)
	x0, y0, x1, y1, err := doc.MediaBox(page)
	if err != nil || x0 != 0 || y0 != 0 || x1 != 300 || y1 != 400 {
		t.Fatalf("unexpected inherited media box %v %v %v %v %v", x0, y0, x1, y1, err)
	}

	dict, _ := doc.PageDict(page)
	dict.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(10)))
	if _, _, _, _, err := doc.MediaBox(page); !errors.Is(err, ErrResourceAccess) {
		t.Fatalf("expected ErrResourceAccess for 3 elements, got %v", err)
	}
	dict.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NameLiteral("x"), raw.NumberInt(10), raw.NumberInt(10)))
	if _, _, _, _, err := doc.MediaBox(page); !errors.Is(err, ErrResourceAccess) {
		t.Fatalf("expected ErrResourceAccess for non-numeric, got %v", err)
	}

	dict.Delete("MediaBox")
	parent := doc.Resolve(dict.KV["Parent"]).(*raw.DictObj)
	parent.Delete("MediaBox")
	if w, h, err := doc.PageSize(page); err != nil || w != 612 || h != 792 {
		t.Fatalf("expected Letter default, got %v x %v (%v)", w, h, err)
	}
}

func TestStripAcroForms(t *testing.T) {
	doc := load(t, pdftest.Options{Pages: 2, WithForm: true})
	objects := len(doc.Raw().Objects)

	removed, err := doc.StripAcroForms()
	if err != nil {
		t.Fatalf("StripAcroForms failed: %v", err)
	}
	catalog, _ := doc.Catalog()
	if _, ok := catalog.Get("AcroForm"); ok {
		t.Fatalf("AcroForm still present")
	}
	for _, page := range doc.Pages() {
		dict, _ := doc.PageDict(page)
		if _, ok := dict.Get("Annots"); ok {
			t.Fatalf("Annots still present on %s", page)
		}
	}
	// two widgets and the form dictionary
	if removed != 3 || len(doc.Raw().Objects) != objects-3 {
		t.Fatalf("expected 3 pruned objects, got %d", removed)
	}

	again, err := doc.StripAcroForms()
	if err != nil || again != 0 {
		t.Fatalf("second strip should be a no-op, removed %d (%v)", again, err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	doc := load(t, pdftest.Options{Pages: 2})
	page, _ := doc.Page(1)
	if err := doc.AppendContent(page, []byte("BT /F1 10 Tf (added) Tj ET")); err != nil {
		t.Fatalf("AppendContent failed: %v", err)
	}
	if err := doc.Compress(context.Background()); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	data, err := doc.Bytes(context.Background())
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	reloaded, err := Load(context.Background(), data, Options{})
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	page, _ = reloaded.Page(1)
	streams, _ := reloaded.ContentStreams(page)
	if len(streams) != 2 {
		t.Fatalf("expected 2 content streams after reload, got %d", len(streams))
	}
}
