package xref

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wudi/pdfsnap/internal/pdftest"
)

func TestResolveClassicTable(t *testing.T) {
	data := pdftest.Bytes(pdftest.Options{Pages: 2})
	table, err := NewResolver(ResolverConfig{}).Resolve(context.Background(), data)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if table.Type != "table" {
		t.Fatalf("expected classic table, got %q", table.Type)
	}
	if _, ok := table.Trailer.Get("Root"); !ok {
		t.Fatalf("trailer lost Root")
	}
	for _, num := range table.Objects() {
		e, _ := table.Lookup(num)
		header := fmt.Sprintf("%d %d obj", num, e.Gen)
		if !bytes.HasPrefix(data[e.Offset:], []byte(header)) {
			t.Fatalf("object %d offset %d does not point at its header", num, e.Offset)
		}
	}
	if _, ok := table.Lookup(0); ok {
		t.Fatalf("free entry 0 must not be returned")
	}
}

func TestResolveIncrementalUpdateNewerWins(t *testing.T) {
	base := []byte("%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
		"2 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n")
	first := len(base)
	base = append(base, []byte(fmt.Sprintf("xref\n0 3\n0000000000 65535 f \n%010d 00000 n \n%010d 00000 n \ntrailer\n<< /Size 3 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		9, bytes.Index(base, []byte("2 0 obj")), first))...)

	update := len(base)
	base = append(base, []byte("2 0 obj\n<< /Type /Pages /Kids [] /Count 0 /Updated true >>\nendobj\n")...)
	second := len(base)
	base = append(base, []byte(fmt.Sprintf("xref\n2 1\n%010d 00000 n \ntrailer\n<< /Size 3 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n",
		update, first, second))...)

	table, err := NewResolver(ResolverConfig{}).Resolve(context.Background(), base)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	e, ok := table.Lookup(2)
	if !ok || e.Offset != int64(update) {
		t.Fatalf("expected object 2 at updated offset %d, got %+v", update, e)
	}
	if e, _ := table.Lookup(1); e.Offset != 9 {
		t.Fatalf("object 1 should come from the older section, got %+v", e)
	}
	if _, ok := table.Trailer.Get("Prev"); ok {
		t.Fatalf("Prev must not leak into the merged trailer")
	}
}

func TestResolveMissingStartXRef(t *testing.T) {
	_, err := NewResolver(ResolverConfig{}).Resolve(context.Background(), []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	if !errors.Is(err, ErrNoXRef) {
		t.Fatalf("expected ErrNoXRef, got %v", err)
	}
}

func TestResolvePrevLoop(t *testing.T) {
	data := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n")
	off := len(data)
	data = append(data, []byte(fmt.Sprintf("xref\n0 2\n0000000000 65535 f \n0000000009 00000 n \ntrailer\n<< /Size 2 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", off, off))...)
	table, err := NewResolver(ResolverConfig{}).Resolve(context.Background(), data)
	if err != nil {
		t.Fatalf("self-referencing Prev should terminate: %v", err)
	}
	if len(table.Objects()) != 1 {
		t.Fatalf("unexpected objects: %v", table.Objects())
	}
}

func TestRepair(t *testing.T) {
	data := pdftest.Bytes(pdftest.Options{})
	idx := bytes.Index(data, []byte("xref\n"))
	broken := append([]byte(nil), data[:idx]...)
	broken = append(broken, []byte("garbage\n%%EOF\n")...)

	if _, err := NewResolver(ResolverConfig{}).Resolve(context.Background(), broken); err == nil {
		t.Fatalf("expected resolve failure on broken file")
	}
	table, err := Repair(context.Background(), broken)
	if err != nil {
		t.Fatalf("Repair failed: %v", err)
	}
	if table.Type != "repair" {
		t.Fatalf("expected repair table, got %q", table.Type)
	}
	if _, ok := table.Trailer.Get("Root"); !ok {
		t.Fatalf("catalog not detected")
	}
	for _, num := range table.Objects() {
		e, _ := table.Lookup(num)
		if !bytes.HasPrefix(broken[e.Offset:], []byte(fmt.Sprintf("%d 0 obj", num))) {
			t.Fatalf("repaired offset for %d is wrong", num)
		}
	}
}

func TestRepairNothingFound(t *testing.T) {
	if _, err := Repair(context.Background(), []byte("not a pdf at all")); err == nil {
		t.Fatalf("expected failure")
	}
}
