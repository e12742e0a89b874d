package fonts

import (
	"math"
	"strings"
	"sync"
	"testing"
)

var (
	registryOnce sync.Once
	registry     *Registry
	registryErr  error
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	registryOnce.Do(func() { registry, registryErr = NewRegistry(Config{}) })
	if registryErr != nil {
		t.Fatalf("NewRegistry failed: %v", registryErr)
	}
	return registry
}

func TestParseFamilyAndWeight(t *testing.T) {
	families := map[string]Family{"": SansSerif, "sans-serif": SansSerif, "SansSerif": SansSerif, "serif": Serif, "Mono": Mono, "cursive": Cursive}
	for in, want := range families {
		got, err := ParseFamily(in)
		if err != nil || got != want {
			t.Fatalf("ParseFamily(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFamily("fantasy"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
	if w, err := ParseWeight("bold"); err != nil || w != Bold {
		t.Fatalf("ParseWeight(bold) = %v, %v", w, err)
	}
	if _, err := ParseWeight("heavy"); err == nil {
		t.Fatalf("expected error for unknown weight")
	}
}

func TestLookupFallbacks(t *testing.T) {
	r := testRegistry(t)
	cases := []struct {
		name   string
		family Family
		weight Weight
		italic bool
		want   string
	}{
		{"exact", SansSerif, Bold, true, "GoBoldItalic"},
		{"light falls back to regular", SansSerif, Light, false, "GoRegular"},
		{"serif uses sans faces", Serif, Regular, false, "GoRegular"},
		{"mono", Mono, Regular, false, "GoMono"},
		{"cursive", Cursive, Regular, false, "GoItalic"},
		{"cursive bold falls back to cursive", Cursive, Bold, false, "GoItalic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			face := r.Lookup(tc.family, tc.weight, tc.italic)
			if face == nil || face.Name() != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, face)
			}
		})
	}
}

func TestOverrideMissingFile(t *testing.T) {
	_, err := NewRegistry(Config{Overrides: []Override{{Family: "serif", Path: "/nonexistent/font.ttf"}}})
	if err == nil {
		t.Fatalf("expected error for missing override file")
	}
}

func TestMeasure(t *testing.T) {
	face := testRegistry(t).Lookup(SansSerif, Regular, false)
	if face.UnitsPerEm() <= 0 {
		t.Fatalf("invalid units per em")
	}
	w10 := Measure(face, "Hello World", 10)
	w20 := Measure(face, "Hello World", 20)
	if w10 <= 0 {
		t.Fatalf("expected positive width, got %v", w10)
	}
	if math.Abs(w20-2*w10) > 1e-6 {
		t.Fatalf("width must scale linearly with size: %v vs %v", w10, w20)
	}
	if Measure(face, "", 12) != 0 {
		t.Fatalf("empty text must measure 0")
	}
	mono := testRegistry(t).Lookup(Mono, Regular, false)
	if a, b := Measure(mono, "iiii", 12), Measure(mono, "WWWW", 12); math.Abs(a-b) > 1e-6 {
		t.Fatalf("mono face should have equal advances: %v vs %v", a, b)
	}
}

func TestWrap(t *testing.T) {
	face := testRegistry(t).Lookup(SansSerif, Regular, false)
	text := "The quick brown fox jumps over the lazy dog and keeps running far away"
	wrapped, lines, widest := Wrap(face, text, 12, 120)
	if lines < 2 {
		t.Fatalf("expected several lines, got %d", lines)
	}
	if got := len(strings.Split(wrapped, "\n")); got != lines {
		t.Fatalf("line count %d does not match text %d", lines, got)
	}
	if widest > 120 {
		t.Fatalf("widest line %v exceeds max", widest)
	}
	if strings.Join(strings.Fields(wrapped), " ") != text {
		t.Fatalf("wrap lost words: %q", wrapped)
	}

	again, againLines, _ := Wrap(face, wrapped, 12, 120)
	if again != wrapped || againLines != lines {
		t.Fatalf("wrap is not idempotent:\n%q\n%q", wrapped, again)
	}
}

func TestWrapLongWords(t *testing.T) {
	face := testRegistry(t).Lookup(SansSerif, Regular, false)
	wrapped, lines, widest := Wrap(face, "a Supercalifragilistic b", 12, 20)
	if lines != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", lines, wrapped)
	}
	if wrapped != "a\nSupercalifragilistic\nb" {
		t.Fatalf("unexpected wrap %q", wrapped)
	}
	if widest <= 20 {
		t.Fatalf("oversized word should be reported in max width, got %v", widest)
	}
}

func TestWrapTreatsNewlinesAsSpaces(t *testing.T) {
	face := testRegistry(t).Lookup(Cursive, Regular, false)
	name := "Maximiliana Worthington-Smythe Jr."
	hard := HardWrap(name, 25)
	if !strings.Contains(hard, "\n") {
		t.Fatalf("expected a hard break in %q", hard)
	}

	cases := []struct {
		name string
		text string
		want string
	}{
		{"hard wrapped", hard, "Maximiliana Worthington-S mythe Jr."},
		{"blank lines", "Hello\n\n  World\n", "Hello World"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped, lines, _ := Wrap(face, tc.text, 12, 400)
			if lines != 1 || wrapped != tc.want {
				t.Fatalf("Wrap(%q) = %q in %d lines, want %q", tc.text, wrapped, lines, tc.want)
			}
		})
	}

	spaced, ok := FitFontSize(face, "Maximiliana Worthington-S mythe Jr.", 400, 40)
	if !ok {
		t.Fatalf("expected the spaced name to fit")
	}
	layout, ok := FitFontSize(face, hard, 400, 40)
	if !ok {
		t.Fatalf("expected %q to fit", hard)
	}
	if layout != spaced || layout.Lines != 1 {
		t.Fatalf("hard breaks changed the fit: %+v vs %+v", layout, spaced)
	}
}

func TestFitFontSize(t *testing.T) {
	face := testRegistry(t).Lookup(SansSerif, Regular, false)
	cases := []struct {
		name string
		text string
		w, h float64
	}{
		{"single word", "Hello", 200, 40},
		{"sentence", "Hello World from a slightly longer sentence", 150, 60},
		{"tall box", "Signature", 80, 300},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout, ok := FitFontSize(face, tc.text, tc.w, tc.h)
			if !ok {
				t.Fatalf("expected a fit")
			}
			if layout.FontSize < 1 || layout.FontSize > tc.h {
				t.Fatalf("size %v out of range", layout.FontSize)
			}
			if layout.MaxWidth > tc.w {
				t.Fatalf("width %v exceeds box %v", layout.MaxWidth, tc.w)
			}
			if float64(layout.Lines)*layout.FontSize*LineHeight > tc.h {
				t.Fatalf("height exceeds box")
			}
		})
	}

	if _, ok := FitFontSize(face, "Hello", 0.01, 0.01); ok {
		t.Fatalf("degenerate box must not fit")
	}
}

func TestHardWrap(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdefgh", 3, "abc\ndef\ngh"},
		{"ab\ncdef", 3, "ab\ncde\nf"},
		{"abc", 3, "abc"},
		{"héllo", 2, "hé\nll\no"},
		{"", 5, ""},
	}
	for _, tc := range cases {
		if got := HardWrap(tc.in, tc.max); got != tc.want {
			t.Fatalf("HardWrap(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
