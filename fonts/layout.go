package fonts

import "strings"

// LineHeight is the line spacing multiplier shared by every renderer.
const LineHeight = 1.2

// Layout is a fitted block of text.
type Layout struct {
	Text     string
	Lines    int
	MaxWidth float64
	FontSize float64
}

// Wrap greedily word-wraps text so each line measures at most maxWidth.
// Any run of whitespace, newlines included, separates words. A single word
// wider than maxWidth gets a line of its own.
func Wrap(face *Face, text string, size, maxWidth float64) (string, int, float64) {
	var lines []string
	widest := 0.0
	emit := func(line string) {
		if w := Measure(face, line, size); w > widest {
			widest = w
		}
		lines = append(lines, line)
	}

	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if current == "" || Measure(face, candidate, size) <= maxWidth {
			current = candidate
			continue
		}
		emit(current)
		current = word
	}
	if current != "" {
		emit(current)
	}
	return strings.Join(lines, "\n"), len(lines), widest
}

// FitFontSize binary-searches the largest size in [1, boxH], at 0.1pt
// resolution, for which the wrapped text fits the box.
func FitFontSize(face *Face, text string, boxW, boxH float64) (Layout, bool) {
	lo, hi := 1.0, boxH
	var best Layout
	found := false
	for hi-lo > 0.1 {
		size := (lo + hi) / 2
		wrapped, lines, width := Wrap(face, text, size, boxW)
		if width <= boxW && float64(lines)*size*LineHeight <= boxH {
			best = Layout{Text: wrapped, Lines: lines, MaxWidth: width, FontSize: size}
			found = true
			lo = size
		} else {
			hi = size
		}
	}
	return best, found
}

// HardWrap breaks text every maxChars characters, restarting the count at
// existing newlines.
func HardWrap(text string, maxChars int) string {
	if maxChars < 1 {
		maxChars = 1
	}
	var b strings.Builder
	b.Grow(len(text) + len(text)/maxChars)
	count := 0
	for _, r := range text {
		if r == '\n' {
			count = 0
			b.WriteRune(r)
			continue
		}
		if count >= maxChars {
			b.WriteByte('\n')
			count = 0
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}
