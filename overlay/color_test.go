package overlay

import (
	"encoding/json"
	"testing"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want Color
	}{
		{"#000000", Black},
		{"#ff8000", Color{R: 0xff, G: 0x80}},
		{"FF8000", Color{R: 0xff, G: 0x80}},
		{"#0a0B0c", Color{R: 0x0a, G: 0x0b, B: 0x0c}},
	}
	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		if err != nil {
			t.Fatalf("ParseColor(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseColor(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "#fff", "#12345g", "red", "#ff80001"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("ParseColor(%q) should fail", bad)
		}
	}
}

func TestColorJSON(t *testing.T) {
	c := Color{R: 0x12, G: 0xab, B: 0xff}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"#12abff"` {
		t.Fatalf("unexpected encoding %s", data)
	}
	var back Color
	if err := json.Unmarshal(data, &back); err != nil || back != c {
		t.Fatalf("round trip = %v, %v", back, err)
	}
	if err := json.Unmarshal([]byte(`"blue"`), &back); err == nil {
		t.Fatalf("expected error for named color")
	}
}

func TestColorComponents(t *testing.T) {
	r, g, b := Color{R: 255, G: 0, B: 51}.Components()
	if r != 1 || g != 0 || b != 0.2 {
		t.Fatalf("unexpected components %v %v %v", r, g, b)
	}
}
