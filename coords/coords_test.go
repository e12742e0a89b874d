package coords

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMultiplyAndTransform(t *testing.T) {
	m := Scale(2, 3).Multiply(Translate(10, 20))
	p := m.Transform(Point{X: 1, Y: 1})
	if !near(p.X, 12) || !near(p.Y, 23) {
		t.Fatalf("unexpected point %+v", p)
	}
}

func TestInverse(t *testing.T) {
	m := Rotate(math.Pi / 3).Multiply(Translate(5, -7))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	got := m.Multiply(inv)
	for i, want := range Identity() {
		if !near(got[i], want) {
			t.Fatalf("m×inv != identity: %v", got)
		}
	}
	if _, err := Scale(0, 1).Inverse(); err == nil {
		t.Fatalf("expected singular matrix error")
	}
}

func TestFromTopAndPlacement(t *testing.T) {
	r := FromTop(50, 100, 200, 40, 792)
	if r != (Rect{LLX: 50, LLY: 652, URX: 250, URY: 692}) {
		t.Fatalf("unexpected rect %+v", r)
	}
	if got := r.Placement(); got != (Matrix{200, 0, 0, 40, 50, 652}) {
		t.Fatalf("unexpected placement %v", got)
	}
}

func TestVerticalScale(t *testing.T) {
	cases := []struct {
		name string
		m    Matrix
		want float64
	}{
		{"identity", Identity(), 1},
		{"scale", Scale(3, 10), 10},
		{"quarter turn", Matrix{0, 10, -10, 0, 300, 200}, 10},
		{"rotated scale", Scale(4, 4).Multiply(Rotate(math.Pi / 6)), 4},
		{"scale then quarter turn", Scale(3, 3).Multiply(Rotate(math.Pi / 2)), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.VerticalScale(); !near(got, tc.want) {
				t.Fatalf("VerticalScale() = %v, want %v", got, tc.want)
			}
		})
	}
}
