// rect_test.go - tests for Rect algebra

package display

import "testing"

func TestRectExtendEmptyOperand(t *testing.T) {
	r := NewRect(10, 10, 5, 5)
	got := r.Extend(Rect{})
	if got != r {
		t.Fatalf("Extend with empty operand changed rect: got %+v, want %+v", got, r)
	}
}

func TestRectExtendEmptyReceiver(t *testing.T) {
	other := NewRect(1, 2, 3, 4)
	got := Rect{}.Extend(other)
	if got != other {
		t.Fatalf("Extend on empty receiver should adopt other: got %+v, want %+v", got, other)
	}
}

func TestRectExtendUnion(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 10, 10)
	got := a.Extend(b)
	want := Rect{Left: 0, Top: 0, Right: 15, Bottom: 15}
	if got != want {
		t.Fatalf("Extend union: got %+v, want %+v", got, want)
	}
}

func TestRectConstrainIntersection(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(5, 5, 10, 10)
	got := a.Constrain(b)
	want := Rect{Left: 5, Top: 5, Right: 10, Bottom: 10}
	if got != want {
		t.Fatalf("Constrain: got %+v, want %+v", got, want)
	}
}

func TestRectConstrainDisjointIsEmpty(t *testing.T) {
	a := NewRect(0, 0, 5, 5)
	b := NewRect(100, 100, 5, 5)
	if !a.Constrain(b).IsEmpty() {
		t.Fatalf("disjoint rects should constrain to empty")
	}
}

func TestRectAlign(t *testing.T) {
	r := Rect{Left: 1, Top: 1, Right: 65, Bottom: 65}
	got := r.Align(6) // 2^6 == 64
	want := Rect{Left: 0, Top: 0, Right: 128, Bottom: 128}
	if got != want {
		t.Fatalf("Align: got %+v, want %+v", got, want)
	}
}

func TestRectShrinkPreservesAspect(t *testing.T) {
	r := NewRect(0, 0, 200, 100)
	got := r.Shrink(100, 100)
	if got.Width() != 100 || got.Height() != 50 {
		t.Fatalf("Shrink: got %dx%d, want 100x50", got.Width(), got.Height())
	}
}

func TestRectShrinkNoOpWhenFits(t *testing.T) {
	r := NewRect(0, 0, 50, 50)
	got := r.Shrink(100, 100)
	if got != r {
		t.Fatalf("Shrink should be a no-op when r already fits: got %+v, want %+v", got, r)
	}
}

func TestRectIntersects(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	b := NewRect(9, 9, 10, 10)
	if !a.Intersects(b) {
		t.Fatalf("expected overlap")
	}
	c := NewRect(20, 20, 10, 10)
	if a.Intersects(c) {
		t.Fatalf("expected no overlap")
	}
}

func TestNewRectClampsNegativeSize(t *testing.T) {
	r := NewRect(5, 5, -1, -1)
	if !r.IsEmpty() {
		t.Fatalf("negative size should produce an empty rect, got %+v", r)
	}
}
