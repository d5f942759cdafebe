// rect.go - inclusive-left/top, exclusive-right/bottom integer rectangles.

package display

// Rect is a half-open rectangle: [Left, Right) x [Top, Bottom). Equality of
// an edge pair (Left == Right or Top == Bottom) encodes an empty rectangle.
type Rect struct {
	Left, Top, Right, Bottom int
}

// NewRect builds a rect from an origin and a size, clamping negative
// dimensions to zero rather than producing an inverted rect.
func NewRect(x, y, w, h int) Rect {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Rect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// IsEmpty reports whether the rect covers zero area.
func (r Rect) IsEmpty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Width returns the rect's width, clamped to zero for an inverted rect.
func (r Rect) Width() int {
	if r.Right <= r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the rect's height, clamped to zero for an inverted rect.
func (r Rect) Height() int {
	if r.Bottom <= r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// Extend returns the union of r and other. An empty operand contributes
// nothing; if r itself is empty it adopts other's coordinates wholesale so
// the result never mixes a garbage edge from the empty side.
func (r Rect) Extend(other Rect) Rect {
	if other.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return other
	}
	return Rect{
		Left:   min(r.Left, other.Left),
		Top:    min(r.Top, other.Top),
		Right:  max(r.Right, other.Right),
		Bottom: max(r.Bottom, other.Bottom),
	}
}

// Constrain returns the intersection of r and other. The result may be
// empty if the two rects do not overlap.
func (r Rect) Constrain(other Rect) Rect {
	return Rect{
		Left:   max(r.Left, other.Left),
		Top:    max(r.Top, other.Top),
		Right:  min(r.Right, other.Right),
		Bottom: min(r.Bottom, other.Bottom),
	}
}

// Align expands every edge outward to the nearest multiple of 2^bits.
func (r Rect) Align(bits uint) Rect {
	mask := (1 << bits) - 1
	return Rect{
		Left:   r.Left &^ mask,
		Top:    r.Top &^ mask,
		Right:  (r.Right + mask) &^ mask,
		Bottom: (r.Bottom + mask) &^ mask,
	}
}

// Shrink scales r down to fit within w x h, preserving aspect ratio by
// choosing the smaller of the two candidate scale ratios. The comparison
// is done with integer cross-multiplication so no float rounding can tip
// the choice the wrong way.
func (r Rect) Shrink(w, h int) Rect {
	rw, rh := r.Width(), r.Height()
	if rw <= 0 || rh <= 0 || w <= 0 || h <= 0 {
		return Rect{Left: r.Left, Top: r.Top, Right: r.Left, Bottom: r.Top}
	}
	if rw <= w && rh <= h {
		return r
	}
	// ratioW = w/rw, ratioH = h/rh; pick the smaller without division.
	// w*rh vs h*rw: if w*rh <= h*rw, ratioW <= ratioH.
	var newW, newH int
	if w*rh <= h*rw {
		newW = w
		newH = (rh*w + rw/2) / rw
	} else {
		newH = h
		newW = (rw*h + rh/2) / rh
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return NewRect(r.Left, r.Top, newW, newH)
}

// Intersects reports whether r and other share at least one pixel.
func (r Rect) Intersects(other Rect) bool {
	return !r.Constrain(other).IsEmpty()
}
