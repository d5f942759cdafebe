// plan_rect.go - pass 1: rewrite IMG ops whose destination is a single
// solid colour into RECT ops.

package display

// pass1Rectangles tests every IMG op's destination rectangle for
// uniformity and rewrites it to RECT when the test succeeds.
func pass1Rectangles(p *Plan) {
	for _, op := range p.Ops {
		if op.Type != OpImg {
			continue
		}
		layer, ok := p.display.layers[op.Dest]
		if !ok {
			continue
		}
		if color, uniform := uniformColor(layer, op.DestRect); uniform {
			op.Type = OpRect
			op.Color = color
		}
	}
}

// uniformColor extracts the pixels of rect from layer's pending buffer
// and tests whether they are all the same ARGB value. Opaque layers have
// their alpha channel forced to 0xFF before comparison (and in the
// returned colour) so byte-wise comparison stays meaningful even if the
// backing buffer carries stale alpha.
func uniformColor(layer *Layer, rect Rect) (uint32, bool) {
	buf := layer.Pending.Buffer
	w, h := rect.Width(), rect.Height()
	if w <= 0 || h <= 0 {
		return 0, false
	}
	opaque := layer.Pending.isOpaque()

	px := make([]uint32, 0, w*h)
	for y := rect.Top; y < rect.Bottom; y++ {
		for x := rect.Left; x < rect.Right; x++ {
			v := readPixel(buf.Data, x, y, buf.Stride)
			if opaque {
				v |= 0xFF000000
			}
			px = append(px, v)
		}
	}
	if !isUniformPixels(px) {
		return 0, false
	}
	return px[0], true
}

// isUniformPixels reports whether every element of px is equal, using a
// recursive divide-and-compare: px is uniform iff its first and last
// halves are element-wise identical (covering any unpaired middle element
// when len(px) is odd) and the first half is itself uniform.
func isUniformPixels(px []uint32) bool {
	n := len(px)
	if n <= 1 {
		return true
	}
	half := n / 2
	left := px[:half]
	right := px[n-half:]
	for i := range left {
		if left[i] != right[i] {
			return false
		}
	}
	if n%2 == 1 && px[half] != px[0] {
		return false
	}
	return isUniformPixels(left)
}
