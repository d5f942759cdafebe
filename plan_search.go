// plan_search.go - pass 2 (hash index) and pass 3 (copy discovery).
//
// Every layer has a paired client-side "backing buffer" identity — a
// hidden twin the client already holds a copy of the previous frame in —
// addressed via Display.bufferHandleOf. A COPY op's source is always that
// backing buffer, never the visible layer directly, so a copy instruction
// only ever asks the client to duplicate pixels it is already holding
// (see worker.go's END_FRAME handling, which, after each frame closes,
// refreshes the backing buffer of every layer whose last-frame snapshot
// changed that round).

package display

const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// pass2Index builds p.opsByHash: for every IMG op, the 64x64 cell
// anchored at its destination is hashed (when that cell lies entirely
// within the layer's physical bounds) and recorded under a 16-bit fold of
// the hash. First writer wins on collision.
func pass2Index(p *Plan) {
	p.opsByHash = make(map[uint16]*PlanOp, len(p.Ops))
	for _, op := range p.Ops {
		if op.Type != OpImg {
			continue
		}
		layer, ok := p.display.layers[op.Dest]
		if !ok {
			continue
		}
		buf := layer.Pending.Buffer
		cx := (op.DestRect.Left / CellSize) * CellSize
		cy := (op.DestRect.Top / CellSize) * CellSize
		if cx+CellSize > buf.Width || cy+CellSize > buf.Height {
			continue
		}
		key := hash16(cellHash64(buf, cx, cy))
		if _, exists := p.opsByHash[key]; !exists {
			p.opsByHash[key] = op
		}
	}
}

// pass3Copies slides a 64x64 window across each search-enabled layer's
// dirty/last-frame intersection in the last-frame buffer, looking for a
// last-frame region that byte-exactly matches the pending-frame cell of
// some IMG op already indexed by pass 2.
func pass3Copies(p *Plan) {
	for h, layer := range p.display.layers {
		_ = h
		if !layer.Pending.SearchCopies || len(p.opsByHash) == 0 {
			continue
		}
		searchLayer(p, layer)
	}
}

func searchLayer(p *Plan, layer *Layer) {
	lastBuf := layer.Last.Buffer
	if lastBuf == nil {
		return
	}
	lastBounds := Rect{Right: layer.Last.Width, Bottom: layer.Last.Height}
	window := lastBounds.Constrain(layer.Pending.Dirty)
	if window.Width() < CellSize || window.Height() < CellSize {
		return
	}

	pending := layer.Pending.Buffer
	bufHandle := p.display.bufferHandleOf(layer.Handle)

	for y := window.Top; y+CellSize <= window.Bottom; y++ {
		for x := window.Left; x+CellSize <= window.Right; x++ {
			h := cellHash64(lastBuf, x, y)
			key := hash16(h)
			candidate, ok := p.opsByHash[key]
			if !ok {
				continue
			}
			srcRect := NewRect(x, y, CellSize, CellSize)
			if !blockBytesEqual(pending, candidate.DestRect, lastBuf, srcRect) {
				continue
			}
			rewriteAsCopy(candidate, bufHandle, srcRect)
			delete(p.opsByHash, key) // one source per op
		}
	}
}

func rewriteAsCopy(op *PlanOp, sourceLayer LayerHandle, srcRect Rect) {
	op.Type = OpCopy
	op.Copy = CopySource{SourceLayer: sourceLayer, SourceRect: srcRect}
	// Destination clamps to the cell the source candidate was drafted for;
	// DestRect already is that cell's rect from pass 0.
}

// cellHash64 computes a rolling 64-bit hash over a 64x64 pixel block
// anchored at (x0, y0), folding a per-row FNV-1a hash for each of the 64
// rows.
func cellHash64(buf *PixelBuffer, x0, y0 int) uint64 {
	h := fnvOffset64
	for row := 0; row < CellSize; row++ {
		rh := rowHash64(buf, x0, y0+row)
		h = (h ^ rh) * fnvPrime64
	}
	return h
}

func rowHash64(buf *PixelBuffer, x0, y int) uint64 {
	h := fnvOffset64
	rowOff := y * buf.Stride
	for i := 0; i < CellSize; i++ {
		off := rowOff + (x0+i)*bytesPerPixel
		h ^= uint64(readPixelAt(buf.Data, off))
		h *= fnvPrime64
	}
	return h
}

func readPixelAt(data []byte, off int) uint32 {
	return uint32(data[off]) | uint32(data[off+1])<<8 | uint32(data[off+2])<<16 | uint32(data[off+3])<<24
}

// hash16 XORs the four 16-bit lanes of a 64-bit hash into the index used
// by opsByHash.
func hash16(h uint64) uint16 {
	return uint16(h) ^ uint16(h>>16) ^ uint16(h>>32) ^ uint16(h>>48)
}

// blockBytesEqual verifies, pixel for pixel, that two equally-sized
// rectangles in two buffers are byte-identical. This is the confirmation
// step after a hash hit, so a 16-bit hash collision can never produce a
// false-positive COPY.
func blockBytesEqual(a *PixelBuffer, ra Rect, b *PixelBuffer, rb Rect) bool {
	w, h := ra.Width(), ra.Height()
	if w != rb.Width() || h != rb.Height() {
		return false
	}
	for y := 0; y < h; y++ {
		aOff := (ra.Top+y)*a.Stride + ra.Left*bytesPerPixel
		bOff := (rb.Top+y)*b.Stride + rb.Left*bytesPerPixel
		rowBytes := w * bytesPerPixel
		for i := 0; i < rowBytes; i++ {
			if a.Data[aOff+i] != b.Data[bOff+i] {
				return false
			}
		}
	}
	return true
}
