// plan.go - the five-pass planner: pass 0 (draft) plus the orchestration
// that runs passes 1-5 and appends the END_FRAME sentinel.
//
// Passes 1-5 live in plan_rect.go, plan_search.go and plan_combine.go;
// this file only holds the Plan container, pass 0, and the driver.

package display

// Plan owns the frame-end sequence number and the array of operations the
// five passes discover, optimise and combine. Ops grows by append as pass
// 0 discovers IMG ops, and the driver ends it with one END_FRAME sentinel.
type Plan struct {
	display  *Display
	frameSeq int64
	Ops      []*PlanOp
	opsByHash map[uint16]*PlanOp
}

// PlanCreate runs the five-pass planner against d's pending and last frame
// state. The caller must already hold the pending write lock and at least
// read access to the last frame lock (reentrant acquisition of the latter
// is safe if the caller already holds its write lock, per Rwlock's
// upgrade/re-entry semantics). Returns nil if no layer is dirty.
func PlanCreate(d *Display) *Plan {
	p := &Plan{display: d, frameSeq: d.frameSeq}

	if !pass0Draft(p) {
		return nil
	}
	pass1Rectangles(p)
	pass2Index(p)
	pass3Copies(p)
	pass4CombineHorizontal(p)
	pass5CombineVertical(p)

	p.Ops = append(p.Ops, &PlanOp{Type: OpEndFrame, FrameSeq: p.frameSeq})
	return p
}

// pass0Draft discovers dirty cells for every pending-dirty layer and
// produces one IMG op per dirty cell. Returns false (and leaves p.Ops
// empty) if nothing is dirty anywhere, in which case PlanCreate is a
// no-op per spec.
func pass0Draft(p *Plan) bool {
	any := false
	for _, h := range p.display.pendingOrder {
		layer, ok := p.display.layers[h]
		if !ok {
			continue // freed between enumeration and lookup; skip, don't stall the walk
		}
		if layer.Pending.Buffer == nil {
			continue // spec.md open question: skip-and-advance, not a stall
		}
		if layer.Pending.Dirty.IsEmpty() {
			continue
		}
		if draftLayer(p, layer) {
			any = true
		}
	}
	return any
}

// draftLayer aligns a layer's pending dirty rect to the cell grid, then
// for every dirty cell compares the pending buffer to the last frame row
// by row, producing one IMG op per cell that actually differs. It
// recomputes the layer's pending dirty rect as the union of the ops it
// produced.
func draftLayer(p *Plan, layer *Layer) bool {
	bounds := Rect{Right: layer.Pending.Width, Bottom: layer.Pending.Height}
	dirty := layer.Pending.Dirty.Constrain(bounds)
	if dirty.IsEmpty() {
		return false
	}

	cx0, cy0, cx1, cy1 := layer.Cells.Bounds(dirty)
	newDirty := Rect{}
	any := false

	lastBuf := layer.Last.Buffer
	lastW, lastH := layer.Last.Width, layer.Last.Height

	for cy := cy0; cy < cy1; cy++ {
		for cx := cx0; cx < cx1; cx++ {
			cellRect := Rect{
				Left: cx * CellSize, Top: cy * CellSize,
				Right: min((cx+1)*CellSize, layer.Pending.Width), Bottom: min((cy+1)*CellSize, layer.Pending.Height),
			}
			cellDirty := diffCell(layer, lastBuf, lastW, lastH, cellRect)
			if cellDirty.dirty.IsEmpty() {
				continue
			}
			cell := layer.Cells.At(cx, cy)
			prevSeq := cell.touchedAt
			cell.touchedAt = p.frameSeq
			cell.dirty = cellDirty.dirty
			cell.dirtySize = cellDirty.size

			op := &PlanOp{
				Dest:      layer.Handle,
				Type:      OpImg,
				DestRect:  cellDirty.dirty,
				DirtySize: cellDirty.size,
				PrevSeq:   prevSeq,
				FrameSeq:  p.frameSeq,
			}
			cell.op = op
			op.cells = append(op.cells, cell)
			p.Ops = append(p.Ops, op)
			newDirty = newDirty.Extend(cellDirty.dirty)
			any = true
		}
	}
	layer.Pending.Dirty = newDirty
	return any
}

type cellDiff struct {
	dirty Rect
	size  int
}

// diffCell compares one cell's worth of pixels between the pending buffer
// and the last frame, row by row, using a word comparator to find the
// minimal differing run per row. Pixels with no corresponding last-frame
// row/column (outside the last frame's logical bounds) are treated as
// inherently dirty since there is nothing to compare against.
func diffCell(layer *Layer, lastBuf *PixelBuffer, lastW, lastH int, cellRect Rect) cellDiff {
	pending := layer.Pending.Buffer
	var out cellDiff

	for y := cellRect.Top; y < cellRect.Bottom; y++ {
		rowLen := cellRect.Width()
		pendingRowOff := y * pending.Stride
		pendingStart := pendingRowOff + cellRect.Left*bytesPerPixel

		if lastBuf == nil || y >= lastH {
			out.dirty = out.dirty.Extend(NewRect(cellRect.Left, y, rowLen, 1))
			out.size += rowLen
			continue
		}

		compareLen := min(rowLen, max(0, lastW-cellRect.Left))
		if compareLen < rowLen {
			// Tail of the row has no last-frame counterpart: inherently dirty.
			out.dirty = out.dirty.Extend(NewRect(cellRect.Left+compareLen, y, rowLen-compareLen, 1))
			out.size += rowLen - compareLen
		}
		if compareLen <= 0 {
			continue
		}

		lastRowOff := y * lastBuf.Stride
		lastStart := lastRowOff + cellRect.Left*bytesPerPixel
		start, length := compareRow(pending.Data, lastBuf.Data, pendingStart, lastStart, compareLen)
		if length > 0 {
			out.dirty = out.dirty.Extend(NewRect(cellRect.Left+start, y, length, 1))
			out.size += length
		}
	}
	return out
}
