// plan_test.go - tests for the five-pass planner, using a Display built
// directly (not via NewDisplay) so tests can drive PlanCreate without a
// live worker pool or render thread.

package display

import "testing"

func newTestDisplay() *Display {
	return &Display{
		pending: NewRwlock(),
		last:    NewRwlock(),
		layers:  make(map[LayerHandle]*Layer),
	}
}

func addTestLayer(d *Display, handle LayerHandle, w, h int) *Layer {
	l := newLayer(handle, w, h)
	d.layers[handle] = l
	d.pendingOrder = append(d.pendingOrder, handle)
	d.lastOrder = append(d.lastOrder, handle)
	return l
}

// addTestLayerWithLast is like addTestLayer but also allocates a Last
// buffer, for tests that need last-frame content to diff or search against.
func addTestLayerWithLast(d *Display, handle LayerHandle, w, h int) *Layer {
	l := addTestLayer(d, handle, w, h)
	l.Last = LayerState{
		Width: w, Height: h,
		Opacity: 0xFF,
		Buffer:  newOwnedBuffer(w, h),
	}
	return l
}

func fillUniform(buf *PixelBuffer, rect Rect, v uint32) {
	for y := rect.Top; y < rect.Bottom; y++ {
		for x := rect.Left; x < rect.Right; x++ {
			writePixel(buf.Data, x, y, buf.Stride, v)
		}
	}
}

func TestPlanCreateNilWhenNothingDirty(t *testing.T) {
	d := newTestDisplay()
	addTestLayer(d, 1, 128, 128)
	d.frameSeq = 1
	if p := PlanCreate(d); p != nil {
		t.Fatalf("expected nil plan, got %d ops", len(p.Ops))
	}
}

func TestPlanCreateFirstFrameProducesOpsAndEndFrame(t *testing.T) {
	d := newTestDisplay()
	l := addTestLayer(d, 1, 128, 128)
	l.Pending.Dirty = Rect{Right: 128, Bottom: 128}
	d.frameSeq = 1

	p := PlanCreate(d)
	if p == nil {
		t.Fatalf("expected a plan")
	}
	drawOps := 0
	for _, op := range p.Ops {
		if op.Type != OpNOP && op.Type != OpEndFrame {
			drawOps++
		}
	}
	if drawOps == 0 {
		t.Fatalf("first frame with no last buffer should draft at least one op")
	}
	if p.Ops[len(p.Ops)-1].Type != OpEndFrame {
		t.Fatalf("last op should be END_FRAME, got %v", p.Ops[len(p.Ops)-1].Type)
	}
}

func TestPlanCreateUniformCellBecomesRect(t *testing.T) {
	d := newTestDisplay()
	l := addTestLayer(d, 1, 64, 64)
	fillUniform(l.Pending.Buffer, Rect{Right: 64, Bottom: 64}, 0xFF112233)
	l.Pending.Dirty = Rect{Right: 64, Bottom: 64}
	d.frameSeq = 1

	p := PlanCreate(d)
	if p == nil {
		t.Fatalf("expected a plan")
	}
	found := false
	for _, op := range p.Ops {
		if op.Type == OpRect {
			found = true
			if op.Color != 0xFF112233 {
				t.Fatalf("got color %#x, want %#x", op.Color, 0xFF112233)
			}
		}
	}
	if !found {
		t.Fatalf("uniform cell should have been rewritten to RECT")
	}
}

func TestPlanCreateSkipsLayerWithNilBuffer(t *testing.T) {
	d := newTestDisplay()
	l := addTestLayer(d, 1, 64, 64)
	l.Pending.Buffer = nil
	l.Pending.Dirty = Rect{Right: 64, Bottom: 64}
	d.frameSeq = 1

	if p := PlanCreate(d); p != nil {
		t.Fatalf("expected nil plan when the only dirty layer has no buffer")
	}
}

func TestPlanCreateOnlyDirtyRegionDrafted(t *testing.T) {
	d := newTestDisplay()
	l := addTestLayer(d, 1, 128, 128)
	l.Pending.Dirty = NewRect(0, 0, 64, 64) // only the top-left cell
	d.frameSeq = 1

	p := PlanCreate(d)
	if p == nil {
		t.Fatalf("expected a plan")
	}
	for _, op := range p.Ops {
		if op.Type == OpEndFrame {
			continue
		}
		if op.DestRect.Left >= 64 || op.DestRect.Top >= 64 {
			t.Fatalf("op outside the dirtied cell was drafted: %+v", op.DestRect)
		}
	}
}
