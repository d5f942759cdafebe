// layer.go - layer state, pixel buffers, and the raw/vector drawing
// contexts back-ends use to mutate a layer's pending frame.

package display

import "fmt"

// LayerHandle addresses a layer by a stable integer id rather than an
// embedded pointer, so membership in the pending/last frame lists is a
// plain slice of handles instead of an intrusive doubly-linked list —
// traversal is iteration, mutation during a walk is an explicit cursor
// index, and there is nothing to fix up when a layer is freed.
type LayerHandle int

// PixelBuffer is a layer's physical ARGB surface. An external buffer is
// owned by a back-end (or other collaborator) rather than by the engine;
// the engine may read it but must never free it, and the back-end must
// not free it while a worker may still be reading it — it first nils the
// buffer via CloseRaw, or the caller stops the display outright.
type PixelBuffer struct {
	Data     []byte
	Width    int // physical width in pixels
	Height   int // physical height in pixels
	Stride   int // bytes per row
	External bool
}

func newOwnedBuffer(width, height int) *PixelBuffer {
	w := roundUpResize(width)
	h := roundUpResize(height)
	stride := MustMul(w, bytesPerPixel)
	return &PixelBuffer{
		Data:   make([]byte, MustMul(stride, h)),
		Width:  w,
		Height: h,
		Stride: stride,
	}
}

// LayerState is one of the two double-buffered snapshots (pending or
// last) a Layer carries.
type LayerState struct {
	Width, Height int // logical dimensions, <= buffer dimensions
	Opacity       uint8
	Parent        LayerHandle
	X, Y, Z       int
	TouchCapacity int
	Lossless      bool
	Buffer        *PixelBuffer
	Dirty         Rect
	SearchCopies  bool
	FrameSeq      int64 // frame sequence this state was last committed at
}

func (s *LayerState) isOpaque() bool { return s.Opacity == 0xFF }

// Layer owns a pending and a last LayerState plus the cell grid that
// tracks pending-frame changes at CellSize granularity.
type Layer struct {
	Handle  LayerHandle
	Pending LayerState
	Last    LayerState
	Cells   *CellGrid
	Opaque  bool

	vector *vectorSurface // cached vector-graphics surface, nil if unused
}

// newLayer creates a layer with an owned buffer of the given logical size.
func newLayer(handle LayerHandle, width, height int) *Layer {
	width = clampDim(width)
	height = clampDim(height)
	buf := newOwnedBuffer(width, height)
	l := &Layer{
		Handle: handle,
		Pending: LayerState{
			Width: width, Height: height,
			Opacity: 0xFF, TouchCapacity: 0,
			Buffer: buf,
		},
		Cells: NewCellGrid(buf.Width, buf.Height),
	}
	return l
}

// newExternalLayer creates a layer whose pending buffer is owned by a
// back-end from the start.
func newExternalLayer(handle LayerHandle, width, height, stride int, data []byte) *Layer {
	width = clampDim(width)
	height = clampDim(height)
	buf := &PixelBuffer{Data: data, Width: width, Height: height, Stride: stride, External: true}
	l := &Layer{
		Handle: handle,
		Pending: LayerState{
			Width: width, Height: height,
			Opacity: 0xFF,
			Buffer:  buf,
		},
		Cells: NewCellGrid(width, height),
	}
	return l
}

// RawContext is the handle a back-end holds between OpenRaw and CloseRaw.
// Mutating Buffer and re-assigning it before CloseRaw is how a back-end
// swaps in a zero-copy external buffer.
type RawContext struct {
	layer    *Layer
	Buffer   *PixelBuffer
	Dirty    Rect // accumulated by the caller as it draws
	HintFrom LayerHandle
}

// UnionDirty extends the context's dirty rect, clamped to the buffer's
// physical bounds. Back-ends call this as they write pixels.
func (c *RawContext) UnionDirty(r Rect) {
	bounds := Rect{Right: c.Buffer.Width, Bottom: c.Buffer.Height}
	c.Dirty = c.Dirty.Extend(r.Constrain(bounds))
}

// openRawLocked returns a RawContext for layer, assuming the pending
// write lock is already held by the caller (Display.OpenRaw). Any cached
// vector surface is invalidated since raw and vector access cannot safely
// interleave without re-validating the cache.
func openRawLocked(l *Layer) *RawContext {
	l.vector = nil
	return &RawContext{layer: l, Buffer: l.Pending.Buffer}
}

// closeRawLocked commits ctx back into l.Pending, assuming the pending
// write lock is held by the caller.
func closeRawLocked(l *Layer, ctx *RawContext) error {
	if ctx.Buffer != l.Pending.Buffer {
		if ctx.Buffer == nil {
			// The back-end released its buffer; pass 0 skips a layer
			// with no pending buffer.
			l.Pending.Buffer = nil
			return nil
		}
		if l.Pending.Buffer != nil && !l.Pending.Buffer.External {
			l.Pending.Buffer = nil // release ownership before dropping the reference
		}
		ctx.Buffer.External = true
		l.Pending.Buffer = ctx.Buffer
		l.Pending.Width = clampDim(ctx.Buffer.Width)
		l.Pending.Height = clampDim(ctx.Buffer.Height)
		l.Cells.Resize(ctx.Buffer.Width, ctx.Buffer.Height)
	}
	l.Pending.Dirty = l.Pending.Dirty.Extend(ctx.Dirty)
	return nil
}

// resizeBuffer grows or replaces l's owned pending buffer to cover
// (width, height) logical pixels, rounding physical dimensions up to a
// multiple of ResizeFactor. If the rounded size fits inside the current
// owned buffer (any shrink does), the buffer is kept and only the logical
// size changes. Otherwise - a grow in either axis, or an external buffer -
// a new owned buffer is allocated, existing pixels are copied row-by-row
// respecting the old and new strides, and the cell grid is resized to
// match.
func resizeBuffer(l *Layer, width, height int) error {
	width = clampDim(width)
	height = clampDim(height)
	newPhysW := roundUpResize(width)
	newPhysH := roundUpResize(height)

	old := l.Pending.Buffer
	if old != nil && !old.External && newPhysW == old.Width && newPhysH == old.Height {
		l.Pending.Width, l.Pending.Height = width, height
		return nil
	}
	if old != nil && !old.External && newPhysW <= old.Width && newPhysH <= old.Height {
		l.Pending.Width, l.Pending.Height = width, height
		return nil
	}

	newBuf := newOwnedBuffer(width, height)
	if old != nil {
		copyRows := min(old.Height, newBuf.Height)
		copyBytes := min(old.Stride, newBuf.Stride)
		for y := 0; y < copyRows; y++ {
			srcOff := y * old.Stride
			dstOff := y * newBuf.Stride
			copy(newBuf.Data[dstOff:dstOff+copyBytes], old.Data[srcOff:srcOff+copyBytes])
		}
	}
	l.Pending.Buffer = newBuf
	l.Pending.Width, l.Pending.Height = width, height
	l.Cells.Resize(newBuf.Width, newBuf.Height)
	return nil
}

// commitLayerSnapshot refreshes l's server-side last-frame snapshot from
// its pending state, as part of frame commit: a full reallocate-and-copy
// if the physical buffer dimensions changed, otherwise only the rows the
// pending dirty rect covers. Last.Dirty is left holding the rect that was
// just copied (empty if nothing was) so the worker closing this frame
// knows which layers actually need their client-side backing buffer
// refreshed this round.
func commitLayerSnapshot(l *Layer) {
	pb := l.Pending.Buffer
	if pb == nil {
		l.Last.Dirty = Rect{}
		return
	}
	dirty := l.Pending.Dirty

	if l.Last.Buffer == nil || l.Last.Buffer.Width != pb.Width || l.Last.Buffer.Height != pb.Height {
		newBuf := &PixelBuffer{Data: make([]byte, len(pb.Data)), Width: pb.Width, Height: pb.Height, Stride: pb.Stride}
		copy(newBuf.Data, pb.Data)
		l.Last.Buffer = newBuf
		dirty = Rect{Right: l.Pending.Width, Bottom: l.Pending.Height}
	} else if !dirty.IsEmpty() {
		for y := dirty.Top; y < dirty.Bottom; y++ {
			rowOff := y * pb.Stride
			start := rowOff + dirty.Left*bytesPerPixel
			end := rowOff + dirty.Right*bytesPerPixel
			copy(l.Last.Buffer.Data[start:end], pb.Data[start:end])
		}
	}

	l.Last.Width, l.Last.Height = l.Pending.Width, l.Pending.Height
	l.Last.Opacity = l.Pending.Opacity
	l.Last.Parent, l.Last.X, l.Last.Y, l.Last.Z = l.Pending.Parent, l.Pending.X, l.Pending.Y, l.Pending.Z
	l.Last.TouchCapacity = l.Pending.TouchCapacity
	l.Last.SearchCopies = l.Pending.SearchCopies
	l.Last.Lossless = l.Pending.Lossless
	l.Last.FrameSeq = l.Pending.FrameSeq
	l.Last.Dirty = dirty
}

// vectorSurface is a minimal stand-in for a cached Cairo-style drawing
// surface: it remembers the buffer it was built against so a resize or
// buffer replacement can be detected and the cache dropped.
type vectorSurface struct {
	builtAgainst *PixelBuffer
}

// VectorContext is the analogue of RawContext for vector-graphics
// drawing: the underlying surface is cached across open/close cycles
// rather than rebuilt every call, as long as the buffer it was built
// against hasn't changed identity.
type VectorContext struct {
	layer   *Layer
	Buffer  *PixelBuffer
	Dirty   Rect
	Surface *vectorSurface
}

func (c *VectorContext) UnionDirty(r Rect) {
	bounds := Rect{Right: c.Buffer.Width, Bottom: c.Buffer.Height}
	c.Dirty = c.Dirty.Extend(r.Constrain(bounds))
}

// openVectorLocked returns a VectorContext for l, reusing the cached
// surface when the pending buffer's identity hasn't changed since it was
// built, and assumes the pending write lock is held by the caller.
func openVectorLocked(l *Layer) *VectorContext {
	if l.vector == nil || l.vector.builtAgainst != l.Pending.Buffer {
		l.vector = &vectorSurface{builtAgainst: l.Pending.Buffer}
	}
	return &VectorContext{layer: l, Buffer: l.Pending.Buffer, Surface: l.vector}
}

// closeVectorLocked commits a VectorContext's accumulated dirty rect,
// assuming the pending write lock is held by the caller. If the buffer
// was replaced mid-context it returns an error and commits nothing; the
// cached surface is left in place, and the next open rebuilds it because
// its buffer identity no longer matches.
func closeVectorLocked(l *Layer, ctx *VectorContext) error {
	if ctx.Buffer != l.Pending.Buffer {
		return fmt.Errorf("display: vector context buffer changed underneath layer %d", l.Handle)
	}
	l.Pending.Dirty = l.Pending.Dirty.Extend(ctx.Dirty)
	return nil
}
