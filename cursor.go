// cursor.go - built-in cursor bitmaps and the mouse/cursor state the
// render thread tracks outside the normal layer set.

package display

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// BuiltinCursor names one of the engine's built-in cursor images, sent
// over the wire as a "cursor" instruction rather than as pixel data.
type BuiltinCursor int

const (
	CursorNone BuiltinCursor = iota
	CursorDot
	CursorIBar
	CursorPointer
)

func (c BuiltinCursor) String() string {
	switch c {
	case CursorNone:
		return "none"
	case CursorDot:
		return "dot"
	case CursorIBar:
		return "ibar"
	case CursorPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// cursorSpec describes one built-in cursor's fixed geometry: the hotspot
// is the pixel within the bitmap the reported mouse position refers to.
type cursorSpec struct {
	width, height  int
	hotX, hotY     int
}

var builtinCursors = map[BuiltinCursor]cursorSpec{
	CursorNone:    {0, 0, 0, 0},
	CursorDot:     {8, 8, 4, 4},
	CursorIBar:    {8, 16, 4, 8},
	CursorPointer: {24, 24, 0, 0},
}

// cursorState tracks the render thread's view of the mouse: which
// built-in (or custom layer) cursor is active, its hotspot, and the last
// reported position, so NotifyUserMovedMouse can decide whether a
// mouse-only frame needs to be emitted at all.
type cursorState struct {
	builtin    BuiltinCursor
	customized bool
	hotX, hotY int
	x, y       int
	moved      bool
}

func newCursorState() *cursorState {
	return &cursorState{builtin: CursorPointer, hotX: 0, hotY: 0}
}

// setBuiltin switches to one of the fixed built-in cursors, clearing any
// custom-layer hotspot override.
func (c *cursorState) setBuiltin(b BuiltinCursor) {
	spec := builtinCursors[b]
	c.builtin = b
	c.customized = false
	c.hotX, c.hotY = spec.hotX, spec.hotY
}

// setCustomHotspot records a hotspot for a cursor whose pixels come from
// a caller-owned layer rather than a built-in bitmap.
func (c *cursorState) setCustomHotspot(x, y int) {
	c.customized = true
	c.hotX, c.hotY = x, y
}

// move records a new mouse position, returning whether it actually
// changed - a render thread can skip emitting a mouse instruction for a
// position that hasn't moved.
func (c *cursorState) move(x, y int) bool {
	if c.x == x && c.y == y {
		return false
	}
	c.x, c.y = x, y
	c.moved = true
	return true
}

// SetCursorLayer designates an existing layer's pending buffer as the
// active custom mouse cursor image. If the layer's logical dimensions
// differ from the cursor layer's, the cursor layer is resized to the
// source's logical size and the source buffer is resampled into it with a
// high-quality filter rather than nearest-neighbour cropping, since a
// cursor bitmap is small enough that resampling cost is negligible and
// visual fidelity at that size matters more. Otherwise the source's pixel
// bytes are copied across unchanged.
func (d *Display) SetCursorLayer(h LayerHandle, hotX, hotY int) error {
	d.pending.Lock()
	defer d.pending.Unlock()

	src, ok := d.layers[h]
	if !ok {
		return ErrUnknownLayer
	}
	cursorLayer, ok := d.layers[d.cursorHandle]
	if !ok {
		return ErrUnknownLayer
	}

	if src.Pending.Width != cursorLayer.Pending.Width || src.Pending.Height != cursorLayer.Pending.Height {
		if err := resizeBuffer(cursorLayer, src.Pending.Width, src.Pending.Height); err != nil {
			return err
		}
		resampleInto(cursorLayer.Pending.Buffer, src.Pending.Buffer)
	} else {
		copy(cursorLayer.Pending.Buffer.Data, src.Pending.Buffer.Data)
	}
	cursorLayer.Pending.Dirty = Rect{Right: cursorLayer.Pending.Width, Bottom: cursorLayer.Pending.Height}

	d.cursor.customized = true
	d.cursor.hotX, d.cursor.hotY = hotX, hotY
	return nil
}

// resampleInto scales src's whole physical buffer (Width x Height, which
// is rounded up past the logical size) to fill dst's physical buffer, using
// x/image/draw's higher-quality interpolation rather than a block-aligned
// nearest copy - cursor images are small and repainted rarely, so the
// extra quality is effectively free. Pixels are unpacked/repacked through
// buildNRGBA's 0xAARRGGBB word layout rather than aliasing the buffer's
// raw bytes, which would get the channel order wrong on a little-endian
// host.
func resampleInto(dst, src *PixelBuffer) {
	srcImg := buildNRGBA(src, Rect{Right: src.Width, Bottom: src.Height})
	dstImg := image.NewNRGBA(image.Rect(0, 0, dst.Width, dst.Height))
	xdraw.CatmullRom.Scale(dstImg, dstImg.Bounds(), srcImg, srcImg.Bounds(), draw.Over, nil)

	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			off := dstImg.PixOffset(x, y)
			r, g, b, a := dstImg.Pix[off], dstImg.Pix[off+1], dstImg.Pix[off+2], dstImg.Pix[off+3]
			v := uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
			writePixel(dst.Data, x, y, dst.Stride, v)
		}
	}
}
