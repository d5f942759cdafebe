// cell.go - 64x64 change-tracking tiles and the pixel comparator pass 0
// runs across them.

package display

import "unsafe"

// Cell tracks change state for one CellSize x CellSize tile of a layer.
type Cell struct {
	touchedAt int64 // frame sequence that last touched this cell
	dirty     Rect  // dirty rect local to the cell's owning layer
	dirtySize int   // approximate dirty pixel count
	op        *PlanOp
}

// CellGrid is a layer's 2-D array of cells, sized ceil(w/64) x ceil(h/64).
type CellGrid struct {
	cols, rows int
	cells      []Cell
}

// NewCellGrid allocates a grid covering a layer of the given pixel size.
func NewCellGrid(width, height int) *CellGrid {
	cols := cellsFor(width)
	rows := cellsFor(height)
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &CellGrid{cols: cols, rows: rows, cells: make([]Cell, cols*rows)}
}

// At returns a pointer to the cell at grid coordinate (cx, cy).
func (g *CellGrid) At(cx, cy int) *Cell {
	return &g.cells[cy*g.cols+cx]
}

// Resize grows (or shrinks) the grid to cover a layer of the given pixel
// size, preserving existing cell state for coordinates that still exist.
func (g *CellGrid) Resize(width, height int) {
	cols := cellsFor(width)
	rows := cellsFor(height)
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if cols == g.cols && rows == g.rows {
		return
	}
	next := make([]Cell, cols*rows)
	copyCols := min(cols, g.cols)
	copyRows := min(rows, g.rows)
	for y := 0; y < copyRows; y++ {
		for x := 0; x < copyCols; x++ {
			next[y*cols+x] = g.cells[y*g.cols+x]
		}
	}
	g.cols, g.rows, g.cells = cols, rows, next
}

// Bounds returns the cell-grid rectangle (in cell coordinates) covering
// the given pixel-space rect, clamped to the grid extent.
func (g *CellGrid) Bounds(pixelRect Rect) (cx0, cy0, cx1, cy1 int) {
	aligned := pixelRect.Align(cellBits)
	cx0 = max(0, aligned.Left/CellSize)
	cy0 = max(0, aligned.Top/CellSize)
	cx1 = min(g.cols, aligned.Right/CellSize)
	cy1 = min(g.rows, aligned.Bottom/CellSize)
	return
}

// compareRow compares count pixels of two ARGB buffers, starting at byte
// offset rowOffsetA in a and rowOffsetB in b, returning the [start, length)
// of the minimal differing run. Word-at-a-time comparison via unsafe.Pointer,
// same technique the teacher's compositor uses for its per-pixel alpha
// test on the blend hot path.
func compareRow(a, b []byte, rowOffsetA, rowOffsetB, count int) (start, length int) {
	start = -1
	end := -1
	for i := 0; i < count; i++ {
		oa := rowOffsetA + i*bytesPerPixel
		ob := rowOffsetB + i*bytesPerPixel
		pa := *(*uint32)(unsafe.Pointer(&a[oa]))
		pb := *(*uint32)(unsafe.Pointer(&b[ob]))
		if pa != pb {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	if start < 0 {
		return 0, 0
	}
	return start, end - start
}

// readPixel loads the ARGB word at (x,y) in a buffer with the given
// stride.
func readPixel(buf []byte, x, y, stride int) uint32 {
	off := pixelOffset(x, y, stride)
	return *(*uint32)(unsafe.Pointer(&buf[off]))
}

// writePixel stores the ARGB word at (x,y) in a buffer with the given
// stride.
func writePixel(buf []byte, x, y, stride int, v uint32) {
	off := pixelOffset(x, y, stride)
	*(*uint32)(unsafe.Pointer(&buf[off])) = v
}
