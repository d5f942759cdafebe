// constants.go - fixed limits shared across the display engine.

package display

import "time"

const (
	bytesPerPixel = 4

	// MaxWidth and MaxHeight bound both layer and display dimensions.
	MaxWidth  = 8192
	MaxHeight = 8192

	// CellSize is the edge length of a change-tracking cell.
	CellSize = 64
	cellBits = 6 // log2(CellSize)

	// ResizeFactor is the granularity buffer dimensions round up to.
	ResizeFactor = 64

	// MaxCombinedSizeExp is the log2 edge of the grid combine passes 4/5
	// snap to, so greedy combination stays comparable in both directions.
	MaxCombinedSizeExp = 9
	maxCombinedSize    = 1 << MaxCombinedSizeExp // 512

	// NegligibleWidth/Height define the "not worth separating" op size
	// the combine cost model always merges below.
	NegligibleWidth  = 64
	NegligibleHeight = 64

	// BaseCost and DataFactor parameterise the op cost model used by the
	// combine passes.
	BaseCost   = 4096
	DataFactor = 128

	// NegligibleIncreaseDivisor: a merge whose cost increase over either
	// operand is no more than that operand's cost divided by this is
	// accepted anyway (i.e. a 25% increase is negligible).
	NegligibleIncreaseDivisor = 4

	// Codec selection thresholds.
	JPEGFramerate     = 3
	JPEGMinBitmapSize = 4096
	JPEGBlockSizeExp  = 4 // 16px
	WebPBlockSizeExp  = 3 // 8px

	// OpFIFOSize is sized for roughly eight worst-case frames' worth of
	// cells, so planner bursts never block a drawing thread.
	OpFIFOSize = (MaxWidth / CellSize) * (MaxHeight / CellSize) * 8

	// Render-thread / worker pacing.
	MaxLagCompensation = 500 * time.Millisecond
	MaxFrameDuration   = 100 * time.Millisecond
	MinFrameDuration   = 10 * time.Millisecond

	// OpsByHashSize is the number of distinct keys the 16-bit hash fold
	// of pass 2/3 can produce; the index itself is a map sized to the
	// plan's op count.
	OpsByHashSize = 65536
)

// cellsFor returns the number of CellSize-wide tiles needed to cover n
// pixels.
func cellsFor(n int) int {
	return (n + CellSize - 1) / CellSize
}

// roundUpResize rounds n up to the nearest multiple of ResizeFactor, used
// for physical buffer dimensions.
func roundUpResize(n int) int {
	if n <= 0 {
		return ResizeFactor
	}
	return ((n + ResizeFactor - 1) / ResizeFactor) * ResizeFactor
}

func clampDim(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxWidth {
		return MaxWidth
	}
	return n
}
