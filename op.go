// op.go - plan operations: the wire-level actions the five-pass planner
// produces.

package display

// OpType identifies the kind of wire action a PlanOp represents.
type OpType int

const (
	OpNOP OpType = iota
	OpCopy
	OpRect
	OpImg
	OpEndFrame
)

func (t OpType) String() string {
	switch t {
	case OpNOP:
		return "NOP"
	case OpCopy:
		return "COPY"
	case OpRect:
		return "RECT"
	case OpImg:
		return "IMG"
	case OpEndFrame:
		return "END_FRAME"
	default:
		return "UNKNOWN"
	}
}

// CopySource identifies the source of a COPY op.
type CopySource struct {
	SourceLayer LayerHandle
	SourceRect  Rect
}

// PlanOp is one planned wire action.
type PlanOp struct {
	Dest      LayerHandle
	Type      OpType
	DestRect  Rect
	DirtySize int
	PrevSeq   int64 // frame sequence of the last change at this destination
	FrameSeq  int64 // this frame's sequence

	Color uint32     // valid when Type == OpRect
	Copy  CopySource // valid when Type == OpCopy

	cells []*Cell // cells currently pointing at this op, for combine repointing
}

// cost implements the combine-pass cost model: cost(op) = 4096+dirtySize
// for IMG, otherwise that divided by 128.
func (op *PlanOp) cost() int {
	if op.Type == OpImg {
		return BaseCost + op.DirtySize
	}
	return (BaseCost + op.DirtySize) / DataFactor
}
