// wire.go - the Sink interface: the line-oriented instruction vocabulary
// a back-end emits frames through, and a concrete io.Writer-backed
// implementation of it.

package display

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// CfillMode selects how a Cfill instruction blends its colour into the
// destination rect: CfillOver composes normally, CfillRout clears the
// destination to fully transparent first - used ahead of a normal fill
// on a non-opaque layer so stale alpha from the previous frame can't
// bleed through the blend.
type CfillMode int

const (
	CfillOver CfillMode = iota
	CfillRout
)

func (m CfillMode) String() string {
	if m == CfillRout {
		return "ROUT"
	}
	return "OVER"
}

// Sink is the set of wire instructions a render thread or worker emits
// while closing a frame. Implementations must make each method call
// atomic with respect to other goroutines calling Sink methods
// concurrently - the wire format has no per-instruction framing, so two
// interleaved writes would corrupt the stream - but must not flush on
// their own; Flush is a separate, explicit call so a frame's worth of
// instructions can be batched into one write.
type Sink interface {
	Size(layer LayerHandle, width, height int) error
	Shade(layer LayerHandle, opacity uint8) error
	Move(layer LayerHandle, parent LayerHandle, x, y, z int) error
	Set(layer LayerHandle, name, value string) error
	Rect(layer LayerHandle, r Rect) error
	Cfill(layer LayerHandle, mode CfillMode, r, g, b, a uint8) error
	Copy(srcLayer LayerHandle, srcRect Rect, dstLayer LayerHandle, dstX, dstY int) error
	Image(layer LayerHandle, x, y int, codec string, data []byte) error
	Cursor(c BuiltinCursor, hotX, hotY int) error
	Mouse(x, y int) error
	Sync(frameCount int64) error
	Dispose(layer LayerHandle) error
	Flush() error
}

// LineSink writes the wire vocabulary as whitespace-separated text lines
// to an underlying io.Writer, one instruction per line. It's the engine's
// reference Sink: good enough for a debug CLI or a test harness that
// wants to assert on emitted instructions, not a production network
// transport.
type LineSink struct {
	mu  sync.Mutex
	w   *bufio.Writer
}

// NewLineSink wraps w as a LineSink.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: bufio.NewWriter(w)}
}

func (s *LineSink) writeLine(format string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, format+"\n", args...)
	return err
}

func (s *LineSink) Size(layer LayerHandle, width, height int) error {
	return s.writeLine("size %d %d %d", layer, width, height)
}

func (s *LineSink) Shade(layer LayerHandle, opacity uint8) error {
	return s.writeLine("shade %d %d", layer, opacity)
}

func (s *LineSink) Move(layer, parent LayerHandle, x, y, z int) error {
	return s.writeLine("move %d %d %d %d %d", layer, parent, x, y, z)
}

func (s *LineSink) Set(layer LayerHandle, name, value string) error {
	return s.writeLine("set %d %s %s", layer, name, value)
}

func (s *LineSink) Rect(layer LayerHandle, r Rect) error {
	return s.writeLine("rect %d %d %d %d %d", layer, r.Left, r.Top, r.Width(), r.Height())
}

func (s *LineSink) Cfill(layer LayerHandle, mode CfillMode, r, g, b, a uint8) error {
	return s.writeLine("cfill %d %s %d %d %d %d", layer, mode, r, g, b, a)
}

func (s *LineSink) Copy(srcLayer LayerHandle, srcRect Rect, dstLayer LayerHandle, dstX, dstY int) error {
	return s.writeLine("copy %d %d %d %d %d %d %d %d",
		srcLayer, srcRect.Left, srcRect.Top, srcRect.Width(), srcRect.Height(), dstLayer, dstX, dstY)
}

func (s *LineSink) Image(layer LayerHandle, x, y int, codec string, data []byte) error {
	return s.writeLine("%s %d %d %d %d", codec, layer, x, y, len(data))
}

func (s *LineSink) Cursor(c BuiltinCursor, hotX, hotY int) error {
	return s.writeLine("cursor %s %d %d", c, hotX, hotY)
}

func (s *LineSink) Mouse(x, y int) error {
	return s.writeLine("mouse %d %d", x, y)
}

func (s *LineSink) Sync(frameSeq int64) error {
	return s.writeLine("sync %d", frameSeq)
}

func (s *LineSink) Dispose(layer LayerHandle) error {
	return s.writeLine("dispose %d", layer)
}

func (s *LineSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Flush()
}
