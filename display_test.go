// display_test.go - end-to-end coverage driving a real Display (worker
// pool and render thread included) through a recording Sink.

package display

import (
	"sync"
	"testing"
	"time"
)

// recordingSink captures every wire instruction emitted, guarded by its
// own mutex since the worker pool calls it from multiple goroutines.
type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSink) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *recordingSink) count(name string) int {
	n := 0
	for _, c := range s.snapshot() {
		if c == name {
			n++
		}
	}
	return n
}

func (s *recordingSink) Size(LayerHandle, int, int) error                { s.record("size"); return nil }
func (s *recordingSink) Shade(LayerHandle, uint8) error                   { s.record("shade"); return nil }
func (s *recordingSink) Move(LayerHandle, LayerHandle, int, int, int) error {
	s.record("move")
	return nil
}
func (s *recordingSink) Set(LayerHandle, string, string) error { s.record("set"); return nil }
func (s *recordingSink) Rect(LayerHandle, Rect) error          { s.record("rect"); return nil }
func (s *recordingSink) Cfill(LayerHandle, CfillMode, uint8, uint8, uint8, uint8) error {
	s.record("cfill")
	return nil
}
func (s *recordingSink) Copy(LayerHandle, Rect, LayerHandle, int, int) error {
	s.record("copy")
	return nil
}
func (s *recordingSink) Image(LayerHandle, int, int, string, []byte) error {
	s.record("image")
	return nil
}
func (s *recordingSink) Cursor(BuiltinCursor, int, int) error { s.record("cursor"); return nil }
func (s *recordingSink) Mouse(int, int) error                 { s.record("mouse"); return nil }
func (s *recordingSink) Sync(int64) error                     { s.record("sync"); return nil }
func (s *recordingSink) Dispose(LayerHandle) error            { s.record("dispose"); return nil }
func (s *recordingSink) Flush() error                         { s.record("flush"); return nil }

func newTestSink(t *testing.T) (*Display, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	cfg := DefaultConfig()
	cfg.ExplicitFrameBoundaries = true
	cfg.WorkerCount = 2
	d := NewDisplay(cfg, sink)
	t.Cleanup(func() { d.Stop() })
	return d, sink
}

// waitForSyncCount polls sink until it has recorded n "sync" calls or
// deadline elapses, since commitFrame only enqueues a frame's ops and
// returns - closing the frame out (and recording the sync) happens
// asynchronously on a worker goroutine.
func waitForSyncCount(t *testing.T, sink *recordingSink, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.count("sync") >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d sync calls, got %d: %v", n, sink.count("sync"), sink.snapshot())
}

func TestDisplayDrawAndCommitEmitsFrame(t *testing.T) {
	d, sink := newTestSink(t)

	h, err := d.AllocLayer(128, 128)
	if err != nil {
		t.Fatalf("AllocLayer: %v", err)
	}

	ctx, err := d.OpenRaw(h)
	if err != nil {
		t.Fatalf("OpenRaw: %v", err)
	}
	writePixel(ctx.Buffer.Data, 10, 10, ctx.Buffer.Stride, 0xFFFF0000)
	ctx.UnionDirty(NewRect(0, 0, 64, 64))
	if err := d.CloseRaw(ctx); err != nil {
		t.Fatalf("CloseRaw: %v", err)
	}

	committed, err := d.FrameComplete()
	if err != nil {
		t.Fatalf("FrameComplete: %v", err)
	}
	if !committed {
		t.Fatalf("expected FrameComplete to commit a frame")
	}

	waitForSyncCount(t, sink, 1)
	if sink.count("sync") != 1 {
		t.Fatalf("expected exactly one sync, got %d: %v", sink.count("sync"), sink.snapshot())
	}
	if sink.count("flush") < 1 {
		t.Fatalf("expected at least one flush, got %d", sink.count("flush"))
	}
	// Two layers exist (the cursor layer plus ours): this is the first
	// commit either has ever been through, so commitLayerSnapshot forces
	// a full copy for both even though only ours was pixel-dirty.
	if sink.count("copy") < 2 {
		t.Fatalf("expected at least 2 backing-buffer copies, got %d", sink.count("copy"))
	}
}

func TestDisplayFrameCompleteNoopWhenNothingDirty(t *testing.T) {
	d, _ := newTestSink(t)
	committed, err := d.FrameComplete()
	if err != nil {
		t.Fatalf("FrameComplete: %v", err)
	}
	if committed {
		t.Fatalf("expected no commit when nothing is dirty")
	}
}

func TestDisplayEndMouseFrameEmitsMouseWithoutPlanning(t *testing.T) {
	d, sink := newTestSink(t)
	d.MoveMouse(5, 7)

	if err := d.EndMouseFrame(); err != nil {
		t.Fatalf("EndMouseFrame: %v", err)
	}
	if sink.count("mouse") != 1 {
		t.Fatalf("expected exactly one mouse report, got %d", sink.count("mouse"))
	}
	if sink.count("sync") != 0 {
		t.Fatalf("a mouse-only frame must not run the planner: got %d sync calls", sink.count("sync"))
	}
}

func TestDisplayStopIsIdempotent(t *testing.T) {
	d, _ := newTestSink(t)
	if err := d.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op, got: %v", err)
	}
}

func TestDisplayFreeLayerUnknownHandle(t *testing.T) {
	d, _ := newTestSink(t)
	if err := d.FreeLayer(999); err != ErrUnknownLayer {
		t.Fatalf("expected ErrUnknownLayer, got %v", err)
	}
}

// TestDisplayCommitDoesNotBlock verifies FrameComplete returns as soon as
// a frame's ops are enqueued, without waiting for the worker pool to
// dispatch and close it out - the commit still eventually drains, just
// not synchronously within the call.
func TestDisplayCommitDoesNotBlock(t *testing.T) {
	d, sink := newTestSink(t)
	h, _ := d.AllocLayer(256, 256)
	ctx, _ := d.OpenRaw(h)
	ctx.UnionDirty(NewRect(0, 0, 256, 256))
	d.CloseRaw(ctx)

	start := time.Now()
	committed, err := d.FrameComplete()
	if err != nil {
		t.Fatalf("FrameComplete: %v", err)
	}
	if !committed {
		t.Fatalf("expected FrameComplete to commit a frame")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("FrameComplete took unexpectedly long, worker pool may be stuck")
	}

	waitForSyncCount(t, sink, 1)
	if sink.count("sync") != 1 {
		t.Fatalf("expected the commit to eventually drain to exactly one sync, got %d", sink.count("sync"))
	}
}

// TestDisplayCommitFrameDefersWhileWorkerBusy exercises commitFrame's
// deferral path directly: a commit requested while a worker is still
// marked active must not plan or enqueue anything, and must instead
// record frameDeferred so the frame-closing worker picks it up later.
func TestDisplayCommitFrameDefersWhileWorkerBusy(t *testing.T) {
	d, _ := newTestSink(t)
	h, _ := d.AllocLayer(64, 64)
	ctx, _ := d.OpenRaw(h)
	ctx.UnionDirty(NewRect(0, 0, 64, 64))
	d.CloseRaw(ctx)

	d.fifo.state.Lock()
	d.activeWorkers = 1
	d.fifo.state.Unlock()

	committed, err := d.commitFrame()
	if err != nil {
		t.Fatalf("commitFrame: %v", err)
	}
	if committed {
		t.Fatalf("expected commitFrame to defer while a worker is active")
	}

	d.fifo.state.Lock()
	deferred := d.frameDeferred
	d.activeWorkers = 0
	d.fifo.state.Unlock()
	if !deferred {
		t.Fatalf("expected frameDeferred to be set")
	}
}
