// display.go - the engine facade: layer registry, double-buffered frame
// state, and the locks/queues that stitch pass/worker/render-thread
// components together.
//
// Lock order, always acquired in this sequence and released in reverse:
// pending -> last -> fifo -> renderState. Any code path that needs more
// than one of these must take them in this order or risk deadlocking
// against the render thread or a worker.

package display

import (
	"sync"
	"sync/atomic"
)

const (
	renderFrameInProgress uint32 = 1 << 0
	renderFrameIdle       uint32 = 1 << 1
	renderStopped         uint32 = 1 << 2
)

// Display owns every layer's pending/last state, the op FIFO workers pull
// from, and the bookkeeping the render thread and worker pool coordinate
// through.
type Display struct {
	pending *Rwlock
	last    *Rwlock

	layers       map[LayerHandle]*Layer
	pendingOrder []LayerHandle
	lastOrder    []LayerHandle
	nextHandle   int64

	fifo        *Fifo
	renderState *Flag

	// activeWorkers, frameDeferred and frameCount are all guarded by
	// fifo's Flag lock, not a separate mutex, since every site that
	// touches them already holds that lock for an enqueue/dequeue.
	//
	// activeWorkers lets the worker that dequeues END_FRAME tell whether
	// it is safe to close the frame now or whether other workers are
	// still mid-dispatch on ops ahead of it.
	activeWorkers int

	// frameDeferred records that a commit was requested while a previous
	// frame was still draining (activeWorkers > 0 or the Fifo non-empty).
	// The worker that closes the draining frame observes this flag and
	// triggers another commit once it's done, rather than the requester
	// blocking for the queue to drain.
	frameDeferred bool

	// frameCount is the wire-visible "how many frames has the client
	// seen" counter Sync reports, advanced once per committed pixel
	// frame. frameSeq is a separate counter: commitFrame bumps it at the
	// start of each commit and rolls it back when the commit yields no
	// plan or fails.
	frameCount int64

	wireSeq sync.Mutex // serialises multi-instruction Sink sequences (e.g. rect+cfill)

	// pendingFrameDirtyExcludingMouse is set whenever a non-cursor layer
	// is touched, so the render thread can tell a mouse-only frame from
	// one that needs a real plan.
	pendingFrameDirtyExcludingMouse atomic.Bool

	frameSeq int64

	cursor       *cursorState
	cursorHandle LayerHandle

	config Config
	sink   Sink

	workers *workerPool
	render  *renderThread
}

// NewDisplay creates a Display with cfg's zero WorkerCount and
// FifoCapacity backfilled (see Config.resolve; other fields are used as
// given), wires a worker pool and render thread against it, and
// starts both. The returned Display emits wire instructions through sink.
func NewDisplay(cfg Config, sink Sink) *Display {
	cfg = cfg.resolve()
	d := &Display{
		pending:     NewRwlock(),
		last:        NewRwlock(),
		layers:      make(map[LayerHandle]*Layer),
		fifo:        NewFifo(cfg.FifoCapacity),
		renderState: NewFlag(),
		config:      cfg,
		sink:        sink,
		cursor:      newCursorState(),
	}
	d.renderState.Set(renderFrameIdle)

	d.cursorHandle = d.allocLayerLocked(1, 1)
	d.layers[d.cursorHandle].Pending.SearchCopies = false

	d.workers = newWorkerPool(d, cfg.WorkerCount)
	d.render = newRenderThread(d)
	d.workers.start()
	d.render.start()
	return d
}

// bufferHandleOf returns the synthetic handle pass 3 and the wire codec
// use to address a layer's client-side backing buffer - the off-screen
// twin holding the client's copy of the previous frame, which is what
// every COPY op's source actually names, never the visible layer.
func (d *Display) bufferHandleOf(h LayerHandle) LayerHandle {
	return -(h + 1)
}

// AllocLayer creates a new owned layer of the given logical size and adds
// it to the pending and last ordering, returning its handle.
func (d *Display) AllocLayer(width, height int) (LayerHandle, error) {
	d.pending.Lock()
	defer d.pending.Unlock()
	d.last.Lock()
	defer d.last.Unlock()

	h := d.allocLayerLocked(width, height)
	return h, nil
}

// AllocExternalLayer creates a new layer whose pending buffer is owned by
// the caller from the start (stride and data supplied directly), adding
// it to the pending and last ordering.
func (d *Display) AllocExternalLayer(width, height, stride int, data []byte) (LayerHandle, error) {
	d.pending.Lock()
	defer d.pending.Unlock()
	d.last.Lock()
	defer d.last.Unlock()

	h := d.nextHandleLocked()
	l := newExternalLayer(h, width, height, stride, data)
	if d.config.DefaultOpaque {
		l.Pending.Opacity = 0xFF
	}
	l.Pending.SearchCopies = d.config.DefaultSearchCopies
	l.Pending.Lossless = d.config.DefaultLossless
	d.registerLocked(l)
	return h, nil
}

func (d *Display) allocLayerLocked(width, height int) LayerHandle {
	h := d.nextHandleLocked()
	l := newLayer(h, width, height)
	l.Pending.SearchCopies = d.config.DefaultSearchCopies
	l.Pending.Lossless = d.config.DefaultLossless
	if d.config.DefaultOpaque {
		l.Pending.Opacity = 0xFF
	}
	d.registerLocked(l)
	return h
}

func (d *Display) nextHandleLocked() LayerHandle {
	d.nextHandle++
	return LayerHandle(d.nextHandle)
}

// registerLocked adds l to both orderings. Last's scalar properties are
// seeded from Pending's initial values (everything but the pixel buffer,
// which stays nil) so the first commitFrame after allocation doesn't
// misreport the layer's starting size/opacity/position as a change -
// there is no dedicated "layer created" wire instruction in this
// vocabulary, so a new layer's initial geometry is assumed to reach the
// client out of band, at allocation time, rather than through the
// resize/move/shade diff path.
func (d *Display) registerLocked(l *Layer) {
	l.Last.Width, l.Last.Height = l.Pending.Width, l.Pending.Height
	l.Last.Opacity = l.Pending.Opacity
	l.Last.Parent, l.Last.X, l.Last.Y, l.Last.Z = l.Pending.Parent, l.Pending.X, l.Pending.Y, l.Pending.Z
	l.Last.TouchCapacity = l.Pending.TouchCapacity
	l.Last.SearchCopies = l.Pending.SearchCopies
	l.Last.Lossless = l.Pending.Lossless

	d.layers[l.Handle] = l
	d.pendingOrder = append(d.pendingOrder, l.Handle)
	d.lastOrder = append(d.lastOrder, l.Handle)
}

// ResizeLayer changes h's logical dimensions, dirtying it so the next
// commit emits the resize and re-diffs its pixels against the new size.
func (d *Display) ResizeLayer(h LayerHandle, width, height int) error {
	d.pending.Lock()
	defer d.pending.Unlock()

	layer, ok := d.layers[h]
	if !ok {
		return ErrUnknownLayer
	}
	if err := resizeBuffer(layer, width, height); err != nil {
		return err
	}
	d.markDirty(layer)
	return nil
}

// MoveLayer reparents h and/or repositions it within its parent's
// coordinate space, dirtying it so the next commit emits a move.
func (d *Display) MoveLayer(h, parent LayerHandle, x, y, z int) error {
	d.pending.Lock()
	defer d.pending.Unlock()

	layer, ok := d.layers[h]
	if !ok {
		return ErrUnknownLayer
	}
	layer.Pending.Parent, layer.Pending.X, layer.Pending.Y, layer.Pending.Z = parent, x, y, z
	d.markDirty(layer)
	return nil
}

// ShadeLayer sets h's opacity, dirtying it so the next commit emits a
// shade instruction.
func (d *Display) ShadeLayer(h LayerHandle, opacity uint8) error {
	d.pending.Lock()
	defer d.pending.Unlock()

	layer, ok := d.layers[h]
	if !ok {
		return ErrUnknownLayer
	}
	layer.Pending.Opacity = opacity
	d.markDirty(layer)
	return nil
}

// SetTouchCapacity changes how many simultaneous touch points h reports,
// dirtying it so the next commit emits the multitouch capacity change.
func (d *Display) SetTouchCapacity(h LayerHandle, n int) error {
	d.pending.Lock()
	defer d.pending.Unlock()

	layer, ok := d.layers[h]
	if !ok {
		return ErrUnknownLayer
	}
	layer.Pending.TouchCapacity = n
	d.markDirty(layer)
	return nil
}

// FreeLayer removes a layer from both orderings, emits a dispose
// instruction so the client drops its own copy, and drops the engine's
// reference to it. Buffers the layer owns are released; external buffers
// are left untouched since the back-end owns their lifetime.
func (d *Display) FreeLayer(h LayerHandle) error {
	d.pending.Lock()
	defer d.pending.Unlock()
	d.last.Lock()
	defer d.last.Unlock()

	if _, ok := d.layers[h]; !ok {
		return ErrUnknownLayer
	}
	delete(d.layers, h)
	d.pendingOrder = removeHandle(d.pendingOrder, h)
	d.lastOrder = removeHandle(d.lastOrder, h)

	d.wireSeq.Lock()
	err := d.sink.Dispose(h)
	d.wireSeq.Unlock()
	return err
}

func removeHandle(order []LayerHandle, h LayerHandle) []LayerHandle {
	for i, v := range order {
		if v == h {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// OpenRaw returns a RawContext for direct pixel access to h's pending
// buffer. The caller must call CloseRaw before any other Display
// operation touches h.
func (d *Display) OpenRaw(h LayerHandle) (*RawContext, error) {
	d.pending.Lock()
	layer, ok := d.layers[h]
	if !ok {
		d.pending.Unlock()
		return nil, ErrUnknownLayer
	}
	return openRawLocked(layer), nil
}

// CloseRaw commits ctx's accumulated writes back into its layer and
// releases the pending write lock OpenRaw acquired.
func (d *Display) CloseRaw(ctx *RawContext) error {
	defer d.pending.Unlock()
	if err := closeRawLocked(ctx.layer, ctx); err != nil {
		return err
	}
	d.markDirty(ctx.layer)
	return nil
}

// OpenVector returns a VectorContext for cached-surface vector drawing
// into h's pending buffer.
func (d *Display) OpenVector(h LayerHandle) (*VectorContext, error) {
	d.pending.Lock()
	layer, ok := d.layers[h]
	if !ok {
		d.pending.Unlock()
		return nil, ErrUnknownLayer
	}
	return openVectorLocked(layer), nil
}

// CloseVector commits ctx's accumulated writes and releases the pending
// write lock OpenVector acquired.
func (d *Display) CloseVector(ctx *VectorContext) error {
	defer d.pending.Unlock()
	if err := closeVectorLocked(ctx.layer, ctx); err != nil {
		return err
	}
	d.markDirty(ctx.layer)
	return nil
}

// MoveMouse records a new pointer position for the next mouse report,
// either folded into the next committed frame or sent standalone via
// EndMouseFrame under explicit frame boundaries.
func (d *Display) MoveMouse(x, y int) {
	d.render.NotifyUserMovedMouse(x, y)
}

func (d *Display) markDirty(l *Layer) {
	if l.Handle != d.cursorHandle {
		d.pendingFrameDirtyExcludingMouse.Store(true)
	}
	d.render.NotifyModified()
}

// Dup replicates the engine's entire committed (last-frame) state to a
// newly joined client through sink, distinct from d.sink's ongoing
// stream: it waits for no frame to be in progress, then for every layer
// with a committed buffer streams it as a PNG, duplicates it into the
// client's own backing-buffer copy, and finally reports the current
// cursor and mouse position so the new client starts in sync with
// everyone else.
func (d *Display) Dup(sink Sink) error {
	d.renderState.Wait(renderFrameIdle)
	d.renderState.Unlock()

	d.last.Lock()
	defer d.last.Unlock()

	for _, h := range d.lastOrder {
		layer, ok := d.layers[h]
		if !ok || layer.Last.Buffer == nil {
			continue
		}
		full := Rect{Right: layer.Last.Width, Bottom: layer.Last.Height}
		data, err := encodeImage("png", layer.Last.Buffer, full, 0)
		if err != nil {
			return err
		}
		if err := sink.Image(h, 0, 0, "png", data); err != nil {
			return err
		}
		if err := sink.Copy(h, full, d.bufferHandleOf(h), 0, 0); err != nil {
			return err
		}
	}

	if err := sink.Cursor(d.cursor.builtin, d.cursor.hotX, d.cursor.hotY); err != nil {
		return err
	}
	if err := sink.Mouse(d.cursor.x, d.cursor.y); err != nil {
		return err
	}
	return sink.Flush()
}

// Stop invalidates the op FIFO, waits for every worker to exit, and marks
// the render state STOPPED. Safe to call more than once; subsequent calls
// are no-ops.
func (d *Display) Stop() error {
	if d.renderState.Value()&renderStopped != 0 {
		return nil
	}
	d.render.stop()
	d.fifo.Invalidate()
	err := d.workers.wait()
	d.renderState.Set(renderStopped)
	return err
}
