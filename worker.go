// worker.go - the fixed pool of goroutines that dispatch a frame's plan
// ops to the Sink. END_FRAME is a barrier: a worker that dequeues it
// while siblings are still mid-dispatch puts it back on the queue rather
// than closing the frame out from under them.

package display

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type workerPool struct {
	d      *Display
	count  int
	group  *errgroup.Group
	cancel context.CancelFunc
}

func newWorkerPool(d *Display, count int) *workerPool {
	if count < 1 {
		count = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := errgroup.WithContext(ctx)
	return &workerPool{d: d, count: count, group: g, cancel: cancel}
}

func (p *workerPool) start() {
	for i := 0; i < p.count; i++ {
		p.group.Go(p.run)
	}
}

// wait cancels the pool's context (unblocking nothing by itself - workers
// only stop once the Fifo is invalidated) and joins every worker
// goroutine, returning the first non-nil error any of them returned.
func (p *workerPool) wait() error {
	p.cancel()
	return p.group.Wait()
}

func (p *workerPool) run() error {
	for {
		op, err := p.d.fifo.DequeueAndLock()
		if err != nil {
			return nil
		}

		if op.Type == OpEndFrame {
			if p.d.activeWorkers > 0 {
				p.d.fifo.pushLocked(op)
				p.d.fifo.Unlock()
				continue
			}
			// Hold activeWorkers up through closeFrame's own
			// execution, not just the regular-op dispatch above:
			// otherwise a commitFrame running concurrently on another
			// goroutine would see activeWorkers==0 and fifo.count==0
			// the instant END_FRAME is dequeued, and could start
			// mutating the very Last-frame fields closeFrame is still
			// reading here.
			p.d.activeWorkers++
			p.d.fifo.Unlock()
			p.closeFrame(op)
			p.d.fifo.state.Lock()
			p.d.activeWorkers--
			p.d.fifo.state.Unlock()
			continue
		}

		p.d.activeWorkers++
		p.d.fifo.Unlock()

		p.dispatch(op)

		p.d.fifo.state.Lock()
		p.d.activeWorkers--
		p.d.fifo.state.Unlock()
	}
}

func (p *workerPool) dispatch(op *PlanOp) {
	d := p.d
	switch op.Type {
	case OpNOP:
		return
	case OpRect:
		a, r, g, b := channelsFromColor(op.Color)
		d.wireSeq.Lock()
		d.sink.Rect(op.Dest, op.DestRect)
		if layer, ok := d.layers[op.Dest]; ok && !layer.Pending.isOpaque() {
			d.sink.Cfill(op.Dest, CfillRout, 0, 0, 0, 0)
		}
		d.sink.Cfill(op.Dest, CfillOver, r, g, b, a)
		d.wireSeq.Unlock()
	case OpCopy:
		d.sink.Copy(op.Copy.SourceLayer, op.Copy.SourceRect, op.Dest, op.DestRect.Left, op.DestRect.Top)
	case OpImg:
		layer, ok := d.layers[op.Dest]
		if !ok {
			return
		}
		lag := d.render.currentLag()
		codec := selectCodec(layer, op, d.config.ClientSupportsWebP, lag)
		data, err := encodeImage(codec, layer.Pending.Buffer, op.DestRect, lag)
		if err != nil {
			return
		}
		d.sink.Image(op.Dest, op.DestRect.Left, op.DestRect.Top, codec, data)
	}
}

// channelsFromColor splits a 0xAARRGGBB colour into Cfill's r,g,b,a
// argument order.
func channelsFromColor(c uint32) (a, r, g, b uint8) {
	return uint8(c >> 24), uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// closeFrame runs once per frame, by whichever worker dequeues END_FRAME
// and finds no sibling still mid-dispatch. It emits one sync boundary
// with the frame count commitFrame advanced, then walks the last-frame
// layer list and, for every layer whose last-frame dirty rect is
// non-empty (i.e. commitLayerSnapshot actually refreshed it this round),
// refreshes that layer's client-side backing buffer - noting whether the
// cursor layer was among them, in which case it also reports the
// committed cursor hotspot. It then flushes the wire socket, marks the
// frame no longer in progress, sleeps for whatever is left of
// MinFrameDuration since closeFrame began (capped at MaxLagCompensation;
// no measure of the client's processing lag enters into it), and finally
// checks whether another commit was deferred while this one was draining,
// triggering it if so.
func (p *workerPool) closeFrame(op *PlanOp) {
	d := p.d
	start := time.Now()

	d.fifo.state.Lock()
	frameCount := d.frameCount
	d.fifo.state.Unlock()

	d.wireSeq.Lock()
	d.sink.Sync(frameCount)

	cursorRefreshed := false
	for _, h := range d.lastOrder {
		layer, ok := d.layers[h]
		if !ok || layer.Last.Dirty.IsEmpty() {
			continue
		}
		full := Rect{Right: layer.Last.Width, Bottom: layer.Last.Height}
		d.sink.Copy(h, full, d.bufferHandleOf(h), 0, 0)
		if h == d.cursorHandle {
			cursorRefreshed = true
		}
	}
	if cursorRefreshed {
		d.sink.Cursor(d.cursor.builtin, d.cursor.hotX, d.cursor.hotY)
	}
	d.sink.Flush()
	d.wireSeq.Unlock()

	d.renderState.Clear(renderFrameInProgress)
	d.renderState.Set(renderFrameIdle)

	elapsed := time.Since(start)
	sleep := MinFrameDuration - elapsed
	if sleep < 0 {
		sleep = 0
	}
	if sleep > MaxLagCompensation {
		sleep = MaxLagCompensation
	}
	if sleep > 0 {
		time.Sleep(sleep)
	}

	d.fifo.state.Lock()
	deferred := d.frameDeferred
	d.frameDeferred = false
	d.fifo.state.Unlock()
	if deferred {
		d.EndMultipleFrames(0)
	}
}
