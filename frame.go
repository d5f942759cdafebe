// frame.go - frame commit: turns accumulated pending-buffer changes into
// a Plan and hands its ops to the worker pool.
//
// commitFrame defers rather than blocks when a previous frame is still
// draining: at most one frame's ops are ever in the Fifo/dispatch at a
// time, but a commit requested while that's true just sets frameDeferred
// and returns immediately, trusting the worker that eventually closes the
// in-flight frame to notice and flush it (see worker.go's closeFrame).
// This keeps a drawing thread's next OpenRaw from ever blocking on the
// worker pool's pace.

package display

import "strconv"

// FrameComplete commits exactly one frame if anything is dirty. It is a
// no-op, returning (false, nil), when no layer has accumulated changes
// and the cursor hasn't moved.
func (d *Display) FrameComplete() (bool, error) {
	committed, err := d.commitFrame()
	if err != nil {
		return false, err
	}
	if committed {
		d.render.NotifyFrame()
	}
	return committed, nil
}

// EndMultipleFrames commits up to n frames, stopping early once nothing
// is left dirty. n == 0 means "drain everything outstanding" rather than
// "commit zero frames" - the worker pool uses this to flush a deferred
// commit request that arrived while the previous frame was still being
// dispatched. It returns the number of frames actually committed.
func (d *Display) EndMultipleFrames(n int) (int, error) {
	committed := 0
	for n == 0 || committed < n {
		ok, err := d.commitFrame()
		if err != nil {
			return committed, err
		}
		if !ok {
			break
		}
		d.render.NotifyFrame()
		committed++
	}
	return committed, nil
}

// EndMouseFrame emits a mouse-position update on its own, for servers that
// track pointer motion between pixel frames. It goes through
// EndMultipleFrames(0), so the planner does run; with only the cursor
// changed it finds no pixel work and no frame sync is emitted. If a real pixel commit is already pending it leaves the mouse
// update for that commit to carry, rather than racing it with a redundant
// commit of its own.
func (d *Display) EndMouseFrame() error {
	if d.pendingFrameDirtyExcludingMouse.Load() {
		return nil
	}
	_, err := d.EndMultipleFrames(0)
	return err
}

// commitFrame is the engine underneath FrameComplete, EndMultipleFrames
// and the render thread's automatic commits. It defers instead of
// planning when a previous frame is still draining; otherwise it runs the
// five-pass planner, synchronously emits every layer-property and
// cursor/mouse change accumulated since the last commit, advances each
// layer's last-frame snapshot, and - if the planner found any pixel work
// - hands the plan's ops to the Fifo for the worker pool to dispatch and
// close out.
func (d *Display) commitFrame() (bool, error) {
	d.fifo.state.Lock()
	if d.activeWorkers > 0 || d.fifo.count > 0 {
		d.frameDeferred = true
		d.fifo.state.Unlock()
		return false, nil
	}
	d.fifo.state.Unlock()

	d.pending.Lock()
	defer d.pending.Unlock()
	d.last.Lock()
	defer d.last.Unlock()

	d.frameSeq++
	plan := PlanCreate(d)

	changed, err := d.emitFrameState()
	if err != nil {
		d.frameSeq--
		return false, err
	}

	for _, h := range d.pendingOrder {
		if l, ok := d.layers[h]; ok {
			commitLayerSnapshot(l)
			l.Pending.Dirty = Rect{}
		}
	}
	d.pendingFrameDirtyExcludingMouse.Store(false)

	if plan == nil {
		d.frameSeq--
		if !changed {
			return false, nil
		}
		if err := d.sink.Flush(); err != nil {
			return false, err
		}
		return true, nil
	}

	d.fifo.state.Lock()
	d.frameCount++
	d.fifo.state.Unlock()

	d.renderState.Clear(renderFrameIdle)
	d.renderState.Set(renderFrameInProgress)

	for _, op := range plan.Ops {
		if err := d.fifo.Enqueue(op); err != nil {
			return false, err
		}
	}
	return true, nil
}

// emitFrameState synchronously emits, directly through the sink rather
// than via the worker Fifo, every layer-property change accumulated
// since the last commit - resize, then move, then shade, then
// multitouch-capacity, per layer in pending order - followed by a
// broadcast mouse-position update if the cursor moved. It reports whether
// anything was actually emitted, so a commit that found no pixel work can
// still tell whether it did anything wire-visible.
func (d *Display) emitFrameState() (bool, error) {
	d.wireSeq.Lock()
	defer d.wireSeq.Unlock()

	changed := false
	for _, h := range d.pendingOrder {
		layer, ok := d.layers[h]
		if !ok {
			continue
		}
		p, l := &layer.Pending, &layer.Last

		if p.Width != l.Width || p.Height != l.Height {
			if err := d.sink.Size(h, p.Width, p.Height); err != nil {
				return changed, err
			}
			changed = true
		}
		if p.Parent != l.Parent || p.X != l.X || p.Y != l.Y || p.Z != l.Z {
			if err := d.sink.Move(h, p.Parent, p.X, p.Y, p.Z); err != nil {
				return changed, err
			}
			changed = true
		}
		if p.Opacity != l.Opacity {
			if err := d.sink.Shade(h, p.Opacity); err != nil {
				return changed, err
			}
			changed = true
		}
		if p.TouchCapacity != l.TouchCapacity {
			if err := d.sink.Set(h, "multitouch", strconv.Itoa(p.TouchCapacity)); err != nil {
				return changed, err
			}
			changed = true
		}
	}

	if d.cursor.moved {
		if err := d.sink.Mouse(d.cursor.x, d.cursor.y); err != nil {
			return changed, err
		}
		d.cursor.moved = false
		changed = true
	}

	return changed, nil
}
