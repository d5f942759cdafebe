// dispctl is a terminal debug harness for the display engine: it opens a
// raw-mode stdin session, draws to a single test layer, and prints the
// wire instructions a real back-end would have sent, one per key press.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	display "github.com/intuitionamiga/dispd"
)

// keyHost reads raw stdin and routes single keypresses to the harness.
// Modeled on the engine's own terminal input adapter: raw mode, a
// non-blocking read loop, and a stop channel so shutdown never blocks
// indefinitely on a read that will never return.
type keyHost struct {
	onKey        func(byte)
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

func newKeyHost(onKey func(byte)) *keyHost {
	return &keyHost{onKey: onKey, stopCh: make(chan struct{}), done: make(chan struct{})}
}

func (h *keyHost) start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dispctl: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "dispctl: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-h.stopCh:
				return
			default:
			}
			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				h.onKey(buf[0])
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

func (h *keyHost) stop() {
	h.stopped.Do(func() { close(h.stopCh) })
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
	}
}

func main() {
	fmt.Println("dispctl - display engine debug harness")
	fmt.Println("r: fill red rect   c: commit frame   m: move mouse   q: quit")

	sink := display.NewLineSink(os.Stdout)
	cfg := display.DefaultConfig()
	cfg.ExplicitFrameBoundaries = true
	d := display.NewDisplay(cfg, sink)

	layer, err := d.AllocLayer(256, 256)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dispctl: alloc layer: %v\n", err)
		os.Exit(1)
	}

	quit := make(chan struct{})
	mouseX := 0

	host := newKeyHost(func(b byte) {
		switch b {
		case 'r':
			ctx, err := d.OpenRaw(layer)
			if err != nil {
				return
			}
			for y := 16; y < 80; y++ {
				for x := 16; x < 80; x++ {
					binary.NativeEndian.PutUint32(ctx.Buffer.Data[y*ctx.Buffer.Stride+x*4:], 0xFFFF0000)
				}
			}
			ctx.UnionDirty(display.NewRect(16, 16, 64, 64))
			_ = d.CloseRaw(ctx)
		case 'c':
			committed, err := d.FrameComplete()
			fmt.Fprintf(os.Stderr, "\r\ncommit: %v err=%v\r\n", committed, err)
		case 'm':
			mouseX += 8
			d.MoveMouse(mouseX, 0)
			_ = d.EndMouseFrame()
			fmt.Fprintf(os.Stderr, "\r\nmouse x=%d\r\n", mouseX)
		case 'q', 3: // q or Ctrl-C
			close(quit)
		}
	})
	host.start()
	defer host.stop()

	<-quit
	if err := d.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "dispctl: stop: %v\n", err)
		os.Exit(1)
	}
}
