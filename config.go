// config.go - engine-wide configuration. Plain defaulted struct, same
// shape as the teacher's GUIConfig: callers start from DefaultConfig and
// change what they care about; only a zero WorkerCount or FifoCapacity is
// backfilled when the Config reaches NewDisplay.

package display

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Config controls the render thread, worker pool and per-layer defaults a
// new Display starts with.
type Config struct {
	// WorkerCount is the number of op-dispatch workers. Zero means "ask
	// the OS scheduler affinity mask", falling back to runtime.NumCPU if
	// that query fails (container/seccomp environments that block it).
	WorkerCount int

	// ExplicitFrameBoundaries, when true, stops the render thread from
	// closing a frame on its own timing heuristic: only an explicit
	// end-of-frame call (Display.FrameComplete / EndMultipleFrames) does.
	ExplicitFrameBoundaries bool

	// DefaultLossless controls whether newly allocated layers start out
	// requiring lossless (PNG) encoding rather than being eligible for
	// JPEG/WebP under load.
	DefaultLossless bool

	// DefaultOpaque marks newly allocated layers as opaque, letting the
	// planner's uniform-colour test ignore stale alpha bytes.
	DefaultOpaque bool

	// DefaultSearchCopies enables pass 3's copy-detection search for
	// newly allocated layers.
	DefaultSearchCopies bool

	// FifoCapacity overrides OpFIFOSize when non-zero; tests use this to
	// exercise backpressure without allocating the full worst-case queue.
	FifoCapacity int

	// ClientSupportsWebP gates IMG codec selection: WebP is only ever
	// chosen for a client that has advertised support for it.
	ClientSupportsWebP bool
}

// DefaultConfig returns a Config with every field at its production
// default.
func DefaultConfig() Config {
	return Config{
		WorkerCount:         detectWorkerCount(),
		DefaultOpaque:       true,
		DefaultSearchCopies: true,
		FifoCapacity:        OpFIFOSize,
	}
}

// resolve fills in a zero WorkerCount and FifoCapacity of a caller-provided
// Config with their production defaults. Every other field, including the
// boolean DefaultOpaque and DefaultSearchCopies, is kept as given.
func (c Config) resolve() Config {
	if c.WorkerCount <= 0 {
		c.WorkerCount = detectWorkerCount()
	}
	if c.FifoCapacity <= 0 {
		c.FifoCapacity = OpFIFOSize
	}
	return c
}

// detectWorkerCount sizes the worker pool off the process's actual CPU
// affinity mask rather than runtime.NumCPU, so a display engine confined
// to a handful of cores by cgroups/taskset doesn't oversubscribe.
func detectWorkerCount() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
