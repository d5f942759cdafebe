// errors.go - error kinds the engine surfaces. Recoverable conditions
// are sentinel errors a caller can check with errors.Is; arithmetic
// overflow and invariant violations are panics, matching the teacher's
// own convention of panicking on states that indicate a caller bug
// rather than an environmental failure.

package display

import "errors"

var (
	// ErrUnknownLayer is returned when a LayerHandle doesn't name a live
	// layer, including use-after-free.
	ErrUnknownLayer = errors.New("display: unknown layer handle")

	// ErrLayerBusy names a layer whose raw or vector context is already
	// open. No Display method returns it.
	ErrLayerBusy = errors.New("display: layer context already open")

	// ErrStopped names an operation attempted after Stop. No Display
	// method returns it.
	ErrStopped = errors.New("display: display has been stopped")

	// ErrNoMemory names an allocation that is too large. No Display
	// method returns it: buffer sizing that would overflow int arithmetic
	// panics through the checked-arithmetic helpers (MustMul) instead.
	ErrNoMemory = errors.New("display: allocation too large")
)
