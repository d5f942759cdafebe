// ckd.go - checked arithmetic for pixel-address and allocation-size math.
//
// Two forms exist deliberately: the checked form returns an error so a
// caller sizing an allocation can fail gracefully, while the "must" form
// panics immediately because continuing with a wrapped pixel address would
// mean writing through a corrupt pointer.

package display

import (
	"errors"
	"math"
)

// ErrOverflow is returned by the checked arithmetic helpers when an
// operation would wrap.
var ErrOverflow = errors.New("display: arithmetic overflow")

// CkdMul multiplies a and b, returning ErrOverflow instead of wrapping.
func CkdMul(a, b int) (int, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := a * b
	if result/b != a {
		return 0, ErrOverflow
	}
	return result, nil
}

// CkdAdd adds a and b, returning ErrOverflow instead of wrapping.
func CkdAdd(a, b int) (int, error) {
	result := a + b
	if (b > 0 && result < a) || (b < 0 && result > a) {
		return 0, ErrOverflow
	}
	return result, nil
}

// CkdSub subtracts b from a, returning ErrOverflow instead of wrapping.
func CkdSub(a, b int) (int, error) {
	result := a - b
	if (b < 0 && result < a) || (b > 0 && result > a) {
		return 0, ErrOverflow
	}
	return result, nil
}

// MustMul multiplies a and b or panics. Used on the address-computation hot
// path where a wrapped result would mean a corrupt buffer offset; there is
// no meaningful way to recover from that, so the process aborts instead of
// propagating garbage.
func MustMul(a, b int) int {
	result, err := CkdMul(a, b)
	if err != nil {
		panic(err)
	}
	return result
}

// MustAdd adds a and b or panics, for the same reason as MustMul.
func MustAdd(a, b int) int {
	result, err := CkdAdd(a, b)
	if err != nil {
		panic(err)
	}
	return result
}

// pixelOffset computes the byte offset of (x, y) within a buffer of the
// given stride (bytes per row), panicking on overflow. stride and the
// pixel size are always small positive constants in practice; this exists
// to make the multiplication path auditable in one place.
func pixelOffset(x, y, stride int) int {
	return MustAdd(MustMul(y, stride), MustMul(x, bytesPerPixel))
}

// maxInt is the maximum representable value of a platform int. Nothing in
// the package consults it.
const maxInt = math.MaxInt
