// codec.go - picks and runs the still-image codec an IMG op is emitted
// through: PNG for lossless or PNG-friendly, rarely redrawn regions; WebP
// (for clients that support it) or JPEG for frequently redrawn or
// PNG-unfriendly regions. Render lag does not affect which codec is
// chosen, only the quality the lossy encoders use.
//
// Pixel words are 0xAARRGGBB (alpha in the top byte), the same layout
// plan_rect.go's uniform-colour test assumes.

package display

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"time"

	"github.com/chai2010/webp"
)

// selectCodec decides which still-image codec an IMG op covering rect
// should be encoded with, following the decision tree lossless > WebP >
// JPEG > PNG: WebP is chosen only for a client that supports it, and
// only when the region updates frequently or isn't PNG-optimal; JPEG
// additionally requires the layer be opaque and the region be large
// enough to be worth the lossy encode.
func selectCodec(layer *Layer, op *PlanOp, clientSupportsWebP bool, lag time.Duration) string {
	if layer.Pending.Lossless {
		return "png"
	}
	rect := op.DestRect
	area := rect.Width() * rect.Height()
	framerate := framerateForOp(op)
	optimal := pngLikelyOptimal(layer.Pending.Buffer, rect)

	if clientSupportsWebP && (framerate >= JPEGFramerate || !optimal) {
		return "webp"
	}
	if layer.Pending.isOpaque() && framerate >= JPEGFramerate && area >= JPEGMinBitmapSize && !optimal {
		return "jpeg"
	}
	return "png"
}

// framerateForOp computes how frequently op's destination has
// historically been redrawn, in frames per second, from the frame
// sequence delta between this change and the last one at the same
// cell - the frameSeq-based redesign (see DESIGN.md) means this is an
// estimate off MinFrameDuration rather than the original's wall-clock
// timestamp delta, but the shape of the calculation is the same: 1000 /
// elapsed milliseconds, infinite if there is no prior change to diff
// against.
func framerateForOp(op *PlanOp) int {
	if op.FrameSeq <= op.PrevSeq {
		return math.MaxInt32
	}
	elapsedMs := (op.FrameSeq - op.PrevSeq) * int64(MinFrameDuration/time.Millisecond)
	if elapsedMs <= 0 {
		return math.MaxInt32
	}
	return int(1000 / elapsedMs)
}

// pngOptimality approximates how well rect would compress under PNG's
// lossless DEFLATE filters by counting same/different adjacent pixels
// per row (alpha forced opaque so stale alpha bytes don't skew the
// comparison). Positive means PNG is likely to do better than a lossy
// codec; negative means the opposite.
func pngOptimality(buf *PixelBuffer, rect Rect) int {
	if rect.Width() < 1 || rect.Height() < 1 {
		return 0
	}
	numSame := 0
	numDifferent := 1
	for y := rect.Top; y < rect.Bottom; y++ {
		lastPixel := readPixel(buf.Data, rect.Left, y, buf.Stride) | 0xFF000000
		for x := rect.Left + 1; x < rect.Right; x++ {
			cur := readPixel(buf.Data, x, y, buf.Stride) | 0xFF000000
			if cur == lastPixel {
				numSame++
			} else {
				numDifferent++
			}
			lastPixel = cur
		}
	}
	return 0x100*numSame/numDifferent - 0x400
}

// pngLikelyOptimal reports whether rect is not better served by a lossy
// codec, per pngOptimality's sign.
func pngLikelyOptimal(buf *PixelBuffer, rect Rect) bool {
	return pngOptimality(buf, rect) >= 0
}

// jpegQualityForLag implements the quality/lag trade-off: quality starts
// at 90 and drops one point per millisecond of lag beyond 20ms, floored
// at 30 so frames never degrade past recognisable.
func jpegQualityForLag(lag time.Duration) int {
	lagMs := int(lag / time.Millisecond)
	q := 90 - (lagMs - 20)
	if q < 30 {
		q = 30
	}
	if q > 90 {
		q = 90
	}
	return q
}

// blockAlign expands rect outward to the codec's block boundary (16px
// for JPEG, 8px for WebP) and clamps to the buffer's physical bounds, so
// the encoded block grid never straddles a boundary that pass 0 didn't
// already dirty.
func blockAlign(rect Rect, blockBits uint, buf *PixelBuffer) Rect {
	bounds := Rect{Right: buf.Width, Bottom: buf.Height}
	return rect.Align(blockBits).Constrain(bounds)
}

// encodeImage renders rect of buf through codec, returning the encoded
// bytes. codec must be "png", "jpeg" or "webp".
func encodeImage(codec string, buf *PixelBuffer, rect Rect, lag time.Duration) ([]byte, error) {
	switch codec {
	case "jpeg":
		rect = blockAlign(rect, JPEGBlockSizeExp, buf)
	case "webp":
		rect = blockAlign(rect, WebPBlockSizeExp, buf)
	}
	img := buildNRGBA(buf, rect)

	var out bytes.Buffer
	var err error
	switch codec {
	case "png":
		err = png.Encode(&out, img)
	case "jpeg":
		err = jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQualityForLag(lag)})
	case "webp":
		err = webp.Encode(&out, img, &webp.Options{Lossless: false, Quality: float32(jpegQualityForLag(lag))})
	default:
		err = png.Encode(&out, img)
	}
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// buildNRGBA materialises rect of buf as a standalone image.NRGBA so the
// stdlib/webp encoders never see the layer's full backing buffer or its
// stride padding.
func buildNRGBA(buf *PixelBuffer, rect Rect) *image.NRGBA {
	w, h := rect.Width(), rect.Height()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := readPixel(buf.Data, rect.Left+x, rect.Top+y, buf.Stride)
			off := img.PixOffset(x, y)
			img.Pix[off+0] = byte(v >> 16) // R
			img.Pix[off+1] = byte(v >> 8)  // G
			img.Pix[off+2] = byte(v)       // B
			img.Pix[off+3] = byte(v >> 24) // A
		}
	}
	return img
}
