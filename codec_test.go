// codec_test.go - tests for still-image codec selection and the quality/lag
// trade-off.

package display

import (
	"testing"
	"time"
)

func newCodecTestLayer(w, h int) *Layer {
	return newLayer(1, w, h)
}

// frequentOp returns a PlanOp whose FrameSeq/PrevSeq gap implies a high
// framerate (redrawn on consecutive frames).
func frequentOp(rect Rect) *PlanOp {
	return &PlanOp{DestRect: rect, FrameSeq: 2, PrevSeq: 1}
}

// infrequentOp returns a PlanOp whose FrameSeq/PrevSeq gap implies a low
// framerate (redrawn roughly once a second).
func infrequentOp(rect Rect) *PlanOp {
	return &PlanOp{DestRect: rect, FrameSeq: 101, PrevSeq: 1}
}

func TestSelectCodecLosslessForcesPNG(t *testing.T) {
	l := newCodecTestLayer(256, 256)
	l.Pending.Lossless = true
	got := selectCodec(l, frequentOp(NewRect(0, 0, 256, 256)), true, time.Second)
	if got != "png" {
		t.Fatalf("lossless layer should always encode as png, got %q", got)
	}
}

func TestSelectCodecSmallAreaForcesPNG(t *testing.T) {
	l := newCodecTestLayer(256, 256)
	got := selectCodec(l, frequentOp(NewRect(0, 0, 16, 16)), false, time.Second)
	if got != "png" {
		t.Fatalf("area below JPEGMinBitmapSize should encode as png, got %q", got)
	}
}

func TestSelectCodecLowFramerateOptimalRegionKeepsPNG(t *testing.T) {
	l := newCodecTestLayer(256, 256)
	got := selectCodec(l, infrequentOp(NewRect(0, 0, 256, 256)), true, time.Millisecond)
	if got != "png" {
		t.Fatalf("an infrequently-redrawn, optimal region should keep png, got %q", got)
	}
}

func TestSelectCodecClientWithoutWebPSupportNeverPicksWebP(t *testing.T) {
	l := newCodecTestLayer(512, 512)
	for y := 0; y < 512; y++ {
		for x := 0; x < 512; x++ {
			v := uint32(0xFF000000) | uint32((x*31+y*17)&0xFFFFFF)
			writePixel(l.Pending.Buffer.Data, x, y, l.Pending.Buffer.Stride, v)
		}
	}
	got := selectCodec(l, frequentOp(NewRect(0, 0, 512, 512)), false, 0)
	if got == "webp" {
		t.Fatalf("a client without WebP support must never be offered webp")
	}
}

func TestSelectCodecLargeNoisyAreaWithWebPClientPicksWebP(t *testing.T) {
	l := newCodecTestLayer(512, 512)
	// Make the region non-redundant so pngLikelyOptimal doesn't reclaim it.
	for y := 0; y < 512; y++ {
		for x := 0; x < 512; x++ {
			v := uint32(0xFF000000) | uint32((x*31+y*17)&0xFFFFFF)
			writePixel(l.Pending.Buffer.Data, x, y, l.Pending.Buffer.Stride, v)
		}
	}
	got := selectCodec(l, frequentOp(NewRect(0, 0, 512, 512)), true, 0)
	if got != "webp" {
		t.Fatalf("a frequently-redrawn noisy area on a webp-capable client should pick webp, got %q", got)
	}
}

func TestSelectCodecMidAreaNoisyOpaqueLayerPicksJPEG(t *testing.T) {
	l := newCodecTestLayer(128, 128)
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			v := uint32(0xFF000000) | uint32((x*31+y*17)&0xFFFFFF)
			writePixel(l.Pending.Buffer.Data, x, y, l.Pending.Buffer.Stride, v)
		}
	}
	got := selectCodec(l, frequentOp(NewRect(0, 0, 128, 128)), false, 0)
	if got != "jpeg" {
		t.Fatalf("a frequently-redrawn noisy opaque region without a webp client should pick jpeg, got %q", got)
	}
}

func TestSelectCodecNonOpaqueLayerNeverPicksJPEG(t *testing.T) {
	l := newCodecTestLayer(128, 128)
	l.Pending.Opacity = 0x80
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			v := uint32(0xFF000000) | uint32((x*31+y*17)&0xFFFFFF)
			writePixel(l.Pending.Buffer.Data, x, y, l.Pending.Buffer.Stride, v)
		}
	}
	got := selectCodec(l, frequentOp(NewRect(0, 0, 128, 128)), false, 0)
	if got == "jpeg" {
		t.Fatalf("a non-opaque layer must never be offered jpeg")
	}
}

func TestPngLikelyOptimalFlatRegion(t *testing.T) {
	buf := newOwnedBuffer(64, 64)
	fillUniform(buf, NewRect(0, 0, 64, 64), 0xFF223344)
	if !pngLikelyOptimal(buf, NewRect(0, 0, 64, 64)) {
		t.Fatalf("a uniform region should be reported as png-optimal")
	}
}

func TestPngLikelyOptimalNoisyRegion(t *testing.T) {
	buf := newOwnedBuffer(64, 64)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint32(0xFF000000) | uint32((x*131+y*977)&0xFFFFFF)
			writePixel(buf.Data, x, y, buf.Stride, v)
		}
	}
	if pngLikelyOptimal(buf, NewRect(0, 0, 64, 64)) {
		t.Fatalf("a fully noisy region should not be reported as png-optimal")
	}
}

func TestFramerateForOpInfiniteWhenIdentical(t *testing.T) {
	op := &PlanOp{FrameSeq: 5, PrevSeq: 5}
	if got := framerateForOp(op); got != 1<<31-1 {
		t.Fatalf("identical frame/prev sequence should report max framerate, got %d", got)
	}
}

func TestJpegQualityForLagClampsAtFloor(t *testing.T) {
	if q := jpegQualityForLag(10 * time.Second); q != 30 {
		t.Fatalf("got quality %d, want floor of 30", q)
	}
}

func TestJpegQualityForLagClampsAtCeiling(t *testing.T) {
	if q := jpegQualityForLag(0); q != 90 {
		t.Fatalf("got quality %d, want ceiling of 90", q)
	}
}

func TestJpegQualityForLagMidRange(t *testing.T) {
	// 20ms lag is the point quality starts degrading from 90.
	if q := jpegQualityForLag(40 * time.Millisecond); q != 70 {
		t.Fatalf("got quality %d, want 70", q)
	}
}

func TestEncodeImageRoundTripsPNG(t *testing.T) {
	buf := newOwnedBuffer(32, 32)
	fillUniform(buf, NewRect(0, 0, 32, 32), 0xFFAABBCC)
	data, err := encodeImage("png", buf, NewRect(0, 0, 32, 32), 0)
	if err != nil {
		t.Fatalf("encodeImage: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty encoded output")
	}
}
