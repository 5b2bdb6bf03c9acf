// Package geometry derives pixel-space shave margins and crop rectangles
// from metadata, reconciling the decoded sensor dimensions with the smaller
// embedded preview that editing tools display.
package geometry

import "math"

// Shave holds symmetric per-edge margins in pixels.
type Shave struct {
	DX, DY float64
}

// Zero reports whether shaving is a no-op.
func (s Shave) Zero() bool {
	return s.DX == 0 && s.DY == 0
}

// Crop is a percent-sized, pixel-offset crop window in the form the mutation
// engine accepts.
type Crop struct {
	WidthPct  float64
	HeightPct float64
	OffsetX   float64
	OffsetY   float64
}

// ComputeShave returns half the difference between the decoded sensor
// dimensions and the embedded preview dimensions, per side. RAW sensor data
// is commonly larger than the preview a converter shows because the preview
// reflects an in-camera crop; shaving the excess symmetrically reproduces
// what the editor saw. This assumes the excess is centered — a modeling
// assumption that holds for the camera/converter combinations observed so
// far, not a guarantee.
func ComputeShave(decodedW, decodedH, previewW, previewH int) Shave {
	if previewW <= 0 || previewH <= 0 {
		return Shave{}
	}
	return Shave{
		DX: math.Max(0, round1(float64(decodedW-previewW)/2)),
		DY: math.Max(0, round1(float64(decodedH-previewH)/2)),
	}
}

// ComputeCrop converts edge fractions into the engine's crop window. All
// four fractions are in [0,1] relative to the image dimensions after any
// shave; width and height become percentages, offsets become pixels.
func ComputeCrop(imageW, imageH int, top, bottom, left, right float64) Crop {
	return Crop{
		WidthPct:  round1((right - left) * 100),
		HeightPct: round1((bottom - top) * 100),
		OffsetX:   round1(float64(imageW) * left),
		OffsetY:   round1(float64(imageH) * top),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
