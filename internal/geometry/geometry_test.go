package geometry

import "testing"

func TestComputeShave(t *testing.T) {
	tests := []struct {
		name                   string
		decW, decH, prvW, prvH int
		wantDX, wantDY         float64
	}{
		{"identical dimensions", 4000, 3000, 4000, 3000, 0, 0},
		{"even excess", 4032, 3024, 4000, 3000, 16, 12},
		{"odd excess rounds to half pixel", 4001, 3001, 4000, 3000, 0.5, 0.5},
		{"no preview width", 4000, 3000, 0, 2000, 0, 0},
		{"no preview height", 4000, 3000, 2000, 0, 0, 0},
		{"oversized preview clamps to zero", 4000, 3000, 4100, 3100, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeShave(tt.decW, tt.decH, tt.prvW, tt.prvH)
			if s.DX != tt.wantDX || s.DY != tt.wantDY {
				t.Errorf("ComputeShave(%d,%d,%d,%d) = {%v %v}, want {%v %v}",
					tt.decW, tt.decH, tt.prvW, tt.prvH, s.DX, s.DY, tt.wantDX, tt.wantDY)
			}
		})
	}
}

func TestComputeShaveZero(t *testing.T) {
	if !ComputeShave(4000, 3000, 4000, 3000).Zero() {
		t.Error("equal dimensions should yield a zero shave")
	}
	if ComputeShave(4032, 3024, 4000, 3000).Zero() {
		t.Error("mismatched dimensions should not yield a zero shave")
	}
}

func TestComputeCrop(t *testing.T) {
	c := ComputeCrop(4000, 3000, 0.1, 0.9, 0.05, 0.95)
	if c.WidthPct != 90.0 {
		t.Errorf("WidthPct = %v, want 90.0", c.WidthPct)
	}
	if c.HeightPct != 80.0 {
		t.Errorf("HeightPct = %v, want 80.0", c.HeightPct)
	}
	if c.OffsetX != 200.0 {
		t.Errorf("OffsetX = %v, want 200.0", c.OffsetX)
	}
	if c.OffsetY != 300.0 {
		t.Errorf("OffsetY = %v, want 300.0", c.OffsetY)
	}
}

func TestComputeCropRounding(t *testing.T) {
	c := ComputeCrop(3333, 2222, 0.123, 0.877, 0.111, 0.889)
	if c.WidthPct != 77.8 {
		t.Errorf("WidthPct = %v, want 77.8", c.WidthPct)
	}
	if c.HeightPct != 75.4 {
		t.Errorf("HeightPct = %v, want 75.4", c.HeightPct)
	}
	if c.OffsetX != 370.0 {
		t.Errorf("OffsetX = %v, want 370.0", c.OffsetX)
	}
	if c.OffsetY != 273.3 {
		t.Errorf("OffsetY = %v, want 273.3", c.OffsetY)
	}
}

// Valid fractions must always produce a window inside the image.
func TestComputeCropStaysInBounds(t *testing.T) {
	fractions := []struct{ top, bottom, left, right float64 }{
		{0, 1, 0, 1},
		{0.1, 0.9, 0.05, 0.95},
		{0.001, 0.999, 0.001, 0.999},
		{0.4, 0.6, 0.45, 0.55},
		{0, 0.5, 0.5, 1},
	}
	const w, h = 4000, 3000
	for _, f := range fractions {
		c := ComputeCrop(w, h, f.top, f.bottom, f.left, f.right)
		if c.OffsetX < 0 || c.OffsetY < 0 {
			t.Errorf("fractions %+v: negative offset %+v", f, c)
		}
		right := c.OffsetX + c.WidthPct/100*w
		bottom := c.OffsetY + c.HeightPct/100*h
		// 1-decimal rounding can add at most a fraction of a pixel.
		if right > w+0.5 || bottom > h+0.5 {
			t.Errorf("fractions %+v: window exceeds image: right=%v bottom=%v", f, right, bottom)
		}
		if c.WidthPct <= 0 || c.HeightPct <= 0 {
			t.Errorf("fractions %+v: non-positive size %+v", f, c)
		}
	}
}
