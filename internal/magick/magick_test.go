package magick

import (
	"slices"
	"testing"

	"github.com/tomkyle/negatives-lineartiff/internal/config"
	"github.com/tomkyle/negatives-lineartiff/internal/geometry"
	"github.com/tomkyle/negatives-lineartiff/internal/meta"
)

func TestFlipDirectives(t *testing.T) {
	tests := []struct {
		mode string
		want []string
	}{
		{config.FlipNone, nil},
		{config.FlipVertical, []string{"flip"}},
		{config.FlipMirror, []string{"flop"}},
		{config.FlipBoth, []string{"flip", "flop"}},
	}
	for _, tt := range tests {
		ds := FlipDirectives(tt.mode)
		names := make([]string, 0, len(ds))
		for _, d := range ds {
			names = append(names, d.Name)
		}
		if !slices.Equal(names, tt.want) {
			t.Errorf("FlipDirectives(%q) = %v, want %v", tt.mode, names, tt.want)
		}
	}
}

func TestDirectiveRendering(t *testing.T) {
	tests := []struct {
		name string
		d    Directive
		want string
	}{
		{"shave", ShaveDirective(geometry.Shave{DX: 16, DY: 12.5}), "16.0x12.5"},
		{"crop", CropDirective(geometry.Crop{WidthPct: 90, HeightPct: 80, OffsetX: 200, OffsetY: 300}), "90.0%x80.0%+200.0+300.0"},
		{"rotate", RotateDirective(meta.Rotate90), "90"},
		{"resize shrink-only", ResizeDirective(3000), "3000x3000>"},
		{"grayscale", GrayscaleDirective(), "Gray"},
		{"compress", CompressDirective(), "Zip"},
	}
	for _, tt := range tests {
		if tt.d.Value != tt.want {
			t.Errorf("%s: value = %q, want %q", tt.name, tt.d.Value, tt.want)
		}
	}
}

func TestDirectiveArgs(t *testing.T) {
	if got := (Directive{Name: "flip"}).args(); !slices.Equal(got, []string{"-flip"}) {
		t.Errorf("bare directive args = %v", got)
	}
	if got := (Directive{Name: "rotate", Value: "90"}).args(); !slices.Equal(got, []string{"-rotate", "90"}) {
		t.Errorf("valued directive args = %v", got)
	}
}
