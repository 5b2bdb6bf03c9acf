// Package magick wraps ImageMagick's mogrify and identify commands as the
// pixel-mutation collaborator. Callers build an ordered directive list; the
// order is applied verbatim, which matters because shave and crop address
// original pixel coordinates and must run before rotation and resize.
package magick

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/tomkyle/negatives-lineartiff/internal/config"
	"github.com/tomkyle/negatives-lineartiff/internal/geometry"
	"github.com/tomkyle/negatives-lineartiff/internal/meta"
)

// Directive is a single mogrify operation. Value may be empty for bare
// switches like -flip.
type Directive struct {
	Name  string
	Value string
}

func (d Directive) args() []string {
	if d.Value == "" {
		return []string{"-" + d.Name}
	}
	return []string{"-" + d.Name, d.Value}
}

// FlipDirectives maps a flip mode to its mirror operations.
func FlipDirectives(mode string) []Directive {
	switch mode {
	case config.FlipVertical:
		return []Directive{{Name: "flip"}}
	case config.FlipMirror:
		return []Directive{{Name: "flop"}}
	case config.FlipBoth:
		return []Directive{{Name: "flip"}, {Name: "flop"}}
	default:
		return nil
	}
}

// ShaveDirective removes s.DX pixels from the left and right edges and s.DY
// from the top and bottom.
func ShaveDirective(s geometry.Shave) Directive {
	return Directive{Name: "shave", Value: fmt.Sprintf("%.1fx%.1f", s.DX, s.DY)}
}

// CropDirective renders a percent-sized, pixel-offset crop window.
func CropDirective(c geometry.Crop) Directive {
	return Directive{
		Name:  "crop",
		Value: fmt.Sprintf("%.1f%%x%.1f%%+%.1f+%.1f", c.WidthPct, c.HeightPct, c.OffsetX, c.OffsetY),
	}
}

// RotateDirective rotates clockwise by the resolved orientation.
func RotateDirective(r meta.Rotation) Directive {
	return Directive{Name: "rotate", Value: strconv.Itoa(int(r))}
}

// ResizeDirective caps the longer side at maxPx, preserving aspect ratio.
// The trailing ">" makes ImageMagick shrink-only; an image already smaller
// than the cap is never upscaled.
func ResizeDirective(maxPx int) Directive {
	return Directive{Name: "resize", Value: fmt.Sprintf("%dx%d>", maxPx, maxPx)}
}

// GrayscaleDirective collapses the image to a single gray channel.
func GrayscaleDirective() Directive {
	return Directive{Name: "colorspace", Value: "Gray"}
}

// ProfileDirective assigns an ICC profile file.
func ProfileDirective(path string) Directive {
	return Directive{Name: "profile", Value: path}
}

// CompressDirective applies lossless Zip compression to the TIFF.
func CompressDirective() Directive {
	return Directive{Name: "compress", Value: "Zip"}
}

// Mutator applies directive lists in place via mogrify.
type Mutator struct {
	mogrify  string
	identify string
}

func New() *Mutator {
	return &Mutator{mogrify: "mogrify", identify: "identify"}
}

// Apply mutates path in place with the directives in order.
func (m *Mutator) Apply(ctx context.Context, path string, directives []Directive) error {
	if len(directives) == 0 {
		return nil
	}
	args := []string{}
	for _, d := range directives {
		args = append(args, d.args()...)
	}
	args = append(args, path)
	out, err := exec.CommandContext(ctx, m.mogrify, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mogrify failed on %s: %w, output: %s", path, err, out)
	}
	return nil
}

// Identify returns the pixel dimensions of path.
func (m *Mutator) Identify(ctx context.Context, path string) (int, int, error) {
	out, err := exec.CommandContext(ctx, m.identify, "-ping", "-format", "%w %h", path).Output()
	if err != nil {
		return 0, 0, fmt.Errorf("identify failed on %s: %w", path, err)
	}
	var w, h int
	if _, err := fmt.Fscan(bytes.NewReader(out), &w, &h); err != nil {
		return 0, 0, fmt.Errorf("unexpected identify output %q for %s: %w", out, path, err)
	}
	return w, h, nil
}
