// Package dcraw wraps the dcraw command as the raw-decode collaborator. The
// output mode is pinned to 16-bit linear TIFF; everything else is a typed
// option translated to flags at the call boundary.
package dcraw

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Options are the decoder settings dcraw exposes that we let callers vary.
type Options struct {
	CameraWB   bool // -w: use the white balance the camera recorded
	Highlight  int  // -H: highlight clipping mode, 0-9
	Demosaic   int  // -q: interpolation quality, 0-3
	Colorspace int  // -o: output colorspace, 0-6
}

// Args renders the options plus the fixed 16-bit linear TIFF output mode
// into a dcraw argument list for src.
func (o Options) Args(src string) []string {
	args := []string{}
	if o.CameraWB {
		args = append(args, "-w")
	}
	args = append(args,
		"-H", strconv.Itoa(o.Highlight),
		"-q", strconv.Itoa(o.Demosaic),
		"-o", strconv.Itoa(o.Colorspace),
		"-4", "-T",
		src,
	)
	return args
}

// OutputPath is where dcraw -T writes its TIFF: next to the input, basename
// plus .tiff.
func OutputPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".tiff"
}

// Decoder invokes dcraw for one file at a time.
type Decoder struct {
	bin string
}

func New() *Decoder {
	return &Decoder{bin: "dcraw"}
}

// Decode runs dcraw on src and returns the decoded TIFF path. Some dcraw
// builds exit zero without writing anything for unsupported files, so the
// output's existence is verified and its absence is a decode failure in its
// own right.
func (d *Decoder) Decode(ctx context.Context, src string, opts Options) (string, error) {
	out, err := exec.CommandContext(ctx, d.bin, opts.Args(src)...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("dcraw failed on %s: %w, output: %s", src, err, out)
	}
	tiff := OutputPath(src)
	if _, err := os.Stat(tiff); err != nil {
		return "", fmt.Errorf("dcraw reported success on %s but wrote no output: %w", src, err)
	}
	return tiff, nil
}
