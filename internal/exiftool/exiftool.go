// Package exiftool wraps the exiftool command as the metadata collaborator:
// typed field reads for RAW files and XMP sidecars, tag writes, and embedded
// preview extraction. A goexif fallback covers orientation reads on
// TIFF-based RAW containers when exiftool yields nothing for the tag.
package exiftool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// ErrSourceUnavailable marks a file that could not be read at all, as opposed
// to a file that merely lacks the requested tag.
var ErrSourceUnavailable = errors.New("metadata source unavailable")

// Reader answers typed tag queries against one file per call. A missing tag
// is reported as absent, never as an error.
type Reader struct {
	bin string
}

func NewReader() *Reader {
	return &Reader{bin: "exiftool"}
}

// Fields reads the named tags from path. Numeric tags come back as numbers
// (exiftool -n), booleans as booleans. Tags the file does not carry are
// simply missing from the map.
func (r *Reader) Fields(ctx context.Context, path string, tags ...string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err)
	}
	args := []string{"-j", "-n"}
	for _, t := range tags {
		args = append(args, "-"+t)
	}
	args = append(args, path)

	out, err := exec.CommandContext(ctx, r.bin, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: exiftool on %s: %v", ErrSourceUnavailable, path, err)
	}
	return parseFields(out)
}

// parseFields decodes exiftool -j output, a one-element JSON array.
func parseFields(out []byte) (map[string]any, error) {
	var recs []map[string]any
	if err := json.Unmarshal(out, &recs); err != nil {
		return nil, fmt.Errorf("unexpected exiftool output: %w", err)
	}
	if len(recs) == 0 {
		return map[string]any{}, nil
	}
	return recs[0], nil
}

// Int reads one integer tag. ok is false when the tag is absent.
func (r *Reader) Int(ctx context.Context, path, tag string) (int, bool, error) {
	fields, err := r.Fields(ctx, path, tag)
	if err != nil {
		return 0, false, err
	}
	return coerceInt(fields[tag])
}

// Float reads one numeric tag. ok is false when the tag is absent.
func (r *Reader) Float(ctx context.Context, path, tag string) (float64, bool, error) {
	fields, err := r.Fields(ctx, path, tag)
	if err != nil {
		return 0, false, err
	}
	return coerceFloat(fields[tag])
}

// Bool reads one boolean tag. XMP stores booleans as "True"/"False" strings
// in some writers, so strings are coerced too.
func (r *Reader) Bool(ctx context.Context, path, tag string) (bool, bool, error) {
	fields, err := r.Fields(ctx, path, tag)
	if err != nil {
		return false, false, err
	}
	return coerceBool(fields[tag])
}

func coerceInt(v any) (int, bool, error) {
	f, ok, err := coerceFloat(v)
	return int(math.Round(f)), ok, err
}

func coerceFloat(v any) (float64, bool, error) {
	switch t := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return t, true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false, nil
		}
		return f, true, nil
	default:
		return 0, false, nil
	}
}

func coerceBool(v any) (bool, bool, error) {
	switch t := v.(type) {
	case nil:
		return false, false, nil
	case bool:
		return t, true, nil
	case float64:
		return t != 0, true, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1":
			return true, true, nil
		case "false", "no", "0":
			return false, true, nil
		}
		return false, false, nil
	default:
		return false, false, nil
	}
}

// ExtractPreview writes the embedded preview image of path to dst. An empty
// preview stream counts as "no preview" and is reported as an error so the
// caller can skip the shave computation.
func (r *Reader) ExtractPreview(ctx context.Context, path, dst string) error {
	out, err := exec.CommandContext(ctx, r.bin, "-b", "-PreviewImage", path).Output()
	if err != nil {
		return fmt.Errorf("extract preview from %s: %w", path, err)
	}
	if len(out) == 0 {
		return fmt.Errorf("no embedded preview in %s", path)
	}
	return os.WriteFile(dst, out, 0o644)
}

// SidecarPath returns the XMP sidecar matched by basename, trying the
// replaced-extension form (img.xmp) first, then the appended form
// (img.nef.xmp).
func SidecarPath(path string) (string, bool) {
	candidates := []string{
		strings.TrimSuffix(path, filepath.Ext(path)) + ".xmp",
		path + ".xmp",
	}
	for _, c := range candidates {
		if c == path {
			continue
		}
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, true
		}
	}
	return "", false
}

// FallbackOrientation reads the EXIF orientation directly from a TIFF-based
// RAW container. Used when exiftool returned no value for the tag.
func FallbackOrientation(path string) (int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, false
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}

// WriteOptions control how the metadata tool touches the target file.
type WriteOptions struct {
	OverwriteOriginal bool
	Quiet             bool
}

// Writer applies tag assignments and tag copies via exiftool.
type Writer struct {
	bin string
}

func NewWriter() *Writer {
	return &Writer{bin: "exiftool"}
}

// Set assigns explicit tag values on path.
func (w *Writer) Set(ctx context.Context, path string, fields map[string]string, opts WriteOptions) error {
	args := w.baseArgs(opts)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("-%s=%s", k, fields[k]))
	}
	args = append(args, path)
	return w.run(ctx, path, args)
}

// Repair backfills the descriptive tags dcraw drops from its TIFF output by
// copying them from the standard EXIF equivalents within the same file.
func (w *Writer) Repair(ctx context.Context, path string) error {
	args := w.baseArgs(WriteOptions{OverwriteOriginal: true, Quiet: true})
	args = append(args,
		"-TagsFromFile", "@",
		"-XMP-dc:Description<EXIF:ImageDescription",
		"-XMP-dc:Creator<EXIF:Artist",
		"-XMP-tiff:Make<EXIF:Make",
		"-XMP-tiff:Model<EXIF:Model",
		"-XMP-xmp:CreatorTool<EXIF:Software",
		path,
	)
	return w.run(ctx, path, args)
}

func (w *Writer) baseArgs(opts WriteOptions) []string {
	args := []string{}
	if opts.OverwriteOriginal {
		args = append(args, "-overwrite_original")
	}
	if opts.Quiet {
		args = append(args, "-q")
	}
	return args
}

func (w *Writer) run(ctx context.Context, path string, args []string) error {
	out, err := exec.CommandContext(ctx, w.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("exiftool write on %s failed: %w, output: %s", path, err, out)
	}
	return nil
}
