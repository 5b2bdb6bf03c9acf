// Package meta turns raw tag reads into the decisions the pipeline needs:
// which file (primary or sidecar) supplies a field, whether an image passes
// the rating filter, which rotation an orientation code calls for, and which
// crop fractions are active.
package meta

import (
	"context"

	"github.com/tomkyle/negatives-lineartiff/internal/exiftool"
)

// Tag names as exiftool reports them.
const (
	TagRating      = "Rating"
	TagOrientation = "Orientation"
	TagHasCrop     = "HasCrop"
	TagCropTop     = "CropTop"
	TagCropBottom  = "CropBottom"
	TagCropLeft    = "CropLeft"
	TagCropRight   = "CropRight"
	TagImageWidth  = "ImageWidth"
	TagImageHeight = "ImageHeight"
)

// FieldReader is the slice of the metadata collaborator this package needs.
type FieldReader interface {
	Int(ctx context.Context, path, tag string) (int, bool, error)
	Float(ctx context.Context, path, tag string) (float64, bool, error)
	Bool(ctx context.Context, path, tag string) (bool, bool, error)
}

// Source pairs a primary file with its optional XMP sidecar.
type Source struct {
	Path    string
	Sidecar string // empty when no sidecar exists
}

// NewSource probes the filesystem for a sidecar matched by basename.
func NewSource(path string) Source {
	src := Source{Path: path}
	if sc, ok := exiftool.SidecarPath(path); ok {
		src.Sidecar = sc
	}
	return src
}

// lookup resolves a field with sidecar-overrides-primary precedence: when a
// sidecar exists and carries the field, its value wins; otherwise the primary
// file is consulted. Rating and orientation both follow this rule.
func lookup[T any](src Source, get func(path string) (T, bool, error)) (T, bool, error) {
	if src.Sidecar != "" {
		v, ok, err := get(src.Sidecar)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return get(src.Path)
}

// Rating returns the effective star rating of src. An absent rating counts
// as 0; only a failing read mechanism propagates as an error.
func Rating(ctx context.Context, r FieldReader, src Source) (int, error) {
	v, ok, err := lookup(src, func(p string) (int, bool, error) {
		return r.Int(ctx, p, TagRating)
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return v, nil
}

// Eligible applies the rating threshold: -1 includes rejected images, 0
// excludes only rejected, 1-5 require at least that many stars.
func Eligible(rating, threshold int) bool {
	return rating >= threshold
}

// EligibleSource combines Rating and Eligible for one image.
func EligibleSource(ctx context.Context, r FieldReader, src Source, threshold int) (bool, error) {
	rating, err := Rating(ctx, r, src)
	if err != nil {
		return false, err
	}
	return Eligible(rating, threshold), nil
}

// Rotation is the directive handed to the mutation engine, in degrees
// clockwise.
type Rotation int

const (
	RotateNone Rotation = 0
	Rotate90   Rotation = 90
	Rotate180  Rotation = 180
	Rotate270  Rotation = 270
)

// ResolveRotation maps an EXIF orientation code to a rotation. Codes outside
// {1,3,6,8} usually mean corrupt or unsupported metadata; ok is false and the
// caller proceeds without rotating.
func ResolveRotation(code int) (Rotation, bool) {
	switch code {
	case 1:
		return RotateNone, true
	case 6:
		return Rotate90, true
	case 3:
		return Rotate180, true
	case 8:
		return Rotate270, true
	default:
		return RotateNone, false
	}
}

// OrientationCode reads the orientation tag, sidecar first. ok is false when
// neither file carries one.
func OrientationCode(ctx context.Context, r FieldReader, src Source) (int, bool, error) {
	return lookup(src, func(p string) (int, bool, error) {
		return r.Int(ctx, p, TagOrientation)
	})
}

// CropFractions are the four crop edges as fractions of the full image
// dimensions, all in [0,1].
type CropFractions struct {
	Top, Bottom, Left, Right float64
}

// ActiveCrop selects the crop source. The primary file's crop-active flag is
// checked first; only when it is false or absent is the sidecar consulted.
// Whichever file reports an active crop supplies all four fractions —
// fractions are never mixed across sources.
func ActiveCrop(ctx context.Context, r FieldReader, src Source) (CropFractions, bool, error) {
	paths := []string{src.Path}
	if src.Sidecar != "" {
		paths = append(paths, src.Sidecar)
	}
	for _, p := range paths {
		active, ok, err := r.Bool(ctx, p, TagHasCrop)
		if err != nil {
			return CropFractions{}, false, err
		}
		if !ok || !active {
			continue
		}
		f, err := readFractions(ctx, r, p)
		if err != nil {
			return CropFractions{}, false, err
		}
		return f, true, nil
	}
	return CropFractions{}, false, nil
}

func readFractions(ctx context.Context, r FieldReader, path string) (CropFractions, error) {
	var f CropFractions
	for _, e := range []struct {
		tag string
		dst *float64
	}{
		{TagCropTop, &f.Top},
		{TagCropBottom, &f.Bottom},
		{TagCropLeft, &f.Left},
		{TagCropRight, &f.Right},
	} {
		v, _, err := r.Float(ctx, path, e.tag)
		if err != nil {
			return CropFractions{}, err
		}
		*e.dst = v
	}
	return f, nil
}
