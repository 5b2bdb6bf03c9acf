// Package job runs the per-image conversion pipeline: decode, metadata
// repair, geometry and orientation preparation, mutation, and output
// placement. Every failure is isolated to the current image; a batch is
// never aborted from here.
package job

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/tomkyle/negatives-lineartiff/internal/config"
	"github.com/tomkyle/negatives-lineartiff/internal/dcraw"
	"github.com/tomkyle/negatives-lineartiff/internal/exiftool"
	"github.com/tomkyle/negatives-lineartiff/internal/geometry"
	"github.com/tomkyle/negatives-lineartiff/internal/magick"
	"github.com/tomkyle/negatives-lineartiff/internal/meta"
)

// Status is the terminal state of one image's pipeline run.
type Status string

const (
	StatusDone           Status = "done"
	StatusDecodeFailed   Status = "decode_failed"
	StatusMutationFailed Status = "mutation_failed"
	StatusPlaceFailed    Status = "place_failed"
)

// Metadata is the read side of the metadata collaborator.
type Metadata interface {
	meta.FieldReader
	ExtractPreview(ctx context.Context, path, dst string) error
}

// Repairer is the write side, used to backfill tags the decoder drops.
type Repairer interface {
	Repair(ctx context.Context, path string) error
}

// Decoder produces the linear 16-bit TIFF for a RAW file.
type Decoder interface {
	Decode(ctx context.Context, src string, opts dcraw.Options) (string, error)
}

// Mutator applies geometric/colorspace/compression directives in place and
// can measure pixel dimensions.
type Mutator interface {
	Apply(ctx context.Context, path string, directives []magick.Directive) error
	Identify(ctx context.Context, path string) (int, int, error)
}

// ProfileResolver locates the linear ICC profile files.
type ProfileResolver interface {
	Resolve(kind magick.ProfileKind) (string, error)
}

// Deps bundles the external collaborators so tests can inject fakes.
type Deps struct {
	Meta     Metadata
	Repair   Repairer
	Decode   Decoder
	Mutate   Mutator
	Profiles ProfileResolver
}

// Job converts one RAW file per Run call.
type Job struct {
	opts config.Options
	deps Deps
	logf func(format string, v ...any)
}

// Result summarizes one image's run. Output is the final TIFF path when the
// pipeline reached placement.
type Result struct {
	Source  string
	Output  string
	Status  Status
	Err     error
	Elapsed time.Duration
}

// Processed reports whether the image made it all the way through.
func (r Result) Processed() bool {
	return r.Status == StatusDone
}

func New(opts config.Options, deps Deps) *Job {
	return &Job{opts: opts, deps: deps, logf: log.Printf}
}

// SetLogf redirects status output, mainly for tests.
func (j *Job) SetLogf(logf func(format string, v ...any)) {
	j.logf = logf
}

// Run executes the full pipeline for src.
func (j *Job) Run(ctx context.Context, src string) Result {
	start := time.Now()
	res := Result{Source: src}
	finish := func(st Status, err error) Result {
		res.Status = st
		res.Err = err
		res.Elapsed = time.Since(start)
		return res
	}

	// Decoding
	tiff, err := j.deps.Decode.Decode(ctx, src, dcraw.Options{
		CameraWB:   j.opts.CameraWB,
		Highlight:  j.opts.HighlightClip,
		Demosaic:   j.opts.Demosaic,
		Colorspace: j.opts.Colorspace,
	})
	if err != nil {
		j.logf("⚠️  %s: decode failed: %v", src, err)
		return finish(StatusDecodeFailed, err)
	}
	j.stagef("✅ %s: decoded to %s", src, tiff)

	// MetadataRepair: non-fatal, the pipeline continues with whatever tags
	// the decoder left in place.
	if err := j.deps.Repair.Repair(ctx, tiff); err != nil {
		j.logf("⚠️  %s: metadata repair failed, continuing: %v", src, err)
	} else {
		j.stagef("✅ %s: metadata repaired", src)
	}

	directives := magick.FlipDirectives(j.opts.Flip)

	// GeometryPrep
	if j.opts.Crop {
		shave, crop, hasCrop := j.prepareGeometry(ctx, src, tiff)
		if !shave.Zero() {
			directives = append(directives, magick.ShaveDirective(shave))
		}
		if hasCrop {
			directives = append(directives, magick.CropDirective(crop))
		}
	}

	// OrientationPrep
	if j.opts.Orientation {
		if rot, ok := j.prepareOrientation(ctx, src); ok && rot != meta.RotateNone {
			directives = append(directives, magick.RotateDirective(rot))
		}
	}

	if j.opts.ResizeTarget > 0 {
		directives = append(directives, magick.ResizeDirective(j.opts.ResizeTarget))
	}

	kind := magick.SRGBLinear
	if j.opts.Desaturate {
		directives = append(directives, magick.GrayscaleDirective())
		kind = magick.GrayLinear
	}
	if profile, err := j.deps.Profiles.Resolve(kind); err != nil {
		j.logf("⚠️  %s: %v, output keeps the decoder's colorspace tags", src, err)
	} else {
		directives = append(directives, magick.ProfileDirective(profile))
	}
	directives = append(directives, magick.CompressDirective())

	// Mutating
	if err := j.deps.Mutate.Apply(ctx, tiff, directives); err != nil {
		j.logf("⚠️  %s: mutation failed: %v", src, err)
		return finish(StatusMutationFailed, err)
	}
	j.stagef("✅ %s: mutated (%d directives)", src, len(directives))

	// Placed
	final := tiff
	if j.opts.OutputDir != "" {
		dst := filepath.Join(j.opts.OutputDir, filepath.Base(tiff))
		if dst != tiff {
			if err := moveFile(tiff, dst); err != nil {
				j.logf("⚠️  %s: moving output failed: %v", src, err)
				res.Output = tiff
				return finish(StatusPlaceFailed, err)
			}
			final = dst
		}
	}
	res.Output = final
	j.stagef("✅ %s: placed at %s", src, final)
	return finish(StatusDone, nil)
}

// prepareGeometry derives shave margins and the crop window. Any unreadable
// dimension skips the whole computation for this image with a warning.
func (j *Job) prepareGeometry(ctx context.Context, src, tiff string) (geometry.Shave, geometry.Crop, bool) {
	decW, decH, err := j.deps.Mutate.Identify(ctx, tiff)
	if err != nil {
		j.logf("⚠️  %s: cannot measure decoded image, skipping crop/shave: %v", src, err)
		return geometry.Shave{}, geometry.Crop{}, false
	}

	shave := j.prepareShave(ctx, src, tiff, decW, decH)

	source := meta.NewSource(src)
	fractions, active, err := meta.ActiveCrop(ctx, j.deps.Meta, source)
	if err != nil {
		j.logf("⚠️  %s: crop metadata unreadable, skipping crop: %v", src, err)
		return shave, geometry.Crop{}, false
	}
	if !active {
		return shave, geometry.Crop{}, false
	}

	// Crop fractions address the image after shaving.
	effW := decW - int(math.Round(2*shave.DX))
	effH := decH - int(math.Round(2*shave.DY))
	crop := geometry.ComputeCrop(effW, effH, fractions.Top, fractions.Bottom, fractions.Left, fractions.Right)
	return shave, crop, true
}

// prepareShave measures the embedded preview and returns the symmetric
// margins between it and the decoded image. No usable preview means no
// shave.
func (j *Job) prepareShave(ctx context.Context, src, tiff string, decW, decH int) geometry.Shave {
	previewPath := tiff + ".preview"
	if err := j.deps.Meta.ExtractPreview(ctx, src, previewPath); err != nil {
		j.stagef("   %s: no usable embedded preview, skipping shave (%v)", src, err)
		return geometry.Shave{}
	}
	defer os.Remove(previewPath)

	prevW, prevH, err := j.deps.Mutate.Identify(ctx, previewPath)
	if err != nil {
		j.logf("⚠️  %s: cannot measure preview, skipping shave: %v", src, err)
		return geometry.Shave{}
	}
	if prevW == decW && prevH == decH {
		return geometry.Shave{}
	}
	return geometry.ComputeShave(decW, decH, prevW, prevH)
}

// prepareOrientation resolves the orientation code into a rotation. An
// unrecognized code warns and falls back to no rotation.
func (j *Job) prepareOrientation(ctx context.Context, src string) (meta.Rotation, bool) {
	source := meta.NewSource(src)
	code, ok, err := meta.OrientationCode(ctx, j.deps.Meta, source)
	if err != nil {
		j.logf("⚠️  %s: orientation unreadable, not rotating: %v", src, err)
		return meta.RotateNone, false
	}
	if !ok {
		// exiftool saw no tag; many RAW containers are TIFF-based and can
		// be read directly.
		code, ok = exiftool.FallbackOrientation(src)
		if !ok {
			return meta.RotateNone, false
		}
	}
	rot, recognized := meta.ResolveRotation(code)
	if !recognized {
		j.logf("⚠️  %s: unsupported orientation code %d, not rotating", src, code)
		return meta.RotateNone, false
	}
	return rot, true
}

func (j *Job) stagef(format string, v ...any) {
	if j.opts.Verbose || j.opts.Debug {
		j.logf(format, v...)
	}
}

// moveFile renames src to dst, falling back to copy-and-remove across
// filesystems.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Sync()
}
