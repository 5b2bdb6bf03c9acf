package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Flip directions understood by the mutation engine.
const (
	FlipNone     = ""
	FlipVertical = "flip"
	FlipMirror   = "flop"
	FlipBoth     = "flipflop"
)

// Rating threshold sentinel: include images marked rejected (-1 stars).
const RatingIncludeRejected = -1

// Options is the per-invocation configuration. It is built once in main from
// command-line flags (conversion settings) and environment variables
// (watch-service settings), validated, and then passed around read-only.
type Options struct {
	// Modes
	Batch   bool
	Watch   bool
	Debug   bool
	Verbose bool

	// Conversion pipeline
	Crop            bool
	Orientation     bool
	Desaturate      bool
	Flip            string // "", flip, flop, flipflop
	ResizeTarget    int    // longest-side pixel cap, 0 disables resizing
	RatingThreshold int    // -1..5, see RatingIncludeRejected
	OutputDir       string

	// Raw decoder
	CameraWB      bool
	HighlightClip int // 0..9
	Demosaic      int // 0..3
	Colorspace    int // 0..6

	// Watch service
	WatchDirs      []string
	DBPath         string
	HTTPPort       int
	MaxWorkers     int
	StabilityDelay time.Duration
	MD5ChunkSize   int64
}

// ServiceDefaults fills the watch-service fields from environment variables.
func (o *Options) ServiceDefaults() {
	o.WatchDirs = splitAndTrim(os.Getenv("LINEARTIFF_WATCH_DIRS"))
	o.DBPath = getEnv("LINEARTIFF_DB_PATH", "lineartiff.db")
	o.HTTPPort = getEnvInt("LINEARTIFF_HTTP_PORT", 8090)
	o.MaxWorkers = getEnvInt("LINEARTIFF_MAX_WORKERS", 4)
	o.StabilityDelay = getEnvDuration("LINEARTIFF_STABILITY_DELAY", 2*time.Second)
	o.MD5ChunkSize = getEnvInt64("LINEARTIFF_MD5_CHUNK_SIZE", 4*1024*1024)
}

// Validate reports the first malformed option. A non-nil result is fatal:
// nothing has been converted yet and nothing should be.
func (o *Options) Validate() error {
	switch o.Flip {
	case FlipNone, FlipVertical, FlipMirror, FlipBoth:
	default:
		return fmt.Errorf("invalid flip direction %q (want flip, flop or flipflop)", o.Flip)
	}
	if o.RatingThreshold < RatingIncludeRejected || o.RatingThreshold > 5 {
		return fmt.Errorf("rating threshold %d out of range [-1..5]", o.RatingThreshold)
	}
	if o.ResizeTarget < 0 {
		return fmt.Errorf("resize target %d must not be negative", o.ResizeTarget)
	}
	if o.HighlightClip < 0 || o.HighlightClip > 9 {
		return fmt.Errorf("highlight clip level %d out of range [0..9]", o.HighlightClip)
	}
	if o.Demosaic < 0 || o.Demosaic > 3 {
		return fmt.Errorf("demosaic algorithm %d out of range [0..3]", o.Demosaic)
	}
	if o.Colorspace < 0 || o.Colorspace > 6 {
		return fmt.Errorf("output colorspace %d out of range [0..6]", o.Colorspace)
	}
	if o.OutputDir != "" {
		fi, err := os.Stat(o.OutputDir)
		if err != nil {
			return fmt.Errorf("output directory %s: %w", o.OutputDir, err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("output path %s is not a directory", o.OutputDir)
		}
	}
	if o.Watch && len(o.WatchDirs) == 0 {
		return fmt.Errorf("watch mode needs LINEARTIFF_WATCH_DIRS")
	}
	return nil
}

// CLIArgs renders the conversion settings back into command-line flags so the
// batch dispatcher can re-invoke the program in single-file mode with an
// identical configuration. Mode flags (-batch, -watch) are deliberately absent.
func (o *Options) CLIArgs() []string {
	args := []string{}
	if o.Crop {
		args = append(args, "-crop")
	}
	if o.Orientation {
		args = append(args, "-orientation")
	}
	if o.Desaturate {
		args = append(args, "-desaturate")
	}
	if o.Flip != FlipNone {
		args = append(args, "-flip", o.Flip)
	}
	if o.ResizeTarget > 0 {
		args = append(args, "-resize", strconv.Itoa(o.ResizeTarget))
	}
	args = append(args, "-rating", strconv.Itoa(o.RatingThreshold))
	if o.OutputDir != "" {
		args = append(args, "-output", o.OutputDir)
	}
	if !o.CameraWB {
		args = append(args, "-no-camera-wb")
	}
	args = append(args,
		"-highlight", strconv.Itoa(o.HighlightClip),
		"-demosaic", strconv.Itoa(o.Demosaic),
		"-colorspace", strconv.Itoa(o.Colorspace),
	)
	if o.Debug {
		args = append(args, "-debug")
	}
	if o.Verbose {
		args = append(args, "-verbose")
	}
	return args
}

func splitAndTrim(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
