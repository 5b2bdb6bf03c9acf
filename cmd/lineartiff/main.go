// lineartiff converts camera RAW exposures into linearized, gamma-1.0,
// 16-bit TIFF files for negative inversion workflows. It orchestrates dcraw,
// exiftool and ImageMagick; single files on the command line, a whole
// directory in batch mode, or a long-running watch service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomkyle/negatives-lineartiff/internal/api"
	"github.com/tomkyle/negatives-lineartiff/internal/batch"
	"github.com/tomkyle/negatives-lineartiff/internal/config"
	"github.com/tomkyle/negatives-lineartiff/internal/db"
	"github.com/tomkyle/negatives-lineartiff/internal/dcraw"
	"github.com/tomkyle/negatives-lineartiff/internal/exiftool"
	"github.com/tomkyle/negatives-lineartiff/internal/job"
	"github.com/tomkyle/negatives-lineartiff/internal/magick"
	"github.com/tomkyle/negatives-lineartiff/internal/meta"
	"github.com/tomkyle/negatives-lineartiff/internal/watcher"
	"github.com/tomkyle/negatives-lineartiff/internal/worker"
)

func main() {
	opts := parseFlags()

	if err := opts.Validate(); err != nil {
		log.Fatalf("invalid options: %v", err)
	}
	checkExternalTools()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.Watch:
		runWatch(ctx, opts)
	case opts.Batch:
		runBatch(ctx, opts, flag.Args())
	default:
		runFiles(ctx, opts, flag.Args())
	}
}

func parseFlags() config.Options {
	opts := config.Options{}

	flag.BoolVar(&opts.Batch, "batch", false, "convert every RAW file in the given directory")
	flag.BoolVar(&opts.Watch, "watch", false, "run as a watch service (see LINEARTIFF_* env vars)")
	flag.BoolVar(&opts.Debug, "debug", false, "extra diagnostic output")
	flag.BoolVar(&opts.Verbose, "verbose", false, "per-stage status output")

	flag.BoolVar(&opts.Crop, "crop", false, "apply crop and shave geometry from metadata")
	flag.BoolVar(&opts.Orientation, "orientation", false, "rotate according to the orientation tag")
	flag.BoolVar(&opts.Desaturate, "desaturate", false, "convert output to linear grayscale")
	flag.StringVar(&opts.Flip, "flip", config.FlipNone, "mirror the image: flip, flop or flipflop")
	flag.IntVar(&opts.ResizeTarget, "resize", 0, "cap the longer side at this many pixels (never upscales)")
	flag.IntVar(&opts.RatingThreshold, "rating", 0, "minimum star rating; -1 includes rejected images")
	flag.StringVar(&opts.OutputDir, "output", "", "move finished TIFFs into this directory")

	cameraWB := flag.Bool("camera-wb", true, "use the white balance recorded by the camera")
	noCameraWB := flag.Bool("no-camera-wb", false, "ignore the camera white balance")
	flag.IntVar(&opts.HighlightClip, "highlight", 0, "dcraw highlight clipping mode (0-9)")
	flag.IntVar(&opts.Demosaic, "demosaic", 3, "dcraw demosaic algorithm (0-3)")
	flag.IntVar(&opts.Colorspace, "colorspace", 0, "dcraw output colorspace (0-6)")

	// Asking for help is not an error.
	flag.CommandLine.Init(os.Args[0], flag.ContinueOnError)
	if err := flag.CommandLine.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	opts.CameraWB = *cameraWB && !*noCameraWB
	if opts.Watch {
		opts.ServiceDefaults()
	}
	return opts
}

// checkExternalTools aborts before any work when a required collaborator is
// missing from PATH.
func checkExternalTools() {
	missing := false
	for _, name := range []string{"dcraw", "exiftool", "mogrify", "identify"} {
		if _, err := exec.LookPath(name); err != nil {
			log.Printf("⚠️  %s: NOT FOUND", name)
			missing = true
		}
	}
	if missing {
		log.Fatal("required external tools are missing")
	}
}

func newJob(opts config.Options) *job.Job {
	return job.New(opts, job.Deps{
		Meta:     exiftool.NewReader(),
		Repair:   exiftool.NewWriter(),
		Decode:   dcraw.New(),
		Mutate:   magick.New(),
		Profiles: magick.NewProfiles(),
	})
}

// runFiles is single-file mode: convert each named file in this process.
// Batch workers are exactly this mode, spawned as child processes.
func runFiles(ctx context.Context, opts config.Options, files []string) {
	if len(files) == 0 {
		log.Fatal("no input files given (see -h)")
	}
	reader := exiftool.NewReader()
	j := newJob(opts)
	failed := 0
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			log.Printf("⚠️  %s: unreadable, skipping: %v", f, err)
			failed++
			continue
		}
		ok, err := meta.EligibleSource(ctx, reader, meta.NewSource(f), opts.RatingThreshold)
		if err != nil {
			log.Printf("⚠️  %s: rating unreadable, skipping: %v", f, err)
			failed++
			continue
		}
		if !ok {
			log.Printf("   %s: below rating threshold %d, skipped", f, opts.RatingThreshold)
			continue
		}
		res := j.Run(ctx, f)
		if !res.Processed() {
			failed++
			continue
		}
		log.Printf("✅ %s -> %s (%v)", f, res.Output, res.Elapsed)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// runBatch fans the directory out across one child process per image.
func runBatch(ctx context.Context, opts config.Options, args []string) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	exe, err := os.Executable()
	if err != nil {
		log.Fatalf("cannot locate own executable: %v", err)
	}
	runner := func(ctx context.Context, src string) error {
		// Rating was already checked here in the dispatcher; the child
		// re-checks it with the same threshold, which is harmless.
		cmdArgs := append(opts.CLIArgs(), src)
		cmd := exec.CommandContext(ctx, exe, cmdArgs...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	d := batch.New(opts, exiftool.NewReader(), runner)
	sum, err := d.Run(ctx, root)
	if err != nil {
		log.Fatalf("batch run failed: %v", err)
	}
	fmt.Printf("processed %d of %d eligible images (%d discovered, %d failed) in %v\n",
		sum.Processed, sum.Eligible, sum.Discovered, sum.Failed, sum.Elapsed.Round(time.Millisecond))
}

// runWatch is the long-running service: index watched directories, convert
// what appears, answer status queries over HTTP.
func runWatch(ctx context.Context, opts config.Options) {
	log.Printf("starting lineartiff watch service: dirs=%v db=%s port=%d workers=%d",
		opts.WatchDirs, opts.DBPath, opts.HTTPPort, opts.MaxWorkers)

	conn, err := db.Init(opts.DBPath)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}

	queue := worker.NewQueue(opts.MaxWorkers)
	j := newJob(opts)
	pool := worker.NewPool(conn, queue, func(ctx context.Context, src string) job.Result {
		return j.Run(ctx, src)
	}, opts.MaxWorkers)

	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	pool.Run(poolCtx)

	w, err := watcher.New(opts, conn, queue)
	if err != nil {
		log.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Close()
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Printf("watcher error: %v", err)
		}
	}()

	// Initial sweep picks up whatever was dropped while the service was down.
	go func() {
		time.Sleep(500 * time.Millisecond)
		if err := w.ScanAll(ctx); err != nil {
			log.Printf("initial scan error: %v", err)
		}
	}()

	server := api.NewServer(conn, queue, w)
	httpSrv := &http.Server{Addr: fmt.Sprintf(":%d", opts.HTTPPort), Handler: server.Router}
	go func() {
		log.Printf("http server listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	w.Pause()
	queue.StopAccepting()
	_ = httpSrv.Shutdown(shutdownCtx)
	cancelPool()
	pool.Wait()
	log.Printf("shutdown complete")
}
