// Package batch discovers eligible RAW files in a directory and fans them
// out across a bounded pool of workers. Each worker is an OS-level
// re-invocation of this program in single-file mode, so a crash while
// converting one image can never take the batch down, and the model matches
// the external tools' own process-per-invocation behavior.
package batch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomkyle/negatives-lineartiff/internal/config"
	"github.com/tomkyle/negatives-lineartiff/internal/meta"
	"github.com/tomkyle/negatives-lineartiff/internal/utils"
)

// Runner converts a single file. The default runner spawns a child process;
// tests substitute an in-process fake.
type Runner func(ctx context.Context, src string) error

// Summary is everything the dispatcher reports back about a run. Processed
// counts every image a worker ran, failures included; Failed is the subset
// whose worker exited with an error.
type Summary struct {
	Discovered int
	Eligible   int
	Processed  int
	Failed     int
	Elapsed    time.Duration
}

// Dispatcher runs one batch over a search root.
type Dispatcher struct {
	opts    config.Options
	reader  meta.FieldReader
	runner  Runner
	workers int
	logf    func(format string, v ...any)
}

func New(opts config.Options, reader meta.FieldReader, runner Runner) *Dispatcher {
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Dispatcher{
		opts:    opts,
		reader:  reader,
		runner:  runner,
		workers: workers,
		logf:    log.Printf,
	}
}

// SetLogf redirects status output, mainly for tests.
func (d *Dispatcher) SetLogf(logf func(format string, v ...any)) {
	d.logf = logf
}

// Run enumerates RAW files directly under root (non-recursive), filters them
// by rating threshold, and converts the survivors concurrently. Individual
// failures are warnings; only the enumeration itself can fail the run.
func (d *Dispatcher) Run(ctx context.Context, root string) (Summary, error) {
	start := time.Now()
	sum := Summary{}

	files, err := DiscoverRaw(root)
	if err != nil {
		return sum, err
	}
	sum.Discovered = len(files)

	eligible := make([]string, 0, len(files))
	for _, f := range files {
		ok, err := meta.EligibleSource(ctx, d.reader, meta.NewSource(f), d.opts.RatingThreshold)
		if err != nil {
			d.logf("⚠️  %s: rating unreadable, skipping: %v", f, err)
			continue
		}
		if !ok {
			d.logf("   %s: below rating threshold %d, skipped", f, d.opts.RatingThreshold)
			continue
		}
		eligible = append(eligible, f)
	}
	sum.Eligible = len(eligible)

	// The work list lives in a per-run temp directory that is removed
	// unconditionally, interrupted runs included: main cancels ctx on
	// SIGINT/SIGTERM, Run returns, and the deferred cleanup fires.
	workDir, err := os.MkdirTemp("", "lineartiff-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return sum, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := writeWorkList(workDir, eligible); err != nil {
		return sum, err
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		processed int
		failed    int
	)
	sem := make(chan struct{}, d.workers)

	for _, f := range eligible {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			defer func() { <-sem }()
			err := d.runner(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			processed++
			if err != nil {
				failed++
				d.logf("⚠️  %s: conversion failed: %v", src, err)
			}
		}(f)
	}
	wg.Wait()

	sum.Processed = processed
	sum.Failed = failed
	sum.Elapsed = time.Since(start)
	return sum, nil
}

// DiscoverRaw lists regular files directly under root with a recognized RAW
// extension, case-insensitively. Subdirectories are not descended into.
func DiscoverRaw(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read search root %s: %w", root, err)
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() || !e.Type().IsRegular() {
			continue
		}
		if utils.IsRawFile(e.Name()) {
			files = append(files, filepath.Join(root, e.Name()))
		}
	}
	return files, nil
}

// writeWorkList persists the run's input set, one path per line. Workers get
// their assignment via argv; the list exists so an interrupted or misbehaving
// run can be inspected (and re-driven by hand) while the work dir lives.
func writeWorkList(dir string, files []string) error {
	list := strings.Join(files, "\n")
	if list != "" {
		list += "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "worklist.txt"), []byte(list), 0o644); err != nil {
		return fmt.Errorf("write work list: %w", err)
	}
	return nil
}
