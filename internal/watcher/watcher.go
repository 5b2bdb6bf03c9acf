// Package watcher feeds the watch-service queue from filesystem events: RAW
// files dropped into a watched tree are indexed and enqueued once they stop
// growing.
package watcher

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"

	"github.com/tomkyle/negatives-lineartiff/internal/config"
	"github.com/tomkyle/negatives-lineartiff/internal/db"
	"github.com/tomkyle/negatives-lineartiff/internal/utils"
	"github.com/tomkyle/negatives-lineartiff/internal/worker"
)

type Watcher struct {
	opts   config.Options
	conn   *gorm.DB
	queue  *worker.Queue
	w      *fsnotify.Watcher
	roots  []string
	mu     sync.Mutex
	paused bool
}

func New(opts config.Options, conn *gorm.DB, q *worker.Queue) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{opts: opts, conn: conn, queue: q, w: w, roots: opts.WatchDirs}, nil
}

// Start registers all roots (recursively) and loops over events until ctx is
// canceled.
func (wr *Watcher) Start(ctx context.Context) error {
	if err := wr.registerAll(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-wr.w.Events:
			wr.handleEvent(ev)
		case err := <-wr.w.Errors:
			log.Printf("watcher error: %v", err)
		}
	}
}

func (wr *Watcher) Close() error { return wr.w.Close() }

func (wr *Watcher) Pause()       { wr.mu.Lock(); wr.paused = true; wr.mu.Unlock() }
func (wr *Watcher) Resume()      { wr.mu.Lock(); wr.paused = false; wr.mu.Unlock() }
func (wr *Watcher) Paused() bool { wr.mu.Lock(); defer wr.mu.Unlock(); return wr.paused }

func (wr *Watcher) registerAll() error {
	for _, root := range wr.roots {
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				_ = wr.w.Add(path)
			}
			return nil
		})
	}
	return nil
}

func (wr *Watcher) handleEvent(ev fsnotify.Event) {
	// New directories get watched too.
	if ev.Op&fsnotify.Create != 0 {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = filepath.WalkDir(ev.Name, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					_ = wr.w.Add(path)
				}
				return nil
			})
			return
		}
	}
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if wr.Paused() {
		return
	}
	if !utils.IsRawFile(ev.Name) {
		return
	}
	go func(path string) {
		// Cameras and card readers copy slowly; wait for the file to settle.
		if err := utils.WaitFileStable(path, wr.opts.StabilityDelay); err != nil {
			log.Printf("watcher: %s never settled: %v", path, err)
			return
		}
		if err := wr.indexAndEnqueue(path); err != nil {
			log.Printf("watcher: index/enqueue %s: %v", path, err)
		}
	}(ev.Name)
}

func (wr *Watcher) indexAndEnqueue(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	md5, err := utils.MD5File(path, wr.opts.MD5ChunkSize)
	if err != nil {
		return err
	}
	rec, changed, err := db.UpsertIndex(wr.conn, path, md5)
	if err != nil {
		return err
	}
	if changed {
		wr.queue.Enqueue(rec.ID)
	}
	return nil
}

// ScanAll walks every root once and enqueues anything new or changed. Used
// for the initial sweep at startup and for the scan-now API endpoint.
func (wr *Watcher) ScanAll(ctx context.Context) error {
	for _, root := range wr.roots {
		filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if err != nil || d.IsDir() || !utils.IsRawFile(path) {
				return nil
			}
			if err := wr.indexAndEnqueue(path); err != nil {
				log.Printf("watcher: scan index %s: %v", path, err)
			}
			return nil
		})
	}
	return ctx.Err()
}
