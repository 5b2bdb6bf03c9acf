// Package worker drives the watch-service conversion pool: N goroutines
// pull indexed files off the queue, run the single-file pipeline, and record
// the outcome in the database.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tomkyle/negatives-lineartiff/internal/db"
	"github.com/tomkyle/negatives-lineartiff/internal/job"
)

// JobRunner converts one file and reports its result. The production runner
// wraps job.Job; tests inject a fake.
type JobRunner func(ctx context.Context, src string) job.Result

type Pool struct {
	conn    *gorm.DB
	queue   *Queue
	run     JobRunner
	workers int
	runID   string
	wg      sync.WaitGroup
}

func NewPool(conn *gorm.DB, q *Queue, run JobRunner, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		conn:    conn,
		queue:   q,
		run:     run,
		workers: workers,
		runID:   uuid.NewString(),
	}
}

// Run starts the workers. They exit when ctx is canceled.
func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	log.Printf("started %d conversion workers (run %s)", p.workers, p.runID)
}

// Wait blocks until all workers have returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, idx int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.queue.Chan():
			p.handle(ctx, idx, id)
		}
	}
}

func (p *Pool) handle(ctx context.Context, idx int, id uint) {
	defer p.queue.Dequeued(id)

	var rec db.FileIndex
	if err := p.conn.First(&rec, id).Error; err != nil {
		log.Printf("[worker %d] load file %d: %v", idx, id, err)
		return
	}
	if err := db.SetStatus(p.conn, rec.ID, db.StatusProcessing, ""); err != nil {
		log.Printf("[worker %d] set processing: %v", idx, err)
	}

	start := time.Now()
	res := p.run(ctx, rec.FilePath)

	if res.Processed() {
		if err := db.MarkSuccess(p.conn, rec.ID, res.Output); err != nil {
			log.Printf("[worker %d] mark success: %v", idx, err)
		}
		log.Printf("[worker %d] ✅ %s -> %s (%v)", idx, rec.FilePath, res.Output, res.Elapsed)
	} else {
		msg := string(res.Status)
		if res.Err != nil {
			msg = res.Err.Error()
		}
		if err := db.SetStatus(p.conn, rec.ID, db.StatusFailed, msg); err != nil {
			log.Printf("[worker %d] set failed: %v", idx, err)
		}
		log.Printf("[worker %d] ⚠️  %s: %s", idx, rec.FilePath, msg)
	}

	h := &db.TaskHistory{
		RunID:       p.runID,
		FileIndexID: rec.ID,
		FilePath:    rec.FilePath,
		Status:      string(res.Status),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if res.Err != nil {
		h.ErrorMsg = res.Err.Error()
	}
	if err := db.InsertTaskHistory(p.conn, h); err != nil {
		log.Printf("[worker %d] insert history: %v", idx, err)
	}
}
