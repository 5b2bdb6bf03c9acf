package worker

import "sync"

// Queue carries FileIndex IDs to the pool. A file already waiting is not
// enqueued twice, and a stopped queue silently refuses new work so shutdown
// can drain what is left.
type Queue struct {
	ch        chan uint
	mu        sync.Mutex
	enqueued  map[uint]struct{}
	accepting bool
}

func NewQueue(buf int) *Queue {
	return &Queue{
		ch:        make(chan uint, buf*2+10),
		enqueued:  make(map[uint]struct{}),
		accepting: true,
	}
}

func (q *Queue) Enqueue(id uint) bool {
	q.mu.Lock()
	if !q.accepting {
		q.mu.Unlock()
		return false
	}
	if _, ok := q.enqueued[id]; ok {
		q.mu.Unlock()
		return false
	}
	q.enqueued[id] = struct{}{}
	q.mu.Unlock()

	// The send must not hold the mutex: with a full channel and all workers
	// busy, a locked send would wedge Dequeued and with it every worker.
	q.ch <- id
	return true
}

func (q *Queue) Dequeued(id uint) {
	q.mu.Lock()
	delete(q.enqueued, id)
	q.mu.Unlock()
}

func (q *Queue) StopAccepting() {
	q.mu.Lock()
	q.accepting = false
	q.mu.Unlock()
}

func (q *Queue) Chan() <-chan uint { return q.ch }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}
