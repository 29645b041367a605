package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"LEX-PDFMAP/internal/mappings"
	"LEX-PDFMAP/internal/models"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Command is one persistence request. Seq orders commands within a queue.
type Command struct {
	Seq       uint64
	Op        Op
	MappingID string
	Mapping   models.FieldMapping
	Update    mappings.UpdateRequest
}

// Ack reports the outcome of a command after all retries.
type Ack struct {
	Seq       uint64 `json:"seq"`
	Op        Op     `json:"op"`
	MappingID string `json:"mapping_id"`
	Err       error  `json:"-"`
}

func (a Ack) OK() bool { return a.Err == nil }

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
)

// Queue applies commands to a store one at a time, in submission order, on a
// single worker goroutine. Every command is idempotent, so a failed attempt is
// retried with a linearly growing pause.
type Queue struct {
	store       mappings.Store
	templateID  string
	maxAttempts int
	backoff     time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	cond    *sync.Cond
	seq     uint64
	pending []Command
	busy    bool
	closed  bool
	acks    []Ack
	done    chan struct{}
}

func NewQueue(store mappings.Store, templateID string, maxAttempts int, backoff time.Duration) *Queue {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoff < 0 {
		backoff = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		store:       store,
		templateID:  templateID,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue adds cmd and returns its sequence number.
func (q *Queue) Enqueue(cmd Command) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ErrQueueClosed
	}
	q.seq++
	cmd.Seq = q.seq
	q.pending = append(q.pending, cmd)
	q.cond.Broadcast()
	return cmd.Seq, nil
}

// Acks drains the acknowledgments collected so far.
func (q *Queue) Acks() []Ack {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.acks
	q.acks = nil
	return out
}

// Pending counts commands not yet acknowledged.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	if q.busy {
		n++
	}
	return n
}

// Flush waits until every queued command has been acknowledged or ctx is
// done.
func (q *Queue) Flush(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.pending) > 0 || q.busy {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.cond.Wait()
	}
	return nil
}

// Close applies what is still queued, then stops the worker.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()

	<-q.done
	q.cancel()
}

func (q *Queue) next() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.pending) == 0 {
		return Command{}, false
	}
	cmd := q.pending[0]
	q.pending = q.pending[1:]
	q.busy = true
	return cmd, true
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		cmd, ok := q.next()
		if !ok {
			return
		}
		err := q.execute(cmd)

		q.mu.Lock()
		q.acks = append(q.acks, Ack{Seq: cmd.Seq, Op: cmd.Op, MappingID: cmd.MappingID, Err: err})
		q.busy = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

func (q *Queue) execute(cmd Command) error {
	var lastErr error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		lastErr = q.apply(cmd)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			break
		}

		log.Printf("[editor] %s %s attempt %d/%d failed: %v", cmd.Op, cmd.MappingID, attempt, q.maxAttempts, lastErr)
		if attempt < q.maxAttempts {
			time.Sleep(time.Duration(attempt) * q.backoff)
		}
	}
	return fmt.Errorf("failed to %s mapping %s: %w", cmd.Op, cmd.MappingID, lastErr)
}

func (q *Queue) apply(cmd Command) error {
	switch cmd.Op {
	case OpCreate:
		_, err := q.store.Create(q.ctx, q.templateID, cmd.Mapping)
		return err
	case OpUpdate:
		return q.store.Update(q.ctx, cmd.MappingID, cmd.Update)
	case OpDelete:
		return q.store.Delete(q.ctx, cmd.MappingID)
	default:
		return fmt.Errorf("unknown op %q", cmd.Op)
	}
}

// retryable is false for errors another attempt cannot fix.
func retryable(err error) bool {
	return !errors.Is(err, mappings.ErrInvalidMapping) && !errors.Is(err, mappings.ErrNotFound)
}
