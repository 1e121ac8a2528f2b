package replay

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"sfneuman.com/stampede/utils/intutils"
)

// OverflowPolicy determines what happens when trajectories arrive at a
// full queue
type OverflowPolicy string

const (
	// DropOldest discards the oldest queued trajectory to make room,
	// biasing the queue toward fresh experience
	DropOldest OverflowPolicy = "drop-oldest"

	// Block makes producers wait until the learner frees capacity
	Block OverflowPolicy = "block"
)

// ValidOverflowPolicy returns whether name refers to a known policy
func ValidOverflowPolicy(name string) bool {
	return name == string(DropOldest) || name == string(Block)
}

// Queue buffers trajectories in flight between actors and the learner.
// It is FIFO with bounded capacity: there is no ordering guarantee
// across different actors' trajectories, but one actor's stream is
// never reordered. Every queued trajectory is dequeued exactly once.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty chan struct{}

	items    *list.List
	capacity int
	policy   OverflowPolicy
	dropped  uint64
	closed   bool
}

// NewQueue creates a bounded trajectory queue with the given overflow
// policy
func NewQueue(capacity int, policy OverflowPolicy) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("newQueue: capacity must be positive, got %v",
			capacity)
	}
	if !ValidOverflowPolicy(string(policy)) {
		return nil, fmt.Errorf("newQueue: no such overflow policy %q", policy)
	}

	q := &Queue{
		items:    list.New(),
		capacity: capacity,
		policy:   policy,
		notEmpty: make(chan struct{}, 1),
	}
	q.notFull = sync.NewCond(&q.mu)

	return q, nil
}

// Enqueue adds a trajectory to the queue. Under the DropOldest policy
// it never blocks and reports whether an old trajectory was discarded
// to make room. Under the Block policy it waits for capacity or
// context cancellation.
func (q *Queue) Enqueue(ctx context.Context, t Trajectory) (dropped bool,
	err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false, fmt.Errorf("enqueue: queue closed")
	}

	if q.items.Len() >= q.capacity {
		switch q.policy {
		case DropOldest:
			q.items.Remove(q.items.Front())
			q.dropped++
			dropped = true

		case Block:
			// Cond waits cannot watch a context, so cancellation is
			// polled by waking all waiters from a watcher goroutine
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					q.notFull.Broadcast()
				case <-done:
				}
			}()

			for q.items.Len() >= q.capacity && !q.closed {
				if ctx.Err() != nil {
					return false, ctx.Err()
				}
				q.notFull.Wait()
			}
			if q.closed {
				return false, fmt.Errorf("enqueue: queue closed")
			}
		}
	}

	q.items.PushBack(t)
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}

	return dropped, nil
}

// Dequeue removes and returns up to n trajectories in FIFO order,
// blocking until at least one is available or the context is done
func (q *Queue) Dequeue(ctx context.Context, n int) ([]Trajectory, error) {
	if n <= 0 {
		return nil, fmt.Errorf("dequeue: batch size must be positive, got %v",
			n)
	}

	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			take := intutils.Min(n, q.items.Len())
			batch := make([]Trajectory, 0, take)
			for i := 0; i < take; i++ {
				front := q.items.Front()
				batch = append(batch, front.Value.(Trajectory))
				q.items.Remove(front)
			}
			q.notFull.Broadcast()
			q.mu.Unlock()
			return batch, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, fmt.Errorf("dequeue: queue closed")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notEmpty:
		}
	}
}

// Len returns the number of queued trajectories
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Capacity returns the maximum number of queued trajectories
func (q *Queue) Capacity() int {
	return q.capacity
}

// Dropped returns how many trajectories were discarded under
// backpressure
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close marks the queue closed, waking any blocked producers and
// consumers. Queued trajectories can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.notFull.Broadcast()
	select {
	case q.notEmpty <- struct{}{}:
	default:
	}
}
