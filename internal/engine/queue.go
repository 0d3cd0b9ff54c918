package engine

import (
	"context"
	"sync"

	"github.com/roach88/wtas/internal/ir"
	"github.com/roach88/wtas/internal/protocol"
)

// cell holds a latest-wins value. A newer Store replaces an untaken one.
type cell[T any] struct {
	v   T
	set bool
}

func (c *cell[T]) store(v T) { c.v, c.set = v, true }

func (c *cell[T]) take() (T, bool) {
	v, ok := c.v, c.set
	var zero T
	c.v, c.set = zero, false
	return v, ok
}

// latest is the set of latest-wins values taken from the inbox in one go.
type latest struct {
	skipTo    *uint32
	pauseAt   *uint32
	traceOpts *ir.TraceDrawOptions
}

// inbox is the bounded controller -> driver hand-off.
//
// Ordered commands go through a FIFO of fixed capacity. SkipTo, PauseAt and
// SetTraceOptions bypass it and overwrite a cell instead, since only the
// most recent value matters.
//
// Submit may be called from any goroutine; TryDequeue, takeLatest and the
// wait on Wait belong to the driver.
type inbox struct {
	mu       sync.Mutex
	cmds     []protocol.Command
	capacity int
	closed   bool

	skipTo    cell[uint32]
	pauseAt   cell[uint32]
	traceOpts cell[ir.TraceDrawOptions]

	signal chan struct{} // something may be available (buffered, size 1)
	space  chan struct{} // a slot may have freed up (buffered, size 1)
	done   chan struct{} // closed by Close
}

func newInbox(capacity int) *inbox {
	if capacity < 1 {
		capacity = 1
	}
	return &inbox{
		cmds:     make([]protocol.Command, 0, capacity),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Submit hands a command to the driver. When the FIFO is full it blocks
// until a slot frees up, ctx is done, or the inbox is closed.
func (q *inbox) Submit(ctx context.Context, cmd protocol.Command) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}

		stored, room := true, false
		switch c := cmd.(type) {
		case protocol.SkipTo:
			q.skipTo.store(c.Tick)
		case protocol.PauseAt:
			q.pauseAt.store(c.Tick)
		case protocol.SetTraceOptions:
			q.traceOpts.store(c.Options)
		default:
			if len(q.cmds) < q.capacity {
				q.cmds = append(q.cmds, cmd)
				room = len(q.cmds) < q.capacity
			} else {
				stored = false
			}
		}
		q.mu.Unlock()

		if stored {
			notify(q.signal)
			if room {
				// pass the wakeup on to any other blocked submitter
				notify(q.space)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return ErrClosed
		case <-q.space:
		}
	}
}

// TryDequeue removes the oldest queued command without blocking.
func (q *inbox) TryDequeue() (protocol.Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.cmds) == 0 {
		return nil, false
	}

	cmd := q.cmds[0]
	q.cmds[0] = nil
	if len(q.cmds) == 1 {
		q.cmds = q.cmds[:0]
	} else {
		q.cmds = q.cmds[1:]
	}

	notify(q.space)
	return cmd, true
}

// takeLatest empties the latest-wins cells.
func (q *inbox) takeLatest() latest {
	q.mu.Lock()
	defer q.mu.Unlock()

	var l latest
	if v, ok := q.skipTo.take(); ok {
		l.skipTo = &v
	}
	if v, ok := q.pauseAt.take(); ok {
		l.pauseAt = &v
	}
	if v, ok := q.traceOpts.take(); ok {
		l.traceOpts = &v
	}
	return l
}

// Wait returns a channel that signals when commands may be available.
func (q *inbox) Wait() <-chan struct{} {
	return q.signal
}

// Done is closed once the inbox is closed.
func (q *inbox) Done() <-chan struct{} {
	return q.done
}

// Len returns the number of queued (not latest-wins) commands.
func (q *inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.cmds)
}

// Close rejects further submissions and wakes blocked submitters.
// Already queued commands can still be dequeued.
func (q *inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
