package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher hands events to a sink on its own goroutine, off the sign and
// verify path.
type Dispatcher struct {
	sink       Sink
	logger     *zap.Logger
	dropIfFull bool

	// mu guards queue against a send racing the close in Close.
	mu       sync.RWMutex
	queue    chan Event
	shut     bool
	stopping chan struct{}
	stopOnce sync.Once
	finished chan struct{}

	dropped atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg is disabled;
// every method is safe on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink, logger *zap.Logger) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:       sink,
		logger:     logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		stopping:   make(chan struct{}),
		finished:   make(chan struct{}),
	}
	go d.deliver()
	return d
}

// deliver runs until the queue is closed and empty.
func (d *Dispatcher) deliver() {
	defer close(d.finished)
	ctx := context.Background()
	for event := range d.queue {
		d.sink.Emit(ctx, event)
	}
}

// Emit queues event and reports whether it was accepted. With DropIfFull a
// full queue drops the event; otherwise Emit waits for room, ctx or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) bool {
	if d == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.shut {
		return false
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
			return true
		default:
			d.recordDrop(event)
			return false
		}
	}

	select {
	case d.queue <- event:
		return true
	case <-ctx.Done():
		return false
	case <-d.stopping:
		return false
	}
}

func (d *Dispatcher) recordDrop(event Event) {
	n := d.dropped.Add(1)
	// first drop, then powers of two
	if n&(n-1) == 0 {
		d.logger.Warn("audit queue full, dropping events",
			zap.Uint64("dropped", n),
			zap.String("event_type", event.EventType))
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// sink to finish. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		// wake blocked emitters before taking the write lock
		close(d.stopping)

		d.mu.Lock()
		d.shut = true
		close(d.queue)
		d.mu.Unlock()

		<-d.finished
		if n := d.dropped.Load(); n > 0 {
			d.logger.Info("audit dispatcher closed", zap.Uint64("dropped", n))
		}
	})
}

// Dropped returns the number of events dropped on a full queue.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
