package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
)

const defaultQueueSize = 1024

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Work runs off the loop and returns a completion to run on the loop, or nil.
type Work func(ctx context.Context) func()

// Bus is an in-memory event bus. Handlers and completions run one at a time on
// a single loop goroutine, so they never need to synchronize with each other.
//
// The queue holds defaultQueueSize jobs. Publish blocks while it is full, until
// the loop makes room, the bus stops or the publisher's ctx is done. A handler
// that publishes more than that in one run waits on itself forever.
type Bus struct {
	queue    chan func()
	quit     chan struct{}
	done     chan struct{}
	wg       *sync.WaitGroup
	stopOnce sync.Once
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus create a new event bus and starts its loop. Caller should call Stop for graceful shutdown the bus.
func NewBus() *Bus {
	b := &Bus{
		queue:    make(chan func(), defaultQueueSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		wg:       new(sync.WaitGroup),
		handlers: make(map[string][]Handler),
	}

	go b.loop()

	return b
}

// Subscribe to an event
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Publish an event. Handlers run later on the loop, in publish order. Jobs that
// cannot be queued before ctx is done are dropped.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	hs := slices.Clone(b.handlers[e.Name()])
	b.mu.RUnlock()

	for _, h := range hs {
		b.enqueue(ctx, func() {
			b.run(ctx, e.Name(), func() error { return h(ctx, e) })
		})
	}
}

// Go runs w on its own goroutine and posts the completion it returns back onto the loop.
func (b *Bus) Go(ctx context.Context, w Work) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		var done func()
		b.run(ctx, "work", func() error {
			done = w(ctx)
			return nil
		})

		if done == nil {
			return
		}

		b.enqueue(ctx, func() {
			b.run(ctx, "completion", func() error {
				done()
				return nil
			})
		})
	}()
}

func (b *Bus) enqueue(ctx context.Context, job func()) {
	b.wg.Add(1)

	select {
	case b.queue <- func() {
		defer b.wg.Done()
		job()
	}:
	case <-b.quit:
		b.wg.Done()
	case <-ctx.Done():
		slog.WarnContext(ctx, "event: job dropped", "error", ctx.Err())
		b.wg.Done()
	}
}

func (b *Bus) loop() {
	defer close(b.done)

	for {
		select {
		case job := <-b.queue:
			job()
		case <-b.quit:
			return
		}
	}
}

func (b *Bus) run(ctx context.Context, name string, f func() error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event: handler panic",
				"event", name,
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}
	}()

	if err := f(); err != nil {
		slog.ErrorContext(ctx, "event: handle event failed",
			"event", name,
			"error", err,
		)
	}
}

// Stop waits for all pending handlers, work and completions to finish, then stops the loop.
// It must not be called from a handler.
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		b.wg.Wait()
		close(b.quit)
		<-b.done
	})
}
