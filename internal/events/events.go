// Package events fans observable moderator events out to user-supplied
// listeners, each running on a listener-chosen executor, the way the
// original FileDownloader's EventDispatcher posts to per-listener
// java.util.concurrent.Executor instances.
package events

import (
	"sync"
	"time"

	"github.com/arjunv/modfetch/internal/logger"
	"github.com/arjunv/modfetch/internal/model"
)

// Kind identifies the sort of event carried by an Event.
type Kind int

const (
	TaskAdded Kind = iota
	TaskStateChanged
	ChunkProgress
	TaskFinished
	TaskFailed
)

// Event is a single observable occurrence, posted to every registered
// listener. Fields not relevant to Kind are left zero.
type Event struct {
	Kind      Kind
	TaskID    int64
	Status    model.TaskStatus
	Message   string
	Progress  int64 // bytes downloaded so far, for ChunkProgress
	Total     int64 // total bytes, if known
	Speed     int64 // bytes/sec at time of event
	Timestamp time.Time
}

// Listener receives dispatched events. Implementations must not block for
// long; use Executor to hop onto a dedicated goroutine or queue if needed.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a plain function to a Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Executor runs a dispatch job, chosen by whoever registers a Listener.
type Executor interface {
	Submit(job func())
}

// GoroutineExecutor runs every submitted job on its own goroutine. It is
// the default used when a caller doesn't supply one.
type GoroutineExecutor struct{}

func (GoroutineExecutor) Submit(job func()) {
	go job()
}

// SyncExecutor runs the job on the caller's goroutine. Useful in tests.
type SyncExecutor struct{}

func (SyncExecutor) Submit(job func()) { job() }

// Handle identifies one registered (listener, executor) pair.
type Handle int64

type registration struct {
	handle   Handle
	listener Listener
	executor Executor
}

// Dispatcher fans events out to registered listeners. It is safe for
// concurrent use: registration is guarded by a mutex and Dispatch only
// ever reads a snapshot of the current registrations.
type Dispatcher struct {
	mu     sync.Mutex
	regs   []registration
	nextID int64
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register adds a listener bound to the given executor (GoroutineExecutor
// if exec is nil) and returns a handle for later unregistration.
func (d *Dispatcher) Register(listener Listener, exec Executor) Handle {
	if exec == nil {
		exec = GoroutineExecutor{}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	h := Handle(d.nextID)
	d.regs = append(d.regs, registration{handle: h, listener: listener, executor: exec})

	return h
}

// Unregister removes the listener identified by handle, if still present.
func (d *Dispatcher) Unregister(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range d.regs {
		if r.handle == h {
			d.regs = append(d.regs[:i], d.regs[i+1:]...)
			return
		}
	}
}

// Clear removes every registered listener.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs = nil
}

// Dispatch posts event to every registered listener on its own executor.
// A panicking listener is recovered so it can never poison the caller
// (the moderator loop, in practice).
func (d *Dispatcher) Dispatch(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	d.mu.Lock()
	snapshot := make([]registration, len(d.regs))
	copy(snapshot, d.regs)
	d.mu.Unlock()

	for _, r := range snapshot {
		listener, executor := r.listener, r.executor
		executor.Submit(func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("event listener panicked: %v", rec)
				}
			}()
			listener.OnEvent(e)
		})
	}
}
