package arbor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"golang.org/x/sync/errgroup"
)

// Thread names one of the runner's execution roles.
type Thread uint8

const (
	RenderThread     Thread = iota // render description processing, mounting registry
	UIThread                       // native view mutation and hit testing
	BackgroundThread               // off-thread work such as persistence
	CleanupThread                  // teardown-only work
	numThreads
)

func (t Thread) String() string {
	switch t {
	case RenderThread:
		return "render"
	case UIThread:
		return "ui"
	case BackgroundThread:
		return "background"
	case CleanupThread:
		return "cleanup"
	default:
		return fmt.Sprintf("Thread(%d)", t)
	}
}

// TaskRunnerOptions configures a TaskRunner.
type TaskRunnerOptions struct {
	// ExternalUIThread makes the UI thread the goroutine that calls PumpUI,
	// typically a host frame loop, instead of a runner-owned goroutine.
	ExternalUIThread bool

	// Debug turns on thread-affinity assertions. RunSync onto the calling
	// thread panics instead of running inline.
	Debug bool
}

// worker is one thread role: a FIFO queue served by a single goroutine.
type worker struct {
	thread Thread
	gid    atomic.Int64

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool
	failed error // first panic of a queued task

	done chan struct{}
}

func newWorker(t Thread) *worker {
	w := &worker{thread: t, done: make(chan struct{})}
	w.cond = sync.NewCond(&w.mu)
	w.gid.Store(-1)
	return w
}

func (w *worker) push(fn func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrRunnerClosed
	}
	w.queue = append(w.queue, fn)
	w.cond.Signal()
	return nil
}

// pop blocks until a task is available. It returns false once the worker is
// closed and its queue is empty.
func (w *worker) pop() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 && !w.closed {
		w.cond.Wait()
	}
	if len(w.queue) == 0 {
		return nil, false
	}
	fn := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	return fn, true
}

// tryPop returns the next task without blocking.
func (w *worker) tryPop() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return nil, false
	}
	fn := w.queue[0]
	w.queue[0] = nil
	w.queue = w.queue[1:]
	return fn, true
}

func (w *worker) close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Broadcast()
	w.mu.Unlock()
}

// run serves the queue until the worker is closed and drained. It returns
// the first panic of a queued task; later tasks still run.
func (w *worker) run() error {
	defer close(w.done)
	w.gid.Store(goid.Get())
	for {
		fn, ok := w.pop()
		if !ok {
			w.mu.Lock()
			defer w.mu.Unlock()
			return w.failed
		}
		w.exec(fn)
	}
}

func (w *worker) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			tasksLog.Errorf("%s thread: task panicked: %v", w.thread, r)
			w.mu.Lock()
			if w.failed == nil {
				w.failed = fmt.Errorf("%w on %s thread: %v", ErrTaskPanicked, w.thread, r)
			}
			w.mu.Unlock()
		}
	}()
	fn()
}

// TaskRunner provides the cooperating thread roles. Each role runs its tasks
// one at a time in submission order.
//
// Shutdown is an explicit protocol: mark closing, reject new work from
// outside the runner, drain each queue in role order (render, UI,
// background, cleanup), then wait for every goroutine to exit. Tasks running
// on the runner may keep queueing onto roles that have not drained yet.
type TaskRunner struct {
	workers  [numThreads]*worker
	external bool
	debug    bool

	// group tracks the worker goroutines and collects the first task panic
	// of any role for Shutdown.
	group   errgroup.Group
	closing atomic.Bool
	once    sync.Once
	stopped chan struct{}
	err     error // set before stopped is closed
}

// NewTaskRunner starts the runner's goroutines.
func NewTaskRunner(opts TaskRunnerOptions) *TaskRunner {
	r := &TaskRunner{
		external: opts.ExternalUIThread,
		debug:    opts.Debug,
		stopped:  make(chan struct{}),
	}
	for t := Thread(0); t < numThreads; t++ {
		w := newWorker(t)
		r.workers[t] = w
		if t == UIThread && r.external {
			continue
		}
		r.group.Go(w.run)
	}
	return r
}

// RunAsync queues fn on thread t and returns immediately. Tasks queued on the
// same thread run in FIFO order. After Shutdown started, only tasks running
// on the runner can still queue work, and only onto roles not yet drained.
func (r *TaskRunner) RunAsync(t Thread, fn func()) error {
	if r.closing.Load() && !r.onAnyThread() {
		return ErrRunnerClosed
	}
	return r.workers[t].push(fn)
}

// RunSync runs fn on thread t and blocks until it has executed. A panic in fn
// is returned as an error.
//
// Calling RunSync for the thread the caller is already on is a programmer
// error: in debug mode it panics, otherwise fn runs inline.
func (r *TaskRunner) RunSync(t Thread, fn func()) error {
	if r.IsOnThread(t) {
		if r.debug {
			panic(fmt.Sprintf("arbor: RunSync onto the %s thread from itself", t))
		}
		return runGuarded(t, fn)
	}
	done := make(chan error, 1)
	err := r.RunAsync(t, func() {
		done <- runGuarded(t, fn)
	})
	if err != nil {
		return err
	}
	return <-done
}

func runGuarded(t Thread, fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w on %s thread: %v", ErrTaskPanicked, t, rec)
		}
	}()
	fn()
	return nil
}

// IsOnThread reports whether the calling goroutine is thread t.
func (r *TaskRunner) IsOnThread(t Thread) bool {
	return r.workers[t].gid.Load() == goid.Get()
}

// CurrentThread returns the role of the calling goroutine.
func (r *TaskRunner) CurrentThread() (Thread, bool) {
	id := goid.Get()
	for t, w := range r.workers {
		if w.gid.Load() == id {
			return Thread(t), true
		}
	}
	return 0, false
}

func (r *TaskRunner) onAnyThread() bool {
	_, ok := r.CurrentThread()
	return ok
}

// AssertOnThread panics when the caller is not thread t.
func (r *TaskRunner) AssertOnThread(t Thread, op string) {
	if !r.IsOnThread(t) {
		panic(fmt.Sprintf("arbor: %s must run on the %s thread", op, t))
	}
}

// PumpUI binds the calling goroutine as the UI thread and runs the UI tasks
// queued at the time of the call. It returns the number of tasks run. Only
// valid with ExternalUIThread.
func (r *TaskRunner) PumpUI() int {
	if !r.external {
		panic("arbor: PumpUI requires ExternalUIThread")
	}
	w := r.workers[UIThread]
	w.gid.Store(goid.Get())
	w.mu.Lock()
	n := len(w.queue)
	w.mu.Unlock()
	ran := 0
	for ; ran < n; ran++ {
		fn, ok := w.tryPop()
		if !ok {
			break
		}
		w.exec(fn)
	}
	return ran
}

// Shutdown stops the runner. It returns when every queue drained and every
// goroutine exited, or with ctx's error if ctx ends first; in that case the
// drain continues in the background. A task queued with RunAsync that
// panicked is reported as an error wrapping ErrTaskPanicked. Calling Shutdown more than once waits on
// the same drain. Shutdown must not be called from a runner thread.
func (r *TaskRunner) Shutdown(ctx context.Context) error {
	if t, ok := r.CurrentThread(); ok {
		panic(fmt.Sprintf("arbor: Shutdown called from the %s thread", t))
	}
	r.once.Do(func() {
		r.closing.Store(true)
		go r.drain()
	})
	select {
	case <-r.stopped:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *TaskRunner) drain() {
	for t, w := range r.workers {
		w.close()
		if Thread(t) == UIThread && r.external {
			r.group.Go(w.run)
		}
		<-w.done
		tasksLog.Debugf("%s thread drained", Thread(t))
	}
	r.err = r.group.Wait()
	close(r.stopped)
}

// Done is closed once Shutdown completed.
func (r *TaskRunner) Done() <-chan struct{} {
	return r.stopped
}
