package arbor

import (
	"fmt"
	"sync"
)

// SurfaceOptions configures a Surface.
type SurfaceOptions struct {
	ID      int
	RootTag Tag
	// Frame is the root view's frame in page coordinates.
	Frame   Rect
	Kinds   *KindRegistry
	Emitter EventEmitter
}

type surfaceState uint8

const (
	surfaceRunning surfaceState = iota
	surfaceStopping
	surfaceStopped
)

// Surface is one mounted root: a tree, its mounting manager and touch
// dispatcher, bound to a TaskRunner.
//
// Batches and dispatched work both pass through the render thread on their
// way to the UI thread, so the UI thread sees them in submission order.
//
// Every unit of work submitted through a Surface is counted until it has
// finished on the UI thread. Stop marks the surface closing, waits for the
// count to reach zero and only then tears the tree down on the UI thread, so
// no queued task ever runs against a torn down tree.
type Surface struct {
	id       int
	root     Tag
	runner   *TaskRunner
	tree     *Tree
	mounting *MountingManager

	// UI thread only.
	dispatcher *TouchDispatcher

	mu      sync.Mutex
	drained *sync.Cond
	pending int
	state   surfaceState
}

// NewSurface creates a surface whose tree materializes into native and
// queues creation of its root view on the UI thread.
func NewSurface(runner *TaskRunner, native NativeLayer, opts SurfaceOptions) (*Surface, error) {
	if runner == nil {
		panic("arbor: NewSurface requires a task runner")
	}
	if opts.RootTag == NoTag {
		return nil, fmt.Errorf("arbor: surface %d: root tag must not be NoTag", opts.ID)
	}
	tree := NewTree(native, opts.Kinds)
	tree.SetTaskRunner(runner)
	tree.SetDebugMode(runner.debug)
	tree.SetEventEmitter(opts.Emitter)

	s := &Surface{
		id:       opts.ID,
		root:     opts.RootTag,
		runner:   runner,
		tree:     tree,
		mounting: NewMountingManager(runner, tree),
	}
	s.drained = sync.NewCond(&s.mu)

	err := s.Dispatch(func(t *Tree) {
		t.Create(opts.RootTag, &Snapshot{
			ComponentType: "RootView",
			Layout:        &LayoutMetrics{Frame: opts.Frame, PointScaleFactor: 1},
		})
		s.dispatcher = NewTouchDispatcher(t, opts.RootTag)
	})
	if err != nil {
		return nil, err
	}
	surfaceLog.Infof("surface %d started with root %d", s.id, s.root)
	return s, nil
}

// ID returns the surface id.
func (s *Surface) ID() int { return s.id }

// Root returns the root tag.
func (s *Surface) Root() Tag { return s.root }

// Runner returns the task runner.
func (s *Surface) Runner() *TaskRunner { return s.runner }

// Mounting returns the mounting manager. Its registry is render-thread only.
func (s *Surface) Mounting() *MountingManager { return s.mounting }

// Tree returns the tree. It must only be used on the UI thread.
func (s *Surface) Tree() *Tree { return s.tree }

// Dispatcher returns the touch dispatcher. It must only be used on the UI
// thread.
func (s *Surface) Dispatcher() *TouchDispatcher { return s.dispatcher }

func (s *Surface) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != surfaceRunning {
		return ErrSurfaceClosed
	}
	s.pending++
	return nil
}

func (s *Surface) taskDone() {
	s.mu.Lock()
	s.pending--
	if s.pending == 0 {
		s.drained.Broadcast()
	}
	s.mu.Unlock()
}

// Submit hands a renderer batch to the render thread, which records it and
// queues its application on the UI thread.
func (s *Surface) Submit(b Batch) error {
	if err := s.begin(); err != nil {
		return err
	}
	b.SurfaceID = s.id
	err := s.runner.RunAsync(RenderThread, func() {
		queued := false
		defer func() {
			if !queued {
				s.taskDone()
			}
		}()
		if err := s.mounting.performBatch(b, s.taskDone); err != nil {
			mountingLog.Errorf("surface %d: %s", s.id, err)
		}
		queued = true
	})
	if err != nil {
		s.taskDone()
	}
	return err
}

// Dispatch runs fn against the tree on the UI thread, then flushes pending
// virtualization passes. It is routed through the render thread like Submit,
// so fn sees every batch submitted before it.
func (s *Surface) Dispatch(fn func(*Tree)) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.runner.RunAsync(RenderThread, func() {
		err := s.runner.RunAsync(UIThread, func() {
			defer s.taskDone()
			fn(s.tree)
			s.tree.FlushClipping()
		})
		if err != nil {
			surfaceLog.Errorf("surface %d: dispatch: %s", s.id, err)
			s.taskDone()
		}
	})
	if err != nil {
		s.taskDone()
	}
	return err
}

// Touch feeds a pointer sample to the touch dispatcher.
func (s *Surface) Touch(pointerID int, x, y float64, pressed bool) error {
	return s.Dispatch(func(*Tree) {
		s.dispatcher.HandlePointer(pointerID, x, y, pressed)
	})
}

// Scroll sets the content offset of the scroll container tag.
func (s *Surface) Scroll(tag Tag, x, y float64) error {
	return s.Dispatch(func(t *Tree) {
		n := t.Node(tag)
		if n == nil {
			surfaceLog.Warningf("surface %d: scroll of unknown node %d", s.id, tag)
			return
		}
		n.UpdateContentOffset(x, y)
	})
}

// Flush blocks until everything submitted before the call has been applied on
// the UI thread. With ExternalUIThread the host must keep pumping meanwhile.
func (s *Surface) Flush() error {
	s.mu.Lock()
	stopped := s.state == surfaceStopped
	s.mu.Unlock()
	if stopped {
		return ErrSurfaceClosed
	}
	if err := s.runner.RunSync(RenderThread, func() {}); err != nil {
		return err
	}
	return s.runner.RunSync(UIThread, func() {})
}

// Stop tears the surface down: new work is rejected, outstanding work drains,
// then the tree and its native views are destroyed on the UI thread. Stop
// must not be called from a runner thread. Stopping twice is a no-op.
func (s *Surface) Stop() error {
	if t, ok := s.runner.CurrentThread(); ok {
		panic(fmt.Sprintf("arbor: Surface.Stop called from the %s thread", t))
	}
	s.mu.Lock()
	if s.state != surfaceRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = surfaceStopping
	for s.pending > 0 {
		s.drained.Wait()
	}
	s.mu.Unlock()

	err := s.runner.RunSync(UIThread, func() {
		if s.dispatcher != nil {
			s.dispatcher.CancelAll()
		}
		s.tree.Teardown()
	})
	if err == nil {
		err = s.runner.RunSync(RenderThread, func() {
			s.mounting.registry = make(map[Tag]Snapshot)
		})
	}

	s.mu.Lock()
	s.state = surfaceStopped
	s.mu.Unlock()
	surfaceLog.Infof("surface %d stopped", s.id)
	return err
}
