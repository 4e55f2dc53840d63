package arbor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestRunner(t *testing.T, opts TaskRunnerOptions) *TaskRunner {
	t.Helper()
	r := NewTaskRunner(opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return r
}

func TestRunAsyncFIFO(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{})

	var got []int
	for i := 0; i < 100; i++ {
		if err := r.RunAsync(BackgroundThread, func() { got = append(got, i) }); err != nil {
			t.Fatal(err)
		}
	}
	var snapshot []int
	if err := r.RunSync(BackgroundThread, func() { snapshot = append(snapshot, got...) }); err != nil {
		t.Fatal(err)
	}
	for i, v := range snapshot {
		if v != i {
			t.Fatalf("task %d ran as %d", i, v)
		}
	}
	if len(snapshot) != 100 {
		t.Errorf("ran %d tasks, want 100", len(snapshot))
	}
}

func TestRunSyncOrdering(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{})

	var mu sync.Mutex
	var order []string
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	err := r.RunSync(RenderThread, func() {
		record("render")
		r.RunAsync(UIThread, func() { record("ui async") })
		if err := r.RunSync(UIThread, func() { record("ui sync") }); err != nil {
			t.Errorf("nested RunSync: %v", err)
		}
		record("render after")
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"render", "ui async", "ui sync", "render after"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSyncSameThreadDebugPanics(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{Debug: true})

	ran := false
	err := r.RunSync(UIThread, func() {
		r.RunSync(UIThread, func() { ran = true })
	})
	if err == nil || !strings.Contains(err.Error(), "from itself") {
		t.Errorf("err = %v, want same-thread panic", err)
	}
	if ran {
		t.Error("nested task should not run")
	}
}

func TestRunSyncSameThreadReleaseRunsInline(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{})

	var order []string
	err := r.RunSync(UIThread, func() {
		order = append(order, "outer")
		if err := r.RunSync(UIThread, func() { order = append(order, "inner") }); err != nil {
			t.Errorf("inline RunSync: %v", err)
		}
		order = append(order, "outer end")
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"outer", "inner", "outer end"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSyncPanicBecomesError(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{})

	err := r.RunSync(BackgroundThread, func() { panic("boom") })
	if !errors.Is(err, ErrTaskPanicked) || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v, want panic error", err)
	}
	// The thread survives.
	if err := r.RunSync(BackgroundThread, func() {}); err != nil {
		t.Errorf("RunSync after panic: %v", err)
	}
}

func TestThreadIdentity(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{})

	if _, ok := r.CurrentThread(); ok {
		t.Error("test goroutine should not be a runner thread")
	}
	for th := RenderThread; th < numThreads; th++ {
		if r.IsOnThread(th) {
			t.Errorf("test goroutine reported as the %s thread", th)
		}
	}
	other := make(chan bool)
	go func() { other <- r.IsOnThread(UIThread) }()
	if <-other {
		t.Error("fresh goroutine reported as the ui thread")
	}

	// RunSync must hop to the worker, not run inline on the caller.
	var inside bool
	if err := r.RunSync(UIThread, func() { inside = r.IsOnThread(UIThread) }); err != nil {
		t.Fatal(err)
	}
	if !inside || r.IsOnThread(UIThread) {
		t.Errorf("IsOnThread(ui) inside = %v, outside = %v, want true, false", inside, r.IsOnThread(UIThread))
	}

	for th := RenderThread; th < numThreads; th++ {
		var onThread, onOther bool
		var current Thread
		r.RunSync(th, func() {
			onThread = r.IsOnThread(th)
			onOther = r.IsOnThread((th + 1) % numThreads)
			current, _ = r.CurrentThread()
		})
		if !onThread || onOther || current != th {
			t.Errorf("%s: IsOnThread = %v, other = %v, CurrentThread = %s", th, onThread, onOther, current)
		}
	}
}

func TestAssertOnThread(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{})
	expectPanic(t, "must run on the render thread", func() {
		r.AssertOnThread(RenderThread, "PerformBatch")
	})
}

func TestShutdownDrainsAndRejects(t *testing.T) {
	r := NewTaskRunner(TaskRunnerOptions{})

	var mu sync.Mutex
	var ran []Thread
	for th := RenderThread; th < numThreads; th++ {
		r.RunAsync(th, func() {
			mu.Lock()
			ran = append(ran, th)
			mu.Unlock()
		})
	}
	// A render task queueing UI work during the drain still gets it run.
	r.RunAsync(RenderThread, func() {
		r.RunAsync(UIThread, func() {
			mu.Lock()
			ran = append(ran, UIThread)
			mu.Unlock()
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case <-r.Done():
	default:
		t.Error("Done not closed after Shutdown")
	}

	if len(ran) != 5 {
		t.Errorf("ran = %v, want 5 tasks", ran)
	}
	if err := r.RunAsync(UIThread, func() {}); !errors.Is(err, ErrRunnerClosed) {
		t.Errorf("RunAsync after Shutdown = %v, want ErrRunnerClosed", err)
	}
	if err := r.RunSync(RenderThread, func() {}); !errors.Is(err, ErrRunnerClosed) {
		t.Errorf("RunSync after Shutdown = %v, want ErrRunnerClosed", err)
	}
	// A second Shutdown returns at once.
	if err := r.Shutdown(ctx); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
}

func TestShutdownReportsTaskPanic(t *testing.T) {
	r := NewTaskRunner(TaskRunnerOptions{})

	ran := false
	r.RunAsync(BackgroundThread, func() { panic("lost write") })
	r.RunAsync(BackgroundThread, func() { ran = true })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := r.Shutdown(ctx)
	if !errors.Is(err, ErrTaskPanicked) {
		t.Fatalf("Shutdown = %v, want ErrTaskPanicked", err)
	}
	if !strings.Contains(err.Error(), "background thread: lost write") {
		t.Errorf("Shutdown error = %q", err)
	}
	if !ran {
		t.Error("task after the panic did not run")
	}
	if again := r.Shutdown(ctx); !errors.Is(again, ErrTaskPanicked) {
		t.Errorf("second Shutdown = %v, want the same error", again)
	}
}

func TestShutdownReportsPumpedPanic(t *testing.T) {
	r := NewTaskRunner(TaskRunnerOptions{ExternalUIThread: true})
	r.RunAsync(UIThread, func() { panic("frame") })

	done := make(chan int)
	go func() { done <- r.PumpUI() }()
	if n := <-done; n != 1 {
		t.Errorf("PumpUI ran %d, want 1", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); !errors.Is(err, ErrTaskPanicked) || !strings.Contains(err.Error(), "ui thread") {
		t.Errorf("Shutdown = %v, want ui thread panic", err)
	}
}

func TestShutdownContextExpires(t *testing.T) {
	r := NewTaskRunner(TaskRunnerOptions{})
	release := make(chan struct{})
	r.RunAsync(BackgroundThread, func() { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := r.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown = %v, want DeadlineExceeded", err)
	}

	close(release)
	if err := r.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown after release: %v", err)
	}
}

func TestExternalUIThread(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{ExternalUIThread: true})

	var order []int
	for i := 0; i < 3; i++ {
		r.RunAsync(UIThread, func() {
			order = append(order, i)
			if i == 0 {
				// Queued during the pump: runs on the next one.
				r.RunAsync(UIThread, func() { order = append(order, 99) })
			}
		})
	}

	// The pumping goroutine becomes the UI thread, so it must not be the
	// test goroutine that later calls Shutdown.
	type result struct {
		first, second int
		onUI          bool
	}
	done := make(chan result)
	go func() {
		var res result
		res.first = r.PumpUI()
		res.onUI = r.IsOnThread(UIThread)
		res.second = r.PumpUI()
		done <- res
	}()
	res := <-done

	if res.first != 3 {
		t.Errorf("PumpUI ran %d, want 3", res.first)
	}
	if !res.onUI {
		t.Error("pumping goroutine should be the UI thread")
	}
	if res.second != 1 {
		t.Errorf("second PumpUI ran %d, want 1", res.second)
	}
	if diff := cmp.Diff([]int{0, 1, 2, 99}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestPumpUIWithoutExternalPanics(t *testing.T) {
	r := newTestRunner(t, TaskRunnerOptions{})
	expectPanic(t, "ExternalUIThread", func() {
		r.PumpUI()
	})
}
