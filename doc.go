// Package arbor is the mounting layer of a declarative UI runtime: it turns
// the mutation batches of a renderer into a tree of component instances
// backed by native views, and keeps that tree fast to scroll and to touch.
//
// # Quick start
//
// A [Surface] bundles everything one mounted root needs. Create a
// [TaskRunner], a [NativeLayer] and a surface, then submit batches:
//
//	runner := arbor.NewTaskRunner(arbor.TaskRunnerOptions{})
//	surface, err := arbor.NewSurface(runner, arbor.NewMemoryLayer(), arbor.SurfaceOptions{
//		ID: 1, RootTag: 1, Frame: arbor.Rect{Width: 360, Height: 640},
//	})
//	...
//	surface.Submit(arbor.Batch{Mutations: muts})
//	surface.Flush()
//
// Tear down in reverse: [Surface.Stop] waits for outstanding work and
// destroys the tree on the UI thread, then [TaskRunner.Shutdown] drains the
// remaining queues.
//
// # Component tree
//
// Every component instance is a [Node] living in a [Tree] keyed by [Tag].
// A node owns its native view and its ordered children. Behavior that
// depends on the component type (plain views, scroll views) comes from the
// [KindRegistry]. Props are decoded into [ViewProps]; everything else is
// passed through to the native layer untouched.
//
// # Virtualization
//
// Setting removeClippedSubviews on a container turns on clipped-subview
// virtualization: children are kept sorted by position along the scroll
// axis, and only the contiguous run that intersects the visible rectangle
// stays attached to the native view. Scrolling adjusts that run
// incrementally from its edges; structural and layout changes schedule a
// full pass that runs when the batch or dispatched task finishes. See
// [Node.UpdateContentOffset] and [Node.UpdateVisibleChildren].
//
// # Touch
//
// Hit testing ([Tree.HitTest], [FindTouchTarget]) walks cached bounding
// boxes, topmost child first, honoring pointer-events, hit-slop and
// transforms. A [TouchDispatcher] turns pointer samples into touch
// sequences and cancels them when their target subtree is removed.
//
// # Threads
//
// [TaskRunner] provides the render, UI, background and cleanup roles. The
// mounting registry is owned by the render thread; the tree and the native
// layer are owned by the UI thread. With [TaskRunnerOptions].Debug the tree
// asserts thread affinity on every mutation.
//
// # Logging
//
// arbor logs through commonlog under the "arbor" logger hierarchy. Call
// [ConfigureLogging] with a [Config] to pick verbosity and destination.
package arbor
