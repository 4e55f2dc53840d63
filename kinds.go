package arbor

import (
	"fmt"
	"sort"
)

// Behavior is the per-kind capability set a node dispatches to. Kinds are
// looked up by component type in a KindRegistry.
type Behavior interface {
	// Init runs once after the native view was created.
	Init(n *Node)
	// MountChild attaches child's native view for a logical insert at index.
	// child.parent is already set; child is not yet in n's child list.
	MountChild(n, child *Node, index int)
	// UnmountChild detaches child's native view after a logical remove.
	UnmountChild(n, child *Node)
	// ApplyProps handles kind-specific props after the common ones.
	ApplyProps(n *Node, p *ViewProps)
}

// ViewBehavior is the plain container kind. Without virtualization the
// native child order equals the logical order; with it, attachment is left
// to the clipping engine.
type ViewBehavior struct{}

func (ViewBehavior) Init(*Node) {}

func (ViewBehavior) MountChild(n, child *Node, index int) {
	if n.VirtualizationEnabled() {
		n.mountClippedChild(child)
		return
	}
	n.tree.native.Attach(child.handle, n.handle, index)
}

func (ViewBehavior) UnmountChild(n, child *Node) {
	if n.VirtualizationEnabled() {
		n.unmountClippedChild(child)
		return
	}
	n.tree.native.Detach(child.handle, n.handle)
}

func (ViewBehavior) ApplyProps(*Node, *ViewProps) {}

// ScrollViewBehavior is a clipping container with a content offset.
type ScrollViewBehavior struct {
	ViewBehavior
}

func (ScrollViewBehavior) Init(n *Node) {
	n.SetClipping(true)
	n.clippingState()
}

func (ScrollViewBehavior) ApplyProps(n *Node, p *ViewProps) {
	if p.ContentOffset != nil {
		n.UpdateContentOffset(p.ContentOffset.X, p.ContentOffset.Y)
	}
}

// KindRegistry maps component type names to behavior factories.
type KindRegistry struct {
	kinds map[string]func() Behavior
}

// Built-in behavior names usable with Alias.
const (
	KindView   = "view"
	KindScroll = "scroll"
)

var builtinKinds = map[string]func() Behavior{
	KindView:   func() Behavior { return ViewBehavior{} },
	KindScroll: func() Behavior { return ScrollViewBehavior{} },
}

// NewKindRegistry returns a registry with the built-in component types.
func NewKindRegistry() *KindRegistry {
	r := &KindRegistry{kinds: make(map[string]func() Behavior)}
	r.Register("View", builtinKinds[KindView])
	r.Register("RootView", builtinKinds[KindView])
	r.Register("ScrollView", builtinKinds[KindScroll])
	r.Register("HorizontalScrollView", func() Behavior { return horizontalScrollBehavior{} })
	return r
}

// Register adds or replaces the factory for componentType.
func (r *KindRegistry) Register(componentType string, factory func() Behavior) {
	if factory == nil {
		panic("arbor: nil behavior factory for " + componentType)
	}
	r.kinds[componentType] = factory
}

// Alias maps componentType onto a built-in behavior (KindView or KindScroll).
func (r *KindRegistry) Alias(componentType, builtin string) error {
	f, ok := builtinKinds[builtin]
	if !ok {
		return fmt.Errorf("arbor: unknown built-in kind %q for %q", builtin, componentType)
	}
	r.kinds[componentType] = f
	return nil
}

// Kinds returns the registered component types, sorted.
func (r *KindRegistry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// behaviorFor returns the behavior for componentType. Unknown types behave as
// plain views.
func (r *KindRegistry) behaviorFor(componentType string) Behavior {
	if f, ok := r.kinds[componentType]; ok {
		return f()
	}
	log.Debugf("unknown component type %q, using view behavior", componentType)
	return ViewBehavior{}
}

type horizontalScrollBehavior struct {
	ScrollViewBehavior
}

func (b horizontalScrollBehavior) Init(n *Node) {
	b.ScrollViewBehavior.Init(n)
	n.SetHorizontal(true)
}
