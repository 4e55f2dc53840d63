package arbor

import "fmt"

// Node is a component instance: the in-process mirror of one renderer shadow
// node and the owner of its native view. Nodes live in a Tree arena keyed by
// tag. A node exclusively owns its children once inserted; the parent link is
// a non-owning tag resolved through the arena.
//
// All mutation happens on the UI thread.
type Node struct {
	// Identity
	tag           Tag
	componentType string
	tree          *Tree
	behavior      Behavior
	handle        NativeHandle

	// Hierarchy
	parent   Tag
	children []*Node
	index    int

	// Geometry
	layout        LayoutMetrics
	transform     Matrix
	opacity       float64
	hitSlop       Insets
	clipping      bool
	contentOffset Vec2

	// Cached bounding box in local coordinates.
	bbox      Rect
	bboxValid bool

	// Interaction
	pointerEvents PointerEvents
	touchHandler  TouchHandler
	blockedBy     map[string]struct{}

	// Props owned by an external driver; their native application is skipped.
	ignoredProps map[string]struct{}

	// Virtualization. clip is non-nil once virtualization or scrolling was
	// configured. isClipped is set while the parent's virtualization keeps this
	// node detached from the parent's native view.
	clip      *clippingState
	isClipped bool

	disposed bool
}

// Tag returns the renderer-assigned tag.
func (n *Node) Tag() Tag {
	return n.tag
}

// ComponentType returns the component type name the node was created with.
func (n *Node) ComponentType() string {
	return n.componentType
}

// NativeHandle returns the handle of the native view owned by this node.
func (n *Node) NativeHandle() NativeHandle {
	return n.handle
}

// Parent returns the parent node, or nil for an unmounted node.
func (n *Node) Parent() *Node {
	if n.parent == NoTag || n.tree == nil {
		return nil
	}
	return n.tree.nodes[n.parent]
}

// Children returns the logical child list. The returned slice MUST NOT be
// mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of logical children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// ChildAt returns the logical child at the given index.
func (n *Node) ChildAt(index int) *Node {
	return n.children[index]
}

// Index returns the node's logical index within its parent, or -1.
func (n *Node) Index() int {
	if n.parent == NoTag {
		return -1
	}
	return n.index
}

// IsDisposed reports whether the node was deleted.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Tree manipulation ---

// InsertChild inserts child at the given logical index. The child must not
// have a parent; index must be in [0, NumChildren()]. Violations are protocol
// errors and panic.
func (n *Node) InsertChild(child *Node, index int) {
	if child == nil {
		panic("arbor: cannot insert nil child")
	}
	n.tree.checkMutable("InsertChild")
	if n.tree.debug {
		debugCheckDisposed(n, "InsertChild (parent)")
		debugCheckDisposed(child, "InsertChild (child)")
	}
	if child.parent != NoTag {
		panic(fmt.Sprintf("arbor: node %d already has parent %d", child.tag, child.parent))
	}
	if isAncestor(child, n) {
		panic("arbor: inserting child would create a cycle")
	}
	if index < 0 || index > len(n.children) {
		panic(fmt.Sprintf("arbor: child index %d out of range [0, %d]", index, len(n.children)))
	}

	child.parent = n.tag
	n.behavior.MountChild(n, child, index)
	child.index = index
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
	n.reindexFrom(index + 1)
	if !n.clipping {
		n.MarkBoundingBoxAsDirty()
	}

	if n.tree.debug {
		debugCheckTreeDepth(child)
		debugCheckChildCount(n)
	}
}

// RemoveChild detaches child from this node. The nearest ancestor with a
// touch handler first cancels touches targeting the removed subtree.
// Panics if child's parent is another node.
func (n *Node) RemoveChild(child *Node) {
	n.tree.checkMutable("RemoveChild")
	if n.tree.debug {
		debugCheckDisposed(n, "RemoveChild (parent)")
	}
	if child.parent != n.tag {
		panic(fmt.Sprintf("arbor: node %d is not a child of %d", child.tag, n.tag))
	}

	n.cancelTouches(child)

	index := n.indexOf(child)
	if index < 0 {
		log.Warningf("remove of node %d from %d ignored: not in child list", child.tag, n.tag)
		return
	}
	copy(n.children[index:], n.children[index+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]
	n.reindexFrom(index)

	child.parent = NoTag
	child.index = -1
	n.behavior.UnmountChild(n, child)
	child.isClipped = false
	if !n.clipping {
		n.MarkBoundingBoxAsDirty()
	}
}

// cancelTouches asks the nearest ancestor (self included) with a touch
// handler to cancel touches targeting the subtree rooted at child.
func (n *Node) cancelTouches(child *Node) {
	for a := n; a != nil; a = a.Parent() {
		if a.touchHandler != nil {
			a.touchHandler.CancelTouches(child)
			return
		}
	}
}

// indexOf returns child's position in the child list, or -1. The cached index
// is tried first.
func (n *Node) indexOf(child *Node) int {
	if i := child.index; i >= 0 && i < len(n.children) && n.children[i] == child {
		return i
	}
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

func (n *Node) reindexFrom(start int) {
	for i := start; i < len(n.children); i++ {
		n.children[i].index = i
	}
}

// --- Geometry setters ---

// LayoutMetrics returns the current layout metrics.
func (n *Node) LayoutMetrics() LayoutMetrics {
	return n.layout
}

// Frame returns the layout frame relative to the parent's content origin.
func (n *Node) Frame() Rect {
	return n.layout.Frame
}

// SetLayoutMetrics applies new layout metrics, updating the native view's
// position and size and invalidating bounding boxes.
func (n *Node) SetLayoutMetrics(lm LayoutMetrics) {
	if lm == n.layout {
		return
	}
	old := n.layout.Frame
	n.layout = lm
	f := lm.Frame
	moved := f.X != old.X || f.Y != old.Y
	resized := f.Width != old.Width || f.Height != old.Height

	if moved {
		n.tree.native.SetPosition(n.handle, f.X, f.Y)
	}
	if resized {
		n.tree.native.SetSize(n.handle, f.Width, f.Height)
	}
	n.MarkBoundingBoxAsDirty()

	if !moved && !resized {
		return
	}
	if p := n.Parent(); p != nil && p.VirtualizationEnabled() {
		p.childLayoutChanged(n)
	}
	if resized && n.clip != nil {
		n.updateClipRect()
		if n.clip.enabled {
			n.clip.forceFirst = true
			n.tree.scheduleClipping(n)
		}
	}
}

// Transform returns the node's transform, applied around its centre.
func (n *Node) Transform() Matrix {
	return n.transform
}

// SetTransform sets the node's transform and invalidates bounding boxes.
func (n *Node) SetTransform(m Matrix) {
	if m == n.transform {
		return
	}
	n.transform = m
	n.tree.native.SetTransform(n.handle, m)
	n.MarkBoundingBoxAsDirty()
}

// Opacity returns the node's opacity.
func (n *Node) Opacity() float64 {
	return n.opacity
}

// SetOpacity sets the node's opacity.
func (n *Node) SetOpacity(a float64) {
	if a == n.opacity {
		return
	}
	n.opacity = a
	n.tree.native.SetOpacity(n.handle, a)
}

// HitSlop returns the hit-slop insets.
func (n *Node) HitSlop() Insets {
	return n.hitSlop
}

// SetHitSlop sets the per-edge hit-slop and invalidates bounding boxes.
func (n *Node) SetHitSlop(in Insets) {
	if in == n.hitSlop {
		return
	}
	n.hitSlop = in
	n.MarkBoundingBoxAsDirty()
}

// PointerEvents returns the pointer-events mode.
func (n *Node) PointerEvents() PointerEvents {
	return n.pointerEvents
}

// SetPointerEvents sets the pointer-events mode.
func (n *Node) SetPointerEvents(p PointerEvents) {
	n.pointerEvents = p
}

// IsClipping reports whether the node clips its children, in which case its
// bounding box does not include them.
func (n *Node) IsClipping() bool {
	return n.clipping
}

// SetClipping sets whether the node clips its children.
func (n *Node) SetClipping(clipping bool) {
	if clipping == n.clipping {
		return
	}
	n.MarkBoundingBoxAsDirty()
	n.clipping = clipping
}

// ContentOffset returns the scroll offset applied to children.
func (n *Node) ContentOffset() Vec2 {
	return n.contentOffset
}

// --- Ignored props ---

// IgnoreProp suppresses native application of the given prop key. Used when
// an external driver (e.g. AnimationDriver) owns the value.
func (n *Node) IgnoreProp(key string) {
	if n.ignoredProps == nil {
		n.ignoredProps = make(map[string]struct{})
	}
	n.ignoredProps[key] = struct{}{}
}

// UnignoreProp restores native application of the given prop key.
func (n *Node) UnignoreProp(key string) {
	delete(n.ignoredProps, key)
}

// IsPropIgnored reports whether key is currently suppressed.
func (n *Node) IsPropIgnored(key string) bool {
	_, ok := n.ignoredProps[key]
	return ok
}

// --- Helpers ---

// isAncestor reports whether candidate is node or one of node's ancestors.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent() {
		if p == candidate {
			return true
		}
	}
	return false
}

func (n *Node) dispose() {
	n.disposed = true
	for _, child := range n.children {
		child.parent = NoTag
		child.index = -1
		child.isClipped = false
	}
	n.children = nil
	n.parent = NoTag
	n.clip = nil
	n.touchHandler = nil
	n.blockedBy = nil
	n.ignoredProps = nil
	n.behavior = nil
}
