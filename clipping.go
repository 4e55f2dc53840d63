package arbor

import "sort"

// clippingState drives clipped-subview virtualization for one container.
//
// sorted orders the logical children by on-screen position along the primary
// axis. When enabled, exactly sorted[start..end] are attached to the
// container's native view after every pass; start and end are -1 while unset.
type clippingState struct {
	enabled    bool
	horizontal bool
	clipRect   Rect
	start, end int
	direction  ScrollDirection
	sorted     []*Node

	forceFirst bool // next pass must be a first compute
	scheduled  bool // queued in the tree's pending list
}

func newClippingState() *clippingState {
	return &clippingState{start: -1, end: -1}
}

// clippingState returns the node's clipping state, allocating it on demand.
func (n *Node) clippingState() *clippingState {
	if n.clip == nil {
		n.clip = newClippingState()
		n.updateClipRect()
	}
	return n.clip
}

// less orders by primary-axis origin; on ties the child whose far edge
// extends further comes first.
func (cs *clippingState) less(a, b *Node) bool {
	ar, br := a.layout.Frame, b.layout.Frame
	if cs.horizontal {
		if ar.X != br.X {
			return ar.X < br.X
		}
		return ar.X+ar.Width > br.X+br.Width
	}
	if ar.Y != br.Y {
		return ar.Y < br.Y
	}
	return ar.Y+ar.Height > br.Y+br.Height
}

// upperBound returns the first sorted index whose child orders after c.
func (cs *clippingState) upperBound(c *Node) int {
	return sort.Search(len(cs.sorted), func(i int) bool {
		return cs.less(c, cs.sorted[i])
	})
}

func (cs *clippingState) insertSorted(c *Node) int {
	i := cs.upperBound(c)
	cs.sorted = append(cs.sorted, nil)
	copy(cs.sorted[i+1:], cs.sorted[i:])
	cs.sorted[i] = c
	return i
}

func (cs *clippingState) removeSorted(c *Node) int {
	for i, s := range cs.sorted {
		if s == c {
			copy(cs.sorted[i:], cs.sorted[i+1:])
			cs.sorted[len(cs.sorted)-1] = nil
			cs.sorted = cs.sorted[:len(cs.sorted)-1]
			return i
		}
	}
	return -1
}

func (cs *clippingState) resort(children []*Node) {
	cs.sorted = append(cs.sorted[:0], children...)
	sort.SliceStable(cs.sorted, func(i, j int) bool {
		return cs.less(cs.sorted[i], cs.sorted[j])
	})
}

func (cs *clippingState) isVisible(c *Node) bool {
	return c.layout.Frame.Intersects(cs.clipRect)
}

// windowValid reports whether [start, end] is a usable window.
func (cs *clippingState) windowValid() bool {
	return cs.start >= 0 && cs.start <= cs.end && cs.end < len(cs.sorted)
}

// updateClippingIndex shifts the window after a sorted insert or removal at
// index i so no rescan is needed.
func (cs *clippingState) updateClippingIndex(inserted bool, i int) {
	if cs.start < 0 {
		return
	}
	last := len(cs.sorted) - 1
	if inserted {
		switch {
		case i <= cs.start:
			cs.start = min(cs.start+1, last)
			cs.end = min(cs.end+1, last)
		case i <= cs.end:
			cs.end = min(cs.end+1, last)
		}
		return
	}
	switch {
	case i < cs.start:
		cs.start--
		cs.end--
	case i <= cs.end:
		if cs.start == cs.end {
			cs.start--
		}
		cs.end--
	}
}

// --- Public API ---

// VirtualizationEnabled reports whether clipped-subview virtualization is on.
func (n *Node) VirtualizationEnabled() bool {
	return n.clip != nil && n.clip.enabled
}

// SetVirtualizationEnabled turns clipped-subview virtualization on or off.
// Turning it off reattaches every detached child in sorted order.
func (n *Node) SetVirtualizationEnabled(enabled bool) {
	if enabled == n.VirtualizationEnabled() {
		return
	}
	cs := n.clippingState()
	if enabled {
		cs.enabled = true
		cs.resort(n.children)
		for _, c := range n.children {
			c.isClipped = false
		}
		cs.start, cs.end = -1, -1
		cs.forceFirst = true
		n.updateClipRect()
		n.tree.scheduleClipping(n)
		return
	}
	n.restoreClippedChildren()
	cs.enabled = false
	cs.sorted = nil
	cs.start, cs.end = -1, -1
	cs.direction = ScrollNone
}

// SetHorizontal selects the primary axis used to order children.
func (n *Node) SetHorizontal(horizontal bool) {
	cs := n.clippingState()
	if cs.horizontal == horizontal {
		return
	}
	cs.horizontal = horizontal
	if !cs.enabled {
		return
	}
	// Attached children keep their native order; detach them all so the
	// next pass reattaches in the new order.
	for _, c := range cs.sorted {
		n.detachClipped(c)
	}
	cs.resort(n.children)
	cs.start, cs.end = -1, -1
	cs.forceFirst = true
	n.tree.scheduleClipping(n)
}

// IsHorizontal reports whether children are ordered along the X axis.
func (n *Node) IsHorizontal() bool {
	return n.clip != nil && n.clip.horizontal
}

// UpdateContentOffset records a new scroll offset. Negative components clamp
// to zero. When virtualization is on, the visible window is reconciled using
// the incremental pass matching the scroll direction.
func (n *Node) UpdateContentOffset(x, y float64) {
	n.tree.checkMutable("UpdateContentOffset")
	x, y = max(x, 0), max(y, 0)
	old := n.contentOffset
	if old.X == x && old.Y == y {
		return
	}
	n.contentOffset = Vec2{X: x, Y: y}
	if !n.clipping {
		n.MarkBoundingBoxAsDirty()
	}
	cs := n.clippingState()
	switch {
	case cs.horizontal && x > old.X:
		cs.direction = ScrollRight
	case cs.horizontal && x < old.X:
		cs.direction = ScrollLeft
	case !cs.horizontal && y > old.Y:
		cs.direction = ScrollDown
	case !cs.horizontal && y < old.Y:
		cs.direction = ScrollUp
	default:
		// Cross-axis only: the recorded direction says nothing about which
		// edge of the window changed.
		cs.forceFirst = true
	}
	n.updateClipRect()
	if cs.enabled {
		n.UpdateVisibleChildren()
	}
}

// ScrollDirection returns the direction of the last content offset change.
func (n *Node) ScrollDirection() ScrollDirection {
	if n.clip == nil {
		return ScrollNone
	}
	return n.clip.direction
}

// ClipRect returns the visible rectangle in content coordinates.
func (n *Node) ClipRect() Rect {
	if n.clip == nil {
		f := n.layout.Frame
		return Rect{X: n.contentOffset.X, Y: n.contentOffset.Y, Width: f.Width, Height: f.Height}
	}
	return n.clip.clipRect
}

// ClippingWindow returns the [start, end] range of sorted children attached
// to the native view. Both are -1 while unset.
func (n *Node) ClippingWindow() (start, end int) {
	if n.clip == nil {
		return -1, -1
	}
	return n.clip.start, n.clip.end
}

// SortedChildren returns the children in geometry order. The returned slice
// MUST NOT be mutated by the caller.
func (n *Node) SortedChildren() []*Node {
	if n.clip == nil {
		return nil
	}
	return n.clip.sorted
}

// IsClipped reports whether the parent's virtualization currently keeps this
// node detached from the native tree.
func (n *Node) IsClipped() bool {
	return n.isClipped
}

// UpdateVisibleChildren runs one reconciliation pass. A first compute runs
// when the window is unset or invalid, or a full pass was requested;
// otherwise the pass is incremental in the last scroll direction.
func (n *Node) UpdateVisibleChildren() {
	cs := n.clip
	if cs == nil || !cs.enabled {
		return
	}
	if !cs.clipRect.HasArea() {
		return
	}
	switch {
	case cs.forceFirst || !cs.windowValid() || cs.direction == ScrollNone:
		n.firstCompute()
	case cs.direction.forward():
		n.incrementalForward()
	default:
		n.incrementalBackward()
	}
}

// --- Passes ---

func (n *Node) firstCompute() {
	cs := n.clip
	cs.forceFirst = false
	start, end := -1, -1
	for i, c := range cs.sorted {
		if cs.isVisible(c) {
			if start < 0 {
				start = i
			}
			end = i
		}
	}
	for i, c := range cs.sorted {
		if start >= 0 && i >= start && i <= end {
			n.attachClipped(c, i-start)
		} else {
			n.detachClipped(c)
		}
	}
	cs.start, cs.end = start, end
	clippingLog.Debugf("node %d: first compute window [%d, %d] of %d", n.tag, start, end, len(cs.sorted))
}

// incrementalForward handles scrolling toward higher sorted indices: children
// leave at start and enter after end.
func (n *Node) incrementalForward() {
	cs := n.clip
	for cs.start <= cs.end && !cs.isVisible(cs.sorted[cs.start]) {
		n.detachClipped(cs.sorted[cs.start])
		cs.start++
	}
	if cs.start > cs.end {
		n.firstCompute()
		return
	}
	for cs.end+1 < len(cs.sorted) && cs.isVisible(cs.sorted[cs.end+1]) {
		cs.end++
		n.attachClipped(cs.sorted[cs.end], cs.end-cs.start)
	}
}

// incrementalBackward handles scrolling toward lower sorted indices: children
// leave at end and enter before start.
func (n *Node) incrementalBackward() {
	cs := n.clip
	for cs.end >= cs.start && !cs.isVisible(cs.sorted[cs.end]) {
		n.detachClipped(cs.sorted[cs.end])
		cs.end--
	}
	if cs.start > cs.end {
		n.firstCompute()
		return
	}
	for cs.start > 0 && cs.isVisible(cs.sorted[cs.start-1]) {
		cs.start--
		n.attachClipped(cs.sorted[cs.start], 0)
	}
}

// restoreClippedChildren attaches every detached child at its sorted index.
func (n *Node) restoreClippedChildren() {
	for i, c := range n.clip.sorted {
		n.attachClipped(c, i)
	}
}

func (n *Node) attachClipped(c *Node, pos int) {
	if !c.isClipped {
		return
	}
	c.isClipped = false
	n.tree.native.Attach(c.handle, n.handle, pos)
}

func (n *Node) detachClipped(c *Node) {
	if c.isClipped {
		return
	}
	c.isClipped = true
	n.tree.native.Detach(c.handle, n.handle)
}

func (n *Node) updateClipRect() {
	if n.clip == nil {
		return
	}
	f := n.layout.Frame
	n.clip.clipRect = Rect{X: n.contentOffset.X, Y: n.contentOffset.Y, Width: f.Width, Height: f.Height}
}

// --- Structural hooks ---

// mountClippedChild inserts child into the sorted order. It stays detached
// unless it lands inside the current window.
func (n *Node) mountClippedChild(child *Node) {
	cs := n.clip
	child.isClipped = true
	i := cs.insertSorted(child)
	cs.updateClippingIndex(true, i)
	if cs.start >= 0 && i >= cs.start && i <= cs.end {
		n.attachClipped(child, i-cs.start)
	}
	cs.forceFirst = true
	n.tree.scheduleClipping(n)
}

// unmountClippedChild removes child from the sorted order, detaching it from
// the native view if it was attached.
func (n *Node) unmountClippedChild(child *Node) {
	cs := n.clip
	if !child.isClipped {
		child.isClipped = true
		n.tree.native.Detach(child.handle, n.handle)
	}
	i := cs.removeSorted(child)
	if i < 0 {
		clippingLog.Warningf("node %d: removed child %d missing from sorted order", n.tag, child.tag)
		return
	}
	cs.updateClippingIndex(false, i)
	cs.forceFirst = true
	n.tree.scheduleClipping(n)
}

// childLayoutChanged re-sorts a child whose frame moved. An attached child
// that changes sorted position is detached so a full pass reattaches it in
// order.
func (n *Node) childLayoutChanged(child *Node) {
	cs := n.clip
	i := cs.removeSorted(child)
	if i < 0 {
		return
	}
	j := cs.insertSorted(child)
	if i != j {
		n.detachClipped(child)
	}
	cs.forceFirst = true
	n.tree.scheduleClipping(n)
}
