package arbor

// TouchTarget is the hit-testing surface of a scene node.
type TouchTarget interface {
	Tag() Tag
	// ContainsPoint tests a local point against the hit rectangle.
	ContainsPoint(x, y float64) bool
	BoundingBox() Rect
	CachedBoundingBox() (Rect, bool)
	TouchEventEmitter() EventEmitter
	// TouchTargetParent returns nil for the root.
	TouchTargetParent() TouchTarget
	// TouchTargetChildren returns the children currently attached natively,
	// in logical order.
	TouchTargetChildren() []TouchTarget
	CanHandleTouch() bool
	CanChildrenHandleTouch() bool
	// ParentToLocal converts a point from the parent's space.
	ParentToLocal(x, y float64) (float64, float64)
}

// TouchType is the phase of a touch event.
type TouchType uint8

const (
	TouchStart  TouchType = iota // pointer went down on a target
	TouchMove                    // pointer moved while down
	TouchEnd                     // pointer went up
	TouchCancel                  // sequence aborted, e.g. target removed
)

func (t TouchType) String() string {
	switch t {
	case TouchStart:
		return "start"
	case TouchMove:
		return "move"
	case TouchEnd:
		return "end"
	case TouchCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// TouchEvent is delivered to the renderer for one pointer.
type TouchEvent struct {
	Type      TouchType
	Target    Tag
	PointerID int
	// PageX/PageY are in root coordinates; LocalX/LocalY in the target's.
	PageX, PageY   float64
	LocalX, LocalY float64
}

// EventEmitter delivers touch events to the renderer.
type EventEmitter interface {
	EmitTouch(TouchEvent)
}

// EventEmitterFunc adapts a function to EventEmitter.
type EventEmitterFunc func(TouchEvent)

// EmitTouch calls f(ev).
func (f EventEmitterFunc) EmitTouch(ev TouchEvent) { f(ev) }

// TouchHandler owns in-flight touch sequences below a node.
type TouchHandler interface {
	// CancelTouches cancels every sequence whose target lies in the subtree
	// rooted at subtree.
	CancelTouches(subtree *Node)
}

var _ TouchTarget = (*Node)(nil)

// ContainsPoint reports whether the local point lies in the hit rectangle.
func (n *Node) ContainsPoint(x, y float64) bool {
	return n.hitRect().Contains(x, y)
}

// TouchEventEmitter returns the tree's event emitter.
func (n *Node) TouchEventEmitter() EventEmitter {
	if n.tree == nil {
		return nil
	}
	return n.tree.emitter
}

// TouchTargetParent returns the parent as a TouchTarget, or nil.
func (n *Node) TouchTargetParent() TouchTarget {
	if p := n.Parent(); p != nil {
		return p
	}
	return nil
}

// TouchTargetChildren returns the natively attached children in logical
// order. Children detached by virtualization are not hit-testable.
func (n *Node) TouchTargetChildren() []TouchTarget {
	out := make([]TouchTarget, 0, len(n.children))
	for _, c := range n.children {
		if !c.isClipped {
			out = append(out, c)
		}
	}
	return out
}

// CanHandleTouch reports whether the node itself may be a touch target.
func (n *Node) CanHandleTouch() bool {
	return n.pointerEvents == PointerEventsAuto || n.pointerEvents == PointerEventsBoxOnly
}

// CanChildrenHandleTouch reports whether the node's children may be touch
// targets.
func (n *Node) CanChildrenHandleTouch() bool {
	return n.pointerEvents == PointerEventsAuto || n.pointerEvents == PointerEventsBoxNone
}

// SetTouchHandler installs h as this node's touch handler. RemoveChild on this
// node or a descendant without its own handler asks h to cancel touches.
func (n *Node) SetTouchHandler(h TouchHandler) {
	n.touchHandler = h
}

// SetNativeResponderBlocked records that origin blocks (or stops blocking)
// the node's native responder. The node is blocked while any origin blocks it.
func (n *Node) SetNativeResponderBlocked(blocked bool, origin string) {
	if blocked {
		if n.blockedBy == nil {
			n.blockedBy = make(map[string]struct{})
		}
		n.blockedBy[origin] = struct{}{}
		return
	}
	delete(n.blockedBy, origin)
}

// IsNativeResponderBlocked reports whether any origin blocks the node.
func (n *Node) IsNativeResponderBlocked() bool {
	return len(n.blockedBy) > 0
}

// FindTouchTarget returns the deepest target under (x, y), given in target's
// parent space, or nil. Children are tried topmost first using their cached
// bounding boxes; boxes are never computed during the traversal, so callers
// materialize them first (Tree.HitTest does).
func FindTouchTarget(target TouchTarget, x, y float64) TouchTarget {
	if !target.CanHandleTouch() && !target.CanChildrenHandleTouch() {
		return nil
	}
	lx, ly := target.ParentToLocal(x, y)
	box, ok := target.CachedBoundingBox()
	if !ok || !box.Contains(lx, ly) {
		return nil
	}
	if target.CanChildrenHandleTouch() {
		children := target.TouchTargetChildren()
		for i := len(children) - 1; i >= 0; i-- {
			if hit := FindTouchTarget(children[i], lx, ly); hit != nil {
				return hit
			}
		}
	}
	if target.CanHandleTouch() && target.ContainsPoint(lx, ly) {
		return target
	}
	return nil
}
