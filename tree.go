package arbor

import (
	"fmt"
	"io"
	"strings"
)

// Tree is the arena of live nodes keyed by tag. It owns every node and is the
// only place parent links are resolved. A Tree is confined to the UI thread.
type Tree struct {
	nodes   map[Tag]*Node
	native  NativeLayer
	kinds   *KindRegistry
	emitter EventEmitter
	runner  *TaskRunner
	debug   bool

	// Virtualizing containers whose window must be recomputed at the next
	// flush.
	pendingClip []*Node

	inDidMount bool
	torndown   bool
}

// NewTree creates an empty tree materializing into native. A nil kinds uses
// NewKindRegistry.
func NewTree(native NativeLayer, kinds *KindRegistry) *Tree {
	if native == nil {
		panic("arbor: NewTree requires a native layer")
	}
	if kinds == nil {
		kinds = NewKindRegistry()
	}
	return &Tree{
		nodes:  make(map[Tag]*Node),
		native: native,
		kinds:  kinds,
	}
}

// SetDebugMode enables or disables debug checks: disposed-node use, UI-thread
// affinity (when a task runner is set), and tree-shape warnings.
func (t *Tree) SetDebugMode(enabled bool) {
	t.debug = enabled
}

// SetTaskRunner sets the runner used for UI-thread assertions in debug mode.
func (t *Tree) SetTaskRunner(r *TaskRunner) {
	t.runner = r
}

// SetEventEmitter sets the emitter returned by every node's
// TouchEventEmitter.
func (t *Tree) SetEventEmitter(e EventEmitter) {
	t.emitter = e
}

// Native returns the native layer.
func (t *Tree) Native() NativeLayer {
	return t.native
}

// Node returns the live node for tag, or nil.
func (t *Tree) Node(tag Tag) *Node {
	return t.nodes[tag]
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

func (t *Tree) mustNode(tag Tag, op string) *Node {
	n, ok := t.nodes[tag]
	if !ok {
		panic(fmt.Sprintf("arbor: %s: %v %d", op, ErrUnknownTag, tag))
	}
	return n
}

// Create materializes a node for tag from snap. Creating a live tag panics.
func (t *Tree) Create(tag Tag, snap *Snapshot) *Node {
	t.checkMutable("Create")
	if tag == NoTag {
		panic("arbor: cannot create node with NoTag")
	}
	if _, ok := t.nodes[tag]; ok {
		panic(fmt.Sprintf("arbor: node %d already exists", tag))
	}
	componentType := ""
	if snap != nil {
		componentType = snap.ComponentType
	}
	n := &Node{
		tag:           tag,
		componentType: componentType,
		tree:          t,
		behavior:      t.kinds.behaviorFor(componentType),
		handle:        t.native.CreateView(tag, componentType),
		index:         -1,
		transform:     Identity,
		opacity:       1,
	}
	t.nodes[tag] = n
	n.behavior.Init(n)
	n.applySnapshot(snap)
	return n
}

// Destroy deletes the node for tag and its native view. The node must already
// be removed from its parent. Its remaining children become parentless.
func (t *Tree) Destroy(tag Tag) {
	t.checkMutable("Destroy")
	n := t.mustNode(tag, "Destroy")
	if n.parent != NoTag {
		panic(fmt.Sprintf("arbor: delete of node %d that is still a child of %d", tag, n.parent))
	}
	t.native.DestroyView(n.handle)
	n.dispose()
	delete(t.nodes, tag)
}

// Apply applies every mutation of b in order, then reconciles the virtualizing
// containers the batch touched.
func (t *Tree) Apply(b Batch) {
	for i := range b.Mutations {
		m := &b.Mutations[i]
		switch m.Type {
		case MutationCreate:
			t.Create(m.Tag, m.Snapshot)
		case MutationDelete:
			t.Destroy(m.Tag)
		case MutationInsert:
			parent := t.mustNode(m.ParentTag, "Insert")
			parent.InsertChild(t.mustNode(m.Tag, "Insert"), m.Index)
		case MutationRemove:
			parent := t.mustNode(m.ParentTag, "Remove")
			parent.RemoveChild(t.mustNode(m.Tag, "Remove"))
		case MutationUpdate:
			t.checkMutable("Update")
			t.mustNode(m.Tag, "Update").applySnapshot(m.Snapshot)
		default:
			panic(fmt.Sprintf("arbor: unknown mutation type %d", m.Type))
		}
	}
	t.FlushClipping()
}

func (t *Tree) scheduleClipping(n *Node) {
	if n.clip == nil || n.clip.scheduled {
		return
	}
	n.clip.scheduled = true
	t.pendingClip = append(t.pendingClip, n)
}

// FlushClipping runs the pending reconciliation passes scheduled by structural
// and layout changes.
func (t *Tree) FlushClipping() {
	pending := t.pendingClip
	t.pendingClip = nil
	for _, n := range pending {
		if n.disposed || n.clip == nil {
			continue
		}
		n.clip.scheduled = false
		n.UpdateVisibleChildren()
	}
}

// HitTest returns the deepest node under the page point (x, y), the space
// root's frame is expressed in. Bounding boxes are materialized before the
// traversal.
func (t *Tree) HitTest(root Tag, x, y float64) *Node {
	r := t.nodes[root]
	if r == nil {
		return nil
	}
	materializeBoundingBoxes(r)
	target := FindTouchTarget(r, x, y)
	if target == nil {
		return nil
	}
	return target.(*Node)
}

// Teardown destroys every node and native view. The tree cannot be mutated
// afterwards.
func (t *Tree) Teardown() {
	t.checkMutable("Teardown")
	for tag, n := range t.nodes {
		t.native.DestroyView(n.handle)
		n.dispose()
		delete(t.nodes, tag)
	}
	t.pendingClip = nil
	t.torndown = true
}

// IsTornDown reports whether Teardown ran.
func (t *Tree) IsTornDown() bool {
	return t.torndown
}

func (t *Tree) checkMutable(op string) {
	if t.torndown {
		panic(fmt.Sprintf("arbor: %s on a torn down tree", op))
	}
	if t.inDidMount {
		panic(fmt.Sprintf("arbor: %s from a did-mount observer", op))
	}
	if t.debug {
		debugCheckUIThread(t, op)
	}
}

// Dump writes the logical subtree rooted at tag as an indented outline.
// Children detached by virtualization are marked "clipped".
func (t *Tree) Dump(w io.Writer, tag Tag) error {
	n := t.nodes[tag]
	if n == nil {
		return fmt.Errorf("dump %d: %w", tag, ErrUnknownTag)
	}
	return dumpNode(w, n, 0)
}

func dumpNode(w io.Writer, n *Node, depth int) error {
	f := n.layout.Frame
	line := fmt.Sprintf("%s%s#%d [%g,%g %gx%g]", strings.Repeat("  ", depth),
		n.componentType, n.tag, f.X, f.Y, f.Width, f.Height)
	if n.isClipped {
		line += " clipped"
	}
	if n.VirtualizationEnabled() {
		start, end := n.ClippingWindow()
		line += fmt.Sprintf(" window=[%d,%d]", start, end)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := dumpNode(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
