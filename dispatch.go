package arbor

import "sort"

type touchSequence struct {
	target       *Node
	lastX, lastY float64
}

// TouchDispatcher turns raw pointer samples into touch sequences and emits
// them through the tree's EventEmitter. It is the touch handler of the root
// node, so removing a subtree cancels the sequences targeting it.
//
// A dispatcher is confined to the UI thread.
type TouchDispatcher struct {
	tree     *Tree
	root     Tag
	pointers map[int]*touchSequence
}

// NewTouchDispatcher creates a dispatcher hit-testing from root and installs
// it as root's touch handler.
func NewTouchDispatcher(tree *Tree, root Tag) *TouchDispatcher {
	d := &TouchDispatcher{
		tree:     tree,
		root:     root,
		pointers: make(map[int]*touchSequence),
	}
	if r := tree.Node(root); r != nil {
		r.SetTouchHandler(d)
	}
	return d
}

// HandlePointer feeds one sample for pointer id at page point (x, y). It
// returns the target of the pointer's active sequence, or nil.
func (d *TouchDispatcher) HandlePointer(id int, x, y float64, pressed bool) *Node {
	seq := d.pointers[id]
	switch {
	case seq == nil && pressed:
		target := d.tree.HitTest(d.root, x, y)
		if target == nil {
			return nil
		}
		seq = &touchSequence{target: target, lastX: x, lastY: y}
		d.pointers[id] = seq
		d.emit(TouchStart, id, seq, x, y)
		return target

	case seq != nil && pressed:
		if x != seq.lastX || y != seq.lastY {
			seq.lastX, seq.lastY = x, y
			d.emit(TouchMove, id, seq, x, y)
		}
		return seq.target

	case seq != nil:
		delete(d.pointers, id)
		d.emit(TouchEnd, id, seq, x, y)
	}
	return nil
}

// CancelTouches emits a cancel for every sequence whose target lies in the
// subtree rooted at subtree, in pointer id order.
func (d *TouchDispatcher) CancelTouches(subtree *Node) {
	for _, id := range d.activeIDs() {
		seq := d.pointers[id]
		if !isAncestor(subtree, seq.target) {
			continue
		}
		delete(d.pointers, id)
		d.emit(TouchCancel, id, seq, seq.lastX, seq.lastY)
	}
}

// CancelAll cancels every active sequence.
func (d *TouchDispatcher) CancelAll() {
	for _, id := range d.activeIDs() {
		seq := d.pointers[id]
		delete(d.pointers, id)
		d.emit(TouchCancel, id, seq, seq.lastX, seq.lastY)
	}
}

// ActiveTouches returns the target tag of every active sequence by pointer id.
func (d *TouchDispatcher) ActiveTouches() map[int]Tag {
	out := make(map[int]Tag, len(d.pointers))
	for id, seq := range d.pointers {
		out[id] = seq.target.tag
	}
	return out
}

func (d *TouchDispatcher) activeIDs() []int {
	ids := make([]int, 0, len(d.pointers))
	for id := range d.pointers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (d *TouchDispatcher) emit(typ TouchType, id int, seq *touchSequence, x, y float64) {
	em := seq.target.TouchEventEmitter()
	if em == nil {
		return
	}
	lx, ly := seq.target.PageToLocal(x, y)
	em.EmitTouch(TouchEvent{
		Type:      typ,
		Target:    seq.target.tag,
		PointerID: id,
		PageX:     x,
		PageY:     y,
		LocalX:    lx,
		LocalY:    ly,
	})
}
