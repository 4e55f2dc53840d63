package arbor

// hitRect is the layout frame in local coordinates, padded by hit-slop.
func (n *Node) hitRect() Rect {
	f := n.layout.Frame
	return Rect{Width: f.Width, Height: f.Height}.Inset(n.hitSlop)
}

// centeredTransform is the node's transform applied around the centre of its
// frame, in local coordinates.
func (n *Node) centeredTransform() Matrix {
	f := n.layout.Frame
	return n.transform.aroundCenter(f.Width/2, f.Height/2)
}

// toParent maps a rectangle from this node's local space into its parent's
// local space.
func (n *Node) toParent(r Rect) Rect {
	r = n.centeredTransform().ApplyRect(r)
	r.X += n.layout.Frame.X
	r.Y += n.layout.Frame.Y
	if p := n.Parent(); p != nil {
		r.X -= p.contentOffset.X
		r.Y -= p.contentOffset.Y
	}
	return r
}

// ParentToLocal converts a point from the parent's local space into this
// node's local space.
func (n *Node) ParentToLocal(x, y float64) (float64, float64) {
	if p := n.Parent(); p != nil {
		x += p.contentOffset.X
		y += p.contentOffset.Y
	}
	x -= n.layout.Frame.X
	y -= n.layout.Frame.Y
	return n.centeredTransform().Invert().Apply(x, y)
}

// PageToLocal converts a point in page coordinates (the space the top-most
// ancestor's frame is expressed in) into this node's local space.
func (n *Node) PageToLocal(x, y float64) (float64, float64) {
	var chain []*Node
	for a := n; a != nil; a = a.Parent() {
		chain = append(chain, a)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		x, y = chain[i].ParentToLocal(x, y)
	}
	return x, y
}

// BoundingBox returns the area, in local coordinates, that the node and (when
// it does not clip) its descendants can receive touches in. The result is
// cached until MarkBoundingBoxAsDirty.
func (n *Node) BoundingBox() Rect {
	if n.bboxValid {
		return n.bbox
	}
	box := n.hitRect()
	if !n.clipping {
		for _, child := range n.children {
			box = box.Union(child.toParent(child.BoundingBox()))
		}
	}
	n.bbox = box
	n.bboxValid = true
	return box
}

// CachedBoundingBox returns the cached bounding box without computing it.
func (n *Node) CachedBoundingBox() (Rect, bool) {
	return n.bbox, n.bboxValid
}

// MarkBoundingBoxAsDirty drops the cached bounding box. Invalidation travels
// up through ancestors and stops at the first one that clips, since a clipping
// node's box does not depend on its children.
func (n *Node) MarkBoundingBoxAsDirty() {
	if !n.bboxValid {
		return
	}
	n.bboxValid = false
	if p := n.Parent(); p != nil && !p.clipping {
		p.MarkBoundingBoxAsDirty()
	}
}

// materializeBoundingBoxes computes every box in the subtree so that hit
// testing can read caches only.
func materializeBoundingBoxes(n *Node) {
	n.BoundingBox()
	for _, child := range n.children {
		materializeBoundingBoxes(child)
	}
}
