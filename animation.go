package arbor

import (
	"fmt"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Prop keys owned by running animations.
const (
	PropOpacity   = "opacity"
	PropTransform = "transform"
)

// Animation tweens up to two values of one node. The owning prop key is
// ignored by batch updates while the animation runs.
type Animation struct {
	tweens [2]*gween.Tween
	count  int
	target *Node
	prop   string
	apply  func(n *Node, v [2]float64)
	Done   bool
}

// update advances the tweens by dt seconds and writes the values to the node.
func (a *Animation) update(dt float32) {
	if a.Done {
		return
	}
	if a.target.IsDisposed() {
		a.Done = true
		return
	}
	var v [2]float64
	allDone := true
	for i := 0; i < a.count; i++ {
		val, finished := a.tweens[i].Update(dt)
		v[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	a.apply(a.target, v)
	a.Done = allDone
}

// AnimationDriver runs native-driven animations against a tree. It owns the
// animated prop keys of its targets so renderer updates do not fight it.
//
// A driver is confined to the UI thread, like its tree.
type AnimationDriver struct {
	tree   *Tree
	active map[Tag][]*Animation
}

// NewAnimationDriver creates a driver for tree.
func NewAnimationDriver(tree *Tree) *AnimationDriver {
	return &AnimationDriver{tree: tree, active: make(map[Tag][]*Animation)}
}

func (d *AnimationDriver) start(tag Tag, a *Animation) (*Animation, error) {
	n := d.tree.Node(tag)
	if n == nil {
		return nil, fmt.Errorf("animate %d: %w", tag, ErrUnknownTag)
	}
	a.target = n
	d.stopProp(tag, a.prop)
	n.IgnoreProp(a.prop)
	d.active[tag] = append(d.active[tag], a)
	return a, nil
}

// AnimateOpacity tweens tag's opacity to to over duration seconds.
func (d *AnimationDriver) AnimateOpacity(tag Tag, to float64, duration float32, fn ease.TweenFunc) (*Animation, error) {
	n := d.tree.Node(tag)
	if n == nil {
		return nil, fmt.Errorf("animate %d: %w", tag, ErrUnknownTag)
	}
	if fn == nil {
		fn = ease.Linear
	}
	a := &Animation{count: 1, prop: PropOpacity}
	a.tweens[0] = gween.New(float32(n.Opacity()), float32(to), duration, fn)
	a.apply = func(n *Node, v [2]float64) {
		n.SetOpacity(v[0])
	}
	return d.start(tag, a)
}

// AnimateTranslation tweens the translation part of tag's transform to
// (toX, toY) over duration seconds.
func (d *AnimationDriver) AnimateTranslation(tag Tag, toX, toY float64, duration float32, fn ease.TweenFunc) (*Animation, error) {
	n := d.tree.Node(tag)
	if n == nil {
		return nil, fmt.Errorf("animate %d: %w", tag, ErrUnknownTag)
	}
	if fn == nil {
		fn = ease.Linear
	}
	m := n.Transform()
	a := &Animation{count: 2, prop: PropTransform}
	a.tweens[0] = gween.New(float32(m[4]), float32(toX), duration, fn)
	a.tweens[1] = gween.New(float32(m[5]), float32(toY), duration, fn)
	a.apply = func(n *Node, v [2]float64) {
		m := n.Transform()
		m[4], m[5] = v[0], v[1]
		n.SetTransform(m)
	}
	return d.start(tag, a)
}

// Update advances every animation by dt seconds. Finished animations release
// their prop keys.
func (d *AnimationDriver) Update(dt float32) {
	for tag, anims := range d.active {
		kept := anims[:0]
		for _, a := range anims {
			a.update(dt)
			if !a.Done {
				kept = append(kept, a)
				continue
			}
			if !a.target.IsDisposed() {
				a.target.UnignoreProp(a.prop)
			}
		}
		if len(kept) == 0 {
			delete(d.active, tag)
			continue
		}
		d.active[tag] = kept
	}
}

// Stop ends every animation of tag, leaving the current values in place.
func (d *AnimationDriver) Stop(tag Tag) {
	for _, a := range d.active[tag] {
		a.Done = true
		if !a.target.IsDisposed() {
			a.target.UnignoreProp(a.prop)
		}
	}
	delete(d.active, tag)
}

func (d *AnimationDriver) stopProp(tag Tag, prop string) {
	anims := d.active[tag]
	for i, a := range anims {
		if a.prop == prop {
			a.Done = true
			d.active[tag] = append(anims[:i:i], anims[i+1:]...)
			return
		}
	}
}

// Active returns the number of running animations.
func (d *AnimationDriver) Active() int {
	n := 0
	for _, anims := range d.active {
		n += len(anims)
	}
	return n
}

// Observe drops the animations of nodes deleted by each mounted batch.
func (d *AnimationDriver) Observe(mm *MountingManager) CallbackHandle {
	return mm.OnDidMount(func(b Batch) {
		for i := range b.Mutations {
			if b.Mutations[i].Type == MutationDelete {
				delete(d.active, b.Mutations[i].Tag)
			}
		}
	})
}
