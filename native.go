package arbor

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// NativeHandle identifies a view owned by the native layer.
type NativeHandle uint64

// NativeLayer is the host platform's retained view tree as seen from the UI
// thread. Every call happens on the UI thread. Implementations need not
// tolerate attaching an attached view or detaching a detached one.
type NativeLayer interface {
	CreateView(tag Tag, componentType string) NativeHandle
	DestroyView(h NativeHandle)

	// Attach inserts child into parent's native children at index.
	Attach(child, parent NativeHandle, index int)
	// Detach removes child from parent's native children.
	Detach(child, parent NativeHandle)

	SetPosition(h NativeHandle, x, y float64)
	SetSize(h NativeHandle, w, h2 float64)
	SetTransform(h NativeHandle, m Matrix)
	SetOpacity(h NativeHandle, a float64)
	SetProps(h NativeHandle, props Props)
}

// MemoryView is one view in a MemoryLayer.
type MemoryView struct {
	Handle        NativeHandle
	Tag           Tag
	ComponentType string
	Parent        NativeHandle
	Children      []NativeHandle
	X, Y          float64
	Width, Height float64
	Transform     Matrix
	Opacity       float64
	Props         Props
}

// MemoryLayer is an in-memory NativeLayer. It panics on any call a real
// native layer could not survive: unknown handles, double attach, double
// detach, and detaching from the wrong parent.
type MemoryLayer struct {
	views  map[NativeHandle]*MemoryView
	nextID NativeHandle

	AttachCount  int
	DetachCount  int
	DestroyCount int
}

// NewMemoryLayer creates an empty MemoryLayer.
func NewMemoryLayer() *MemoryLayer {
	return &MemoryLayer{views: make(map[NativeHandle]*MemoryView)}
}

func (m *MemoryLayer) view(h NativeHandle) *MemoryView {
	v, ok := m.views[h]
	if !ok {
		panic(fmt.Sprintf("arbor: memory layer: unknown view %d", h))
	}
	return v
}

// View returns the view for handle h, or nil.
func (m *MemoryLayer) View(h NativeHandle) *MemoryView {
	return m.views[h]
}

// Len returns the number of live views.
func (m *MemoryLayer) Len() int {
	return len(m.views)
}

func (m *MemoryLayer) CreateView(tag Tag, componentType string) NativeHandle {
	m.nextID++
	m.views[m.nextID] = &MemoryView{
		Handle:        m.nextID,
		Tag:           tag,
		ComponentType: componentType,
		Transform:     Identity,
		Opacity:       1,
	}
	return m.nextID
}

func (m *MemoryLayer) DestroyView(h NativeHandle) {
	v := m.view(h)
	if v.Parent != 0 {
		if p := m.views[v.Parent]; p != nil {
			p.Children = removeHandle(p.Children, h)
		}
	}
	for _, c := range v.Children {
		if cv := m.views[c]; cv != nil {
			cv.Parent = 0
		}
	}
	delete(m.views, h)
	m.DestroyCount++
}

func (m *MemoryLayer) Attach(child, parent NativeHandle, index int) {
	c, p := m.view(child), m.view(parent)
	if c.Parent != 0 {
		panic(fmt.Sprintf("arbor: memory layer: view %d already attached to %d", child, c.Parent))
	}
	if index < 0 || index > len(p.Children) {
		panic(fmt.Sprintf("arbor: memory layer: attach index %d out of range [0, %d]", index, len(p.Children)))
	}
	p.Children = append(p.Children, 0)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = child
	c.Parent = parent
	m.AttachCount++
}

func (m *MemoryLayer) Detach(child, parent NativeHandle) {
	c, p := m.view(child), m.view(parent)
	if c.Parent != parent {
		panic(fmt.Sprintf("arbor: memory layer: view %d is not attached to %d", child, parent))
	}
	p.Children = removeHandle(p.Children, child)
	c.Parent = 0
	m.DetachCount++
}

func (m *MemoryLayer) SetPosition(h NativeHandle, x, y float64) {
	v := m.view(h)
	v.X, v.Y = x, y
}

func (m *MemoryLayer) SetSize(h NativeHandle, w, h2 float64) {
	v := m.view(h)
	v.Width, v.Height = w, h2
}

func (m *MemoryLayer) SetTransform(h NativeHandle, t Matrix) {
	m.view(h).Transform = t
}

func (m *MemoryLayer) SetOpacity(h NativeHandle, a float64) {
	m.view(h).Opacity = a
}

func (m *MemoryLayer) SetProps(h NativeHandle, props Props) {
	v := m.view(h)
	if v.Props == nil {
		v.Props = make(Props, len(props))
	}
	for k, val := range props {
		v.Props[k] = val
	}
}

// ChildTags returns the tags of h's native children in native order.
func (m *MemoryLayer) ChildTags(h NativeHandle) []Tag {
	v := m.view(h)
	tags := make([]Tag, len(v.Children))
	for i, c := range v.Children {
		tags[i] = m.view(c).Tag
	}
	return tags
}

// Dump writes the native subtree rooted at h as an indented outline.
func (m *MemoryLayer) Dump(w io.Writer, h NativeHandle) error {
	return m.dump(w, h, 0)
}

func (m *MemoryLayer) dump(w io.Writer, h NativeHandle, depth int) error {
	v := m.view(h)
	keys := make([]string, 0, len(v.Props))
	for k := range v.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	line := fmt.Sprintf("%s%s#%d [%g,%g %gx%g]",
		strings.Repeat("  ", depth), v.ComponentType, v.Tag, v.X, v.Y, v.Width, v.Height)
	if len(keys) > 0 {
		line += " " + strings.Join(keys, ",")
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range v.Children {
		if err := m.dump(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func removeHandle(s []NativeHandle, h NativeHandle) []NativeHandle {
	for i, c := range s {
		if c == h {
			copy(s[i:], s[i+1:])
			return s[:len(s)-1]
		}
	}
	return s
}
