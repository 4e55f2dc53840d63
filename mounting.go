package arbor

import (
	"fmt"
	"sync"
)

// MutationType is the kind of a renderer mutation.
type MutationType uint8

const (
	MutationCreate MutationType = iota // create a node from a snapshot
	MutationDelete                     // delete a removed node
	MutationInsert                     // insert Tag into ParentTag at Index
	MutationRemove                     // remove Tag from ParentTag
	MutationUpdate                     // apply a new snapshot to a live node
)

var mutationNames = [...]string{"create", "delete", "insert", "remove", "update"}

func (t MutationType) String() string {
	if int(t) < len(mutationNames) {
		return mutationNames[t]
	}
	return fmt.Sprintf("MutationType(%d)", t)
}

// MarshalText implements encoding.TextMarshaler.
func (t MutationType) MarshalText() ([]byte, error) {
	if int(t) >= len(mutationNames) {
		return nil, fmt.Errorf("arbor: unknown mutation type %d", t)
	}
	return []byte(mutationNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *MutationType) UnmarshalText(b []byte) error {
	for i, name := range mutationNames {
		if name == string(b) {
			*t = MutationType(i)
			return nil
		}
	}
	return fmt.Errorf("arbor: unknown mutation type %q", b)
}

// Snapshot is a render-description snapshot for one node. Layout is nil when
// an update carries no new layout. Props are applied as a delta.
type Snapshot struct {
	ComponentType string         `yaml:"type" cbor:"1,keyasint"`
	Layout        *LayoutMetrics `yaml:"layout,omitempty" cbor:"2,keyasint,omitempty"`
	Props         Props          `yaml:"props,omitempty" cbor:"3,keyasint,omitempty"`
}

// Mutation is one renderer-issued tree change.
type Mutation struct {
	Type      MutationType `yaml:"type" cbor:"1,keyasint"`
	Tag       Tag          `yaml:"tag" cbor:"2,keyasint"`
	ParentTag Tag          `yaml:"parent,omitempty" cbor:"3,keyasint,omitempty"`
	Index     int          `yaml:"index,omitempty" cbor:"4,keyasint,omitempty"`
	Snapshot  *Snapshot    `yaml:"snapshot,omitempty" cbor:"5,keyasint,omitempty"`
}

// Batch is the ordered mutation list of one renderer update cycle.
type Batch struct {
	SurfaceID int        `yaml:"surface" cbor:"1,keyasint"`
	Mutations []Mutation `yaml:"mutations" cbor:"2,keyasint"`
}

type didMountObserver struct {
	id uint32
	fn func(Batch)
}

// CallbackHandle allows removing a registered did-mount observer.
type CallbackHandle struct {
	id uint32
	mm *MountingManager
}

// Remove unregisters the observer so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.mm == nil {
		return
	}
	h.mm.mu.Lock()
	defer h.mm.mu.Unlock()
	s := h.mm.observers
	for i := range s {
		if s[i].id == h.id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = didMountObserver{}
			h.mm.observers = s[:len(s)-1]
			return
		}
	}
}

// MountingManager consumes renderer mutation batches. The registry of
// last-known snapshots is written on the render thread only; the tree is
// touched on the UI thread only, through one queued task per batch.
type MountingManager struct {
	runner *TaskRunner
	tree   *Tree

	registry map[Tag]Snapshot

	mu        sync.Mutex
	observers []didMountObserver
	nextID    uint32
}

// NewMountingManager creates a manager applying batches to tree. With a nil
// runner batches are applied inline on the calling goroutine.
func NewMountingManager(runner *TaskRunner, tree *Tree) *MountingManager {
	return &MountingManager{
		runner:   runner,
		tree:     tree,
		registry: make(map[Tag]Snapshot),
	}
}

// Tree returns the managed tree. It must only be used on the UI thread.
func (m *MountingManager) Tree() *Tree {
	return m.tree
}

// PerformBatch records b in the registry and queues its application on the
// UI thread. Observers are notified once, after the whole batch applied.
// Must be called on the render thread.
func (m *MountingManager) PerformBatch(b Batch) error {
	return m.performBatch(b, nil)
}

func (m *MountingManager) performBatch(b Batch, done func()) error {
	m.assertRenderThread("PerformBatch")
	m.updateRegistry(b)
	apply := func() {
		if done != nil {
			defer done()
		}
		m.mount(b)
	}
	if m.runner == nil {
		apply()
		return nil
	}
	if err := m.runner.RunAsync(UIThread, apply); err != nil {
		if done != nil {
			done()
		}
		return err
	}
	return nil
}

func (m *MountingManager) updateRegistry(b Batch) {
	for i := range b.Mutations {
		mu := &b.Mutations[i]
		switch mu.Type {
		case MutationCreate, MutationUpdate:
			if mu.Snapshot != nil {
				m.registry[mu.Tag] = mergeSnapshot(m.registry[mu.Tag], *mu.Snapshot)
			}
		case MutationDelete:
			delete(m.registry, mu.Tag)
		}
	}
}

// mergeSnapshot folds an update into the last-known snapshot.
func mergeSnapshot(old, s Snapshot) Snapshot {
	if s.ComponentType == "" {
		s.ComponentType = old.ComponentType
	}
	if s.Layout == nil {
		s.Layout = old.Layout
	}
	if len(old.Props) > 0 {
		props := make(Props, len(old.Props)+len(s.Props))
		for k, v := range old.Props {
			props[k] = v
		}
		for k, v := range s.Props {
			props[k] = v
		}
		s.Props = props
	}
	return s
}

func (m *MountingManager) mount(b Batch) {
	m.tree.Apply(b)
	mountingLog.Debugf("surface %d: applied %d mutations", b.SurfaceID, len(b.Mutations))

	m.mu.Lock()
	observers := make([]didMountObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	m.tree.inDidMount = true
	defer func() { m.tree.inDidMount = false }()
	for _, o := range observers {
		o.fn(b)
	}
}

// View returns the last-known snapshot for tag. Must be called on the render
// thread.
func (m *MountingManager) View(tag Tag) (Snapshot, bool) {
	m.assertRenderThread("View")
	s, ok := m.registry[tag]
	return s, ok
}

// OnDidMount registers fn to run on the UI thread once per applied batch.
// fn may read the tree but must not mutate it.
func (m *MountingManager) OnDidMount(fn func(Batch)) CallbackHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.observers = append(m.observers, didMountObserver{id: m.nextID, fn: fn})
	return CallbackHandle{id: m.nextID, mm: m}
}

// SynchronouslyUpdateViewOnUIThread is not supported: props only reach the
// tree through batches.
func (m *MountingManager) SynchronouslyUpdateViewOnUIThread(tag Tag, props Props) error {
	return &UnsupportedError{Op: "SynchronouslyUpdateViewOnUIThread"}
}

// ClearPreallocatedViews is not supported: views are never preallocated.
func (m *MountingManager) ClearPreallocatedViews() error {
	return &UnsupportedError{Op: "ClearPreallocatedViews"}
}

func (m *MountingManager) assertRenderThread(op string) {
	if m.runner != nil && m.runner.debug {
		m.runner.AssertOnThread(RenderThread, op)
	}
}
