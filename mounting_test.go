package arbor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func createMut(tag Tag, typ string, f Rect, props Props) Mutation {
	return Mutation{
		Type: MutationCreate,
		Tag:  tag,
		Snapshot: &Snapshot{
			ComponentType: typ,
			Layout:        &LayoutMetrics{Frame: f, PointScaleFactor: 1},
			Props:         props,
		},
	}
}

func insertMut(tag, parent Tag, index int) Mutation {
	return Mutation{Type: MutationInsert, Tag: tag, ParentTag: parent, Index: index}
}

func removeMut(tag, parent Tag) Mutation {
	return Mutation{Type: MutationRemove, Tag: tag, ParentTag: parent}
}

func newInlineManager() (*MountingManager, *Tree, *MemoryLayer) {
	tr, ml := newTestTree()
	return NewMountingManager(nil, tr), tr, ml
}

func TestPerformBatchAppliesInOrder(t *testing.T) {
	mm, tr, ml := newInlineManager()

	err := mm.PerformBatch(Batch{Mutations: []Mutation{
		createMut(1, "RootView", Rect{Width: 100, Height: 100}, nil),
		createMut(2, "View", Rect{Width: 10, Height: 10}, nil),
		createMut(3, "View", Rect{Y: 10, Width: 10, Height: 10}, nil),
		insertMut(3, 1, 0),
		insertMut(2, 1, 0),
	}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Tag{2, 3}, childTags(tr.Node(1))); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}

	err = mm.PerformBatch(Batch{Mutations: []Mutation{
		removeMut(2, 1),
		{Type: MutationDelete, Tag: 2},
		{Type: MutationUpdate, Tag: 3, Snapshot: &Snapshot{Props: Props{"opacity": 0.5}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Node(2) != nil {
		t.Error("deleted node still live")
	}
	if diff := cmp.Diff([]Tag{3}, ml.ChildTags(tr.Node(1).NativeHandle())); diff != "" {
		t.Errorf("native children mismatch (-want +got):\n%s", diff)
	}
	if got := tr.Node(3).Opacity(); got != 0.5 {
		t.Errorf("Opacity = %v, want 0.5", got)
	}
	if got := tr.Node(3).Frame(); got != (Rect{Y: 10, Width: 10, Height: 10}) {
		t.Errorf("Frame = %v, want unchanged by layout-less update", got)
	}
}

func TestPerformBatchRegistry(t *testing.T) {
	mm, _, _ := newInlineManager()

	mm.PerformBatch(Batch{Mutations: []Mutation{
		createMut(1, "View", Rect{Width: 10, Height: 10}, Props{"testID": "a", "opacity": 1.0}),
	}})
	mm.PerformBatch(Batch{Mutations: []Mutation{
		{Type: MutationUpdate, Tag: 1, Snapshot: &Snapshot{Props: Props{"opacity": 0.5}}},
	}})

	got, ok := mm.View(1)
	if !ok {
		t.Fatal("View(1) missing")
	}
	want := Snapshot{
		ComponentType: "View",
		Layout:        &LayoutMetrics{Frame: Rect{Width: 10, Height: 10}, PointScaleFactor: 1},
		Props:         Props{"testID": "a", "opacity": 0.5},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	mm.PerformBatch(Batch{Mutations: []Mutation{{Type: MutationDelete, Tag: 1}}})
	if _, ok := mm.View(1); ok {
		t.Error("deleted tag still in registry")
	}
}

func TestDidMountFiresOncePerBatch(t *testing.T) {
	mm, tr, _ := newInlineManager()

	var calls []int
	var liveAtNotify int
	h := mm.OnDidMount(func(b Batch) {
		calls = append(calls, len(b.Mutations))
		liveAtNotify = tr.Len()
	})
	mm.PerformBatch(Batch{Mutations: []Mutation{
		createMut(1, "View", Rect{}, nil),
		createMut(2, "View", Rect{}, nil),
		insertMut(2, 1, 0),
	}})

	if diff := cmp.Diff([]int{3}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
	if liveAtNotify != 2 {
		t.Errorf("nodes live at notify = %d, want 2", liveAtNotify)
	}

	h.Remove()
	mm.PerformBatch(Batch{Mutations: []Mutation{createMut(3, "View", Rect{}, nil)}})
	if len(calls) != 1 {
		t.Errorf("removed observer fired: calls = %v", calls)
	}
}

func TestDidMountObserverCannotMutate(t *testing.T) {
	mm, tr, _ := newInlineManager()
	mm.OnDidMount(func(Batch) {
		tr.Create(99, &Snapshot{ComponentType: "View"})
	})

	expectPanic(t, "did-mount observer", func() {
		mm.PerformBatch(Batch{Mutations: []Mutation{createMut(1, "View", Rect{}, nil)}})
	})
	if tr.inDidMount {
		t.Error("did-mount flag left set after panic")
	}
	if tr.Node(99) != nil {
		t.Error("observer mutation was applied")
	}
}

func TestUnsupportedOperations(t *testing.T) {
	mm, _, _ := newInlineManager()

	tests := []struct {
		op  string
		err error
	}{
		{"SynchronouslyUpdateViewOnUIThread", mm.SynchronouslyUpdateViewOnUIThread(1, Props{"opacity": 0.5})},
		{"ClearPreallocatedViews", mm.ClearPreallocatedViews()},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, ErrUnsupported) {
			t.Errorf("%s: err = %v, want ErrUnsupported", tt.op, tt.err)
		}
		var ue *UnsupportedError
		if !errors.As(tt.err, &ue) || ue.Op != tt.op {
			t.Errorf("%s: UnsupportedError.Op = %v, want %s", tt.op, ue, tt.op)
		}
	}
}

func TestApplyUnknownTagPanics(t *testing.T) {
	_, tr, _ := newInlineManager()
	expectPanic(t, "unknown tag", func() {
		tr.Apply(Batch{Mutations: []Mutation{insertMut(5, 6, 0)}})
	})
}

func TestMutationTypeText(t *testing.T) {
	for typ := MutationCreate; typ <= MutationUpdate; typ++ {
		text, err := typ.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", typ, err)
		}
		var back MutationType
		if err := back.UnmarshalText(text); err != nil || back != typ {
			t.Errorf("UnmarshalText(%q) = %v, %v, want %v", text, back, err, typ)
		}
	}
	var bad MutationType
	if err := bad.UnmarshalText([]byte("move")); err == nil {
		t.Error("UnmarshalText(move) should fail")
	}
}
