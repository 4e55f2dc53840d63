package arbor

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const listScript = `
steps:
  - action: mount
    mutations:
      - type: create
        tag: 2
        snapshot:
          type: ScrollView
          layout: {frame: {x: 0, y: 0, width: 100, height: 60}, scale: 1}
          props: {removeClippedSubviews: true}
      - {type: insert, tag: 2, parent: 1, index: 0}
      - {type: create, tag: 10, snapshot: {type: View, layout: {frame: {y: 0, width: 100, height: 50}, scale: 1}}}
      - {type: create, tag: 11, snapshot: {type: View, layout: {frame: {y: 50, width: 100, height: 50}, scale: 1}}}
      - {type: create, tag: 12, snapshot: {type: View, layout: {frame: {y: 100, width: 100, height: 50}, scale: 1}}}
      - {type: insert, tag: 10, parent: 2, index: 0}
      - {type: insert, tag: 11, parent: 2, index: 1}
      - {type: insert, tag: 12, parent: 2, index: 2}
  - action: dump
    label: mounted
  - action: scroll
    tag: 2
    y: 50
  - action: dump
    label: scrolled
  - action: tap
    x: 50
    y: 20
  - action: touch
    pointer: 1
    x: 500
    y: 500
    pressed: true
  - action: virtualize
    tag: 2
    enabled: false
  - action: dump
    tag: 2
`

func TestScriptRun(t *testing.T) {
	sc, err := ParseScript([]byte(listScript))
	if err != nil {
		t.Fatal(err)
	}
	r := newTestRunner(t, TaskRunnerOptions{})
	s := newTestSurface(t, r, NewMemoryLayer(), nil)

	var out bytes.Buffer
	if err := sc.Run(s, &out); err != nil {
		t.Fatal(err)
	}

	want := `# mounted
RootView#1 [0,0 100x100]
  ScrollView#2 [0,0 100x60] window=[0,1]
    View#10 [0,0 100x50]
    View#11 [0,50 100x50]
    View#12 [0,100 100x50] clipped
# scrolled
RootView#1 [0,0 100x100]
  ScrollView#2 [0,0 100x60] window=[1,2]
    View#10 [0,0 100x50] clipped
    View#11 [0,50 100x50]
    View#12 [0,100 100x50]
tap 0 (50,20) -> View#11
touch 1 (500,500) -> none
ScrollView#2 [0,0 100x60]
  View#10 [0,0 100x50]
  View#11 [0,50 100x50]
  View#12 [0,100 100x50]
`
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name, src, want string
	}{
		{"empty", "steps: []", "no steps"},
		{"unknown action", "steps:\n  - action: jump", `unknown action "jump"`},
		{"bad mutation", "steps:\n  - action: mount\n    mutations:\n      - type: move", "unknown mutation type"},
		{"syntax", "steps: [", "parse script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte(listScript), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadScript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Steps) != 8 {
		t.Errorf("steps = %d, want 8", len(sc.Steps))
	}
	if got := sc.Steps[0].Mutations[0].Snapshot.Props["removeClippedSubviews"]; got != true {
		t.Errorf("removeClippedSubviews = %v, want true", got)
	}
}
