package arbor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
debug = true
verbosity = 2
external-ui-thread = true

[viewport]
width = 800

[kinds]
RCTScrollView = "scroll"
RCTView = "view"
`))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Debug:            true,
		Verbosity:        2,
		ExternalUIThread: true,
		Kinds:            map[string]string{"RCTScrollView": "scroll", "RCTView": "view"},
		Viewport:         Viewport{Width: 800, Height: 640},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.RootFrame(); got != (Rect{Width: 800, Height: 640}) {
		t.Errorf("RootFrame = %v", got)
	}
	if opts := cfg.TaskRunnerOptions(); !opts.Debug || !opts.ExternalUIThread {
		t.Errorf("TaskRunnerOptions = %+v", opts)
	}
}

func TestParseConfigSyntaxError(t *testing.T) {
	if _, err := ParseConfig([]byte("debug = ")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil || !strings.Contains(err.Error(), "cannot read") {
		t.Errorf("missing file err = %v", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("verbosity = \"loud\""), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil || !strings.Contains(err.Error(), "parse error in") {
		t.Errorf("bad file err = %v", err)
	}
}

func TestConfigRegistryAliases(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kinds = map[string]string{"RCTScrollView": "scroll"}
	r, err := cfg.Registry()
	if err != nil {
		t.Fatal(err)
	}

	tr := NewTree(NewMemoryLayer(), r)
	n := createNode(tr, 1, "RCTScrollView", Rect{Width: 10, Height: 10}, nil)
	if !n.IsClipping() {
		t.Error("aliased scroll view should clip")
	}
	u := createNode(tr, 2, "SomethingElse", Rect{}, nil)
	if u.IsClipping() {
		t.Error("unknown kind should behave as a view")
	}

	cfg.Kinds = map[string]string{"Bad": "table"}
	if _, err := cfg.Registry(); err == nil {
		t.Error("unknown built-in kind should fail")
	}
}

func TestKindRegistryKinds(t *testing.T) {
	r := NewKindRegistry()
	want := []string{"HorizontalScrollView", "RootView", "ScrollView", "View"}
	if diff := cmp.Diff(want, r.Kinds()); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}
