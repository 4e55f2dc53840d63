package arbor

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ScriptStep is a single action in a replay script.
type ScriptStep struct {
	Action    string     `yaml:"action"`
	Label     string     `yaml:"label,omitempty"`
	Tag       Tag        `yaml:"tag,omitempty"`
	X         float64    `yaml:"x,omitempty"`
	Y         float64    `yaml:"y,omitempty"`
	Pointer   int        `yaml:"pointer,omitempty"`
	Pressed   bool       `yaml:"pressed,omitempty"`
	Enabled   bool       `yaml:"enabled,omitempty"`
	Mutations []Mutation `yaml:"mutations,omitempty"`
}

// Script is a scripted session against a Surface: mutation batches, scrolls,
// touches and tree dumps, applied in order.
type Script struct {
	Steps []ScriptStep `yaml:"steps"`
}

// ParseScript parses a YAML replay script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range s.Steps {
		switch st.Action {
		case "mount", "scroll", "touch", "tap", "virtualize", "dump", "wait":
		default:
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &s, nil
}

// LoadScript reads and parses a YAML replay script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return ParseScript(data)
}

// Run executes every step against s, waiting for each to be applied before
// the next. Dumps and touch results are written to out.
func (sc *Script) Run(s *Surface, out io.Writer) error {
	for i, st := range sc.Steps {
		var buf bytes.Buffer
		if err := sc.step(s, st, &buf); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Action, err)
		}
		if err := s.Flush(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Action, err)
		}
		if _, err := out.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// step queues one step. Output produced on the UI thread goes to buf, which
// the caller reads only after a flush.
func (sc *Script) step(s *Surface, st ScriptStep, buf *bytes.Buffer) error {
	switch st.Action {
	case "mount":
		return s.Submit(Batch{Mutations: st.Mutations})
	case "scroll":
		return s.Scroll(st.Tag, st.X, st.Y)
	case "touch":
		return s.Dispatch(func(*Tree) {
			target := s.dispatcher.HandlePointer(st.Pointer, st.X, st.Y, st.Pressed)
			writeTouch(buf, st, target)
		})
	case "tap":
		return s.Dispatch(func(*Tree) {
			target := s.dispatcher.HandlePointer(st.Pointer, st.X, st.Y, true)
			s.dispatcher.HandlePointer(st.Pointer, st.X, st.Y, false)
			writeTouch(buf, st, target)
		})
	case "virtualize":
		return s.Dispatch(func(t *Tree) {
			n := t.Node(st.Tag)
			if n == nil {
				fmt.Fprintf(buf, "virtualize: unknown node %d\n", st.Tag)
				return
			}
			n.SetVirtualizationEnabled(st.Enabled)
		})
	case "dump":
		tag := st.Tag
		if tag == NoTag {
			tag = s.root
		}
		return s.Dispatch(func(t *Tree) {
			if st.Label != "" {
				fmt.Fprintf(buf, "# %s\n", st.Label)
			}
			if err := t.Dump(buf, tag); err != nil {
				fmt.Fprintf(buf, "dump: %s\n", err)
			}
		})
	case "wait":
		return nil
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

func writeTouch(buf *bytes.Buffer, st ScriptStep, target *Node) {
	if target == nil {
		fmt.Fprintf(buf, "%s %d (%g,%g) -> none\n", st.Action, st.Pointer, st.X, st.Y)
		return
	}
	fmt.Fprintf(buf, "%s %d (%g,%g) -> %s#%d\n", st.Action, st.Pointer, st.X, st.Y,
		target.componentType, target.tag)
}
