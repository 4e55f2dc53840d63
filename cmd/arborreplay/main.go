// arborreplay runs a scripted or recorded session against an in-memory
// native layer and prints the resulting trees.
//
// Usage:
//
//	arborreplay -script session.yaml                 # run a YAML script
//	arborreplay -script session.yaml -record out.db  # and record its batches
//	arborreplay -replay out.db                       # replay recorded batches
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/phanxgames/arbor"
	"github.com/phanxgames/arbor/batchlog"
)

const (
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("arborreplay", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML configuration file")
	scriptPath := fs.String("script", "", "YAML replay script to run")
	recordPath := fs.String("record", "", "record mounted batches to this log")
	replayPath := fs.String("replay", "", "replay batches from this log")
	rootTag := fs.Int("root", 1, "root view tag")
	native := fs.Bool("native", false, "also print the native view tree")
	color := fs.String("color", "auto", "colorize output: auto, always or never")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if (*scriptPath == "") == (*replayPath == "") {
		fmt.Fprintln(stderr, "arborreplay: exactly one of -script or -replay is required")
		return 2
	}

	cfg := arbor.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = arbor.LoadConfig(*configPath); err != nil {
			fmt.Fprintln(stderr, "arborreplay:", err)
			return 1
		}
	}
	arbor.ConfigureLogging(cfg)

	var out io.Writer = stdout
	if useColor(*color, stdout) {
		out = &colorWriter{w: stdout}
	}
	out = &syncWriter{w: out}
	if err := replay(cfg, arbor.Tag(*rootTag), *scriptPath, *recordPath, *replayPath, *native, out); err != nil {
		fmt.Fprintln(stderr, "arborreplay:", err)
		return 1
	}
	return 0
}

func replay(cfg *arbor.Config, root arbor.Tag, scriptPath, recordPath, replayPath string, native bool, out io.Writer) (err error) {
	kinds, err := cfg.Registry()
	if err != nil {
		return err
	}

	// The log is closed after the runner drained its background queue.
	var rec *batchlog.Log
	if recordPath != "" {
		if rec, err = batchlog.Open(recordPath); err != nil {
			return err
		}
		defer rec.Close()
	}

	opts := cfg.TaskRunnerOptions()
	opts.ExternalUIThread = false
	runner := arbor.NewTaskRunner(opts)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := runner.Shutdown(ctx); err == nil {
			err = serr
		}
	}()

	layer := arbor.NewMemoryLayer()
	surface, err := arbor.NewSurface(runner, layer, arbor.SurfaceOptions{
		ID:      1,
		RootTag: root,
		Frame:   cfg.RootFrame(),
		Kinds:   kinds,
		Emitter: arbor.EventEmitterFunc(func(ev arbor.TouchEvent) {
			fmt.Fprintf(out, "event %s #%d pointer %d at (%g,%g)\n",
				ev.Type, ev.Target, ev.PointerID, ev.LocalX, ev.LocalY)
		}),
	})
	if err != nil {
		return err
	}
	defer surface.Stop()

	if rec != nil {
		rec.Attach(surface.Mounting(), runner)
	}

	switch {
	case scriptPath != "":
		sc, err := arbor.LoadScript(scriptPath)
		if err != nil {
			return err
		}
		if err := sc.Run(surface, out); err != nil {
			return err
		}
	default:
		if err := replayLog(surface, replayPath); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	err = surface.Dispatch(func(t *arbor.Tree) {
		fmt.Fprintln(&buf, "# logical tree")
		if err := t.Dump(&buf, root); err != nil {
			fmt.Fprintln(&buf, err)
		}
		if native {
			fmt.Fprintln(&buf, "# native tree")
			if err := layer.Dump(&buf, t.Node(root).NativeHandle()); err != nil {
				fmt.Fprintln(&buf, err)
			}
		}
	})
	if err != nil {
		return err
	}
	if err := surface.Flush(); err != nil {
		return err
	}
	_, err = out.Write(buf.Bytes())
	return err
}

func replayLog(surface *arbor.Surface, path string) error {
	l, err := batchlog.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()
	var submitErr error
	err = l.Iterate(1, func(seq uint64, b arbor.Batch) bool {
		if submitErr = surface.Submit(b); submitErr != nil {
			submitErr = fmt.Errorf("batch %d: %w", seq, submitErr)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if submitErr != nil {
		return submitErr
	}
	return surface.Flush()
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorWriter dims clipped nodes and bolds headings. Callers write whole
// lines.
type colorWriter struct {
	w io.Writer
}

func (c *colorWriter) Write(p []byte) (int, error) {
	var buf bytes.Buffer
	for _, line := range strings.SplitAfter(string(p), "\n") {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case strings.HasPrefix(body, "#"):
			buf.WriteString(ansiBold + body + ansiReset + nl)
		case strings.Contains(body, " clipped"):
			buf.WriteString(ansiDim + body + ansiReset + nl)
		default:
			buf.WriteString(line)
		}
	}
	if _, err := c.w.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

// syncWriter serializes writes from the UI thread (touch events) and the
// main goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
