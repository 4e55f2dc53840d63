// Package ebitenhost runs an arbor surface on Ebitengine. The Host is both
// the surface's native layer and the ebiten.Game driving it: its Update
// pumps the UI thread and feeds pointer input, its Draw paints the attached
// native views.
package ebitenhost

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/phanxgames/arbor"
	"github.com/tliron/commonlog"
)

const (
	maxPointers      = 10   // pointer 0 = mouse, 1-9 = touch
	defaultWheelStep = 40.0 // content pixels per wheel notch
)

var log = commonlog.GetLogger("arbor.ebitenhost")

// Host is an Ebitengine-backed native layer. Views are kept in an embedded
// MemoryLayer; Draw renders them. The runner must use ExternalUIThread, since
// Host.Update is the UI thread.
type Host struct {
	*arbor.MemoryLayer

	runner  *arbor.TaskRunner
	surface *arbor.Surface
	width   int
	height  int

	// WheelStep is how far one mouse-wheel notch scrolls.
	WheelStep float64

	white    *ebiten.Image
	touchIDs []ebiten.TouchID
	touches  map[ebiten.TouchID]arbor.Vec2
}

// New creates a host with a logical screen of width x height.
func New(runner *arbor.TaskRunner, width, height int) *Host {
	return &Host{
		MemoryLayer: arbor.NewMemoryLayer(),
		runner:      runner,
		width:       width,
		height:      height,
		WheelStep:   defaultWheelStep,
		touches:     make(map[ebiten.TouchID]arbor.Vec2),
	}
}

// SetSurface sets the surface whose tree the host draws and feeds input to.
// The surface must have been created with this host as its native layer.
func (h *Host) SetSurface(s *arbor.Surface) {
	h.surface = s
}

// Update pumps the UI thread, then dispatches this frame's pointer input.
func (h *Host) Update() error {
	h.runner.PumpUI()
	tree := h.liveTree()
	if tree == nil {
		return nil
	}
	h.processMouse(tree)
	h.processTouches()
	tree.FlushClipping()
	return nil
}

func (h *Host) liveTree() *arbor.Tree {
	if h.surface == nil {
		return nil
	}
	tree := h.surface.Tree()
	if tree.IsTornDown() || tree.Node(h.surface.Root()) == nil || h.surface.Dispatcher() == nil {
		return nil
	}
	return tree
}

func (h *Host) processMouse(tree *arbor.Tree) {
	mx, my := ebiten.CursorPosition()
	x, y := float64(mx), float64(my)
	h.surface.Dispatcher().HandlePointer(0, x, y, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))

	wx, wy := ebiten.Wheel()
	if wx == 0 && wy == 0 {
		return
	}
	target := tree.HitTest(h.surface.Root(), x, y)
	sv := scrollContainer(target)
	if sv == nil {
		return
	}
	off := sv.ContentOffset()
	if sv.IsHorizontal() {
		d := wx
		if d == 0 {
			d = wy
		}
		sv.UpdateContentOffset(off.X-d*h.WheelStep, off.Y)
		return
	}
	sv.UpdateContentOffset(off.X, off.Y-wy*h.WheelStep)
}

// scrollContainer returns the nearest clipping ancestor of n (n included)
// whose native responder is not blocked.
func scrollContainer(n *arbor.Node) *arbor.Node {
	for ; n != nil; n = n.Parent() {
		if n.IsClipping() && !n.IsNativeResponderBlocked() {
			return n
		}
	}
	return nil
}

func (h *Host) processTouches() {
	d := h.surface.Dispatcher()
	h.touchIDs = ebiten.AppendTouchIDs(h.touchIDs[:0])
	seen := make(map[ebiten.TouchID]bool, len(h.touchIDs))
	for _, id := range h.touchIDs {
		slot := touchSlot(id)
		if slot < 0 {
			continue
		}
		seen[id] = true
		tx, ty := ebiten.TouchPosition(id)
		p := arbor.Vec2{X: float64(tx), Y: float64(ty)}
		h.touches[id] = p
		d.HandlePointer(slot, p.X, p.Y, true)
	}
	for id, p := range h.touches {
		if seen[id] {
			continue
		}
		d.HandlePointer(touchSlot(id), p.X, p.Y, false)
		delete(h.touches, id)
	}
}

// touchSlot maps an ebiten.TouchID onto pointer ids 1-9, or -1.
func touchSlot(id ebiten.TouchID) int {
	slot := 1 + int(id)%(maxPointers-1)
	if slot < 1 {
		return -1
	}
	return slot
}

// Layout reports the fixed logical screen size.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	return h.width, h.height
}

// Draw paints the native view tree under the surface's root.
func (h *Host) Draw(screen *ebiten.Image) {
	tree := h.liveTree()
	if tree == nil {
		return
	}
	if h.white == nil {
		h.white = ebiten.NewImage(1, 1)
		h.white.Fill(color.White)
	}
	root := tree.Node(h.surface.Root())
	h.drawView(screen, tree, root.NativeHandle(), 0, 0, 1)
}

func (h *Host) drawView(dst *ebiten.Image, tree *arbor.Tree, handle arbor.NativeHandle, ox, oy, alpha float64) {
	v := h.View(handle)
	if v == nil {
		return
	}
	x, y := ox+v.X, oy+v.Y
	alpha *= v.Opacity
	if alpha <= 0 {
		return
	}

	if c, ok := propColor(v.Props["backgroundColor"]); ok && v.Width > 0 && v.Height > 0 {
		var op ebiten.DrawImageOptions
		op.GeoM.Scale(v.Width, v.Height)
		op.GeoM.Translate(-v.Width/2, -v.Height/2)
		var m ebiten.GeoM
		m.SetElement(0, 0, v.Transform[0])
		m.SetElement(1, 0, v.Transform[1])
		m.SetElement(0, 1, v.Transform[2])
		m.SetElement(1, 1, v.Transform[3])
		m.SetElement(0, 2, v.Transform[4])
		m.SetElement(1, 2, v.Transform[5])
		op.GeoM.Concat(m)
		op.GeoM.Translate(x+v.Width/2, y+v.Height/2)
		op.ColorScale.ScaleWithColor(c)
		op.ColorScale.ScaleAlpha(float32(alpha))
		dst.DrawImage(h.white, &op)
	}

	cx, cy := x, y
	if n := tree.Node(v.Tag); n != nil {
		off := n.ContentOffset()
		cx -= off.X
		cy -= off.Y
		if n.IsClipping() {
			r := image.Rect(int(x), int(y), int(x+v.Width), int(y+v.Height)).Intersect(dst.Bounds())
			if r.Empty() {
				return
			}
			dst = dst.SubImage(r).(*ebiten.Image)
		}
	}
	for _, c := range v.Children {
		h.drawView(dst, tree, c, cx, cy, alpha)
	}
}

// propColor parses "#rrggbb" or "#rrggbbaa".
func propColor(v any) (color.NRGBA, bool) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "#") || (len(s) != 7 && len(s) != 9) {
		return color.NRGBA{}, false
	}
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	if len(s) == 7 {
		n = n<<8 | 0xff
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, true
}

// Run opens a window and runs the host until the window closes.
func Run(h *Host, title string) error {
	ebiten.SetWindowSize(h.width, h.height)
	ebiten.SetWindowTitle(title)
	log.Infof("running %q at %dx%d", title, h.width, h.height)
	return ebiten.RunGame(h)
}
