package arbor

import "math"

// Tag identifies a component instance. Tags are assigned by the renderer and
// are never reused while the instance is live.
type Tag int32

// NoTag is the zero Tag. It never names a live node.
const NoTag Tag = 0

// Vec2 is a 2D vector used for offsets and points.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X      float64 `yaml:"x" mapstructure:"x"`
	Y      float64 `yaml:"y" mapstructure:"y"`
	Width  float64 `yaml:"width" mapstructure:"width"`
	Height float64 `yaml:"height" mapstructure:"height"`
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap with a non-empty area.
// Rectangles sharing only an edge do not intersect.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width &&
		other.X < r.X+r.Width &&
		r.Y < other.Y+other.Height &&
		other.Y < r.Y+r.Height
}

// Union returns the smallest rectangle containing both r and other.
func (r Rect) Union(other Rect) Rect {
	minX := math.Min(r.X, other.X)
	minY := math.Min(r.Y, other.Y)
	maxX := math.Max(r.X+r.Width, other.X+other.Width)
	maxY := math.Max(r.Y+r.Height, other.Y+other.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Inset grows the rectangle outward by the given insets. Negative insets
// shrink it.
func (r Rect) Inset(in Insets) Rect {
	return Rect{
		X:      r.X - in.Left,
		Y:      r.Y - in.Top,
		Width:  r.Width + in.Left + in.Right,
		Height: r.Height + in.Top + in.Bottom,
	}
}

// HasArea reports whether the rectangle has a positive width and height.
func (r Rect) HasArea() bool {
	return r.Width > 0 && r.Height > 0
}

// Insets holds per-edge distances, used for hit-slop.
type Insets struct {
	Top    float64 `yaml:"top" mapstructure:"top"`
	Left   float64 `yaml:"left" mapstructure:"left"`
	Bottom float64 `yaml:"bottom" mapstructure:"bottom"`
	Right  float64 `yaml:"right" mapstructure:"right"`
}

// LayoutMetrics is the layout result the renderer computed for a node.
// Frame is relative to the parent's content origin.
type LayoutMetrics struct {
	Frame            Rect    `yaml:"frame"`
	PointScaleFactor float64 `yaml:"scale"`
}

// PointerEvents controls whether a node and its children receive touches.
type PointerEvents uint8

const (
	PointerEventsAuto    PointerEvents = iota // node and children receive touches
	PointerEventsNone                         // neither node nor children
	PointerEventsBoxOnly                      // node only, never its children
	PointerEventsBoxNone                      // children only, never the node
)

// ParsePointerEvents converts the renderer's string form ("auto", "none",
// "box-only", "box-none"). Unknown values map to PointerEventsAuto.
func ParsePointerEvents(s string) PointerEvents {
	switch s {
	case "none":
		return PointerEventsNone
	case "box-only":
		return PointerEventsBoxOnly
	case "box-none":
		return PointerEventsBoxNone
	default:
		return PointerEventsAuto
	}
}

func (p PointerEvents) String() string {
	switch p {
	case PointerEventsNone:
		return "none"
	case PointerEventsBoxOnly:
		return "box-only"
	case PointerEventsBoxNone:
		return "box-none"
	default:
		return "auto"
	}
}

// ScrollDirection is the direction of the most recent content offset change.
type ScrollDirection uint8

const (
	ScrollNone  ScrollDirection = iota // no movement recorded
	ScrollUp                           // offset decreased on the vertical axis
	ScrollDown                         // offset increased on the vertical axis
	ScrollLeft                         // offset decreased on the horizontal axis
	ScrollRight                        // offset increased on the horizontal axis
)

func (d ScrollDirection) String() string {
	switch d {
	case ScrollUp:
		return "up"
	case ScrollDown:
		return "down"
	case ScrollLeft:
		return "left"
	case ScrollRight:
		return "right"
	default:
		return "none"
	}
}

// forward reports whether the direction moves toward higher sorted indices.
func (d ScrollDirection) forward() bool {
	return d == ScrollDown || d == ScrollRight
}
