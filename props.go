package arbor

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Props is an opaque render-description property map. Values are whatever the
// renderer's decoder produced (numbers, strings, bools, nested maps and lists).
type Props map[string]any

// ViewProps are the props every view kind interprets. Absent keys leave the
// node unchanged.
type ViewProps struct {
	Opacity               *float64 `mapstructure:"opacity"`
	Transform             *Matrix  `mapstructure:"transform"`
	PointerEvents         *string  `mapstructure:"pointerEvents"`
	HitSlop               *Insets  `mapstructure:"hitSlop"`
	Overflow              *string  `mapstructure:"overflow"`
	RemoveClippedSubviews *bool    `mapstructure:"removeClippedSubviews"`
	Horizontal            *bool    `mapstructure:"horizontal"`
	ContentOffset         *Vec2    `mapstructure:"contentOffset"`
}

// DecodeViewProps decodes the view props out of p. Unknown keys are ignored;
// they still reach the native layer through SetProps.
func DecodeViewProps(p Props) (ViewProps, error) {
	var vp ViewProps
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &vp,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return vp, err
	}
	if err := dec.Decode(map[string]any(p)); err != nil {
		return vp, fmt.Errorf("decoding view props: %w", err)
	}
	return vp, nil
}

// withoutIgnored returns p minus the node's ignored keys. p is returned as is
// when nothing is ignored.
func (n *Node) withoutIgnored(p Props) Props {
	if len(n.ignoredProps) == 0 {
		return p
	}
	out := make(Props, len(p))
	for k, v := range p {
		if _, ok := n.ignoredProps[k]; !ok {
			out[k] = v
		}
	}
	return out
}

// applyProps decodes and applies props. Keys owned by an external driver are
// dropped first. A decode failure is logged and the remaining native props
// still apply.
func (n *Node) applyProps(p Props) {
	if len(p) == 0 {
		return
	}
	p = n.withoutIgnored(p)
	vp, err := DecodeViewProps(p)
	if err != nil {
		log.Errorf("node %d (%s): %s", n.tag, n.componentType, err)
	}

	if vp.Opacity != nil {
		n.SetOpacity(*vp.Opacity)
	}
	if vp.Transform != nil {
		n.SetTransform(*vp.Transform)
	}
	if vp.PointerEvents != nil {
		n.SetPointerEvents(ParsePointerEvents(*vp.PointerEvents))
	}
	if vp.HitSlop != nil {
		n.SetHitSlop(*vp.HitSlop)
	}
	if vp.Overflow != nil {
		n.SetClipping(*vp.Overflow == "hidden" || *vp.Overflow == "scroll")
	}
	if vp.Horizontal != nil {
		n.SetHorizontal(*vp.Horizontal)
	}
	n.behavior.ApplyProps(n, &vp)
	if vp.RemoveClippedSubviews != nil {
		n.SetVirtualizationEnabled(*vp.RemoveClippedSubviews)
	}
	n.tree.native.SetProps(n.handle, p)
}

// applySnapshot applies a render-description snapshot: props first, so that
// clipping and orientation are known before the frame is.
func (n *Node) applySnapshot(s *Snapshot) {
	if s == nil {
		return
	}
	n.applyProps(s.Props)
	if s.Layout != nil {
		n.SetLayoutMetrics(*s.Layout)
	}
}
