package arbor

import "fmt"

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. Only called when the tree is in debug mode. In
// release mode callers skip this entirely.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("arbor debug: %s on disposed node %d (%s)", op, n.tag, n.componentType))
	}
}

// debugCheckTreeDepth warns if tree depth exceeds the threshold.
const debugMaxTreeDepth = 64

func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent() {
		depth++
	}
	if depth > debugMaxTreeDepth {
		log.Warningf("tree depth %d exceeds %d (node %d)", depth, debugMaxTreeDepth, n.tag)
	}
}

// debugCheckChildCount warns if a node has more children than a container
// without virtualization should carry.
const debugMaxChildCount = 1000

func debugCheckChildCount(n *Node) {
	if len(n.children) > debugMaxChildCount && !n.VirtualizationEnabled() {
		log.Warningf("node %d has %d children (threshold %d); consider removeClippedSubviews",
			n.tag, len(n.children), debugMaxChildCount)
	}
}

// debugCheckUIThread panics when the tree is mutated off the UI thread.
func debugCheckUIThread(t *Tree, op string) {
	if t.runner == nil {
		return
	}
	if !t.runner.IsOnThread(UIThread) {
		panic(fmt.Sprintf("arbor debug: %s called off the UI thread", op))
	}
}
