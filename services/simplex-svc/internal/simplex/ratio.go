package simplex

import (
	"errors"
)

// ErrTreeCorrupted is returned when a walk along pred links does not reach
// its target within NumNodes steps, i.e. the pred links contain a cycle.
// The reference pivot rule can produce such trees because it re-parents only
// the entering head.
var ErrTreeCorrupted = errors.New("spanning tree corrupted: pred cycle")

// Pivot describes one basis exchange computed by RatioTest.
type Pivot struct {
	Entering int32
	Leaving  int32
	Delta    int32

	// Join first common ancestor of the entering endpoints (textbook rule
	// only; NoNode under the reference rule, which walks to the root).
	Join int32

	// LeavingNode is the node whose basic arc is Leaving; NoNode for a
	// bound pivot.
	LeavingNode int32

	// LeavingOnTail reports that Leaving was found on the entering tail's
	// side of the cycle.
	LeavingOnTail bool
}

// Bound reports a pivot where the entering arc itself was binding.
func (p Pivot) Bound() bool { return p.Entering == p.Leaving }

// Degenerate reports a pivot that moves no flow.
func (p Pivot) Degenerate() bool { return p.Delta == 0 }

// RatioTest finds the leaving arc and the flow change for the given entering
// arc.
//
// The entering arc's own bound is the first candidate. The tail side is
// walked before the head side and a candidate is replaced only by a strictly
// smaller residual, so the first binding arc encountered wins ties.
func RatioTest(n *Network, entering int32, mode Mode) (Pivot, error) {
	e := &n.arcs[entering]

	p := Pivot{
		Entering:    entering,
		Leaving:     entering,
		Delta:       e.Capacity - e.Flow,
		Join:        NoNode,
		LeavingNode: NoNode,
	}
	if e.State == AtUpper {
		p.Delta = e.Flow
	}

	// Направление движения потока по стороне хвоста: при AtLower поток идёт
	// от корня к хвосту, при AtUpper наоборот. Эталонное правило всегда
	// считает сторону хвоста нисходящей.
	tailDown := true
	stop := NoNode
	if mode == ModeTextbook {
		tailDown = e.State != AtUpper
		join, err := n.findJoin(e.Tail, e.Head)
		if err != nil {
			return p, err
		}
		p.Join = join
		stop = join
	}

	if err := n.scanSide(&p, e.Tail, stop, tailDown, true); err != nil {
		return p, err
	}
	if err := n.scanSide(&p, e.Head, stop, !tailDown, false); err != nil {
		return p, err
	}

	return p, nil
}

// scanSide walks from start towards stop (or the root when stop is NoNode)
// and tightens the pivot by the residual of every tree arc on the way.
func (n *Network) scanSide(p *Pivot, start, stop int32, down, tailSide bool) error {
	limit := len(n.nodes)
	steps := 0

	for node := start; !n.walkDone(node, stop); node = n.nodes[node].Pred {
		if steps >= limit {
			return ErrTreeCorrupted
		}
		steps++

		v := &n.nodes[node]
		r := residual(&n.arcs[v.BasicArc], v.Orientation, down)
		if r < p.Delta {
			p.Delta = r
			p.Leaving = v.BasicArc
			p.LeavingNode = node
			p.LeavingOnTail = tailSide
		}
	}
	return nil
}

func (n *Network) walkDone(node, stop int32) bool {
	if stop == NoNode {
		return n.nodes[node].Pred == NoNode
	}
	return node == stop
}

// residual capacity of a tree arc when flow moves down (pred -> node) or up
// (node -> pred) the tree.
func residual(arc *Arc, o Orientation, down bool) int32 {
	if (o == Down) == down {
		return arc.Capacity - arc.Flow
	}
	return arc.Flow
}

// findJoin climbs from both endpoints by depth until they meet.
func (n *Network) findJoin(a, b int32) (int32, error) {
	limit := 2 * len(n.nodes)
	for steps := 0; a != b; steps++ {
		if steps > limit || a == NoNode || b == NoNode {
			return NoNode, ErrTreeCorrupted
		}
		da, db := n.nodes[a].Depth, n.nodes[b].Depth
		switch {
		case da > db:
			a = n.nodes[a].Pred
		case db > da:
			b = n.nodes[b].Pred
		default:
			a = n.nodes[a].Pred
			b = n.nodes[b].Pred
		}
	}
	return a, nil
}
