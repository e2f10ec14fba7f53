package simplex

// Commit applies a pivot computed by RatioTest: shifts Delta units of flow
// around the cycle, reclassifies the entering and leaving arcs and resplices
// the spanning tree.
func Commit(n *Network, p Pivot, mode Mode) error {
	e := &n.arcs[p.Entering]

	tailDown := true
	stop := NoNode
	if mode == ModeTextbook {
		tailDown = e.State != AtUpper
		stop = p.Join
	}

	if err := n.pushSide(e.Tail, stop, p.Delta, tailDown); err != nil {
		return err
	}
	if err := n.pushSide(e.Head, stop, p.Delta, !tailDown); err != nil {
		return err
	}

	if e.State == AtUpper {
		e.Flow -= p.Delta
	} else {
		e.Flow += p.Delta
	}

	if p.Bound() {
		// Эталонное правило оставляет состояние входящей дуги как есть.
		if mode == ModeTextbook {
			if e.Flow == 0 {
				e.State = AtLower
			} else {
				e.State = AtUpper
			}
		}
		return nil
	}

	l := &n.arcs[p.Leaving]
	if l.Flow == 0 {
		l.State = AtLower
	} else {
		l.State = AtUpper
	}
	e.State = Basic

	if mode == ModeReference {
		head := &n.nodes[e.Head]
		head.BasicArc = p.Entering
		head.Pred = e.Tail
		head.Orientation = Down
		return nil
	}

	child, parent := e.Head, e.Tail
	if p.LeavingOnTail {
		child, parent = e.Tail, e.Head
	}
	n.reroot(child, parent, p.Entering, p.LeavingNode)
	n.restampSubtree(child)
	return nil
}

// pushSide moves delta units of flow along the tree path from start towards
// stop (the root when stop is NoNode).
func (n *Network) pushSide(start, stop, delta int32, down bool) error {
	limit := len(n.nodes)
	steps := 0

	for node := start; !n.walkDone(node, stop); node = n.nodes[node].Pred {
		if steps >= limit {
			return ErrTreeCorrupted
		}
		steps++

		v := &n.nodes[node]
		arc := &n.arcs[v.BasicArc]
		if (v.Orientation == Down) == down {
			arc.Flow += delta
		} else {
			arc.Flow -= delta
		}
	}
	return nil
}

// reroot hangs child under parent through arc and reverses the pred chain
// from child up to cut, the node that lost its basic arc. Afterwards the
// former subtree of cut is rooted at child.
func (n *Network) reroot(child, parent, arc, cut int32) {
	cur, newPred, newArc := child, parent, arc
	for {
		v := &n.nodes[cur]
		oldPred, oldArc := v.Pred, v.BasicArc

		v.Pred = newPred
		v.BasicArc = newArc
		if n.arcs[newArc].Head == cur {
			v.Orientation = Down
		} else {
			v.Orientation = Up
		}

		if cur == cut {
			return
		}
		newPred, newArc, cur = cur, oldArc, oldPred
	}
}

const (
	markUnknown int8 = iota
	markOutside
	markInside
)

// restampSubtree recomputes depth and potential of every node whose pred
// chain passes through top. Membership is resolved by one memoized pass over
// all nodes using the preallocated mark and stack buffers.
func (n *Network) restampSubtree(top int32) {
	for i := range n.mark {
		n.mark[i] = markUnknown
	}
	n.mark[n.root] = markOutside
	n.stamp(top)
	n.mark[top] = markInside

	for i := range n.nodes {
		if n.mark[i] != markUnknown {
			continue
		}

		n.stack = n.stack[:0]
		x := int32(i)
		for n.mark[x] == markUnknown {
			n.stack = append(n.stack, x)
			x = n.nodes[x].Pred
		}
		verdict := n.mark[x]

		// Узлы цепочки снимаются от ближайшего к известному узлу, так что
		// предок всегда размечен раньше потомка.
		for k := len(n.stack) - 1; k >= 0; k-- {
			y := n.stack[k]
			if verdict == markInside {
				n.stamp(y)
			}
			n.mark[y] = verdict
		}
	}
}

// stamp derives depth and potential of node x from its predecessor so that
// the basic arc of x has zero reduced cost.
func (n *Network) stamp(x int32) {
	v := &n.nodes[x]
	pred := &n.nodes[v.Pred]
	arc := &n.arcs[v.BasicArc]

	v.Depth = pred.Depth + 1
	if v.Orientation == Down {
		v.Potential = pred.Potential - arc.Cost
	} else {
		v.Potential = pred.Potential + arc.Cost
	}
}
