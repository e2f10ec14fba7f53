package simplex

// RefreshPotentials recomputes node potentials breadth-first from the root.
//
// For every dequeued node all arcs are scanned in index order; a basic arc
// leading to a node whose pred is the dequeued node assigns that child's
// potential and enqueues it. The queue holds at most NumNodes entries; a
// longer traversal means the tree links are inconsistent and
// ErrTreeCorrupted is returned.
//
// Under the reference rule the child potential is parent+cost when the child
// is the arc head and parent-cost when it is the tail. The textbook rule uses
// the opposite signs, which keeps the reduced cost of every basic arc at
// zero, requires the arc to be the child's own basic arc and refreshes depth.
func RefreshPotentials(n *Network, mode Mode) error {
	root := &n.nodes[n.root]
	root.Potential = 0
	if mode == ModeTextbook {
		root.Depth = 0
	}

	front, back := 0, 0
	n.queue[back] = n.root
	back++

	for front < back {
		node := n.queue[front]
		front++
		parent := &n.nodes[node]

		for a := range n.arcs {
			arc := &n.arcs[a]
			if arc.State != Basic {
				continue
			}

			child := NoNode
			var pot int32
			if arc.Tail == node && n.nodes[arc.Head].Pred == node {
				child = arc.Head
				if mode == ModeTextbook {
					pot = parent.Potential - arc.Cost
				} else {
					pot = parent.Potential + arc.Cost
				}
			} else if arc.Head == node && n.nodes[arc.Tail].Pred == node {
				child = arc.Tail
				if mode == ModeTextbook {
					pot = parent.Potential + arc.Cost
				} else {
					pot = parent.Potential - arc.Cost
				}
			}

			if child == NoNode || child == node {
				continue
			}
			if mode == ModeTextbook && n.nodes[child].BasicArc != int32(a) {
				continue
			}

			if back >= len(n.queue) {
				return ErrTreeCorrupted
			}
			c := &n.nodes[child]
			c.Potential = pot
			if mode == ModeTextbook {
				c.Depth = parent.Depth + 1
			}
			n.queue[back] = child
			back++
		}
	}

	return nil
}
