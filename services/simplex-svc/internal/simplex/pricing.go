package simplex

// SelectEntering applies the Dantzig rule over all non-basic arcs in index
// order. An AtLower arc is attractive when its reduced cost is negative, an
// AtUpper arc when it is positive; the arc with the largest violation wins and
// ties keep the first arc seen. ok is false when no arc is attractive.
func SelectEntering(n *Network) (entering int32, ok bool) {
	entering = NoArc
	var best int64

	for a := range n.arcs {
		arc := &n.arcs[a]
		if arc.State == Basic {
			continue
		}

		rc := n.ReducedCost(int32(a))
		score := rc
		if arc.State == AtUpper {
			score = -rc
		}

		if score < best {
			best = score
			entering = int32(a)
		}
	}

	return entering, entering != NoArc
}
