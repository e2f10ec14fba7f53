package simplex

import (
	"fmt"

	"netsimplex/pkg/apperror"
)

// CheckInvariants validates the structural invariants of the network.
//
// Always checked: balances sum to zero, arc endpoints are in range, no arc is
// a self loop, flows respect 0 <= flow <= capacity and non-basic arcs sit at
// their bound.
//
// With strict set (textbook pivot rule) the tree itself is also checked:
// exactly NumNodes-1 basic arcs, every node reaches the root along pred
// without revisiting a node, every basic arc connects its node with the
// predecessor in the recorded orientation, depth is consistent, the root
// potential is zero, flow is conserved and complementary slackness holds.
func (n *Network) CheckInvariants(strict bool) *apperror.ValidationErrors {
	ve := apperror.NewValidationErrors()
	numNodes := int32(len(n.nodes))

	if numNodes == 0 || len(n.arcs) == 0 {
		ve.Add(apperror.ErrEmptyNetwork)
		return ve
	}

	var balance int64
	for i := range n.nodes {
		balance += int64(n.nodes[i].Balance)
	}
	if balance != 0 {
		ve.AddError(apperror.CodeUnbalancedNetwork, fmt.Sprintf("balances sum to %d", balance))
	}

	for a := range n.arcs {
		arc := &n.arcs[a]
		if arc.Tail < 0 || arc.Tail >= numNodes || arc.Head < 0 || arc.Head >= numNodes {
			ve.AddError(apperror.CodeDanglingArc, fmt.Sprintf("arc %d endpoints %d->%d out of range", a, arc.Tail, arc.Head))
			continue
		}
		if arc.Tail == arc.Head {
			ve.AddError(apperror.CodeSelfLoop, fmt.Sprintf("arc %d is a self loop at node %d", a, arc.Tail))
		}
		if arc.Capacity < 0 {
			ve.AddError(apperror.CodeNegativeCapacity, fmt.Sprintf("arc %d capacity %d", a, arc.Capacity))
		}
		if arc.Flow < 0 || arc.Flow > arc.Capacity {
			ve.AddError(apperror.CodeFlowViolation, fmt.Sprintf("arc %d flow %d outside [0,%d]", a, arc.Flow, arc.Capacity))
		}
		switch arc.State {
		case AtLower:
			if arc.Flow != 0 {
				ve.AddError(apperror.CodeBoundStateViolation, fmt.Sprintf("arc %d at lower bound carries flow %d", a, arc.Flow))
			}
		case AtUpper:
			if arc.Flow != arc.Capacity {
				ve.AddError(apperror.CodeBoundStateViolation, fmt.Sprintf("arc %d at upper bound carries flow %d of %d", a, arc.Flow, arc.Capacity))
			}
		}
	}

	if !strict || ve.HasErrors() {
		return ve
	}

	n.checkTree(ve)
	if ve.HasErrors() {
		return ve
	}
	n.checkConservation(ve)
	n.checkSlackness(ve)
	return ve
}

func (n *Network) checkTree(ve *apperror.ValidationErrors) {
	numNodes := int32(len(n.nodes))
	root := &n.nodes[n.root]
	if root.Pred != NoNode || root.BasicArc != NoArc {
		ve.AddError(apperror.CodeRootViolation, fmt.Sprintf("root %d has pred %d, basic arc %d", n.root, root.Pred, root.BasicArc))
		return
	}
	if root.Potential != 0 {
		ve.AddError(apperror.CodeRootViolation, fmt.Sprintf("root potential %d", root.Potential))
	}

	basic := 0
	for a := range n.arcs {
		if n.arcs[a].State == Basic {
			basic++
		}
	}
	if basic != len(n.nodes)-1 {
		ve.AddError(apperror.CodeBrokenTree, fmt.Sprintf("%d basic arcs, want %d", basic, len(n.nodes)-1))
	}

	for i := int32(0); i < numNodes; i++ {
		if i == n.root {
			continue
		}
		node := &n.nodes[i]
		if node.Pred < 0 || node.Pred >= numNodes || node.BasicArc < 0 || int(node.BasicArc) >= len(n.arcs) {
			ve.AddError(apperror.CodeBrokenTree, fmt.Sprintf("node %d has pred %d, basic arc %d", i, node.Pred, node.BasicArc))
			continue
		}
		arc := &n.arcs[node.BasicArc]
		if arc.State != Basic {
			ve.AddError(apperror.CodeBasicArcMismatch, fmt.Sprintf("node %d tree arc %d is %s", i, node.BasicArc, arc.State))
		}
		switch node.Orientation {
		case Down:
			if arc.Tail != node.Pred || arc.Head != i {
				ve.AddError(apperror.CodeBasicArcMismatch, fmt.Sprintf("node %d arc %d is not %d->%d", i, node.BasicArc, node.Pred, i))
			}
		case Up:
			if arc.Tail != i || arc.Head != node.Pred {
				ve.AddError(apperror.CodeBasicArcMismatch, fmt.Sprintf("node %d arc %d is not %d->%d", i, node.BasicArc, i, node.Pred))
			}
		}
		if node.Depth != n.nodes[node.Pred].Depth+1 {
			ve.AddError(apperror.CodeBrokenTree, fmt.Sprintf("node %d depth %d, pred depth %d", i, node.Depth, n.nodes[node.Pred].Depth))
		}

		// подъём к корню не длиннее числа узлов
		steps := int32(0)
		cur := i
		for cur != n.root {
			cur = n.nodes[cur].Pred
			steps++
			if cur < 0 || cur >= numNodes || steps > numNodes {
				ve.AddError(apperror.CodeBrokenTree, fmt.Sprintf("node %d does not reach the root", i))
				break
			}
		}
	}
}

func (n *Network) checkConservation(ve *apperror.ValidationErrors) {
	net := make([]int64, len(n.nodes))
	for a := range n.arcs {
		arc := &n.arcs[a]
		net[arc.Tail] += int64(arc.Flow)
		net[arc.Head] -= int64(arc.Flow)
	}
	for i := range n.nodes {
		if net[i] != int64(n.nodes[i].Balance) {
			ve.AddError(apperror.CodeConservationViolation,
				fmt.Sprintf("node %d: outflow-inflow %d, balance %d", i, net[i], n.nodes[i].Balance))
		}
	}
}

func (n *Network) checkSlackness(ve *apperror.ValidationErrors) {
	for a := range n.arcs {
		rc := n.ReducedCost(int32(a))
		if n.arcs[a].State == Basic && rc != 0 {
			ve.AddError(apperror.CodeSlacknessViolation, fmt.Sprintf("basic arc %d has reduced cost %d", a, rc))
		}
	}
}

// CheckSelfLoops reports the first arc whose tail equals its head, or -1.
func (n *Network) CheckSelfLoops() int32 {
	for a := range n.arcs {
		if n.arcs[a].Tail == n.arcs[a].Head {
			return int32(a)
		}
	}
	return NoArc
}
