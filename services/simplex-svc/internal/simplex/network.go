// Package simplex implements a fixed-budget primal network simplex for the
// minimum-cost flow problem over a static supply/demand network.
//
// # Model
//
// The network is an arena of nodes and arcs addressed by int32 indices. The
// spanning tree is embedded in the node records: every non-root node stores
// its predecessor, the basic arc that connects it to the predecessor and the
// direction of that arc. Arcs that are not in the tree sit at one of their
// bounds (AtLower with flow 0, AtUpper with flow equal to capacity).
//
// # Pivot rules
//
// Two pivot rules share the same pricing, driver and refresh cadence:
//
//   - ModeReference reproduces the classic benchmark kernel literally: both
//     entering endpoints are walked up to the root, only the entering head is
//     re-parented and depth is never maintained. Its pivot sequence, final
//     cost and checksum are the compatibility baseline.
//   - ModeTextbook walks only up to the join node, honours the cycle
//     direction of AtUpper entering arcs and re-roots the whole subtree cut
//     off by the leaving arc, keeping potentials exact.
//
// # Thread Safety
//
// A Network and the Solver driving it are NOT thread-safe. Every goroutine
// must own its own Network (see Network.Clone).
//
// # Determinism
//
// All scans run in index order and no maps are used, so the same network
// and options always produce the same pivot sequence.
package simplex

import (
	"fmt"
)

// =============================================================================
// Enumerations
// =============================================================================

// ArcState classifies an arc relative to the current basis.
type ArcState uint8

const (
	// AtLower non-basic arc with flow 0.
	AtLower ArcState = iota
	// AtUpper non-basic arc with flow equal to capacity.
	AtUpper
	// Basic arc belongs to the spanning tree.
	Basic
)

func (s ArcState) String() string {
	switch s {
	case AtLower:
		return "at_lower"
	case AtUpper:
		return "at_upper"
	case Basic:
		return "basic"
	default:
		return fmt.Sprintf("arc_state(%d)", uint8(s))
	}
}

// Orientation direction of a node's basic arc relative to its predecessor.
type Orientation uint8

const (
	// Down basic arc runs pred -> node.
	Down Orientation = iota
	// Up basic arc runs node -> pred.
	Up
)

func (o Orientation) String() string {
	if o == Up {
		return "up"
	}
	return "down"
}

// Mode selects the pivot rule.
type Mode uint8

const (
	ModeReference Mode = iota
	ModeTextbook
)

func (m Mode) String() string {
	switch m {
	case ModeReference:
		return "reference"
	case ModeTextbook:
		return "textbook"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "reference":
		return ModeReference, nil
	case "textbook":
		return ModeTextbook, nil
	default:
		return ModeReference, fmt.Errorf("unknown pivot mode %q", s)
	}
}

const (
	// NoNode marks the absent predecessor of the root.
	NoNode int32 = -1
	// NoArc marks the absent basic arc of the root.
	NoArc int32 = -1
)

// =============================================================================
// Records
// =============================================================================

// Node vertex of the network together with its spanning-tree links.
type Node struct {
	Balance     int32
	Potential   int32
	Pred        int32
	BasicArc    int32
	Orientation Orientation
	Depth       int32
}

// Arc directed edge with lower bound 0.
type Arc struct {
	Tail     int32
	Head     int32
	Cost     int32
	Capacity int32
	Flow     int32
	State    ArcState
}

// =============================================================================
// Network
// =============================================================================

// Network owns nodes, arcs and the scratch space used by the pivot
// operations. Scratch buffers are sized once so pivots never allocate.
type Network struct {
	nodes    []Node
	arcs     []Arc
	root     int32
	realArcs int32

	queue []int32
	stack []int32
	mark  []int8
}

// NewNetwork takes ownership of nodes and arcs. All arcs are considered real.
func NewNetwork(nodes []Node, arcs []Arc, root int32) *Network {
	return NewNetworkWithArtificial(nodes, arcs, root, int32(len(arcs)))
}

// NewNetworkWithArtificial takes ownership of nodes and arcs; arcs with index
// >= realArcs are artificial (Big-M) arcs of the initial basis.
func NewNetworkWithArtificial(nodes []Node, arcs []Arc, root int32, realArcs int32) *Network {
	n := len(nodes)
	return &Network{
		nodes:    nodes,
		arcs:     arcs,
		root:     root,
		realArcs: realArcs,
		queue:    make([]int32, n),
		stack:    make([]int32, 0, n),
		mark:     make([]int8, n),
	}
}

func (n *Network) NumNodes() int { return len(n.nodes) }

func (n *Network) NumArcs() int { return len(n.arcs) }

// NumRealArcs number of generated arcs; artificial arcs follow them.
func (n *Network) NumRealArcs() int { return int(n.realArcs) }

func (n *Network) Root() int32 { return n.root }

// Node returns a copy of node i.
func (n *Network) Node(i int32) Node { return n.nodes[i] }

// Arc returns a copy of arc a.
func (n *Network) Arc(a int32) Arc { return n.arcs[a] }

// Nodes exposes the node slice for read-only inspection.
func (n *Network) Nodes() []Node { return n.nodes }

// Arcs exposes the arc slice for read-only inspection.
func (n *Network) Arcs() []Arc { return n.arcs }

// ReducedCost cost(a) - p(tail) + p(head). Evaluated in 64 bits: Big-M
// potentials of large networks do not fit the difference into int32.
func (n *Network) ReducedCost(a int32) int64 {
	arc := &n.arcs[a]
	return int64(arc.Cost) - int64(n.nodes[arc.Tail].Potential) + int64(n.nodes[arc.Head].Potential)
}

// TotalCost sum of cost*flow over all arcs in 64-bit arithmetic.
func (n *Network) TotalCost() int64 {
	var total int64
	for i := range n.arcs {
		total += int64(n.arcs[i].Cost) * int64(n.arcs[i].Flow)
	}
	return total
}

// ArtificialFlow total flow still routed over artificial arcs.
func (n *Network) ArtificialFlow() int64 {
	var total int64
	for i := int(n.realArcs); i < len(n.arcs); i++ {
		total += int64(n.arcs[i].Flow)
	}
	return total
}

// Clone deep copy with its own scratch buffers.
func (n *Network) Clone() *Network {
	nodes := make([]Node, len(n.nodes))
	copy(nodes, n.nodes)
	arcs := make([]Arc, len(n.arcs))
	copy(arcs, n.arcs)
	return NewNetworkWithArtificial(nodes, arcs, n.root, n.realArcs)
}

// CopyFrom overwrites n with the state of src. It does not allocate when both
// networks have the same shape.
func (n *Network) CopyFrom(src *Network) {
	if len(n.nodes) != len(src.nodes) {
		n.nodes = make([]Node, len(src.nodes))
		n.queue = make([]int32, len(src.nodes))
		n.stack = make([]int32, 0, len(src.nodes))
		n.mark = make([]int8, len(src.nodes))
	}
	if len(n.arcs) != len(src.arcs) {
		n.arcs = make([]Arc, len(src.arcs))
	}
	copy(n.nodes, src.nodes)
	copy(n.arcs, src.arcs)
	n.root = src.root
	n.realArcs = src.realArcs
}
