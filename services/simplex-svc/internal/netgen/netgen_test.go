package netgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsimplex/pkg/apperror"
	"netsimplex/services/simplex-svc/internal/simplex"
)

func TestXorShift32(t *testing.T) {
	rng := NewXorShift32(DefaultSeed)
	assert.Equal(t, uint32(2827483434), rng.Next())
	assert.Equal(t, uint32(2750467483), rng.Next())
	assert.Equal(t, uint32(4064143354), rng.Next())

	zero := NewXorShift32(0)
	assert.Equal(t, uint32(0), zero.Next())
}

func TestGenerate_Reference(t *testing.T) {
	n, err := Generate(DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, 64, n.NumNodes())
	assert.Equal(t, 256, n.NumArcs())
	assert.Equal(t, 256, n.NumRealArcs())

	balances := make([]int32, 6)
	var sum int64
	for i, node := range n.Nodes() {
		if i < len(balances) {
			balances[i] = node.Balance
		}
		sum += int64(node.Balance)
	}
	assert.Equal(t, []int32{64, 83, 44, 59, 99, 54}, balances)
	assert.Equal(t, int64(0), sum)
	assert.Equal(t, int32(-664), n.Node(63).Balance)

	// узлы 1-based во внешнем виде: 43->15, 29->39, 49->32
	assert.Equal(t, simplex.Arc{Tail: 42, Head: 14, Cost: 59, Capacity: 208, State: simplex.Basic}, n.Arc(0))
	assert.Equal(t, simplex.Arc{Tail: 28, Head: 38, Cost: 27, Capacity: 176, State: simplex.Basic}, n.Arc(1))
	assert.Equal(t, simplex.Arc{Tail: 48, Head: 31, Cost: 8, Capacity: 57, State: simplex.Basic}, n.Arc(2))

	root := n.Node(0)
	assert.Equal(t, simplex.NoNode, root.Pred)
	assert.Equal(t, simplex.NoArc, root.BasicArc)
	for i := int32(1); i < 64; i++ {
		node := n.Node(i)
		assert.Equal(t, int32(0), node.Pred)
		assert.Equal(t, i-1, node.BasicArc)
		assert.Equal(t, int32(0), node.Potential)
	}
	for a := int32(63); a < 256; a++ {
		assert.Equal(t, simplex.AtLower, n.Arc(a).State)
	}

	assert.Equal(t, simplex.NoArc, n.CheckSelfLoops())
	assert.Equal(t, int64(0), n.TotalCost())
	assert.True(t, n.CheckInvariants(false).IsValid())
}

func TestGenerate_Textbook(t *testing.T) {
	n, err := Generate(Params{Nodes: 64, Arcs: 256, Seed: DefaultSeed, Mode: simplex.ModeTextbook})
	require.NoError(t, err)

	assert.Equal(t, 64+256-1, n.NumArcs())
	assert.Equal(t, 256, n.NumRealArcs())

	bigM := BigM(64)
	for i := int32(1); i < 64; i++ {
		node := n.Node(i)
		arc := n.Arc(node.BasicArc)
		assert.Equal(t, int32(256)+i-1, node.BasicArc)
		assert.Equal(t, bigM, arc.Cost)
		if node.Balance >= 0 {
			assert.Equal(t, simplex.Up, node.Orientation)
			assert.Equal(t, node.Balance, arc.Flow)
			assert.Equal(t, bigM, node.Potential)
		} else {
			assert.Equal(t, simplex.Down, node.Orientation)
			assert.Equal(t, -node.Balance, arc.Flow)
			assert.Equal(t, -bigM, node.Potential)
		}
	}

	ve := n.CheckInvariants(true)
	assert.True(t, ve.IsValid(), ve.ErrorMessages())
	assert.Equal(t, int64(28190004), n.TotalCost())
}

func TestGenerate_NoSelfLoops(t *testing.T) {
	for _, seed := range []uint32{1, 2, 3, 7, 99, 12345, DefaultSeed, 0xDEADBEEF} {
		for _, nodes := range []int{2, 3, 5, 64} {
			n, err := Generate(Params{Nodes: nodes, Arcs: 512, Seed: seed, Mode: simplex.ModeTextbook})
			require.NoError(t, err)
			assert.Equal(t, simplex.NoArc, n.CheckSelfLoops(), "seed %d nodes %d", seed, nodes)
		}
	}
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		wantCode apperror.ErrorCode
	}{
		{"default", DefaultParams(), ""},
		{"single_node", Params{Nodes: 1, Arcs: 10}, apperror.CodeInvalidNetwork},
		{"no_arcs", Params{Nodes: 4, Arcs: 0, Mode: simplex.ModeTextbook}, apperror.CodeInvalidNetwork},
		{"too_many_nodes", Params{Nodes: MaxNodes + 1, Arcs: MaxNodes, Mode: simplex.ModeTextbook}, apperror.CodeNetworkTooLarge},
		{"refresh_work_at_limit", Params{Nodes: MaxNodes, Arcs: 3 * MaxNodes, Mode: simplex.ModeTextbook}, ""},
		{"refresh_work_over_limit", Params{Nodes: MaxNodes, Arcs: 3*MaxNodes + 1, Mode: simplex.ModeTextbook}, apperror.CodeNetworkTooLarge},
		{"max_arcs_on_small_network", Params{Nodes: 64, Arcs: MaxArcs, Mode: simplex.ModeReference}, apperror.CodeNetworkTooLarge},
		{"star_needs_arcs", Params{Nodes: 10, Arcs: 5, Mode: simplex.ModeReference}, apperror.CodeInsufficientArcs},
		{"textbook_sparse_ok", Params{Nodes: 10, Arcs: 5, Mode: simplex.ModeTextbook}, ""},
		{"unknown_mode", Params{Nodes: 10, Arcs: 20, Mode: simplex.Mode(9)}, apperror.CodeInvalidMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.wantCode), err.Error())
		})
	}
}
