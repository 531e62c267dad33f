package srg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"
)

func TestWeightedDistanceFormula(t *testing.T) {
	// Weights scale the difference before the norm: w = (2,1,1,0,0)
	// renormalizes to (0.5,0.25,0.25,0,0); against diff (2,4,4,9,9) the
	// weighted components are (1,1,1,0,0) and the cost is sqrt(3).
	a := []float64{2, 4, 4, 9, 9}
	b := []float64{0, 0, 0, 0, 0}
	w := []float64{2, 1, 1, 0, 0}
	assert.InDelta(t, math.Sqrt(3), VertexCost(a, b, w), 1e-12)
}

func TestInitialVertexCostExcludesSize(t *testing.T) {
	w := []float64{1, 1, 1, 1}
	a := []float64{1, 2, 3, 4, 1e9}
	b := []float64{1, 2, 3, 4, 0}
	assert.InDelta(t, 0.0, InitialVertexCost(a, b, w), 1e-12)

	// The same vectors cost plenty once size participates.
	assert.Greater(t, VertexCost(a, b, []float64{1, 1, 1, 1, 10}), 1.0)
}

func TestSentinelNeverWins(t *testing.T) {
	w := []float64{1, 1, 1, 1, 1}
	real := []float64{1, 2, 3, 4, 5}
	far := []float64{100, 200, 300, 400, 500}
	sentinel := []float64{math.Inf(1), math.Inf(1), math.Inf(1), math.Inf(1), math.Inf(1)}

	// Any finite candidate beats the sentinel vertex.
	assert.True(t, math.IsInf(VertexCost(sentinel, real, w), 1))
	assert.Less(t, VertexCost(far, real, w), VertexCost(sentinel, real, w))
}

func TestGlobalCostMixesTerms(t *testing.T) {
	// One-vertex graphs with a single self-pair edge keep the arithmetic
	// checkable by hand.
	g := &Graph{
		Vertices: mat.NewDense(1, NumVertexAttrs, []float64{1, 0, 0, 0, 0}),
		Edges:    mat.NewDense(1, NumEdgeAttrs, []float64{2, 0, 0, 0, 0}),
	}
	ref := &Graph{
		Vertices: mat.NewDense(1, NumVertexAttrs, []float64{0, 0, 0, 0, 0}),
		Edges:    mat.NewDense(1, NumEdgeAttrs, []float64{0, 0, 0, 0, 0}),
	}
	vw := []float64{1, 0, 0, 0, 0}
	ew := []float64{1, 0, 0, 0, 0}

	total, meanVertex, meanEdge := GlobalCost(g, ref, vw, ew, []float64{3, 10})
	require.InDelta(t, 1.0, meanVertex, 1e-12)
	require.InDelta(t, 2.0, meanEdge, 1e-12)
	assert.InDelta(t, 3*1.0+10*2.0, total, 1e-12)
}

func TestMeanCostsOverAlignedRows(t *testing.T) {
	vol, lm := twoBlocks()
	g, err := Builder{AddEdges: true}.Build(vol, lm)
	require.NoError(t, err)

	w := []float64{1, 1, 1, 1, 1}
	assert.InDelta(t, 0.0, MeanVertexCost(g, g, w), 1e-12)
	assert.InDelta(t, 0.0, MeanEdgeCost(g, g, w), 1e-12)

	// Edge-less graphs contribute no edge term.
	noEdges, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)
	assert.Equal(t, 0.0, MeanEdgeCost(noEdges, noEdges, w))
}
