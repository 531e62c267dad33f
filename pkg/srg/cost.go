package srg

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// weightedDistance renormalizes the weights to sum 1 and returns
// ||w .* (a - b)||2. The weights scale the attribute difference before the
// Euclidean norm is taken, not inside a squared term; the formula is kept
// exactly as the reference matcher computes it.
func weightedDistance(a, b, weights []float64) float64 {
	sum := floats.Sum(weights)
	var acc float64
	for k := range a {
		d := weights[k] / sum * (a[k] - b[k])
		acc += d * d
	}
	return math.Sqrt(acc)
}

// InitialVertexCost compares two vertex attribute vectors with the size
// dimension excluded. It drives the coarse first-pass nearest-label guess,
// where a lone super-region's size is not yet comparable to a full label's
// size. Weights has NumVertexAttrs-1 entries.
func InitialVertexCost(a, b, weights []float64) float64 {
	return weightedDistance(a[:NumVertexAttrs-1], b[:NumVertexAttrs-1], weights)
}

// VertexCost compares two full vertex attribute vectors, size included.
func VertexCost(a, b, weights []float64) float64 {
	return weightedDistance(a, b, weights)
}

// EdgeCost compares two relational attribute vectors.
func EdgeCost(a, b, weights []float64) float64 {
	return weightedDistance(a, b, weights)
}

// MeanVertexCost averages VertexCost over the positionally aligned vertex
// rows of two graphs. Both graphs must have the same vertex count.
func MeanVertexCost(g, ref *Graph, weights []float64) float64 {
	k := g.K()
	costs := make([]float64, k)
	for i := 0; i < k; i++ {
		costs[i] = VertexCost(g.Vertices.RawRowView(i), ref.Vertices.RawRowView(i), weights)
	}
	return stat.Mean(costs, nil)
}

// MeanEdgeCost averages EdgeCost over the positionally aligned edge rows of
// two graphs. Returns 0 when either graph carries no edges.
func MeanEdgeCost(g, ref *Graph, weights []float64) float64 {
	if g.Edges == nil || ref.Edges == nil {
		return 0
	}
	rows, _ := g.Edges.Dims()
	costs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		costs[i] = EdgeCost(g.Edges.RawRowView(i), ref.Edges.RawRowView(i), weights)
	}
	return stat.Mean(costs, nil)
}

// GlobalCost scores a candidate graph against the reference graph:
// graphWeights[0] times the mean vertex cost plus graphWeights[1] times the
// mean edge cost. The component means are returned alongside the total as
// diagnostic scalars.
func GlobalCost(g, ref *Graph, vertexWeights, edgeWeights, graphWeights []float64) (total, meanVertex, meanEdge float64) {
	meanVertex = MeanVertexCost(g, ref, vertexWeights)
	meanEdge = MeanEdgeCost(g, ref, edgeWeights)
	total = graphWeights[0]*meanVertex + graphWeights[1]*meanEdge
	return total, meanVertex, meanEdge
}
