package srg

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Stats holds per-dimension standardization parameters. They are fitted once
// from the reference graph and reused, unmodified, for every graph built
// afterwards so all costs live in one comparable coordinate space.
type Stats struct {
	VertexMean []float64
	VertexStd  []float64
	EdgeMean   []float64
	EdgeStd    []float64
}

// Fit computes per-dimension mean and population standard deviation over the
// graph's vertex matrix and, when present, its edge matrix. Any std of 0 is
// replaced by 1 so a constant attribute survives the later division instead
// of producing NaNs.
func Fit(g *Graph) Stats {
	s := Stats{}
	s.VertexMean, s.VertexStd = columnStats(g.Vertices)
	if g.Edges != nil {
		s.EdgeMean, s.EdgeStd = columnStats(g.Edges)
	}
	return s
}

func columnStats(m *mat.Dense) (mean, std []float64) {
	_, cols := m.Dims()
	mean = make([]float64, cols)
	std = make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := mat.Col(nil, j, m)
		mean[j] = stat.Mean(col, nil)
		std[j] = stat.PopStdDev(col, nil)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return mean, std
}

// Apply returns a standardized copy of the graph, mapping every attribute to
// (raw - mean) / std. The input graph is left untouched.
func (s Stats) Apply(g *Graph) *Graph {
	out := &Graph{Labels: g.Labels}
	out.Vertices = standardize(g.Vertices, s.VertexMean, s.VertexStd)
	if g.Edges != nil {
		out.Edges = standardize(g.Edges, s.EdgeMean, s.EdgeStd)
	}
	return out
}

func standardize(m *mat.Dense, mean, std []float64) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (m.At(i, j)-mean[j])/std[j])
		}
	}
	return out
}
