package srg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestFitApplyIdempotent(t *testing.T) {
	vol, lm := twoBlocks()
	g, err := Builder{AddEdges: true}.Build(vol, lm)
	require.NoError(t, err)

	stats := Fit(g)
	std := stats.Apply(g)

	// Applying a graph's own fitted stats yields mean 0 and std 1 (or 0 for
	// a constant dimension, whose std was substituted by 1).
	checkColumns := func(m *mat.Dense) {
		_, cols := m.Dims()
		for j := 0; j < cols; j++ {
			col := mat.Col(nil, j, m)
			assert.InDelta(t, 0.0, stat.Mean(col, nil), 1e-12, "column %d mean", j)
			sd := stat.PopStdDev(col, nil)
			if sd != 0 {
				assert.InDelta(t, 1.0, sd, 1e-12, "column %d std", j)
			}
		}
	}
	checkColumns(std.Vertices)
	checkColumns(std.Edges)
}

func TestFitSubstitutesZeroStd(t *testing.T) {
	vol, lm := twoBlocks()
	g, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)

	stats := Fit(g)

	// Both labels have 4 voxels, so the size dimension is constant.
	assert.Equal(t, 1.0, stats.VertexStd[AttrSize])

	std := stats.Apply(g)
	assert.InDelta(t, 0.0, std.Vertices.At(0, AttrSize), 1e-12)
	assert.InDelta(t, 0.0, std.Vertices.At(1, AttrSize), 1e-12)
}

func TestApplyLeavesInputUntouched(t *testing.T) {
	vol, lm := twoBlocks()
	g, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)

	before := mat.DenseCopyOf(g.Vertices)
	stats := Fit(g)
	_ = stats.Apply(g)

	assert.True(t, mat.Equal(before, g.Vertices), "Apply must not modify the raw graph")
}

func TestApplyReusesReferenceStats(t *testing.T) {
	vol, lm := twoBlocks()
	ref, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)
	stats := Fit(ref)

	// A half-sized candidate standardized with the reference stats lands
	// where the reference coordinate space puts it, not at its own mean.
	small := mat.NewDense(1, NumVertexAttrs, []float64{0, 0.5, 0.5, 10, 4})
	cand := stats.Apply(&Graph{Vertices: small})
	refStd := stats.Apply(ref)

	for col := 0; col < NumVertexAttrs; col++ {
		assert.InDelta(t, refStd.Vertices.At(0, col), cand.Vertices.At(0, col), 1e-12)
	}
}
