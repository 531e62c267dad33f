package srg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"srgmatch/pkg/volume"
)

// twoBlocks builds a 2x2x2 volume split along x into intensities 10 and 200
// with the matching two-label map.
func twoBlocks() (*volume.Volume, *volume.LabelMap) {
	vol := volume.NewVolume(2, 2, 2)
	lm := volume.NewLabelMap(2, 2, 2)
	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			vol.Set(0, y, z, 10)
			vol.Set(1, y, z, 200)
			lm.Set(0, y, z, 0)
			lm.Set(1, y, z, 1)
		}
	}
	return vol, lm
}

func TestBuildComputesDescriptors(t *testing.T) {
	vol, lm := twoBlocks()

	g, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)
	require.Equal(t, 2, g.K())
	require.Equal(t, []volume.Label{0, 1}, g.Labels)

	left := g.Vertices.RawRowView(0)
	assert.InDelta(t, 0.0, left[AttrCentroidX], 1e-12)
	assert.InDelta(t, 0.5, left[AttrCentroidY], 1e-12)
	assert.InDelta(t, 0.5, left[AttrCentroidZ], 1e-12)
	assert.InDelta(t, 10.0, left[AttrIntensity], 1e-12)
	assert.InDelta(t, 4.0, left[AttrSize], 1e-12)

	right := g.Vertices.RawRowView(1)
	assert.InDelta(t, 1.0, right[AttrCentroidX], 1e-12)
	assert.InDelta(t, 200.0, right[AttrIntensity], 1e-12)
}

func TestBuildEdgesOrderedPairs(t *testing.T) {
	vol, lm := twoBlocks()

	g, err := Builder{AddEdges: true}.Build(vol, lm)
	require.NoError(t, err)
	require.NotNil(t, g.Edges)
	rows, cols := g.Edges.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, NumEdgeAttrs, cols)

	// Swapping the pair flips the position sign and inverts the ratio.
	e01 := g.EdgeRow(0, 1)
	e10 := g.EdgeRow(1, 0)
	assert.InDelta(t, -1.0, e01[AttrPositionX], 1e-12)
	assert.InDelta(t, 1.0, e10[AttrPositionX], 1e-12)
	assert.InDelta(t, 190.0, e01[AttrContrast], 1e-12)
	assert.InDelta(t, 190.0, e10[AttrContrast], 1e-12)
	assert.InDelta(t, 1.0, e01[AttrRatio], 1e-12)

	// Diagonal pairs compare a label with itself.
	e00 := g.EdgeRow(0, 0)
	assert.InDelta(t, 0.0, e00[AttrPositionX], 1e-12)
	assert.InDelta(t, 0.0, e00[AttrContrast], 1e-12)
	assert.InDelta(t, 1.0, e00[AttrRatio], 1e-12)
}

func TestBuildTargetSizeSentinel(t *testing.T) {
	vol, lm := twoBlocks()

	g, err := Builder{TargetSize: 3}.Build(vol, lm)
	require.NoError(t, err)
	require.Equal(t, 3, g.K())

	// Present labels occupy their own index.
	assert.InDelta(t, 10.0, g.Vertices.At(0, AttrIntensity), 1e-12)
	assert.InDelta(t, 200.0, g.Vertices.At(1, AttrIntensity), 1e-12)

	// The absent label gets the sentinel vertex.
	for col := 0; col < NumVertexAttrs; col++ {
		assert.True(t, math.IsInf(g.Vertices.At(2, col), 1), "column %d should be +Inf", col)
	}
}

func TestBuildRejectsLabelOutsideTarget(t *testing.T) {
	vol, lm := twoBlocks()
	_, err := Builder{TargetSize: 1}.Build(vol, lm)
	require.Error(t, err)
}

func TestBuildShapeMismatch(t *testing.T) {
	vol := volume.NewVolume(2, 2, 2)
	lm := volume.NewLabelMap(2, 2, 3)
	_, err := Builder{}.Build(vol, lm)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBuildSkipsUnassignedVoxels(t *testing.T) {
	vol, lm := twoBlocks()
	lm.Set(0, 0, 0, volume.Unassigned)

	g, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)
	require.Equal(t, 2, g.K())
	assert.InDelta(t, 3.0, g.Vertices.At(0, AttrSize), 1e-12)
	assert.InDelta(t, 10.0, g.Vertices.At(0, AttrIntensity), 1e-12)
}

func TestBuildOmitsEmptyLabelsWithoutTarget(t *testing.T) {
	vol, lm := twoBlocks()
	// Relabel the right block from 1 to 5, leaving gaps in the id space.
	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			lm.Set(1, y, z, 5)
		}
	}

	g, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)
	require.Equal(t, 2, g.K())
	assert.Equal(t, []volume.Label{0, 5}, g.Labels)
}

func TestSummary(t *testing.T) {
	vol, lm := twoBlocks()
	g, err := Builder{}.Build(vol, lm)
	require.NoError(t, err)

	s := g.Summary([]string{"left"})
	assert.Contains(t, s, "left")
	assert.Contains(t, s, "200")
}
