// Package srg builds and compares structural region graphs: per-label
// statistical descriptors (vertices) and pairwise relational descriptors
// (edges) derived from a volume and its labelmap.
package srg

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"srgmatch/pkg/volume"
)

// Vertex attribute columns of the K x NumVertexAttrs matrix.
const (
	AttrCentroidX = iota
	AttrCentroidY
	AttrCentroidZ
	AttrIntensity
	AttrSize
	NumVertexAttrs
)

// Edge attribute columns of the K*K x NumEdgeAttrs matrix.
const (
	AttrPositionX = iota
	AttrPositionY
	AttrPositionZ
	AttrContrast
	AttrRatio
	NumEdgeAttrs
)

// ErrShapeMismatch is returned when a volume and a labelmap disagree on their
// grid dimensions. This is a configuration error and is never retried.
var ErrShapeMismatch = errors.New("volume and labelmap shapes differ")

// Graph is a structural region graph. Vertices holds one row per label;
// Edges, when built, holds one row per ordered label pair (i,j) at index
// i*K+j, diagonal included. A label required by a fixed vertex count but
// absent from the labelmap gets a sentinel row of +Inf attributes, which
// guarantees it never wins a nearest-match comparison.
type Graph struct {
	Vertices *mat.Dense
	Edges    *mat.Dense // nil when relational attributes were not requested

	// Labels maps vertex row index to the label id it describes.
	Labels []volume.Label
}

// K returns the vertex count.
func (g *Graph) K() int {
	r, _ := g.Vertices.Dims()
	return r
}

// EdgeRow returns the attribute vector of the ordered pair (i, j).
func (g *Graph) EdgeRow(i, j int) []float64 {
	return g.Edges.RawRowView(i*g.K() + j)
}

// Builder derives a structural region graph from a volume and a labelmap.
// The zero value builds a vertices-only graph over the labels present.
type Builder struct {
	// AddEdges requests the full relational tensor over all ordered label
	// pairs in addition to the vertex descriptors.
	AddEdges bool

	// TargetSize, when positive, fixes the vertex count: rows cover labels
	// 0..TargetSize-1 and labels without voxels are sentinel-filled. This
	// keeps a candidate graph aligned one-to-one with a reference label set
	// even when some labels are currently empty.
	TargetSize int
}

// Build computes centroid, mean intensity and voxel count for every label in
// the map, plus the relational attributes when requested. Voxels holding
// Unassigned contribute to no vertex. Pure function: neither input is
// modified.
func (b Builder) Build(vol *volume.Volume, lm *volume.LabelMap) (*Graph, error) {
	if vol.Width != lm.Width || vol.Height != lm.Height || vol.Depth != lm.Depth {
		return nil, fmt.Errorf("%w: volume %dx%dx%d, labelmap %dx%dx%d", ErrShapeMismatch,
			vol.Width, vol.Height, vol.Depth, lm.Width, lm.Height, lm.Depth)
	}

	maxLabel := lm.MaxLabel()
	if b.TargetSize > 0 && int(maxLabel) >= b.TargetSize {
		return nil, fmt.Errorf("label %d outside fixed vertex range 0..%d", maxLabel, b.TargetSize-1)
	}

	n := int(maxLabel) + 1
	sumX := make([]float64, n)
	sumY := make([]float64, n)
	sumZ := make([]float64, n)
	sumI := make([]float64, n)
	count := make([]float64, n)

	idx := 0
	for z := 0; z < lm.Depth; z++ {
		for y := 0; y < lm.Height; y++ {
			for x := 0; x < lm.Width; x++ {
				l := lm.Data[idx]
				if l.Assigned() {
					sumX[l] += float64(x)
					sumY[l] += float64(y)
					sumZ[l] += float64(z)
					sumI[l] += vol.Data[idx]
					count[l]++
				}
				idx++
			}
		}
	}

	g := &Graph{}
	if b.TargetSize > 0 {
		g.Vertices = mat.NewDense(b.TargetSize, NumVertexAttrs, nil)
		g.Labels = make([]volume.Label, b.TargetSize)
		for l := 0; l < b.TargetSize; l++ {
			g.Labels[l] = volume.Label(l)
			if l >= n || count[l] == 0 {
				setSentinelRow(g.Vertices, l)
				continue
			}
			setVertexRow(g.Vertices, l, sumX[l], sumY[l], sumZ[l], sumI[l], count[l])
		}
	} else {
		// Labels without voxels are simply omitted; rows follow ascending
		// label order.
		for l := 0; l < n; l++ {
			if count[l] > 0 {
				g.Labels = append(g.Labels, volume.Label(l))
			}
		}
		if len(g.Labels) == 0 {
			return nil, errors.New("labelmap holds no assigned voxels")
		}
		g.Vertices = mat.NewDense(len(g.Labels), NumVertexAttrs, nil)
		for row, l := range g.Labels {
			setVertexRow(g.Vertices, row, sumX[l], sumY[l], sumZ[l], sumI[l], count[l])
		}
	}

	if b.AddEdges {
		g.Edges = buildEdges(g.Vertices)
	}
	return g, nil
}

func setVertexRow(vertices *mat.Dense, row int, sx, sy, sz, si, c float64) {
	vertices.Set(row, AttrCentroidX, sx/c)
	vertices.Set(row, AttrCentroidY, sy/c)
	vertices.Set(row, AttrCentroidZ, sz/c)
	vertices.Set(row, AttrIntensity, si/c)
	vertices.Set(row, AttrSize, c)
}

func setSentinelRow(vertices *mat.Dense, row int) {
	for col := 0; col < NumVertexAttrs; col++ {
		vertices.Set(row, col, math.Inf(1))
	}
}

// buildEdges assembles the relational tensor over all ordered vertex pairs.
// Edge attributes are not symmetric: swapping (i,j) flips the position sign
// and inverts the size ratio, so row ordering must stay consistent whenever
// two graphs are compared positionally.
func buildEdges(vertices *mat.Dense) *mat.Dense {
	k, _ := vertices.Dims()
	edges := mat.NewDense(k*k, NumEdgeAttrs, nil)
	for i := 0; i < k; i++ {
		vi := vertices.RawRowView(i)
		for j := 0; j < k; j++ {
			vj := vertices.RawRowView(j)
			row := i*k + j
			edges.Set(row, AttrPositionX, vi[AttrCentroidX]-vj[AttrCentroidX])
			edges.Set(row, AttrPositionY, vi[AttrCentroidY]-vj[AttrCentroidY])
			edges.Set(row, AttrPositionZ, vi[AttrCentroidZ]-vj[AttrCentroidZ])
			edges.Set(row, AttrContrast, math.Abs(vi[AttrIntensity]-vj[AttrIntensity]))
			edges.Set(row, AttrRatio, vi[AttrSize]/vj[AttrSize])
		}
	}
	return edges
}
