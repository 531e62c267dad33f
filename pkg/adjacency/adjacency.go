// Package adjacency maintains the spatial neighbor graph over super-region
// ids. The solver consumes it to keep label moves local: a super-region may
// only adopt a label already held by one of its spatial neighbors.
package adjacency

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"srgmatch/pkg/volume"
)

// Connectivity selects the spatial neighborhood rule used when two voxels
// count as adjacent.
type Connectivity int

const (
	// Conn6 connects voxels sharing a face.
	Conn6 Connectivity = 6
	// Conn26 connects voxels sharing a face, an edge or a corner.
	Conn26 Connectivity = 26
)

// Offsets returns the full set of neighbor offsets for the connectivity
// rule, 6 or 26 entries.
func (c Connectivity) Offsets() [][3]int {
	var offs [][3]int
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				if c == Conn6 && abs(dx)+abs(dy)+abs(dz) != 1 {
					continue
				}
				offs = append(offs, [3]int{dx, dy, dz})
			}
		}
	}
	return offs
}

// forward keeps only the offsets that are lexicographically positive so the
// build pass visits each voxel pair once.
func forward(offs [][3]int) [][3]int {
	var out [][3]int
	for _, o := range offs {
		if o[2] > 0 || (o[2] == 0 && o[1] > 0) || (o[2] == 0 && o[1] == 0 && o[0] > 0) {
			out = append(out, o)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Index is the undirected spatial neighbor graph over super-region ids.
// Built once from an over-segmentation and read-only thereafter.
type Index struct {
	g    *simple.UndirectedGraph
	conn Connectivity
	n    int
}

// Build scans the over-segmentation and records an edge between every pair
// of region ids that touch under the connectivity rule. Every voxel must
// carry a non-negative super-region id.
func Build(overseg *volume.LabelMap, conn Connectivity) (*Index, error) {
	if conn != Conn6 && conn != Conn26 {
		return nil, fmt.Errorf("unsupported connectivity %d: want 6 or 26", conn)
	}
	n := overseg.NumRegions()
	if n <= 0 {
		return nil, fmt.Errorf("over-segmentation contains no regions")
	}

	g := simple.NewUndirectedGraph()
	for id := 0; id < n; id++ {
		g.AddNode(simple.Node(id))
	}

	offs := forward(conn.Offsets())
	for z := 0; z < overseg.Depth; z++ {
		for y := 0; y < overseg.Height; y++ {
			for x := 0; x < overseg.Width; x++ {
				a := overseg.At(x, y, z)
				if !a.Assigned() {
					return nil, fmt.Errorf("voxel (%d,%d,%d) has no super-region id", x, y, z)
				}
				for _, o := range offs {
					nx, ny, nz := x+o[0], y+o[1], z+o[2]
					if nx < 0 || nx >= overseg.Width || ny < 0 || ny >= overseg.Height || nz >= overseg.Depth {
						continue
					}
					b := overseg.At(nx, ny, nz)
					if a != b {
						g.SetEdge(simple.Edge{F: simple.Node(a), T: simple.Node(b)})
					}
				}
			}
		}
	}
	return &Index{g: g, conn: conn, n: n}, nil
}

// NumRegions returns the super-region count.
func (ix *Index) NumRegions() int {
	return ix.n
}

// Connectivity returns the rule the index was built with.
func (ix *Index) Connectivity() Connectivity {
	return ix.conn
}

// Neighbors returns the ids spatially adjacent to the given super-region,
// sorted ascending so iteration order is deterministic.
func (ix *Index) Neighbors(id volume.Label) []volume.Label {
	var out []volume.Label
	it := ix.g.From(int64(id))
	for it.Next() {
		out = append(out, volume.Label(it.Node().ID()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Components splits a set of super-regions into its connected components
// within the induced subgraph. Components are sorted internally and ordered
// by their smallest member, so the result is deterministic.
func (ix *Index) Components(members []volume.Label) [][]volume.Label {
	in := make(map[volume.Label]bool, len(members))
	for _, m := range members {
		in[m] = true
	}

	sub := simple.NewUndirectedGraph()
	for _, m := range members {
		if sub.Node(int64(m)) == nil {
			sub.AddNode(simple.Node(m))
		}
	}
	for _, m := range members {
		for _, nb := range ix.Neighbors(m) {
			if nb > m && in[nb] {
				sub.SetEdge(simple.Edge{F: simple.Node(m), T: simple.Node(nb)})
			}
		}
	}

	raw := topo.ConnectedComponents(sub)
	comps := make([][]volume.Label, 0, len(raw))
	for _, nodes := range raw {
		comp := make([]volume.Label, 0, len(nodes))
		for _, nd := range nodes {
			comp = append(comp, volume.Label(nd.ID()))
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		comps = append(comps, comp)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}
