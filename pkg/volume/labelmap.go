package volume

// LabelMap is a 3D grid of region ids with the same layout and shape as its
// Volume. Transformations on labelmaps are pure: they return a new map and
// leave the receiver untouched, so candidate evaluation can share snapshots.
type LabelMap struct {
	// Data is the region ids as a 1D array of length Width*Height*Depth.
	Data []Label

	// Width, Height and Depth are the grid dimensions in voxels.
	Width  int
	Height int
	Depth  int
}

// NewLabelMap allocates a labelmap with every voxel set to Unassigned.
func NewLabelMap(width, height, depth int) *LabelMap {
	data := make([]Label, width*height*depth)
	for i := range data {
		data[i] = Unassigned
	}
	return &LabelMap{Data: data, Width: width, Height: height, Depth: depth}
}

// Idx converts voxel coordinates to the flat array index.
func (m *LabelMap) Idx(x, y, z int) int {
	return z*m.Width*m.Height + y*m.Width + x
}

// At returns the label at the given voxel coordinates.
func (m *LabelMap) At(x, y, z int) Label {
	return m.Data[m.Idx(x, y, z)]
}

// Set stores a label at the given voxel coordinates.
func (m *LabelMap) Set(x, y, z int, label Label) {
	m.Data[m.Idx(x, y, z)] = label
}

// Dims returns the grid dimensions.
func (m *LabelMap) Dims() (width, height, depth int) {
	return m.Width, m.Height, m.Depth
}

// Clone returns a deep copy of the labelmap.
func (m *LabelMap) Clone() *LabelMap {
	data := make([]Label, len(m.Data))
	copy(data, m.Data)
	return &LabelMap{Data: data, Width: m.Width, Height: m.Height, Depth: m.Depth}
}

// MaxLabel returns the largest label present, or Unassigned for a map with
// no assigned voxels.
func (m *LabelMap) MaxLabel() Label {
	max := Unassigned
	for _, l := range m.Data {
		if l > max {
			max = l
		}
	}
	return max
}

// NumRegions returns the region count assuming ids are contiguous from 0.
func (m *LabelMap) NumRegions() int {
	return int(m.MaxLabel()) + 1
}

// Join maps every super-region id through the assignment, producing the
// joined labelmap whose values are reference labels. Super-regions without a
// label propagate Unassigned into the result.
func Join(overseg *LabelMap, assignment []Label) *LabelMap {
	joined := &LabelMap{
		Data:   make([]Label, len(overseg.Data)),
		Width:  overseg.Width,
		Height: overseg.Height,
		Depth:  overseg.Depth,
	}
	for i, id := range overseg.Data {
		joined.Data[i] = assignment[id]
	}
	return joined
}

// ReplaceRegion returns a copy of the joined map in which every voxel of the
// given super-region carries the replacement label. The receiver is the
// shared snapshot and stays untouched.
func (m *LabelMap) ReplaceRegion(overseg *LabelMap, region, to Label) *LabelMap {
	trial := m.Clone()
	for i, id := range overseg.Data {
		if id == region {
			trial.Data[i] = to
		}
	}
	return trial
}

// Dice computes Dice's coefficient for one label between two labelmaps: the
// overlap of the voxel sets holding that label, from 0 (disjoint) to 1.
func Dice(a, b *LabelMap, label Label) float64 {
	var inA, inB, both float64
	for i := range a.Data {
		av := a.Data[i] == label
		bv := b.Data[i] == label
		if av {
			inA++
		}
		if bv {
			inB++
		}
		if av && bv {
			both++
		}
	}
	if inA+inB == 0 {
		return 0
	}
	return 2 * both / (inA + inB)
}
