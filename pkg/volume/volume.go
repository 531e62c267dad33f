// Package volume defines the voxel grid types shared by the graph builder,
// the adjacency index and the assignment solver: a scalar Volume and an
// integer LabelMap, both stored as flat row-major arrays.
package volume

// Label identifies a region in a LabelMap. Real regions are non-negative;
// Unassigned marks a voxel or super-region that currently has no label.
type Label int32

// Unassigned is the reserved sentinel for "no label". It is never a real
// region id and must not be fed back into a reference label set.
const Unassigned Label = -1

// Assigned reports whether the label refers to a real region.
func (l Label) Assigned() bool {
	return l >= 0
}

// Volume is a 3D grid of scalar intensities stored in row-major order
// (x fastest, z slowest). It is treated as read-only input everywhere.
type Volume struct {
	// Data is the voxel intensities as a 1D array of length Width*Height*Depth.
	Data []float64

	// Width, Height and Depth are the grid dimensions in voxels.
	Width  int
	Height int
	Depth  int
}

// NewVolume allocates a zero-filled volume with the given dimensions.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Idx converts voxel coordinates to the flat array index.
func (v *Volume) Idx(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the intensity at the given voxel coordinates.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Idx(x, y, z)]
}

// Set stores an intensity at the given voxel coordinates.
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Idx(x, y, z)] = value
}

// Dims returns the grid dimensions.
func (v *Volume) Dims() (width, height, depth int) {
	return v.Width, v.Height, v.Depth
}
