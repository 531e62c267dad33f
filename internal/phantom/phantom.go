// Package phantom generates small synthetic volumes with known structure.
// The demo binary and the solver tests use them in place of real scan data,
// which enters the system through external collaborators.
package phantom

import "srgmatch/pkg/volume"

// TwoBlock returns an n-cubed volume split along x into two intensity
// blocks, lo on the left half and hi on the right, together with the
// matching two-label reference map (label 0 left, label 1 right).
func TwoBlock(n int, lo, hi float64) (*volume.Volume, *volume.LabelMap) {
	vol := volume.NewVolume(n, n, n)
	ref := volume.NewLabelMap(n, n, n)
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				if x < n/2 {
					vol.Set(x, y, z, lo)
					ref.Set(x, y, z, 0)
				} else {
					vol.Set(x, y, z, hi)
					ref.Set(x, y, z, 1)
				}
			}
		}
	}
	return vol, ref
}

// GridOverSegmentation partitions an n-cubed grid into cube-shaped
// super-regions of the given side, with ids contiguous from 0 in scan
// order. The side must divide n.
func GridOverSegmentation(n, side int) *volume.LabelMap {
	overseg := volume.NewLabelMap(n, n, n)
	cubes := n / side
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				id := (z/side)*cubes*cubes + (y/side)*cubes + x/side
				overseg.Set(x, y, z, volume.Label(id))
			}
		}
	}
	return overseg
}
