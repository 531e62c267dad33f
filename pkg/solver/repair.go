package solver

import (
	"context"
	"math"
	"sort"

	"srgmatch/pkg/srg"
	"srgmatch/pkg/volume"
)

// repair enforces one connected voxel component per reference label. For
// every label whose assigned voxels split into several components, the
// component with the lowest size-excluded cost against the reference vertex
// is confirmed and every super-region outside it loses its label. The
// unassigned regions are then resolved by a restricted local search: each
// may only adopt a label held by a spatial neighbor, picked by lowest global
// trial cost. A pass that reassigns nothing returns the remaining region ids
// so the caller can surface them instead of looping.
func (s *Solver) repair(ctx context.Context) ([]volume.Label, error) {
	s.state = ContiguityRepair

	joined := s.joinedLabelmap()
	for label := 0; label < s.numLabels; label++ {
		comps := s.voxelComponents(joined, volume.Label(label))
		if len(comps) < 2 {
			continue
		}
		keep, err := s.bestComponent(volume.Label(label), comps)
		if err != nil {
			return nil, err
		}
		s.logf("label %d splits into %d components, keeping #%d", label, len(comps), keep)

		// Super-regions overlapping the confirmed component keep the label;
		// the rest of the label's regions become unassigned.
		confirmed := make(map[volume.Label]bool)
		for _, voxel := range comps[keep] {
			confirmed[s.params.OverSegmentation.Data[voxel]] = true
		}
		for _, region := range s.regionsWithLabel(volume.Label(label)) {
			if !confirmed[region] {
				s.assignment[region] = volume.Unassigned
			}
		}
	}

	for {
		unassigned := s.unassignedByPriority()
		if len(unassigned) == 0 {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		joined = s.joinedLabelmap()
		progress := false
		for _, region := range unassigned {
			candidates := s.candidateLabels(region)
			if len(candidates) == 0 {
				continue
			}
			costs, trials, err := s.scoreCandidates(ctx, joined, region, candidates)
			if err != nil {
				return nil, err
			}
			best := -1
			bestCost := math.Inf(1)
			for k, c := range costs {
				if c < bestCost {
					best = k
					bestCost = c
				}
			}
			if best < 0 {
				continue
			}
			s.logf("repair: super-region %d -> %v (cost %.6f)", region, candidates[best], bestCost)
			s.assignment[region] = candidates[best]
			joined = trials[best]
			progress = true
		}

		if !progress {
			remaining := s.unassignedByPriority()
			sort.Slice(remaining, func(i, j int) bool { return remaining[i] < remaining[j] })
			s.logf("repair: %d super-regions cannot be resolved", len(remaining))
			return remaining, nil
		}
	}
}

// voxelComponents splits the voxels holding the label into connected
// components under the adjacency index's connectivity rule. Components are
// ordered by their first voxel in scan order.
func (s *Solver) voxelComponents(joined *volume.LabelMap, label volume.Label) [][]int {
	offs := s.params.Adjacency.Connectivity().Offsets()
	w, h, d := joined.Dims()
	visited := make([]bool, len(joined.Data))

	var comps [][]int
	for start, l := range joined.Data {
		if l != label || visited[start] {
			continue
		}
		var comp []int
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			voxel := queue[0]
			queue = queue[1:]
			comp = append(comp, voxel)

			x := voxel % w
			y := voxel / w % h
			z := voxel / (w * h)
			for _, o := range offs {
				nx, ny, nz := x+o[0], y+o[1], z+o[2]
				if nx < 0 || nx >= w || ny < 0 || ny >= h || nz < 0 || nz >= d {
					continue
				}
				next := joined.Idx(nx, ny, nz)
				if !visited[next] && joined.Data[next] == label {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// bestComponent scores each component's union descriptor against the
// reference vertex of the label and returns the index of the cheapest one.
// Ties take the earliest component.
func (s *Solver) bestComponent(label volume.Label, comps [][]int) (int, error) {
	w, h, d := s.params.OverSegmentation.Dims()
	compMap := volume.NewLabelMap(w, h, d)
	for ci, comp := range comps {
		for _, voxel := range comp {
			compMap.Data[voxel] = volume.Label(ci)
		}
	}
	g, err := srg.Builder{TargetSize: len(comps)}.Build(s.params.Volume, compMap)
	if err != nil {
		return 0, err
	}
	g = s.stats.Apply(g)

	refRow := s.refGraph.Vertices.RawRowView(int(label))
	best := 0
	bestCost := math.Inf(1)
	for ci := range comps {
		c := srg.InitialVertexCost(g.Vertices.RawRowView(ci), refRow, s.params.Weights.Initial)
		if c < bestCost {
			best = ci
			bestCost = c
		}
	}
	return best, nil
}

// unassignedByPriority lists the currently unassigned super-regions in
// descending priority order, ties by ascending id.
func (s *Solver) unassignedByPriority() []volume.Label {
	var out []volume.Label
	for region, l := range s.assignment {
		if !l.Assigned() {
			out = append(out, volume.Label(region))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := s.priorities[out[i]], s.priorities[out[j]]
		if pi != pj {
			return pi > pj
		}
		return out[i] < out[j]
	})
	return out
}
