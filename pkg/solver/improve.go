package solver

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"srgmatch/pkg/srg"
	"srgmatch/pkg/volume"
)

// improve runs the epoch loop. One epoch joins the assignment, standardizes
// the resulting graph, then attempts to relabel up to Cutoff super-regions
// in descending priority order. A move is accepted only when its trial
// labelmap scores a strictly lower global cost, so the cost trace never
// increases; an epoch with no accepted move ends the loop.
func (s *Solver) improve(ctx context.Context) error {
	s.state = Improving
	for epoch := 0; epoch < s.params.MaxEpochs; epoch++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.snapshot(epoch)

		joined := s.joinedLabelmap()
		obs, err := s.standardizedGraph(joined, true)
		if err != nil {
			return err
		}
		current, _, _ := s.globalCost(obs)
		s.epochCosts = append(s.epochCosts, current)
		s.epochsRun = epoch + 1

		s.recomputePriorities()
		for i := range s.attempted {
			s.attempted[i] = false
		}

		changes := 0
		for attempt := 0; attempt < s.params.Cutoff; attempt++ {
			region, ok := s.nextRegion()
			if !ok {
				break
			}
			s.attempted[region] = true

			candidates := s.candidateLabels(region)
			if len(candidates) == 0 {
				continue
			}
			costs, trials, err := s.scoreCandidates(ctx, joined, region, candidates)
			if err != nil {
				return err
			}

			best := -1
			bestCost := current
			for k, c := range costs {
				if c < bestCost {
					best = k
					bestCost = c
				}
			}
			if best < 0 {
				continue
			}

			s.logf("epoch %d: super-region %d %v -> %v (cost %.6f -> %.6f)",
				epoch, region, s.assignment[region], candidates[best], current, bestCost)
			s.assignment[region] = candidates[best]
			joined = trials[best]
			current = bestCost
			changes++
		}

		if changes == 0 {
			s.logf("epoch %d: no improving move, stopping", epoch)
			return nil
		}
	}
	return nil
}

// recomputePriorities refreshes each super-region's priority as the
// size-excluded cost of its descriptor against its assigned reference
// vertex. Unassigned regions rank first.
func (s *Solver) recomputePriorities() {
	for region := 0; region < s.numRegions; region++ {
		l := s.assignment[region]
		if !l.Assigned() {
			s.priorities[region] = math.Inf(1)
			continue
		}
		s.priorities[region] = srg.InitialVertexCost(
			s.superGraph.Vertices.RawRowView(region),
			s.refGraph.Vertices.RawRowView(int(l)),
			s.params.Weights.Initial)
	}
}

// nextRegion picks the unattempted super-region with the highest priority
// cost. Ties take the lowest region id.
func (s *Solver) nextRegion() (volume.Label, bool) {
	best := -1
	bestPriority := math.Inf(-1)
	for region := 0; region < s.numRegions; region++ {
		if s.attempted[region] {
			continue
		}
		if s.priorities[region] > bestPriority {
			best = region
			bestPriority = s.priorities[region]
		}
	}
	if best < 0 {
		return 0, false
	}
	return volume.Label(best), true
}

// scoreCandidates builds and scores one copy-on-write trial labelmap per
// candidate label. The joined snapshot is only read. Scoring runs on up to
// Workers goroutines; results are collected positionally so the outcome is
// identical to a serial pass.
func (s *Solver) scoreCandidates(ctx context.Context, joined *volume.LabelMap, region volume.Label, candidates []volume.Label) ([]float64, []*volume.LabelMap, error) {
	costs := make([]float64, len(candidates))
	trials := make([]*volume.LabelMap, len(candidates))

	score := func(k int) error {
		trial := joined.ReplaceRegion(s.params.OverSegmentation, region, candidates[k])
		g, err := s.standardizedGraph(trial, true)
		if err != nil {
			return err
		}
		costs[k], _, _ = s.globalCost(g)
		trials[k] = trial
		return nil
	}

	if s.params.Workers <= 1 || len(candidates) == 1 {
		for k := range candidates {
			if err := score(k); err != nil {
				return nil, nil, err
			}
		}
		return costs, trials, nil
	}

	grp, _ := errgroup.WithContext(ctx)
	grp.SetLimit(s.params.Workers)
	for k := range candidates {
		k := k
		grp.Go(func() error { return score(k) })
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}
	return costs, trials, nil
}
