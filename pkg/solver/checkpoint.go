package solver

import "srgmatch/pkg/volume"

// Checkpoint captures solver progress at an epoch boundary so a run can be
// aborted and resumed without losing work.
type Checkpoint struct {
	// Epoch is the improvement epoch the snapshot was taken at.
	Epoch int

	// Labels is the assignment per super-region id.
	Labels []volume.Label

	// Priorities is the priority cost per super-region id.
	Priorities []float64
}

// snapshot records the current assignment and priorities. Called at every
// epoch boundary before any moves are attempted.
func (s *Solver) snapshot(epoch int) {
	if s.checkpoint.Labels == nil {
		s.checkpoint.Labels = make([]volume.Label, s.numRegions)
		s.checkpoint.Priorities = make([]float64, s.numRegions)
	}
	s.checkpoint.Epoch = epoch
	copy(s.checkpoint.Labels, s.assignment)
	copy(s.checkpoint.Priorities, s.priorities)
}

// Checkpoint returns a deep copy of the latest epoch-boundary snapshot. The
// zero checkpoint is returned when no epoch has started yet.
func (s *Solver) Checkpoint() Checkpoint {
	cp := Checkpoint{Epoch: s.checkpoint.Epoch}
	if s.checkpoint.Labels != nil {
		cp.Labels = make([]volume.Label, len(s.checkpoint.Labels))
		cp.Priorities = make([]float64, len(s.checkpoint.Priorities))
		copy(cp.Labels, s.checkpoint.Labels)
		copy(cp.Priorities, s.checkpoint.Priorities)
	}
	return cp
}
