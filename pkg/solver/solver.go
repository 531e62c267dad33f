// Package solver implements the constrained local search that matches an
// over-segmented labelmap onto a fixed reference label set. It pairs an
// initial nearest-descriptor assignment with a worst-first improvement loop
// under soft contiguity, and a repair pass that enforces one connected
// component per reference label.
package solver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"srgmatch/pkg/adjacency"
	"srgmatch/pkg/srg"
	"srgmatch/pkg/volume"
)

// State tracks the solver lifecycle.
type State int

const (
	Unsolved State = iota
	Initialized
	Improving
	ContiguityRepair
	Converged
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unsolved:
		return "unsolved"
	case Initialized:
		return "initialized"
	case Improving:
		return "improving"
	case ContiguityRepair:
		return "contiguity-repair"
	case Converged:
		return "converged"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Weights groups the tuples weighting each cost space.
type Weights struct {
	// Initial weights the size-excluded vertex space used by the first-pass
	// nearest-label guess and the priority costs.
	Initial []float64

	// Vertex and Edge weight the full vertex and relational spaces.
	Vertex []float64
	Edge   []float64

	// Graph mixes the two terms of the global cost: Graph[0] scales the mean
	// vertex cost, Graph[1] the mean edge cost.
	Graph []float64
}

// DefaultWeights returns the weight tuples the matcher was calibrated with:
// equal initial weights, a size-heavy vertex space and an even relational
// space.
func DefaultWeights() Weights {
	return Weights{
		Initial: []float64{1, 1, 1, 1},
		Vertex:  []float64{1, 1, 1, 1, 10},
		Edge:    []float64{1, 1, 1, 1, 1},
		Graph:   []float64{1, 1},
	}
}

func (w Weights) validate() error {
	if len(w.Initial) != srg.NumVertexAttrs-1 {
		return fmt.Errorf("initial weights need %d entries, got %d", srg.NumVertexAttrs-1, len(w.Initial))
	}
	if len(w.Vertex) != srg.NumVertexAttrs {
		return fmt.Errorf("vertex weights need %d entries, got %d", srg.NumVertexAttrs, len(w.Vertex))
	}
	if len(w.Edge) != srg.NumEdgeAttrs {
		return fmt.Errorf("edge weights need %d entries, got %d", srg.NumEdgeAttrs, len(w.Edge))
	}
	if len(w.Graph) != 2 {
		return fmt.Errorf("graph weights need 2 entries, got %d", len(w.Graph))
	}
	return nil
}

// Params configures a Solver. Volume, ReferenceLabels, OverSegmentation and
// Adjacency are required; the over-segmentation must give every voxel a
// non-negative, spatially contiguous super-region id.
type Params struct {
	// Volume is the scalar intensity grid shared by both labelmaps.
	Volume *volume.Volume

	// ReferenceLabels is the model annotation whose label set the solver
	// assigns. Its labels must be contiguous from 0.
	ReferenceLabels *volume.LabelMap

	// OverSegmentation is the external fine partition into super-regions.
	OverSegmentation *volume.LabelMap

	// Adjacency is the spatial neighbor index built from OverSegmentation.
	Adjacency *adjacency.Index

	// Weights for the cost spaces. Zero value selects DefaultWeights.
	Weights Weights

	// MaxEpochs bounds the improvement loop. 0 selects half the super-region
	// count.
	MaxEpochs int

	// Cutoff is the number of super-regions attempted per epoch, worst
	// first. 0 selects 1 (pure worst-first greedy).
	Cutoff int

	// Workers bounds the goroutines scoring candidate labels. 0 selects 1
	// (serial). The outcome is identical either way.
	Workers int

	// RepairFirst runs contiguity repair before the improvement loop instead
	// of after it.
	RepairFirst bool

	// Resume restarts from a previously captured checkpoint instead of
	// computing the initial assignment.
	Resume *Checkpoint

	// Logf receives progress lines when set. The solver never logs through
	// any other channel.
	Logf func(format string, args ...any)
}

// Result is the outcome of a solve: the joined labelmap over reference
// labels plus diagnostic scalars.
type Result struct {
	// Labels is the joined labelmap. Voxels of unresolved super-regions hold
	// volume.Unassigned.
	Labels *volume.LabelMap

	// MeanVertexCost and MeanEdgeCost are the components of the final global
	// cost against the reference graph.
	MeanVertexCost float64
	MeanEdgeCost   float64
	GlobalCost     float64

	// EpochCosts holds the global cost measured at the start of each
	// improvement epoch, in order.
	EpochCosts []float64

	// Epochs is the number of improvement epochs run.
	Epochs int

	// Unresolved lists super-regions contiguity repair could not reassign.
	Unresolved []volume.Label
}

// UnresolvedError reports super-regions that contiguity repair could not
// reassign because no spatial neighbor ever held a valid label. The solve
// result is still produced; the named regions stay Unassigned in it.
type UnresolvedError struct {
	Regions []volume.Label
}

func (e *UnresolvedError) Error() string {
	ids := make([]string, len(e.Regions))
	for i, r := range e.Regions {
		ids[i] = fmt.Sprint(r)
	}
	return fmt.Sprintf("unresolved assignment for super-regions [%s]", strings.Join(ids, " "))
}

// Solver carries the state of one matching run. Not safe for concurrent use;
// all parallelism is internal to candidate scoring.
type Solver struct {
	params Params
	state  State

	numLabels  int
	numRegions int

	stats      srg.Stats
	refGraph   *srg.Graph // standardized reference graph, edges included
	superGraph *srg.Graph // standardized per-super-region descriptors

	assignment []volume.Label
	priorities []float64
	attempted  []bool

	epochsRun  int
	epochCosts []float64
	checkpoint Checkpoint
}

// New validates the inputs and returns an unsolved solver.
func New(params Params) (*Solver, error) {
	if params.Volume == nil || params.ReferenceLabels == nil || params.OverSegmentation == nil || params.Adjacency == nil {
		return nil, fmt.Errorf("volume, reference labelmap, over-segmentation and adjacency index are all required")
	}
	vw, vh, vd := params.Volume.Dims()
	for _, lm := range []*volume.LabelMap{params.ReferenceLabels, params.OverSegmentation} {
		if w, h, d := lm.Dims(); w != vw || h != vh || d != vd {
			return nil, fmt.Errorf("%w: volume %dx%dx%d, labelmap %dx%dx%d", srg.ErrShapeMismatch, vw, vh, vd, w, h, d)
		}
	}

	numRegions := params.OverSegmentation.NumRegions()
	if numRegions < 1 {
		return nil, fmt.Errorf("over-segmentation contains no super-regions")
	}
	if got := params.Adjacency.NumRegions(); got != numRegions {
		return nil, fmt.Errorf("adjacency index covers %d super-regions, over-segmentation has %d", got, numRegions)
	}

	if params.Weights.Initial == nil && params.Weights.Vertex == nil && params.Weights.Edge == nil && params.Weights.Graph == nil {
		params.Weights = DefaultWeights()
	}
	if err := params.Weights.validate(); err != nil {
		return nil, err
	}
	if params.MaxEpochs <= 0 {
		params.MaxEpochs = numRegions / 2
		if params.MaxEpochs < 1 {
			params.MaxEpochs = 1
		}
	}
	if params.Cutoff <= 0 {
		params.Cutoff = 1
	}
	if params.Workers <= 0 {
		params.Workers = 1
	}
	if params.Resume != nil && len(params.Resume.Labels) != numRegions {
		return nil, fmt.Errorf("checkpoint covers %d super-regions, over-segmentation has %d", len(params.Resume.Labels), numRegions)
	}

	return &Solver{
		params:     params,
		state:      Unsolved,
		numRegions: numRegions,
	}, nil
}

// State returns the current lifecycle state.
func (s *Solver) State() State {
	return s.state
}

// Solve runs initialization, the improvement loop and contiguity repair
// (order per Params.RepairFirst) and returns the joined labelmap with its
// diagnostics. When repair leaves super-regions without a label, the result
// is returned together with an *UnresolvedError naming them. The context is
// honored at epoch and pass boundaries.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	if err := s.initialize(); err != nil {
		return nil, err
	}

	if s.params.RepairFirst {
		if _, err := s.repair(ctx); err != nil {
			return nil, err
		}
		if err := s.improve(ctx); err != nil {
			return nil, err
		}
	} else {
		if err := s.improve(ctx); err != nil {
			return nil, err
		}
		if _, err := s.repair(ctx); err != nil {
			return nil, err
		}
	}

	// Repair may be followed by an improvement phase that rescues a region it
	// gave up on, so the final verdict comes from the assignment itself.
	unresolved := s.regionsWithLabel(volume.Unassigned)

	s.state = Converged
	result, err := s.finalize(unresolved)
	if err != nil {
		return nil, err
	}
	if len(unresolved) > 0 {
		return result, &UnresolvedError{Regions: unresolved}
	}
	return result, nil
}

// initialize builds the standardized reference and super-region graphs and
// computes the nearest-match first assignment, or restores a checkpoint.
func (s *Solver) initialize() error {
	raw, err := srg.Builder{AddEdges: true}.Build(s.params.Volume, s.params.ReferenceLabels)
	if err != nil {
		return fmt.Errorf("building reference graph: %w", err)
	}
	s.numLabels = raw.K()
	if int(s.params.ReferenceLabels.MaxLabel())+1 != s.numLabels {
		return fmt.Errorf("reference labels are not contiguous from 0")
	}
	s.stats = srg.Fit(raw)
	s.refGraph = s.stats.Apply(raw)

	superRaw, err := srg.Builder{}.Build(s.params.Volume, s.params.OverSegmentation)
	if err != nil {
		return fmt.Errorf("building super-region graph: %w", err)
	}
	if superRaw.K() != s.numRegions {
		return fmt.Errorf("super-region ids are not contiguous from 0: %d descriptors for %d ids", superRaw.K(), s.numRegions)
	}
	s.superGraph = s.stats.Apply(superRaw)

	s.assignment = make([]volume.Label, s.numRegions)
	s.priorities = make([]float64, s.numRegions)
	s.attempted = make([]bool, s.numRegions)

	if cp := s.params.Resume; cp != nil {
		copy(s.assignment, cp.Labels)
		copy(s.priorities, cp.Priorities)
		s.logf("resumed from checkpoint at epoch %d", cp.Epoch)
	} else {
		for region := 0; region < s.numRegions; region++ {
			label, cost := s.nearestLabel(region)
			s.assignment[region] = label
			s.priorities[region] = cost
		}
		s.logf("initial assignment over %d super-regions and %d labels", s.numRegions, s.numLabels)
	}

	s.state = Initialized
	return nil
}

// nearestLabel finds the reference vertex with the lowest size-excluded cost
// against the super-region's descriptor. Ties take the lowest label id.
func (s *Solver) nearestLabel(region int) (volume.Label, float64) {
	row := s.superGraph.Vertices.RawRowView(region)
	best := volume.Unassigned
	bestCost := math.Inf(1)
	for l := 0; l < s.numLabels; l++ {
		c := srg.InitialVertexCost(row, s.refGraph.Vertices.RawRowView(l), s.params.Weights.Initial)
		if c < bestCost {
			best = volume.Label(l)
			bestCost = c
		}
	}
	return best, bestCost
}

// joinedLabelmap merges the current assignment into a labelmap over
// reference labels.
func (s *Solver) joinedLabelmap() *volume.LabelMap {
	return volume.Join(s.params.OverSegmentation, s.assignment)
}

// standardizedGraph rebuilds a candidate graph from a trial labelmap with
// the vertex count pinned to the reference label set, standardized with the
// fixed reference statistics.
func (s *Solver) standardizedGraph(lm *volume.LabelMap, withEdges bool) (*srg.Graph, error) {
	g, err := srg.Builder{AddEdges: withEdges, TargetSize: s.numLabels}.Build(s.params.Volume, lm)
	if err != nil {
		return nil, err
	}
	return s.stats.Apply(g), nil
}

// globalCost scores a standardized candidate graph against the reference.
func (s *Solver) globalCost(g *srg.Graph) (total, meanVertex, meanEdge float64) {
	return srg.GlobalCost(g, s.refGraph, s.params.Weights.Vertex, s.params.Weights.Edge, s.params.Weights.Graph)
}

// regionsWithLabel returns the super-regions currently assigned to the
// label, ascending.
func (s *Solver) regionsWithLabel(label volume.Label) []volume.Label {
	var out []volume.Label
	for region, l := range s.assignment {
		if l == label {
			out = append(out, volume.Label(region))
		}
	}
	return out
}

// candidateLabels returns the labels held by the region's spatial neighbors,
// minus its own label and Unassigned, sorted ascending.
func (s *Solver) candidateLabels(region volume.Label) []volume.Label {
	seen := make(map[volume.Label]bool)
	current := s.assignment[region]
	for _, nb := range s.params.Adjacency.Neighbors(region) {
		l := s.assignment[nb]
		if l == current || !l.Assigned() {
			continue
		}
		seen[l] = true
	}
	out := make([]volume.Label, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// finalize joins the assignment and measures the resulting graph against the
// reference.
func (s *Solver) finalize(unresolved []volume.Label) (*Result, error) {
	joined := s.joinedLabelmap()
	obs, err := s.standardizedGraph(joined, true)
	if err != nil {
		return nil, fmt.Errorf("building result graph: %w", err)
	}
	total, meanVertex, meanEdge := s.globalCost(obs)
	s.logf("converged after %d epochs: vertex cost %.6f, edge cost %.6f", s.epochsRun, meanVertex, meanEdge)
	return &Result{
		Labels:         joined,
		MeanVertexCost: meanVertex,
		MeanEdgeCost:   meanEdge,
		GlobalCost:     total,
		EpochCosts:     s.epochCosts,
		Epochs:         s.epochsRun,
		Unresolved:     unresolved,
	}, nil
}

func (s *Solver) logf(format string, args ...any) {
	if s.params.Logf != nil {
		s.params.Logf(format, args...)
	}
}
