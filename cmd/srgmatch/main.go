package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"srgmatch/internal/phantom"
	"srgmatch/pkg/adjacency"
	"srgmatch/pkg/config"
	"srgmatch/pkg/solver"
	"srgmatch/pkg/srg"
	"srgmatch/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "srgmatch.yaml", "Path to the YAML configuration file")
	size := flag.Int("size", 8, "Side length of the synthetic phantom volume")
	cube := flag.Int("cube", 2, "Side length of the phantom super-region cubes")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration file and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *size%*cube != 0 || (*size/2)%*cube != 0 {
		log.Fatalf("Cube side %d must divide both the volume side %d and its half", *cube, *size)
	}

	fmt.Println("================================")
	fmt.Println("STRUCTURAL REGION GRAPH MATCHING")
	fmt.Println("Assigning an over-segmented phantom onto a reference label set")
	fmt.Println("================================")

	// The phantom stands in for the external collaborators that would supply
	// a scan, its reference annotation and a watershed over-segmentation.
	vol, ref := phantom.TwoBlock(*size, 10, 200)
	overseg := phantom.GridOverSegmentation(*size, *cube)

	index, err := adjacency.Build(overseg, adjacency.Connectivity(cfg.Solver.Connectivity))
	if err != nil {
		log.Fatalf("Failed to build adjacency index: %v", err)
	}

	params := solver.Params{
		Volume:           vol,
		ReferenceLabels:  ref,
		OverSegmentation: overseg,
		Adjacency:        index,
		Weights: solver.Weights{
			Initial: cfg.Weights.Initial,
			Vertex:  cfg.Weights.Vertex,
			Edge:    cfg.Weights.Edge,
			Graph:   cfg.Weights.Graph,
		},
		MaxEpochs:   cfg.Solver.MaxEpochs,
		Cutoff:      cfg.Solver.Cutoff,
		Workers:     cfg.Solver.Workers,
		RepairFirst: cfg.Solver.RepairFirst,
	}
	if cfg.Output.Verbose {
		params.Logf = log.Printf
	}

	s, err := solver.New(params)
	if err != nil {
		log.Fatalf("Failed to create solver: %v", err)
	}

	// The epoch loop checkpoints at boundaries, so an interrupt aborts
	// without losing the last completed epoch.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Solving %d super-regions against %d reference labels...\n", overseg.NumRegions(), ref.NumRegions())
	startTime := time.Now()
	result, err := s.Solve(ctx)
	var unresolved *solver.UnresolvedError
	if err != nil && !errors.As(err, &unresolved) {
		log.Fatalf("Solve failed: %v", err)
	}

	fmt.Printf("\nSolve finished in %.2f seconds (state: %s)\n\n", time.Since(startTime).Seconds(), s.State())
	fmt.Printf("Diagnostics:\n")
	fmt.Printf("============\n")
	fmt.Printf("Improvement epochs run: %d\n", result.Epochs)
	fmt.Printf("Mean vertex cost: %.6f\n", result.MeanVertexCost)
	fmt.Printf("Mean edge cost: %.6f\n", result.MeanEdgeCost)
	fmt.Printf("Global cost: %.6f\n", result.GlobalCost)
	for l := volume.Label(0); l < volume.Label(ref.NumRegions()); l++ {
		fmt.Printf("Dice for label %d: %.4f\n", l, volume.Dice(result.Labels, ref, l))
	}
	if unresolved != nil {
		fmt.Printf("Unresolved super-regions: %v\n", unresolved.Regions)
	}

	// Textual summary of the resulting graph, for logging.
	obs, err := srg.Builder{TargetSize: ref.NumRegions()}.Build(vol, result.Labels)
	if err != nil {
		log.Fatalf("Failed to summarize result: %v", err)
	}
	fmt.Printf("\nResulting graph:\n%s", obs.Summary([]string{"left block", "right block"}))
}
