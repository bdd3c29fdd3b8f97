// Command emergesort is a minimal illustrative CLI harness over
// pkg/sortengine, in the spirit of the teacher repository's
// cmd/example/main.go: it exists to demonstrate the engine, not as
// part of it. Command-line runners are explicitly out of the core
// engine's scope (spec.md §1).
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs" // corrects GOMAXPROCS for container CPU quotas before any worker pool sizes itself

	"github.com/gitrdm/emergesort/internal/democell"
	"github.com/gitrdm/emergesort/internal/parallel"
	"github.com/gitrdm/emergesort/pkg/sortengine"
)

func main() {
	size := flag.Int("size", 20, "number of cells")
	maxSteps := flag.Int("max-steps", 500, "maximum steps before giving up")
	stableSteps := flag.Int("stable-steps", 3, "consecutive zero-swap steps required for convergence")
	seed := flag.Int64("seed", 42, "rng seed for the sequential engine")
	trials := flag.Int("trials", 1, "number of independent randomized runs to fan out across a worker pool")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	if *trials <= 1 {
		runOne(log, *size, *maxSteps, *stableSteps, uint64(*seed), true)
		return
	}

	runBatch(log, *size, *maxSteps, *stableSteps, uint64(*seed), *trials)
}

// runOne executes a single engine run and, if printResult is set, prints
// its before/after arrays and probe statistics to stdout.
func runOne(log zerolog.Logger, size, maxSteps, stableSteps int, seed uint64, printResult bool) error {
	values := make([]int, size)
	rng := rand.New(rand.NewPCG(seed, 0))
	for i := range values {
		values[i] = rng.IntN(1000)
	}
	cells := democell.IntCells(values)

	provider := sortengine.UniformMetadataProvider(sortengine.BUBBLE, sortengine.ASCENDING, len(cells))
	probe := sortengine.NewProbe(true)
	swapEngine := sortengine.NewSwapEngine(len(cells), nil)
	detector := sortengine.NewNoSwapForKSteps(stableSteps)
	topology := sortengine.NewNeighborTopology(rand.New(rand.NewPCG(seed, 1)))

	engine, err := sortengine.NewExecutionEngine(cells, provider, swapEngine, probe, detector, topology, log)
	if err != nil {
		return err
	}

	if printResult {
		fmt.Printf("before: %v\n", democell.Ints(engine.Cells()))
	}

	step, err := engine.RunUntilConvergence(maxSteps)
	if err != nil {
		return err
	}

	if printResult {
		fmt.Printf("after:  %v\n", democell.Ints(engine.Cells()))
		fmt.Printf("converged=%v steps=%d swaps=%d compareAndSwap=%d frozenAttempts=%d\n",
			engine.HasConverged(), step, probe.SwapCount(), probe.CompareAndSwapCount(), probe.FrozenSwapAttempts())
	}
	return nil
}

// runBatch fans trials independent runs (each with its own seed derived
// from seed+i, so they are reproducible but distinct) out across a fixed
// worker pool and reports how many finished without error. A run that
// reaches maxSteps without converging still counts as completed.
func runBatch(log zerolog.Logger, size, maxSteps, stableSteps int, seed uint64, trials int) {
	pool := parallel.NewWorkerPool(runtime.GOMAXPROCS(0))

	var mu sync.Mutex
	failures := 0
	for i := 0; i < trials; i++ {
		trialSeed := seed + uint64(i)
		pool.Submit(func() error {
			err := runOne(log, size, maxSteps, stableSteps, trialSeed, false)
			if err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
			return err
		})
	}
	pool.Close()

	for i := 0; i < trials; i++ {
		<-pool.Results()
	}

	stats := pool.Stats()
	fmt.Printf("trials=%d submitted=%d completed=%d failed=%d\n",
		trials, stats.TasksSubmitted, stats.TasksCompleted, stats.TasksFailed)
	if failures > 0 {
		os.Exit(1)
	}
}
