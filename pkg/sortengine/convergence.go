package sortengine

// ConvergenceDetector is consulted once after every completed step. A
// true return is final: the engine treats it as terminal and does not
// poll further. Implementations read Probe counters, never snapshots,
// so they behave identically whether or not trajectory recording is
// enabled (spec §4.4).
type ConvergenceDetector interface {
	HasConverged(probe *Probe, stepNumber int) bool
	Name() string
}

// NoSwapForKSteps is the default detector: converges once the probe's
// consecutive-zero-swap gauge reaches K. The zero value is not usable;
// construct with NewNoSwapForKSteps.
type NoSwapForKSteps struct {
	K int
}

// NewNoSwapForKSteps builds the default detector with the given
// stability window. K <= 0 is treated as the spec default of 3.
func NewNoSwapForKSteps(k int) *NoSwapForKSteps {
	if k <= 0 {
		k = 3
	}
	return &NoSwapForKSteps{K: k}
}

// HasConverged implements ConvergenceDetector.
func (d *NoSwapForKSteps) HasConverged(probe *Probe, stepNumber int) bool {
	return probe.ConsecutiveZeroSwapSteps() >= int64(d.K)
}

// Name implements ConvergenceDetector.
func (d *NoSwapForKSteps) Name() string { return "no-swap-for-k-steps" }

// StabilityThreshold converges once the swap rate over the last
// Window steps — swaps executed since the previous sample divided by
// the steps since that sample, sampled every Window steps — falls at
// or below Threshold. Unlike
// NoSwapForKSteps it tolerates a low-but-nonzero trickle of swaps,
// useful for populations (e.g. cross-purpose mixes) that oscillate
// around an equilibrium rather than settling exactly still.
type StabilityThreshold struct {
	Window    int
	Threshold float64

	lastSampleStep  int64
	lastSampleSwaps int64
}

// NewStabilityThreshold builds a StabilityThreshold detector.
func NewStabilityThreshold(window int, threshold float64) *StabilityThreshold {
	if window <= 0 {
		window = 10
	}
	return &StabilityThreshold{Window: window, Threshold: threshold}
}

// HasConverged implements ConvergenceDetector.
func (d *StabilityThreshold) HasConverged(probe *Probe, stepNumber int) bool {
	if int64(stepNumber)-d.lastSampleStep < int64(d.Window) {
		return false
	}
	swaps := probe.SwapCount()
	steps := int64(stepNumber) - d.lastSampleStep
	rate := float64(swaps-d.lastSampleSwaps) / float64(steps)
	d.lastSampleStep = int64(stepNumber)
	d.lastSampleSwaps = swaps
	return rate <= d.Threshold
}

// Name implements ConvergenceDetector.
func (d *StabilityThreshold) Name() string { return "stability-threshold" }

// Immediate converges the instant any single step executes zero
// swaps. It never tolerates a later respawn of activity, so it is
// appropriate only for tests and demonstrations, never production runs
// where a single quiet step can be a coincidence rather than a fixed
// point.
type Immediate struct{}

// HasConverged implements ConvergenceDetector.
func (Immediate) HasConverged(probe *Probe, stepNumber int) bool {
	return probe.ConsecutiveZeroSwapSteps() >= 1
}

// Name implements ConvergenceDetector.
func (Immediate) Name() string { return "immediate" }
