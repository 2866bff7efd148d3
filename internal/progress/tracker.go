// ==============================================================================
// PROGRESS STATE MACHINE - internal/progress/tracker.go
// ==============================================================================
// Gives the applicant continuous feedback while the engine call is outstanding
// without fabricating completion. The tracker is a pure two-input transition
// function (tick events + result arrival); the runner in runner.go puts a real
// timer behind it.
// ==============================================================================

package progress

import "kycflow/pkg/domain"

// stageOrder is the fixed analysis pipeline shown to the applicant.
var stageOrder = []domain.ProcessingStep{
	{ID: domain.StepOCR, Label: "Extracting Document Data (OCR)", Status: domain.StepStatusWaiting},
	{ID: domain.StepTamper, Label: "Document Forensics & Tamper Check", Status: domain.StepStatusWaiting},
	{ID: domain.StepBiometric, Label: "Biometric Face Matching", Status: domain.StepStatusWaiting},
	{ID: domain.StepRisk, Label: "Calculating Risk Score", Status: domain.StepStatusWaiting},
}

// Tracker advances the fixed stage list one step per tick, but only once the
// real verification result has arrived. Until then ticks are no-ops: no stage
// may read "completed" while the engine is still working.
//
// Tracker is not safe for concurrent use; the Runner serializes access.
type Tracker struct {
	steps     []domain.ProcessingStep
	current   int
	hasResult bool
	settling  bool
	done      bool
}

func NewTracker() *Tracker {
	steps := make([]domain.ProcessingStep, len(stageOrder))
	copy(steps, stageOrder)
	steps[0].Status = domain.StepStatusActive
	return &Tracker{steps: steps}
}

// ResultArrived unblocks stage advancement. Calling it more than once is harmless.
func (t *Tracker) ResultArrived() {
	t.hasResult = true
}

// Tick applies one timer event. It returns true exactly once: on the settle
// tick that follows the final stage's completion. All later ticks are no-ops.
func (t *Tracker) Tick() bool {
	if t.done {
		return false
	}
	if t.settling {
		t.done = true
		return true
	}
	if !t.hasResult {
		return false
	}

	t.steps[t.current].Status = domain.StepStatusCompleted
	if t.current < len(t.steps)-1 {
		t.current++
		t.steps[t.current].Status = domain.StepStatusActive
		return false
	}

	// Last stage just completed; one further tick lets the UI settle before
	// the terminal signal fires.
	t.settling = true
	return false
}

// Done reports whether the terminal signal has fired.
func (t *Tracker) Done() bool {
	return t.done
}

// Settling reports whether all stages are completed and only the final settle
// tick remains.
func (t *Tracker) Settling() bool {
	return t.settling && !t.done
}

// Steps returns a snapshot copy of the stage list.
func (t *Tracker) Steps() []domain.ProcessingStep {
	out := make([]domain.ProcessingStep, len(t.steps))
	copy(out, t.steps)
	return out
}
