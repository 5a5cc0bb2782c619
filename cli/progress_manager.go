package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
)

type progressSpinner interface {
	Stop() error
	Success(...any)
	Fail(...any)
	UpdateText(string)
}

type progressSpinnerFactory func(string) (progressSpinner, error)

var defaultSpinnerFactory progressSpinnerFactory = func(text string) (progressSpinner, error) {
	spinner, err := pterm.DefaultSpinner.
		WithRemoveWhenDone(false).
		WithText(text).
		Start()
	if err != nil {
		return nil, err
	}
	return spinner, nil
}

// StepStatus represents the state of a progress step.
type StepStatus int

const (
	// StepPending indicates a step has not yet started.
	StepPending StepStatus = iota
	// StepRunning indicates a step is currently in progress.
	StepRunning
	// StepCompleted indicates a step finished successfully.
	StepCompleted
	// StepFailed indicates a step encountered an error.
	StepFailed
)

// Step is one stage of a command. Steps at indent level 0 are headings, deeper steps get a spinner.
type Step struct {
	ID          string
	Message     string
	Status      StepStatus
	IndentLevel int
	startTime   time.Time
}

// ProgressManager shows the steps of a command one after the other. It is safe for concurrent use, so that
// shards can report progress on the running step.
type ProgressManager struct {
	mu             sync.Mutex
	out            io.Writer
	stepMap        map[string]*Step
	currentSpinner progressSpinner
	spinnerFactory progressSpinnerFactory
	disabled       bool
}

// ProgressManagerOption customizes a ProgressManager at creation time.
type ProgressManagerOption func(*ProgressManager)

// WithProgressOutput enables or disables terminal output for a ProgressManager.
func WithProgressOutput(enabled bool) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.disabled = !enabled
	}
}

func withProgressSpinnerFactory(factory progressSpinnerFactory) ProgressManagerOption {
	return func(pm *ProgressManager) {
		pm.spinnerFactory = factory
	}
}

// NewProgressManager creates a ProgressManager writing headings to out, with all steps registered upfront.
func NewProgressManager(out io.Writer, steps []*Step, opts ...ProgressManagerOption) *ProgressManager {
	pterm.Success.Prefix = pterm.Prefix{Text: "✓", Style: pterm.NewStyle(pterm.FgGreen)}
	pterm.Error.Prefix = pterm.Prefix{Text: "✗", Style: pterm.NewStyle(pterm.FgRed)}
	pterm.DefaultSpinner.Style = pterm.NewStyle(pterm.FgCyan)

	pm := &ProgressManager{
		out:            out,
		stepMap:        make(map[string]*Step, len(steps)),
		spinnerFactory: defaultSpinnerFactory,
	}
	for _, step := range steps {
		pm.stepMap[step.ID] = step
	}
	for _, opt := range opts {
		opt(pm)
	}
	return pm
}

func indent(step *Step) string {
	if step.IndentLevel == 0 {
		return ""
	}
	return strings.Repeat("  ", step.IndentLevel) + "→ "
}

func (pm *ProgressManager) step(stepID string) (*Step, error) {
	step, ok := pm.stepMap[stepID]
	if !ok {
		return nil, errors.Errorf("step %q not found", stepID)
	}
	return step, nil
}

// Start marks the step as running. Headings are printed, other steps get a spinner that replaces the
// previous one.
func (pm *ProgressManager) Start(stepID string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, err := pm.step(stepID)
	if err != nil {
		return err
	}
	step.Status = StepRunning
	step.startTime = time.Now()
	if pm.disabled {
		return nil
	}

	if step.IndentLevel == 0 {
		_, err := fmt.Fprintf(pm.out, " …  %s\n", step.Message)
		return err
	}
	pm.stopSpinnerLocked()
	spinner, err := pm.spinnerFactory(" " + indent(step) + step.Message)
	if err != nil {
		return errors.Wrap(err, "failed to start spinner")
	}
	pm.currentSpinner = spinner
	return nil
}

// Complete marks a step as completed using its own message.
func (pm *ProgressManager) Complete(stepID string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, err := pm.step(stepID)
	if err != nil {
		return err
	}
	pm.completeLocked(step, step.Message)
	return nil
}

// CompleteWithMessage marks a step as completed with a custom message.
func (pm *ProgressManager) CompleteWithMessage(stepID, message string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, err := pm.step(stepID)
	if err != nil {
		return err
	}
	pm.completeLocked(step, message)
	return nil
}

func (pm *ProgressManager) completeLocked(step *Step, message string) {
	step.Status = StepCompleted
	if pm.disabled {
		return
	}
	if !step.startTime.IsZero() {
		message += fmt.Sprintf(" (%s)", time.Since(step.startTime).Round(time.Second))
	}
	message = " " + indent(step) + message
	if pm.currentSpinner != nil {
		pm.currentSpinner.Success(message)
		pm.currentSpinner = nil
		return
	}
	pterm.Success.Println(message)
}

// Fail marks a step as failed with err.
func (pm *ProgressManager) Fail(stepID string, err error) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, stepErr := pm.step(stepID)
	if stepErr != nil {
		return stepErr
	}
	step.Status = StepFailed
	if pm.disabled {
		return nil
	}
	message := fmt.Sprintf(" %s%s: %v", indent(step), step.Message, err)
	if pm.currentSpinner != nil {
		pm.currentSpinner.Fail(message)
		pm.currentSpinner = nil
		return nil
	}
	pterm.Error.Println(message)
	return nil
}

// UpdateText replaces the text of the running spinner.
func (pm *ProgressManager) UpdateText(text string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.disabled || pm.currentSpinner == nil {
		return
	}
	pm.currentSpinner.UpdateText(text)
}

// Status returns the status of a step.
func (pm *ProgressManager) Status(stepID string) (StepStatus, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	step, err := pm.step(stepID)
	if err != nil {
		return StepPending, err
	}
	return step.Status, nil
}

// Stop stops any running spinner.
func (pm *ProgressManager) Stop() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.stopSpinnerLocked()
}

func (pm *ProgressManager) stopSpinnerLocked() {
	if pm.currentSpinner != nil {
		_ = pm.currentSpinner.Stop() //nolint:errcheck
		pm.currentSpinner = nil
	}
}

// progressReporter returns a callback reporting done out of total on the running spinner, at most about
// a hundred times over the whole count.
func (pm *ProgressManager) progressReporter(unit string) func(done, total int) {
	return func(done, total int) {
		every := total / 100
		if every < 1 {
			every = 1
		}
		if done%every != 0 && done != total {
			return
		}
		pm.UpdateText(fmt.Sprintf("   → %s %d/%d", unit, done, total))
	}
}
