// Package workflow runs an ordered list of steps in the background and
// delivers a single consolidated result on a channel.
package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds a workflow when no explicit timeout is given.
const DefaultTimeout = 30 * time.Second

// Step represents a single executable unit in a workflow.
type Step struct {
	Name        string
	Description string
	Execute     func(ctx context.Context) error
}

// Result contains the consolidated outcome of a workflow execution.
type Result struct {
	Success     bool
	StartedAt   time.Time
	CompletedAt time.Time
	// FailedStep names the step that stopped the workflow; empty on success.
	FailedStep  string
	Error       error
	StepResults []StepResult
}

// Duration is the wall time the workflow took.
func (r Result) Duration() time.Duration { return r.CompletedAt.Sub(r.StartedAt) }

// StepResult tracks the execution result of an individual workflow step.
type StepResult struct {
	StepName    string
	Success     bool
	Error       error
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
}

// Workflow defines the common interface for all workflow implementations.
// Workflows are executed asynchronously and deliver results through a channel.
type Workflow interface {
	Start(ctx context.Context)
	ResultChan() <-chan Result
}

var _ Workflow = (*BaseWorkflow)(nil)

// BaseWorkflow executes its steps sequentially, stopping at the first failure.
// A step that ignores its context is abandoned once the timeout or the
// caller's context expires.
type BaseWorkflow struct {
	steps      []Step
	timeout    time.Duration
	resultChan chan Result
	startOnce  sync.Once
}

// NewBaseWorkflow creates a new base workflow bounded by DefaultTimeout.
func NewBaseWorkflow(steps []Step) *BaseWorkflow {
	return NewBaseWorkflowWithTimeout(steps, DefaultTimeout)
}

// NewBaseWorkflowWithTimeout creates a workflow bounded by timeout. A
// non-positive timeout falls back to DefaultTimeout.
func NewBaseWorkflowWithTimeout(steps []Step, timeout time.Duration) *BaseWorkflow {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &BaseWorkflow{
		steps:      steps,
		timeout:    timeout,
		resultChan: make(chan Result, 1),
	}
}

// ResultChan returns the channel that will receive the workflow execution
// result. It is closed after the result is sent.
func (w *BaseWorkflow) ResultChan() <-chan Result { return w.resultChan }

// Start runs the workflow on a new goroutine. Only the first call has any
// effect.
func (w *BaseWorkflow) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go func() {
			result := w.Run(ctx)
			w.resultChan <- result
			close(w.resultChan)
		}()
	})
}

// Run executes the steps on the calling goroutine and returns the result.
func (w *BaseWorkflow) Run(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	result := Result{
		Success:     true,
		StartedAt:   time.Now(),
		StepResults: make([]StepResult, 0, len(w.steps)),
	}

	for _, step := range w.steps {
		stepResult := StepResult{StepName: step.Name, StartedAt: time.Now()}

		err := execute(ctx, step)

		stepResult.CompletedAt = time.Now()
		stepResult.Duration = stepResult.CompletedAt.Sub(stepResult.StartedAt)

		if err != nil {
			stepResult.Error = err
			result.StepResults = append(result.StepResults, stepResult)
			result.Success = false
			result.FailedStep = step.Name
			result.Error = fmt.Errorf("step %s failed: %w", step.Name, err)
			break
		}

		stepResult.Success = true
		result.StepResults = append(result.StepResults, stepResult)
	}

	result.CompletedAt = time.Now()
	return result
}

func execute(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- step.Execute(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
