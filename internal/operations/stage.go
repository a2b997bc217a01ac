package operations

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Step represents a single step in the operation
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step with the given context and operation state
	Execute(ctx context.Context, state *OperationState) error

	// Validate checks if the step can be executed with the current state
	Validate(state *OperationState) error
}

// Skipper is implemented by steps that can opt out of a run. A skipped
// step counts as complete for the steps after it.
type Skipper interface {
	SkipReason(state *OperationState) (string, bool)
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex           `json:"-"`
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Message   string                 `json:"message"`
	Error     error                  `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState creates a new step state with default values
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start marks the step as active and sets the start time
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed and sets the end time
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Error = err
}

// Skip marks the step as skipped with the given reason
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusSkipped
	s.Message = reason
}

// SetMetadata records a value reported by the step, such as a row count
// or the file it wrote.
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[key] = value
}

// GetMetadata returns a value recorded with SetMetadata.
func (s *StepState) GetMetadata(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.Metadata[key]
	return v, ok
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Duration returns the duration of the step execution
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// BaseStage provides common functionality for step implementations
type BaseStage struct {
	id   string
	name string
}

// NewBaseStage creates a new base step
func NewBaseStage(id, name string) BaseStage {
	return BaseStage{id: id, name: name}
}

// ID returns the step ID
func (b *BaseStage) ID() string {
	if b == nil {
		return ""
	}
	return b.id
}

// Name returns the step name
func (b *BaseStage) Name() string {
	if b == nil {
		return ""
	}
	return b.name
}

// Validate provides a default validation that always passes
func (b *BaseStage) Validate(state *OperationState) error {
	if b == nil {
		return fmt.Errorf("BaseStage is nil")
	}
	return nil
}

// FuncStep adapts plain functions to the Step interface.
type FuncStep struct {
	BaseStage
	run      func(ctx context.Context, state *OperationState) error
	validate func(state *OperationState) error
	skip     func(state *OperationState) (string, bool)
}

// NewFuncStep creates a step that runs fn.
func NewFuncStep(id, name string, fn func(ctx context.Context, state *OperationState) error) *FuncStep {
	return &FuncStep{BaseStage: NewBaseStage(id, name), run: fn}
}

// WithValidate sets a validation hook run before Execute.
func (f *FuncStep) WithValidate(fn func(state *OperationState) error) *FuncStep {
	f.validate = fn
	return f
}

// WithSkip sets a hook that can skip the step.
func (f *FuncStep) WithSkip(fn func(state *OperationState) (string, bool)) *FuncStep {
	f.skip = fn
	return f
}

// Execute runs the step function
func (f *FuncStep) Execute(ctx context.Context, state *OperationState) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx, state)
}

// Validate runs the validation hook, if any
func (f *FuncStep) Validate(state *OperationState) error {
	if f.validate == nil {
		return f.BaseStage.Validate(state)
	}
	return f.validate(state)
}

// SkipReason implements Skipper.
func (f *FuncStep) SkipReason(state *OperationState) (string, bool) {
	if f.skip == nil {
		return "", false
	}
	return f.skip(state)
}
