package operations

import (
	"time"
)

// Config represents the runner configuration
type Config struct {
	// Step-specific timeouts
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// DefaultTimeout applies to steps missing from StepTimeouts. Zero
	// disables the timeout.
	DefaultTimeout time.Duration `json:"default_timeout"`
}

// NewConfig returns the default runner configuration
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDIngest:  DefaultIngestTimeout,
			StepIDArchive: DefaultArchiveTimeout,
		},
		DefaultTimeout: DefaultStepTimeout,
	}
}

// GetStepTimeout returns the timeout for a specific step
func (c *Config) GetStepTimeout(stepID string) time.Duration {
	if c == nil {
		return 0
	}
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return c.DefaultTimeout
}

// SetStepTimeout sets the timeout for a specific step
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}
