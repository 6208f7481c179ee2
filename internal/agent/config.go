package agent

import "time"

// Default values for LoopConfig.
const (
	DefaultMaxIterations = 10

	// ExhaustedText is the final text of a run that hit MaxIterations
	// without the model producing a final answer.
	ExhaustedText = "(max tool iterations reached)"
)

// LoopConfig controls the behavior of the tool-use loop.
type LoopConfig struct {
	// MaxIterations is the maximum number of provider round-trips.
	MaxIterations int `yaml:"max_iterations"`

	// Timeout bounds the whole run. Zero means no deadline beyond the
	// caller's context and each adapter's HTTP timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// withDefaults returns a copy with zero fields replaced by defaults.
func (c LoopConfig) withDefaults() LoopConfig {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	return c
}
