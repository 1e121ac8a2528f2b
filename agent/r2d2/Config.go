package r2d2

import (
	"fmt"

	env "sfneuman.com/stampede/environment"
)

// Config implements a specific configuration of the r2d2 agent
type Config struct {
	LearningRate     float64 `json:"learning_rate"`
	NStep            int     `json:"n_step"`
	ReplayCapacity   int     `json:"replay_capacity"` // in sequences
	MinReplay        int     `json:"min_replay"`
	SampleBatch      int     `json:"sample_batch"`
	TargetSyncPeriod int     `json:"target_sync_period"` // in updates
	Epsilon          float64 `json:"epsilon"`
	EpsilonAlpha     float64 `json:"epsilon_alpha"`
}

// DefaultConfig returns the default r2d2 configuration
func DefaultConfig() Config {
	return Config{
		LearningRate:     0.01,
		NStep:            5,
		ReplayCapacity:   512,
		MinReplay:        16,
		SampleBatch:      8,
		TargetSyncPeriod: 100,
		Epsilon:          0.4,
		EpsilonAlpha:     7.0,
	}
}

// Validate checks the configuration for illegal values
func (c Config) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive, "+
			"got %v", c.LearningRate)
	}
	if c.NStep < 1 {
		return fmt.Errorf("validate: n-step must be at least 1, got %v",
			c.NStep)
	}
	if c.ReplayCapacity < c.MinReplay || c.MinReplay < 1 {
		return fmt.Errorf("validate: illegal replay sizes min=%v max=%v",
			c.MinReplay, c.ReplayCapacity)
	}
	if c.SampleBatch < 1 {
		return fmt.Errorf("validate: sample batch must be positive, got %v",
			c.SampleBatch)
	}
	if c.TargetSyncPeriod < 1 {
		return fmt.Errorf("validate: target sync period must be positive, "+
			"got %v", c.TargetSyncPeriod)
	}
	if c.Epsilon <= 0 || c.Epsilon >= 1 {
		return fmt.Errorf("validate: epsilon %v not in (0, 1)", c.Epsilon)
	}
	return nil
}

// CreateAgent creates a new r2d2 agent for the given environment.
// numActors sizes the per-actor exploration ladder.
func (c Config) CreateAgent(e env.Environment, seed uint64,
	numActors int) (*R2D2, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	features := e.ObservationSpec().Shape.Len()
	actions := e.ActionSpec().NumActions()

	return New(c, features, actions, numActors, seed)
}
