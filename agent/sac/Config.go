package sac

import (
	"fmt"

	env "sfneuman.com/stampede/environment"
)

// Config implements a specific configuration of the sac agent
type Config struct {
	CriticLearningRate float64 `json:"critic_learning_rate"`
	PolicyLearningRate float64 `json:"policy_learning_rate"`
	Temperature        float64 `json:"temperature"` // entropy weight
	Tau                float64 `json:"tau"`         // polyak averaging rate
	ReplayCapacity     int     `json:"replay_capacity"` // in sequences
	MinReplay          int     `json:"min_replay"`
	SampleBatch        int     `json:"sample_batch"`
}

// DefaultConfig returns the default sac configuration
func DefaultConfig() Config {
	return Config{
		CriticLearningRate: 0.01,
		PolicyLearningRate: 0.005,
		Temperature:        0.05,
		Tau:                0.01,
		ReplayCapacity:     512,
		MinReplay:          16,
		SampleBatch:        8,
	}
}

// Validate checks the configuration for illegal values
func (c Config) Validate() error {
	if c.CriticLearningRate <= 0 || c.PolicyLearningRate <= 0 {
		return fmt.Errorf("validate: learning rates must be positive, "+
			"got critic=%v policy=%v", c.CriticLearningRate,
			c.PolicyLearningRate)
	}
	if c.Temperature <= 0 {
		return fmt.Errorf("validate: temperature must be positive, got %v",
			c.Temperature)
	}
	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau %v not in (0, 1]", c.Tau)
	}
	if c.ReplayCapacity < c.MinReplay || c.MinReplay < 1 {
		return fmt.Errorf("validate: illegal replay sizes min=%v max=%v",
			c.MinReplay, c.ReplayCapacity)
	}
	if c.SampleBatch < 1 {
		return fmt.Errorf("validate: sample batch must be positive, got %v",
			c.SampleBatch)
	}
	return nil
}

// CreateAgent creates a new sac agent for the given environment
func (c Config) CreateAgent(e env.Environment, seed uint64) (*SAC, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	features := e.ObservationSpec().Shape.Len()
	actions := e.ActionSpec().NumActions()

	return New(c, features, actions, seed)
}
