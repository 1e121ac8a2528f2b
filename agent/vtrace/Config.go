package vtrace

import (
	"fmt"

	env "sfneuman.com/stampede/environment"
)

// Config implements a specific configuration of the vtrace agent
type Config struct {
	LearningRate float64 `json:"learning_rate"`
	BaselineCost float64 `json:"baseline_cost"`
	EntropyCost  float64 `json:"entropy_cost"`
	RhoBar       float64 `json:"rho_bar"`
	CBar         float64 `json:"c_bar"`
	Lambda       float64 `json:"lambda"`
	MaxAbsReward float64 `json:"max_abs_reward"` // 0 disables clipping
}

// DefaultConfig returns the default vtrace configuration
func DefaultConfig() Config {
	return Config{
		LearningRate: 0.01,
		BaselineCost: 0.5,
		EntropyCost:  0.00025,
		RhoBar:       1.0,
		CBar:         1.0,
		Lambda:       1.0,
	}
}

// Validate checks the configuration for illegal values
func (c Config) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be positive, "+
			"got %v", c.LearningRate)
	}
	if c.RhoBar <= 0 || c.CBar <= 0 {
		return fmt.Errorf("validate: importance clipping bounds must be "+
			"positive, got rho=%v c=%v", c.RhoBar, c.CBar)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("validate: lambda %v not in [0, 1]", c.Lambda)
	}
	return nil
}

// CreateAgent creates a new vtrace agent for the given environment
func (c Config) CreateAgent(e env.Environment, seed uint64) (*VTrace, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	features := e.ObservationSpec().Shape.Len()
	actions := e.ActionSpec().NumActions()

	return New(c, features, actions, seed)
}
