// Package envconfig provides configuration structs for creating
// environments by game name with default parameters. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	env "sfneuman.com/stampede/environment"
	"sfneuman.com/stampede/environment/atari"
	"sfneuman.com/stampede/environment/dmlab"
	"sfneuman.com/stampede/environment/football"
	ts "sfneuman.com/stampede/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Atari    EnvName = "atari"
	DMLab    EnvName = "dmlab"
	Football EnvName = "football"
)

// Names returns all game names this package can create
func Names() []EnvName {
	return []EnvName{Atari, DMLab, Football}
}

// Valid returns whether name refers to a creatable environment
func Valid(name string) bool {
	for _, n := range Names() {
		if name == string(n) {
			return true
		}
	}
	return false
}

// Config implements a specific configuration of a specific environment
type Config struct {
	Environment EnvName `json:"environment"`
	Discount    float64 `json:"discount"`
}

// NewConfig returns a new environment Config
func NewConfig(envName EnvName, discount float64) Config {
	return Config{Environment: envName, Discount: discount}
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment. Each environment instance of a
// run should get a distinct seed, usually derived from the run seed and
// the actor's task index.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	switch c.Environment {
	case Atari:
		e, first := atari.New(seed, c.Discount)
		return e, first, nil

	case DMLab:
		e, first := dmlab.New(seed, c.Discount)
		return e, first, nil

	case Football:
		e, first := football.New(seed, c.Discount)
		return e, first, nil
	}

	return nil, ts.TimeStep{}, fmt.Errorf("create: cannot create "+
		"environment %v, no such environment", c.Environment)
}
