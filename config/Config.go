// Package config implements the immutable run configuration shared by
// every process of one training run. A Config is constructed once at
// launch from command-line flags, with environment-variable fallbacks,
// and is read-only thereafter.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"sfneuman.com/stampede/agent"
	"sfneuman.com/stampede/environment/envconfig"
	"sfneuman.com/stampede/replay"
)

// Run modes of a process in a run
const (
	ModeActor   string = "actor"
	ModeLearner string = "learner"
)

// Config is the configuration of one process in a training run
type Config struct {
	RunMode     string `json:"run_mode"`
	Environment string `json:"environment"`
	Agent       string `json:"agent"`
	NumActors   int    `json:"num_actors"`
	Task        int    `json:"task"`
	Seed        uint64 `json:"seed"`

	// Environment
	Discount     float64 `json:"discount"`
	EnvBatchSize int     `json:"env_batch_size"`
	Render       bool    `json:"render"`

	// Trajectories
	UnrollLength  int    `json:"unroll_length"`
	QueueCapacity int    `json:"queue_capacity"`
	QueuePolicy   string `json:"queue_policy"`
	StaleBound    int64  `json:"stale_bound"`

	// Learner
	BatchSize        int           `json:"batch_size"`
	TotalFrames      int           `json:"total_frames"`
	PublishPeriod    int           `json:"publish_period"` // in updates
	CheckpointPeriod time.Duration `json:"checkpoint_period"`
	CheckpointPath   string        `json:"checkpoint_path"`

	// Inference
	ServerAddr     string        `json:"server_address"`
	InferenceBatch int           `json:"inference_batch"`
	InferenceWait  time.Duration `json:"inference_wait"`

	// Logging
	LogDir string `json:"logdir"`
}

// Default returns the default configuration of a run
func Default() Config {
	return Config{
		RunMode:          ModeLearner,
		NumActors:        4,
		Seed:             uint64(time.Now().UnixNano()),
		Discount:         0.99,
		EnvBatchSize:     1,
		UnrollLength:     20,
		QueueCapacity:    256,
		QueuePolicy:      string(replay.DropOldest),
		StaleBound:       50,
		BatchSize:        4,
		TotalFrames:      1_000_000,
		PublishPeriod:    1,
		CheckpointPeriod: 30 * time.Second,
		CheckpointPath:   "stampede.db",
		ServerAddr:       "localhost:8686",
		InferenceBatch:   32,
		InferenceWait:    2 * time.Millisecond,
		LogDir:           "/tmp/agent",
	}
}

// FromEnv fills the environment, agent, and actor-count fields from the
// ENVIRONMENT, AGENT, and NUM_ACTORS environment variables when they
// are set, returning the updated Config
func (c Config) FromEnv() Config {
	c.Environment = getenv("ENVIRONMENT", c.Environment)
	c.Agent = getenv("AGENT", c.Agent)
	c.NumActors = getenvInt("NUM_ACTORS", c.NumActors)
	return c
}

// Validate checks the configuration for illegal values
func (c Config) Validate() error {
	if c.RunMode != ModeActor && c.RunMode != ModeLearner {
		return fmt.Errorf("validate: no such run mode %q", c.RunMode)
	}
	if !envconfig.Valid(c.Environment) {
		return fmt.Errorf("validate: no such environment %q", c.Environment)
	}
	if !agent.Valid(c.Agent) {
		return fmt.Errorf("validate: no such agent %q", c.Agent)
	}
	if c.NumActors < 0 {
		return fmt.Errorf("validate: num actors must be non-negative, "+
			"got %v", c.NumActors)
	}
	if c.RunMode == ModeActor &&
		(c.Task < 0 || c.Task >= c.NumActors) {
		return fmt.Errorf("validate: task %v outside [0, %v)", c.Task,
			c.NumActors)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount %v not in [0, 1]", c.Discount)
	}
	if c.UnrollLength < 1 {
		return fmt.Errorf("validate: unroll length must be positive, "+
			"got %v", c.UnrollLength)
	}
	if c.EnvBatchSize < 1 {
		return fmt.Errorf("validate: env batch size must be positive, "+
			"got %v", c.EnvBatchSize)
	}
	if !replay.ValidOverflowPolicy(c.QueuePolicy) {
		return fmt.Errorf("validate: no such queue policy %q", c.QueuePolicy)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive, got %v",
			c.BatchSize)
	}
	if c.InferenceBatch < 1 {
		return fmt.Errorf("validate: inference batch must be positive, "+
			"got %v", c.InferenceBatch)
	}
	return nil
}

// EnvConfig returns the environment configuration of the run
func (c Config) EnvConfig() envconfig.Config {
	return envconfig.NewConfig(envconfig.EnvName(c.Environment), c.Discount)
}

// EnvSeed derives the environment seed of one environment loop from
// the run seed, the actor's task index, and the loop's index within
// the actor
func (c Config) EnvSeed(loop int) uint64 {
	return c.Seed + uint64(c.Task*c.EnvBatchSize+loop)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
