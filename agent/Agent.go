// Package agent defines the interfaces between the learner process,
// the inference server, and the algorithms that drive them.
//
// An agent is split along the process boundary of the system: the
// Learner half owns and updates the canonical parameters from batches
// of trajectories, while the Policy half selects actions for actor
// observations from read-only parameter snapshots. The two halves meet
// only through published Params snapshots.
package agent

import (
	"gonum.org/v1/gonum/mat"

	"sfneuman.com/stampede/replay"
)

// Decision is the outcome of selecting an action for one observation:
// the action itself, the behaviour policy's log probability of taking
// it, and the behaviour policy's value estimate of the observation.
// Log probabilities and value estimates ride along with trajectories so
// the learner can compute importance corrections without replaying
// inference.
type Decision struct {
	Action  int
	LogProb float64
	Value   float64
}

// Policy selects actions from a parameter snapshot. Policies are held
// by the inference server and refreshed with SetParams whenever the
// learner publishes a new snapshot. A Policy is not safe for concurrent
// use; the inference server serializes access so that every request in
// a batch is served by the same snapshot version.
type Policy interface {
	// SelectAction chooses an action for a single observation. The
	// task index identifies the requesting actor, which exploration
	// schedules may condition on.
	SelectAction(obs mat.Vector, task int) Decision

	// SetParams replaces the snapshot the policy acts from
	SetParams(Params) error

	// ParamsVersion returns the version of the current snapshot
	ParamsVersion() int64
}

// StepResult reports the losses of a single learner update
type StepResult struct {
	Loss       float64
	PolicyLoss float64
	ValueLoss  float64
	Entropy    float64
	Frames     int
}

// Learner implements a learning algorithm that defines how parameters
// are updated from batches of trajectories
type Learner interface {
	// Step performs a single update to the learner from a batch of
	// trajectories pulled off the trajectory queue
	Step(batch []replay.Trajectory) (StepResult, error)

	// Params returns a copy of the current parameters as a versioned
	// snapshot, suitable for publishing to the inference server
	Params() Params

	// SetParams restores the learner's parameters from a snapshot,
	// e.g. from a checkpoint
	SetParams(Params) error
}

// Agent determines the implementation details of an algorithm
//
// An Agent is composed of a Learner, which updates parameters, and a
// Policy factory producing the inference-side half that chooses
// actions from snapshots of those parameters.
type Agent interface {
	Learner

	// Policy returns a new Policy backed by a copy of the agent's
	// current parameters
	Policy() Policy
}
