// Package dmlab implements the maze-navigation environment served
// under the "dmlab" game name. The agent walks a walled maze looking
// for a goal cell.
package dmlab

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	env "sfneuman.com/stampede/environment"
	ts "sfneuman.com/stampede/timestep"
)

const (
	// Maze dimensions
	Rows int = 7
	Cols int = 7

	// Discrete actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 3

	// Rewards
	GoalReward float64 = 10.0

	// Episode step limit
	EpisodeSteps int = 100
)

// walls is the fixed maze layout. A 1 denotes a wall cell.
var walls = [Rows][Cols]int{
	{0, 0, 0, 1, 0, 0, 0},
	{0, 1, 0, 1, 0, 1, 0},
	{0, 1, 0, 0, 0, 1, 0},
	{0, 1, 1, 1, 0, 1, 0},
	{0, 0, 0, 1, 0, 1, 0},
	{1, 1, 0, 1, 0, 1, 0},
	{0, 0, 0, 0, 0, 0, 0},
}

// Navigate implements goal-seeking in a fixed maze. The observation is
// two flattened boards concatenated: the first holds a 1.0 at the
// agent's cell, the second a 1.0 at the goal's cell.
//
// Actions are discrete and move the agent:
//
//	Action	Meaning
//	  0		Move up
//	  1		Move down
//	  2		Move left
//	  3		Move right
//
// Moves into walls or off the maze leave the agent in place. Reaching
// the goal ends the episode with GoalReward. Episodes are cut off after
// EpisodeSteps steps.
type Navigate struct {
	rng      *rand.Rand
	ender    env.Ender
	discount float64
	agentRow int
	agentCol int
	goalRow  int
	goalCol  int
	lastStep ts.TimeStep
}

// New constructs a new Navigate environment and returns it along with
// the first timestep of the environment
func New(seed uint64, discount float64) (*Navigate, ts.TimeStep) {
	maze := &Navigate{
		rng:      rand.New(rand.NewSource(seed)),
		ender:    env.NewStepLimit(EpisodeSteps),
		discount: discount,
	}

	firstStep := maze.Reset()
	return maze, firstStep
}

// Reset resets the environment, placing the agent and the goal on
// distinct random free cells, and returns the starting timestep
func (n *Navigate) Reset() ts.TimeStep {
	n.agentRow, n.agentCol = n.freeCell()
	for {
		n.goalRow, n.goalCol = n.freeCell()
		if n.goalRow != n.agentRow || n.goalCol != n.agentCol {
			break
		}
	}

	startStep := ts.New(ts.First, 0, n.discount, n.observation(), 0)
	n.lastStep = startStep

	return startStep
}

// Step takes one environmental step given an action, returning the next
// timestep and whether that timestep is the last in the episode
func (n *Navigate) Step(action mat.Vector) (ts.TimeStep, bool) {
	a := int(action.AtVec(0))
	if a < MinDiscreteAction || a > MaxDiscreteAction {
		panic(fmt.Sprintf("step: illegal action %v", a))
	}

	row, col := n.agentRow, n.agentCol
	switch a {
	case 0:
		row--
	case 1:
		row++
	case 2:
		col--
	case 3:
		col++
	}
	if row >= 0 && row < Rows && col >= 0 && col < Cols &&
		walls[row][col] == 0 {
		n.agentRow, n.agentCol = row, col
	}

	stepType := ts.Mid
	reward := 0.0
	discount := n.discount
	if n.agentRow == n.goalRow && n.agentCol == n.goalCol {
		stepType = ts.Last
		discount = 0.0
		reward = GoalReward
	}

	step := ts.New(stepType, reward, discount, n.observation(),
		n.lastStep.Number+1)
	n.ender.End(&step)
	n.lastStep = step

	return step, step.Last()
}

// GetReward returns the reward for taking action a at timestep t
func (n *Navigate) GetReward(t ts.TimeStep, _ mat.Vector) float64 {
	return t.Reward
}

// AtGoal returns whether the agent sits on the goal cell
func (n *Navigate) AtGoal(_ mat.Matrix) bool {
	return n.agentRow == n.goalRow && n.agentCol == n.goalCol
}

// ObservationSpec returns the observation specification of the
// environment
func (n *Navigate) ObservationSpec() env.Spec {
	size := 2 * Rows * Cols
	shape := mat.NewVecDense(size, nil)
	lowerBound := mat.NewVecDense(size, nil)

	upper := make([]float64, size)
	for i := range upper {
		upper[i] = 1.0
	}
	upperBound := mat.NewVecDense(size, upper)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Discrete)
}

// ActionSpec returns the action specification of the environment
func (n *Navigate) ActionSpec() env.Spec {
	return env.NewDiscreteAction(MaxDiscreteAction + 1)
}

// DiscountSpec returns the discount specification of the environment
func (n *Navigate) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{0.0})
	upperBound := mat.NewVecDense(1, []float64{n.discount})

	return env.NewSpec(shape, env.Discount, lowerBound, upperBound,
		env.Continuous)
}

// freeCell samples a uniformly random non-wall cell
func (n *Navigate) freeCell() (int, int) {
	for {
		row := n.rng.Intn(Rows)
		col := n.rng.Intn(Cols)
		if walls[row][col] == 0 {
			return row, col
		}
	}
}

// observation constructs the two-board observation
func (n *Navigate) observation() mat.Vector {
	boards := make([]float64, 2*Rows*Cols)
	boards[n.agentRow*Cols+n.agentCol] = 1.0
	boards[Rows*Cols+n.goalRow*Cols+n.goalCol] = 1.0

	return mat.NewVecDense(2*Rows*Cols, boards)
}
