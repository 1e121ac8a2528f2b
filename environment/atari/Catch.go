// Package atari implements the board-game style environment served
// under the "atari" game name: Catch. A ball falls from the top of a
// grid, and the agent slides a paddle along the bottom row to catch it.
package atari

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	env "sfneuman.com/stampede/environment"
	ts "sfneuman.com/stampede/timestep"
)

const (
	// Grid dimensions
	Rows int = 10
	Cols int = 5

	// Discrete actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2

	// Terminal rewards
	CatchReward float64 = 1.0
	MissReward  float64 = -1.0
)

// Catch implements the Catch game. The observation is the flattened
// game board, with a 1.0 at the ball's cell and a 1.0 at the paddle's
// cell in the bottom row, and 0.0 everywhere else.
//
// Actions are discrete and move the paddle:
//
//	Action	Meaning
//	  0		Move left
//	  1		Do nothing
//	  2		Move right
//
// Episodes last exactly Rows-1 steps: the ball falls one row per step
// and the episode ends when it reaches the paddle's row. The final
// reward is CatchReward if the paddle is under the ball and MissReward
// otherwise.
type Catch struct {
	rng       *rand.Rand
	discount  float64
	ballRow   int
	ballCol   int
	paddleCol int
	lastStep  ts.TimeStep
}

// New constructs a new Catch environment and returns it along with the
// first timestep of the environment
func New(seed uint64, discount float64) (*Catch, ts.TimeStep) {
	catch := &Catch{
		rng:      rand.New(rand.NewSource(seed)),
		discount: discount,
	}

	firstStep := catch.Reset()
	return catch, firstStep
}

// Reset resets the environment, dropping a new ball from a random
// column, and returns the starting timestep
func (c *Catch) Reset() ts.TimeStep {
	c.ballRow = 0
	c.ballCol = c.rng.Intn(Cols)
	c.paddleCol = Cols / 2

	startStep := ts.New(ts.First, 0, c.discount, c.observation(), 0)
	c.lastStep = startStep

	return startStep
}

// Step takes one environmental step given an action, returning the next
// timestep and whether that timestep is the last in the episode
func (c *Catch) Step(action mat.Vector) (ts.TimeStep, bool) {
	a := int(action.AtVec(0))
	if a < MinDiscreteAction || a > MaxDiscreteAction {
		panic(fmt.Sprintf("step: illegal action %v", a))
	}

	c.paddleCol += a - 1
	if c.paddleCol < 0 {
		c.paddleCol = 0
	} else if c.paddleCol >= Cols {
		c.paddleCol = Cols - 1
	}
	c.ballRow++

	stepType := ts.Mid
	reward := 0.0
	discount := c.discount
	if c.ballRow >= Rows-1 {
		stepType = ts.Last
		discount = 0.0
		if c.paddleCol == c.ballCol {
			reward = CatchReward
		} else {
			reward = MissReward
		}
	}

	step := ts.New(stepType, reward, discount, c.observation(),
		c.lastStep.Number+1)
	c.lastStep = step

	return step, step.Last()
}

// GetReward returns the reward for taking action a at timestep t
func (c *Catch) GetReward(t ts.TimeStep, _ mat.Vector) float64 {
	return t.Reward
}

// AtGoal returns whether the paddle is under the ball on the final row
func (c *Catch) AtGoal(_ mat.Matrix) bool {
	return c.ballRow >= Rows-1 && c.paddleCol == c.ballCol
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Catch) ObservationSpec() env.Spec {
	size := Rows * Cols
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
func (c *Catch) ActionSpec() env.Spec {
	return env.NewDiscreteAction(MaxDiscreteAction + 1)
}

// DiscountSpec returns the discount specification of the environment
func (c *Catch) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{0.0})
	upperBound := mat.NewVecDense(1, []float64{c.discount})

	return env.NewSpec(shape, env.Discount, lowerBound, upperBound,
		env.Continuous)
}

// observation constructs the flattened board observation
func (c *Catch) observation() mat.Vector {
	board := make([]float64, Rows*Cols)
	board[c.ballRow*Cols+c.ballCol] = 1.0
	board[(Rows-1)*Cols+c.paddleCol] = 1.0

	return mat.NewVecDense(Rows*Cols, board)
}
