// Package football implements the grid-pitch environment served under
// the "football" game name. The agent dribbles toward the right edge of
// the pitch and must shoot past a scripted keeper.
package football

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"

	env "sfneuman.com/stampede/environment"
	ts "sfneuman.com/stampede/timestep"
	"sfneuman.com/stampede/utils/matutils/tilecoder"
)

const (
	// Pitch dimensions
	Width  int = 9
	Height int = 5

	// Discrete actions
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 4

	// Rewards
	ScoreReward float64 = 1.0

	// The agent can only shoot from the attacking third of the pitch
	ShootingRange int = 6

	// Episode step limit
	EpisodeSteps int = 60

	// Tilings used to encode the positions for linear function
	// approximation
	Tilings     int  = 4
	TilesPerDim int  = 5
	IncludeBias bool = true
)

// Shootout implements a small one-on-one football drill. The agent
// starts on the left edge with the ball and must reach shooting range
// and shoot while the keeper is off its row. The keeper tracks the
// agent's row with one step of lag. A shot from range past the keeper
// scores and ends the episode with ScoreReward; a saved shot, a lost
// ball (keeper adjacent) or the step limit ends the episode with no
// reward.
//
// Actions are discrete:
//
//	Action	Meaning
//	  0		Move up
//	  1		Move down
//	  2		Move left
//	  3		Move right
//	  4		Shoot
//
// The underlying state holds the agent's x and y positions and the
// keeper's y position, each normalized to [0, 1]. Observations are the
// tile-coded encoding of that state, so that linear function
// approximators see sparse binary features.
type Shootout struct {
	rng      *rand.Rand
	ender    env.Ender
	coder    *tilecoder.TileCoder
	discount float64
	agentX   int
	agentY   int
	keeperY  int
	lastStep ts.TimeStep
}

// New constructs a new Shootout environment and returns it along with
// the first timestep of the environment
func New(seed uint64, discount float64) (*Shootout, ts.TimeStep) {
	bins := make([][]int, Tilings)
	for i := range bins {
		bins[i] = []int{TilesPerDim, TilesPerDim, TilesPerDim}
	}
	coder := tilecoder.New(
		mat.NewVecDense(3, nil),
		mat.NewVecDense(3, []float64{1.0, 1.0, 1.0}),
		bins, seed, IncludeBias,
	)

	pitch := &Shootout{
		rng:      rand.New(rand.NewSource(seed)),
		ender:    env.NewStepLimit(EpisodeSteps),
		coder:    coder,
		discount: discount,
	}

	firstStep := pitch.Reset()
	return pitch, firstStep
}

// Reset resets the environment and returns the starting timestep. The
// agent starts on a random row of the left edge; the keeper starts at
// the middle of the goal line.
func (s *Shootout) Reset() ts.TimeStep {
	s.agentX = 0
	s.agentY = s.rng.Intn(Height)
	s.keeperY = Height / 2

	startStep := ts.New(ts.First, 0, s.discount, s.observation(), 0)
	s.lastStep = startStep

	return startStep
}

// Step takes one environmental step given an action, returning the next
// timestep and whether that timestep is the last in the episode
func (s *Shootout) Step(action mat.Vector) (ts.TimeStep, bool) {
	a := int(action.AtVec(0))
	if a < MinDiscreteAction || a > MaxDiscreteAction {
		panic(fmt.Sprintf("step: illegal action %v", a))
	}

	stepType := ts.Mid
	reward := 0.0
	discount := s.discount
	prevAgentY := s.agentY

	switch a {
	case 0:
		if s.agentY > 0 {
			s.agentY--
		}
	case 1:
		if s.agentY < Height-1 {
			s.agentY++
		}
	case 2:
		if s.agentX > 0 {
			s.agentX--
		}
	case 3:
		if s.agentX < Width-1 {
			s.agentX++
		}
	case 4:
		// A shot always ends the episode; it only scores from range
		// with the keeper off the shooting row
		stepType = ts.Last
		discount = 0.0
		if s.agentX >= ShootingRange && s.keeperY != s.agentY {
			reward = ScoreReward
		}
	}

	// The keeper chases the row the agent was on before this step, so
	// a dodge opens a one-step shooting window
	if stepType != ts.Last {
		if s.keeperY < prevAgentY {
			s.keeperY++
		} else if s.keeperY > prevAgentY {
			s.keeperY--
		}

		// Ball lost to the keeper
		if s.agentX == Width-1 && s.keeperY == s.agentY {
			stepType = ts.Last
			discount = 0.0
		}
	}

	step := ts.New(stepType, reward, discount, s.observation(),
		s.lastStep.Number+1)
	s.ender.End(&step)
	s.lastStep = step

	return step, step.Last()
}

// GetReward returns the reward for taking action a at timestep t
func (s *Shootout) GetReward(t ts.TimeStep, _ mat.Vector) float64 {
	return t.Reward
}

// AtGoal returns whether the agent is in shooting range with the keeper
// off its row
func (s *Shootout) AtGoal(_ mat.Matrix) bool {
	return s.agentX >= ShootingRange && s.keeperY != s.agentY
}

// ObservationSpec returns the observation specification of the
// environment
func (s *Shootout) ObservationSpec() env.Spec {
	length := s.coder.VecLength()
	shape := mat.NewVecDense(length, nil)
	lowerBound := mat.NewVecDense(length, nil)

	ones := make([]float64, length)
	for i := range ones {
		ones[i] = 1.0
	}
	upperBound := mat.NewVecDense(length, ones)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Discrete)
}

// ActionSpec returns the action specification of the environment
func (s *Shootout) ActionSpec() env.Spec {
	return env.NewDiscreteAction(MaxDiscreteAction + 1)
}

// DiscountSpec returns the discount specification of the environment
func (s *Shootout) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{0.0})
	upperBound := mat.NewVecDense(1, []float64{s.discount})

	return env.NewSpec(shape, env.Discount, lowerBound, upperBound,
		env.Continuous)
}

// observation tile codes the normalized position state
func (s *Shootout) observation() mat.Vector {
	state := mat.NewVecDense(3, []float64{
		float64(s.agentX) / float64(Width-1),
		float64(s.agentY) / float64(Height-1),
		float64(s.keeperY) / float64(Height-1),
	})
	return s.coder.Encode(state)
}
