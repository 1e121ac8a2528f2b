package timestep

import "gonum.org/v1/gonum/mat"

// Transition packages together a single environmental transition: taking
// an action in a state, receiving a reward, and arriving in the next
// state. A Discount of 0 denotes a terminal transition.
type Transition struct {
	State     mat.Vector
	Action    mat.Vector
	Reward    float64
	Discount  float64
	NextState mat.Vector
}

// NewTransition packages two consecutive timesteps and the action taken
// between them into a Transition
func NewTransition(step TimeStep, action mat.Vector,
	nextStep TimeStep) Transition {
	return Transition{
		State:     step.Observation,
		Action:    action,
		Reward:    nextStep.Reward,
		Discount:  nextStep.Discount,
		NextState: nextStep.Observation,
	}
}

// Terminal returns whether the transition ends an episode
func (t Transition) Terminal() bool {
	return t.Discount == 0.0
}
