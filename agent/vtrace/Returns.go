package vtrace

import "math"

// Returns holds the corrected value targets and policy-gradient
// advantages of one trajectory
type Returns struct {
	// VS are the corrected value targets, one per step
	VS []float64

	// PGAdvantages are the importance-weighted policy-gradient
	// advantages, one per step
	PGAdvantages []float64
}

// ComputeReturns calculates importance-weighted value targets and
// advantages for one trajectory of length T.
//
// The inputs are per-step: log probabilities of the taken actions under
// the target (current) and behaviour policies, discounts (0 at
// terminal steps), rewards, and value estimates under the current
// parameters. bootstrapValue is the value estimate of the observation
// following the final step.
//
// Importance ratios are clipped at rhoBar for the value targets and
// the advantages, and at cBar (scaled by lambda) for the trace
// coefficients. The recursion runs backwards over the trajectory:
//
//	delta_t = rho_t * (r_t + gamma_t*V_{t+1} - V_t)
//	vs_t    = V_t + delta_t + gamma_t*c_t*(vs_{t+1} - V_{t+1})
//
// and the advantage at step t is rho_t*(r_t + gamma_t*vs_{t+1} - V_t).
func ComputeReturns(targetLogProbs, behaviourLogProbs, discounts, rewards,
	values []float64, bootstrapValue, rhoBar, cBar, lambda float64) Returns {
	steps := len(rewards)

	rhos := make([]float64, steps)
	cs := make([]float64, steps)
	for t := 0; t < steps; t++ {
		rho := math.Exp(targetLogProbs[t] - behaviourLogProbs[t])
		rhos[t] = math.Min(rhoBar, rho)
		cs[t] = lambda * math.Min(cBar, rho)
	}

	// nextValue(t) is V_{t+1}, bootstrapping past the final step
	nextValue := func(t int) float64 {
		if t == steps-1 {
			return bootstrapValue
		}
		return values[t+1]
	}

	vs := make([]float64, steps)
	acc := 0.0 // vs_{t+1} - V_{t+1}
	for t := steps - 1; t >= 0; t-- {
		delta := rhos[t] * (rewards[t] + discounts[t]*nextValue(t) -
			values[t])
		acc = delta + discounts[t]*cs[t]*acc
		vs[t] = values[t] + acc
	}

	advantages := make([]float64, steps)
	for t := 0; t < steps; t++ {
		nextVS := bootstrapValue
		if t < steps-1 {
			nextVS = vs[t+1]
		}
		advantages[t] = rhos[t] * (rewards[t] + discounts[t]*nextVS -
			values[t])
	}

	return Returns{VS: vs, PGAdvantages: advantages}
}
