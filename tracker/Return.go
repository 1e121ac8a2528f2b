package tracker

import (
	"sfneuman.com/stampede/replay"
)

// Return tracks the episodic return seen in the trajectory stream.
// Returns are accumulated separately per producing actor loop, since
// trajectories from different loops interleave arbitrarily in the
// queue. An episode ends either with a zero-discount step or, for
// episodes cut off by a step limit, with the next episode's first
// step; the final partial episode of a run is never saved.
type Return struct {
	rec   Recorder
	runID string

	running map[string]float64
	lengths map[string]int

	episodeReturns []float64
	episodeLengths []int
}

// NewReturn creates and returns a new *Return Tracker which records
// its aggregates under runID
func NewReturn(rec Recorder, runID string) *Return {
	return &Return{
		rec:     rec,
		runID:   runID,
		running: make(map[string]float64),
		lengths: make(map[string]int),
	}
}

// Track accumulates the rewards in one trajectory. A first step
// arriving while the loop's previous episode is still running
// finalizes that episode: step-limit cutoffs end episodes without a
// zero-discount step, so the boundary is only visible here.
func (r *Return) Track(traj replay.Trajectory) {
	id := traj.RunID
	for _, step := range traj.Steps {
		if step.First && r.lengths[id] > 0 {
			r.finish(id)
		}
		r.running[id] += step.Reward
		r.lengths[id]++

		if step.Discount == 0 {
			r.finish(id)
		}
	}
}

// finish records the running episode of one loop and resets its sums
func (r *Return) finish(id string) {
	r.episodeReturns = append(r.episodeReturns, r.running[id])
	r.episodeLengths = append(r.episodeLengths, r.lengths[id])
	r.running[id] = 0
	r.lengths[id] = 0
}

// Flush records the mean return and episode length over the episodes
// completed since the previous Flush. Flush with no completed episodes
// records nothing.
func (r *Return) Flush(step, frames int64) error {
	if len(r.episodeReturns) == 0 {
		return nil
	}

	var sumReturn float64
	var sumLength int
	for i := range r.episodeReturns {
		sumReturn += r.episodeReturns[i]
		sumLength += r.episodeLengths[i]
	}
	n := float64(len(r.episodeReturns))

	if err := r.rec.RecordMetric(r.runID, step, frames, "episode_return",
		sumReturn/n); err != nil {
		return err
	}
	if err := r.rec.RecordMetric(r.runID, step, frames, "episode_length",
		float64(sumLength)/n); err != nil {
		return err
	}
	if err := r.rec.RecordMetric(r.runID, step, frames, "episodes",
		n); err != nil {
		return err
	}

	r.episodeReturns = r.episodeReturns[:0]
	r.episodeLengths = r.episodeLengths[:0]
	return nil
}
