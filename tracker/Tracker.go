// Package tracker implements trackers, which record measurements of a
// training run. Unlike an online experiment, the learner never sees
// individual timesteps, only trajectories shipped by actors, so these
// trackers reconstruct episode statistics from the trajectory stream
// and periodically flush aggregates to the checkpoint store.
package tracker

import (
	"sfneuman.com/stampede/replay"
)

// Tracker tracks measurements from the trajectory stream. Track is
// called once per consumed trajectory, and Flush writes the aggregate
// since the previous Flush to durable storage.
type Tracker interface {
	Track(traj replay.Trajectory)
	Flush(step, frames int64) error
}

// Recorder persists one measurement of a named metric. It is
// implemented by the checkpoint store.
type Recorder interface {
	RecordMetric(runID string, step, frames int64, name string,
		value float64) error
}
