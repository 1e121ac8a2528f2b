package tracker

import (
	"sfneuman.com/stampede/agent"
)

// Loss tracks the losses reported by learner update steps and flushes
// their means to the checkpoint store. It does not implement Tracker:
// losses come from update results, not from the trajectory stream.
type Loss struct {
	rec   Recorder
	runID string

	loss       float64
	policyLoss float64
	valueLoss  float64
	entropy    float64
	count      int
}

// NewLoss creates and returns a new *Loss tracker which records its
// aggregates under runID
func NewLoss(rec Recorder, runID string) *Loss {
	return &Loss{rec: rec, runID: runID}
}

// Track accumulates the losses of one update step
func (l *Loss) Track(res agent.StepResult) {
	l.loss += res.Loss
	l.policyLoss += res.PolicyLoss
	l.valueLoss += res.ValueLoss
	l.entropy += res.Entropy
	l.count++
}

// Flush records the mean losses over the update steps tracked since
// the previous Flush. Flush with no tracked steps records nothing.
func (l *Loss) Flush(step, frames int64) error {
	if l.count == 0 {
		return nil
	}
	n := float64(l.count)

	metrics := []struct {
		name  string
		value float64
	}{
		{"loss", l.loss / n},
		{"policy_loss", l.policyLoss / n},
		{"value_loss", l.valueLoss / n},
		{"entropy", l.entropy / n},
	}
	for _, m := range metrics {
		if err := l.rec.RecordMetric(l.runID, step, frames, m.name,
			m.value); err != nil {
			return err
		}
	}

	l.loss, l.policyLoss, l.valueLoss, l.entropy = 0, 0, 0, 0
	l.count = 0
	return nil
}
