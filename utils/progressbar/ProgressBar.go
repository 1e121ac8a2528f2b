// Package progressbar implements functionality of rendering a progress
// bar as text, for inclusion in log lines
package progressbar

import (
	"fmt"
	"strings"
	"time"
)

// ProgressBar renders progress toward a fixed budget. Unlike a
// terminal progress bar it never writes to the screen itself: String
// returns the rendered bar so callers can log it at whatever cadence
// suits them.
type ProgressBar struct {
	width     int
	max       int64
	current   int64
	startTime time.Time
}

// New returns a new ProgressBar that is width characters wide and
// reaches 100% once Add has accumulated max
func New(width int, max int64) *ProgressBar {
	return &ProgressBar{
		width:     width,
		max:       max,
		startTime: time.Now(),
	}
}

// Add advances the progress counter by n
func (p *ProgressBar) Add(n int64) {
	p.current += n
	if p.current > p.max {
		p.current = p.max
	}
}

// String renders the progress bar
func (p *ProgressBar) String() string {
	var bar strings.Builder
	bar.WriteString("|")

	progress := float64(p.current) / float64(p.max)
	filled := int(progress * float64(p.width))
	for i := 0; i < p.width; i++ {
		if i < filled {
			bar.WriteString("█")
		} else {
			bar.WriteString(" ")
		}
	}
	bar.WriteString(fmt.Sprintf("| [%.2f%% | elapsed: %v]", progress*100,
		time.Since(p.startTime).Truncate(time.Second)))
	return bar.String()
}
