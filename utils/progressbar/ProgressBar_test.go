package progressbar

import (
	"strings"
	"testing"
)

func TestProgressBarFills(t *testing.T) {
	p := New(10, 100)

	if !strings.Contains(p.String(), "0.00%") {
		t.Errorf("fresh bar renders %q, want 0%%", p.String())
	}

	p.Add(50)
	rendered := p.String()
	if !strings.Contains(rendered, "50.00%") {
		t.Errorf("half-full bar renders %q", rendered)
	}
	if strings.Count(rendered, "█") != 5 {
		t.Errorf("half-full bar has %v filled cells, want 5",
			strings.Count(rendered, "█"))
	}

	p.Add(50)
	if !strings.Contains(p.String(), "100.00%") {
		t.Errorf("full bar renders %q", p.String())
	}
}

func TestProgressBarSaturates(t *testing.T) {
	p := New(4, 10)
	p.Add(1000)

	if !strings.Contains(p.String(), "100.00%") {
		t.Errorf("overfilled bar renders %q, want 100%%", p.String())
	}
}
