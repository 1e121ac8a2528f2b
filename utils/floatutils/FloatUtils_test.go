package floatutils

import "testing"

func TestClip(t *testing.T) {
	cases := []struct {
		value, min, max, want float64
	}{
		{5, -1, 1, 1},
		{-5, -1, 1, -1},
		{0.5, -1, 1, 0.5},
		{-1, -1, 1, -1},
		{1, -1, 1, 1},
	}
	for _, c := range cases {
		if got := Clip(c.value, c.min, c.max); got != c.want {
			t.Errorf("Clip(%v, %v, %v) = %v, want %v", c.value, c.min,
				c.max, got, c.want)
		}
	}
}

func TestMin(t *testing.T) {
	if got := Min(3, -1, 2); got != -1 {
		t.Errorf("Min(3, -1, 2) = %v, want -1", got)
	}
	if got := Min(7); got != 7 {
		t.Errorf("Min(7) = %v, want 7", got)
	}
}

func TestMax(t *testing.T) {
	if got := Max(3, -1, 2); got != 3 {
		t.Errorf("Max(3, -1, 2) = %v, want 3", got)
	}
	if got := Max(-7); got != -7 {
		t.Errorf("Max(-7) = %v, want -7", got)
	}
}
