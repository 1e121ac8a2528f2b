package render

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewFrameWriterRejectsIllegalBoards(t *testing.T) {
	if _, err := NewFrameWriter(t.TempDir(), 0, 5); err == nil {
		t.Error("no error for zero rows")
	}
	if _, err := NewFrameWriter(t.TempDir(), 5, -1); err == nil {
		t.Error("no error for negative columns")
	}
}

func TestWriteEnumeratesFrames(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	f, err := NewFrameWriter(dir, 3, 4)
	if err != nil {
		t.Fatalf("could not create frame writer: %v", err)
	}

	obs := mat.NewVecDense(12, nil)
	obs.SetVec(0, 1.0)
	obs.SetVec(7, 1.0)

	for i := 0; i < 3; i++ {
		if err := f.Write(obs); err != nil {
			t.Fatalf("could not write frame %v: %v", i, err)
		}
	}

	for _, name := range []string{"frame000000.png", "frame000001.png",
		"frame000002.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing frame %v: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("frame %v is empty", name)
		}
	}
}

func TestWriteOverlaysExtraChannels(t *testing.T) {
	f, err := NewFrameWriter(t.TempDir(), 2, 2)
	if err != nil {
		t.Fatalf("could not create frame writer: %v", err)
	}

	// Two stacked 2x2 channels draw on the same 2x2 board
	obs := mat.NewVecDense(8, []float64{1, 0, 0, 0, 0, 0, 0, 1})
	if err := f.Write(obs); err != nil {
		t.Errorf("could not write two-channel observation: %v", err)
	}
}
