// Package render draws environment observations as PNG frames. Actors
// that run with rendering enabled write frames for their first
// environment loop.
package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"gonum.org/v1/gonum/mat"
)

const cellSize = 48

// FrameWriter draws flattened board observations on a rows x cols grid
// and saves them as enumerated PNG files under a directory
type FrameWriter struct {
	dir       string
	rows      int
	cols      int
	frame     int
	cellShade color.Color
	gridShade color.Color
	backShade color.Color
}

// NewFrameWriter creates a FrameWriter drawing boards of the given
// dimensions into dir, creating dir if needed
func NewFrameWriter(dir string, rows, cols int) (*FrameWriter, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("newFrameWriter: illegal board size %vx%v",
			rows, cols)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newFrameWriter: %w", err)
	}

	return &FrameWriter{
		dir:       dir,
		rows:      rows,
		cols:      cols,
		cellShade: color.RGBA{R: 235, G: 203, B: 139, A: 255},
		gridShade: color.RGBA{R: 76, G: 86, B: 106, A: 255},
		backShade: color.RGBA{R: 46, G: 52, B: 64, A: 255},
	}, nil
}

// Write draws one observation and saves it as the next enumerated
// frame. Observations longer than rows*cols are drawn channel by
// channel, overlaid on the same board.
func (f *FrameWriter) Write(obs mat.Vector) error {
	dc := gg.NewContext(f.cols*cellSize, f.rows*cellSize)
	dc.SetColor(f.backShade)
	dc.Clear()

	boardSize := f.rows * f.cols
	for i := 0; i < obs.Len(); i++ {
		if obs.AtVec(i) == 0.0 {
			continue
		}
		cell := i % boardSize
		row := cell / f.cols
		col := cell % f.cols
		dc.DrawRectangle(float64(col*cellSize), float64(row*cellSize),
			cellSize, cellSize)
		dc.SetColor(f.cellShade)
		dc.Fill()
	}

	dc.SetColor(f.gridShade)
	dc.SetLineWidth(2.0)
	for r := 0; r <= f.rows; r++ {
		dc.DrawLine(0, float64(r*cellSize), float64(f.cols*cellSize),
			float64(r*cellSize))
	}
	for c := 0; c <= f.cols; c++ {
		dc.DrawLine(float64(c*cellSize), 0, float64(c*cellSize),
			float64(f.rows*cellSize))
	}
	dc.Stroke()

	name := filepath.Join(f.dir, fmt.Sprintf("frame%06d.png", f.frame))
	f.frame++

	return dc.SavePNG(name)
}
