// Package visualization renders grids and cluster curves for inspection:
// orthogonal slices as greyscale JPEGs and cluster mean TACs as PNG charts.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"petsegm/pkg/volume"
)

// Viewer extracts and saves 2-D views of a volume grid.
type Viewer struct {
	// grid is the volume being viewed
	grid *volume.Grid

	// low and high are the value range mapped onto black and white, per frame
	low, high []float64
}

// NewViewer creates a viewer for g. Intensities of every frame are scaled
// independently from that frame's minimum (black) to its maximum (white).
func NewViewer(g *volume.Grid) (*Viewer, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	v := &Viewer{
		grid: g,
		low:  make([]float64, g.Frames),
		high: make([]float64, g.Frames),
	}
	for f := 0; f < g.Frames; f++ {
		v.low[f], v.high[f] = math.Inf(1), math.Inf(-1)
	}
	g.ForEach(func(c volume.Coord) {
		for f, val := range g.TAC(c) {
			v.low[f] = math.Min(v.low[f], val)
			v.high[f] = math.Max(v.high[f], val)
		}
	})
	return v, nil
}

// gray maps val of the given frame to a 16-bit intensity.
func (v *Viewer) gray(val float64, frame int) color.Gray16 {
	span := v.high[frame] - v.low[frame]
	if span <= 0 {
		return color.Gray16{}
	}
	n := (val - v.low[frame]) / span
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, n*65535)))}
}

// ExtractSlice extracts a 2D slice of one frame along the specified axis:
// "x" fixes the column (image is planes × rows), "y" fixes the row
// (columns × planes) and "z" fixes the plane (columns × rows).
func (v *Viewer) ExtractSlice(axis string, position, frame int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	if frame < 0 || frame >= v.grid.Frames {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", frame, v.grid.Frames)
	}
	g := v.grid

	var img *image.Gray16
	switch axis {
	case "x", "X":
		if position >= g.Cols {
			return nil, fmt.Errorf("position %d exceeds width %d", position, g.Cols)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Planes, g.Rows))
		for y := 0; y < g.Rows; y++ {
			for z := 0; z < g.Planes; z++ {
				img.SetGray16(z, y, v.gray(g.At(volume.Coord{Plane: z, Row: y, Col: position}, frame), frame))
			}
		}

	case "y", "Y":
		if position >= g.Rows {
			return nil, fmt.Errorf("position %d exceeds height %d", position, g.Rows)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Cols, g.Planes))
		for z := 0; z < g.Planes; z++ {
			for x := 0; x < g.Cols; x++ {
				img.SetGray16(x, z, v.gray(g.At(volume.Coord{Plane: z, Row: position, Col: x}, frame), frame))
			}
		}

	case "z", "Z":
		if position >= g.Planes {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, g.Planes)
		}
		img = image.NewGray16(image.Rect(0, 0, g.Cols, g.Rows))
		for y := 0; y < g.Rows; y++ {
			for x := 0; x < g.Cols; x++ {
				img.SetGray16(x, y, v.gray(g.At(volume.Coord{Plane: position, Row: y, Col: x}, frame), frame))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves every slice of one frame along the
// specified axis and returns how many files were written.
func (v *Viewer) SaveSliceSequence(axis string, frame int, outputDir string) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.grid.Cols
	case "y", "Y":
		maxPos = v.grid.Rows
	case "z", "Z":
		maxPos = v.grid.Planes
	default:
		return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos, frame)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return maxPos, nil
}
