// Package volume provides the dense 4-D voxel grid used throughout petsegm,
// together with coordinate helpers, neighbourhood offset tables and the
// frame integration and thresholding steps that feed the clustering code.
package volume

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNilGrid is returned when a required grid is missing.
	ErrNilGrid = errors.New("volume: nil grid")

	// ErrInvalidDimensions is returned for zero or negative grid dimensions
	// and for out-of-range frame selections.
	ErrInvalidDimensions = errors.New("volume: invalid dimensions")

	// ErrShapeMismatch is returned when two grids that must share a spatial
	// shape do not.
	ErrShapeMismatch = errors.New("volume: shape mismatch")
)

// FrameTime holds the acquisition interval of one time frame in seconds.
type FrameTime struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Grid represents a dynamic image volume: planes × rows × columns × frames.
//
// Data is stored voxel-major, so the time-activity curve of one voxel is a
// contiguous run of Frames values:
//
//	idx := ((plane*Rows+row)*Cols+col)*Frames + frame
//
// Mask, label and AUC grids are ordinary grids with Frames == 1.
type Grid struct {
	// Planes, Rows, Cols, Frames are the Z, Y, X and T dimensions
	Planes, Rows, Cols, Frames int

	// Data holds Planes*Rows*Cols*Frames values
	Data []float64

	// FrameTimes optionally gives the acquisition interval of each frame.
	// When nil every frame is treated as lasting one time unit.
	FrameTimes []FrameTime
}

// New allocates a zero-filled grid. All four dimensions must be at least 1.
func New(planes, rows, cols, frames int) (*Grid, error) {
	if planes < 1 || rows < 1 || cols < 1 || frames < 1 {
		return nil, fmt.Errorf("%w: %dx%dx%d, %d frames", ErrInvalidDimensions, planes, rows, cols, frames)
	}
	return &Grid{
		Planes: planes,
		Rows:   rows,
		Cols:   cols,
		Frames: frames,
		Data:   make([]float64, planes*rows*cols*frames),
	}, nil
}

// NewLike allocates a zero-filled grid with the spatial shape of g and the
// given number of frames.
func NewLike(g *Grid, frames int) (*Grid, error) {
	if g == nil {
		return nil, ErrNilGrid
	}
	return New(g.Planes, g.Rows, g.Cols, frames)
}

// Validate checks that the grid is usable by the processing packages.
func (g *Grid) Validate() error {
	if g == nil {
		return ErrNilGrid
	}
	if g.Planes < 1 || g.Rows < 1 || g.Cols < 1 || g.Frames < 1 {
		return fmt.Errorf("%w: %dx%dx%d, %d frames", ErrInvalidDimensions, g.Planes, g.Rows, g.Cols, g.Frames)
	}
	if len(g.Data) != g.Planes*g.Rows*g.Cols*g.Frames {
		return fmt.Errorf("%w: data length %d does not match dimensions", ErrInvalidDimensions, len(g.Data))
	}
	if g.FrameTimes != nil && len(g.FrameTimes) != g.Frames {
		return fmt.Errorf("%w: %d frame times for %d frames", ErrInvalidDimensions, len(g.FrameTimes), g.Frames)
	}
	return nil
}

// Voxels returns the number of spatial cells.
func (g *Grid) Voxels() int {
	return g.Planes * g.Rows * g.Cols
}

// Contains reports whether c lies inside the spatial bounds of the grid.
func (g *Grid) Contains(c Coord) bool {
	return c.Plane >= 0 && c.Plane < g.Planes &&
		c.Row >= 0 && c.Row < g.Rows &&
		c.Col >= 0 && c.Col < g.Cols
}

// Index returns the offset of the first frame of voxel c in Data.
func (g *Grid) Index(c Coord) int {
	return ((c.Plane*g.Rows+c.Row)*g.Cols + c.Col) * g.Frames
}

// At returns the value of voxel c in the given frame.
func (g *Grid) At(c Coord, frame int) float64 {
	return g.Data[g.Index(c)+frame]
}

// Set stores v in voxel c for the given frame.
func (g *Grid) Set(c Coord, frame int, v float64) {
	g.Data[g.Index(c)+frame] = v
}

// TAC returns the time-activity curve of voxel c. The returned slice aliases
// the grid data.
func (g *Grid) TAC(c Coord) []float64 {
	i := g.Index(c)
	return g.Data[i : i+g.Frames : i+g.Frames]
}

// SameShape reports whether g and o have the same spatial dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Planes == o.Planes && g.Rows == o.Rows && g.Cols == o.Cols
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	c := &Grid{
		Planes: g.Planes,
		Rows:   g.Rows,
		Cols:   g.Cols,
		Frames: g.Frames,
		Data:   make([]float64, len(g.Data)),
	}
	copy(c.Data, g.Data)
	if g.FrameTimes != nil {
		c.FrameTimes = make([]FrameTime, len(g.FrameTimes))
		copy(c.FrameTimes, g.FrameTimes)
	}
	return c
}

// FrameDurations returns the length of every frame; 1 for each frame when
// no frame times are attached.
func (g *Grid) FrameDurations() []float64 {
	d := make([]float64, g.Frames)
	for i := range d {
		if g.FrameTimes == nil {
			d[i] = 1
			continue
		}
		d[i] = g.FrameTimes[i].End - g.FrameTimes[i].Start
	}
	return d
}

// FrameMidTimes returns the centre of every frame, or the frame index when
// no frame times are attached.
func (g *Grid) FrameMidTimes() []float64 {
	m := make([]float64, g.Frames)
	for i := range m {
		if g.FrameTimes == nil {
			m[i] = float64(i)
			continue
		}
		m[i] = 0.5 * (g.FrameTimes[i].Start + g.FrameTimes[i].End)
	}
	return m
}

// Max returns the largest value stored in the grid.
func (g *Grid) Max() float64 {
	m := math.Inf(-1)
	for _, v := range g.Data {
		if v > m {
			m = v
		}
	}
	return m
}

// ForEach calls fn for every voxel in raster order: plane, then row, then
// column.
func (g *Grid) ForEach(fn func(c Coord)) {
	for z := 0; z < g.Planes; z++ {
		for y := 0; y < g.Rows; y++ {
			for x := 0; x < g.Cols; x++ {
				fn(Coord{Plane: z, Row: y, Col: x})
			}
		}
	}
}
