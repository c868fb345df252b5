package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// FrameIntegral integrates every voxel's TAC over frames first..last
// (inclusive) and returns a single-frame grid of areas under the curve.
// Each frame contributes value × frame duration.
func FrameIntegral(g *Grid, first, last int) (*Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if first < 0 || last >= g.Frames || first > last {
		return nil, fmt.Errorf("%w: frame range %d..%d of %d", ErrInvalidDimensions, first, last, g.Frames)
	}

	out, err := NewLike(g, 1)
	if err != nil {
		return nil, err
	}

	durations := g.FrameDurations()[first : last+1]
	g.ForEach(func(c Coord) {
		tac := g.TAC(c)[first : last+1]
		out.Set(c, 0, floats.Dot(tac, durations))
	})
	return out, nil
}

// TotalIntegral is FrameIntegral over all frames.
func TotalIntegral(g *Grid) (*Grid, error) {
	if g == nil {
		return nil, ErrNilGrid
	}
	return FrameIntegral(g, 0, g.Frames-1)
}

// ThresholdMask returns a single-frame mask with 1 where the first frame of
// g lies within [low, high] and 0 elsewhere.
func ThresholdMask(g *Grid, low, high float64) (*Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	mask, err := NewLike(g, 1)
	if err != nil {
		return nil, err
	}
	g.ForEach(func(c Coord) {
		v := g.At(c, 0)
		if v >= low && v <= high {
			mask.Set(c, 0, 1)
		}
	})
	return mask, nil
}

// Binarize returns a single-frame copy of g's first frame with every
// positive cell set to exactly 1 and everything else to 0.
func Binarize(g *Grid) (*Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	out, err := NewLike(g, 1)
	if err != nil {
		return nil, err
	}
	g.ForEach(func(c Coord) {
		if g.At(c, 0) > 0 {
			out.Set(c, 0, 1)
		}
	})
	return out, nil
}

// CountAbove returns the number of cells in the first frame greater than v.
func CountAbove(g *Grid, v float64) int {
	n := 0
	g.ForEach(func(c Coord) {
		if g.At(c, 0) > v {
			n++
		}
	})
	return n
}
