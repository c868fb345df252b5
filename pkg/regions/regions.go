// Package regions labels the 26-connected foreground components of a mask
// grid with a stack-based flood fill.
package regions

import (
	"errors"

	"petsegm/pkg/volume"
)

// FirstLabel is the label given to the first region found by Label. Values
// 0 and 1 are reserved for background and unlabelled foreground.
const FirstLabel = 2

// ErrReservedLabel is returned when a fill would write the foreground value
// itself, which never terminates.
var ErrReservedLabel = errors.New("regions: label 1 is reserved for unlabelled foreground")

// FloodFill replaces the connected run of voxels equal to 1 that contains
// seed with label and returns the number of voxels relabelled. A seed that is
// outside the grid or not equal to 1 yields 0.
//
// The frontier is an explicit volume.PixelStack; all 26 neighbours of every
// filled voxel are pushed and checked when popped.
func FloodFill(g *volume.Grid, seed volume.Coord, label float64) (int, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	if label == 1 {
		return 0, ErrReservedLabel
	}

	stack := volume.NewPixelStack(64)
	stack.Push(seed)
	filled := 0
	for {
		c, ok := stack.Pop()
		if !ok {
			break
		}
		if !g.Contains(c) || g.At(c, 0) != 1 {
			continue
		}
		g.Set(c, 0, label)
		filled++
		for _, d := range volume.Neighbours26 {
			stack.Push(c.Add(d))
		}
	}
	return filled, nil
}

// Label returns a single-frame grid in which every 26-connected foreground
// region of mask carries its own label, starting at FirstLabel in raster
// order of the first voxel met, along with the number of regions. Any
// positive mask value counts as foreground. The mask is not modified.
func Label(mask *volume.Grid) (*volume.Grid, int, error) {
	labels, err := volume.Binarize(mask)
	if err != nil {
		return nil, 0, err
	}

	count := 0
	var fillErr error
	labels.ForEach(func(c volume.Coord) {
		if fillErr != nil || labels.At(c, 0) != 1 {
			return
		}
		if _, fillErr = FloodFill(labels, c, float64(FirstLabel+count)); fillErr == nil {
			count++
		}
	})
	if fillErr != nil {
		return nil, 0, fillErr
	}
	return labels, count, nil
}

// Sizes returns the voxel count of every region of a grid produced by
// Label; entry i belongs to label FirstLabel+i.
func Sizes(labels *volume.Grid, count int) []int {
	sizes := make([]int, count)
	labels.ForEach(func(c volume.Coord) {
		i := int(labels.At(c, 0)) - FirstLabel
		if i >= 0 && i < count {
			sizes[i]++
		}
	})
	return sizes
}

// RemoveSmall clears every region with fewer than minSize voxels and returns
// the number of regions removed. Surviving regions keep their labels.
func RemoveSmall(labels *volume.Grid, count, minSize int) int {
	if minSize <= 1 {
		return 0
	}
	sizes := Sizes(labels, count)
	removed := 0
	for _, s := range sizes {
		if s < minSize {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}
	labels.ForEach(func(c volume.Coord) {
		i := int(labels.At(c, 0)) - FirstLabel
		if i >= 0 && i < count && sizes[i] < minSize {
			labels.Set(c, 0, 0)
		}
	})
	return removed
}
