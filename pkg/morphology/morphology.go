package morphology

import (
	"fmt"
	"math"

	"petsegm/pkg/volume"
)

const zeroTolerance = 1e-12

// firstFrame copies frame 0 of g into a new single-frame grid.
func firstFrame(g *volume.Grid) *volume.Grid {
	out, _ := volume.NewLike(g, 1)
	g.ForEach(func(c volume.Coord) {
		out.Set(c, 0, g.At(c, 0))
	})
	return out
}

// Erode clears every foreground voxel (> 0) for which some in-bounds active
// neighbour of the structuring element is background (<= 0). Offsets that
// fall outside the volume are skipped rather than treated as background.
// Decisions are taken on the pre-erosion mask. It returns the number of
// voxels cleared.
func Erode(mask, se *volume.Grid) (int, error) {
	if err := mask.Validate(); err != nil {
		return 0, err
	}
	offs, err := offsets(se)
	if err != nil {
		return 0, err
	}

	orig := firstFrame(mask)
	cleared := 0
	orig.ForEach(func(c volume.Coord) {
		if orig.At(c, 0) <= 0 {
			return
		}
		lowest, found := math.Inf(1), false
		for _, d := range offs {
			n := c.Add(d)
			if !orig.Contains(n) {
				continue
			}
			if v := orig.At(n, 0); v < lowest {
				lowest = v
			}
			found = true
		}
		if found && lowest <= 0 {
			mask.Set(c, 0, 0)
			cleared++
		}
	})
	return cleared, nil
}

// Dilate sets every background voxel (<= 0) that has a foreground in-bounds
// active neighbour to the largest such neighbour value. Decisions are taken
// on the pre-dilation mask. It returns the number of voxels set.
func Dilate(mask, se *volume.Grid) (int, error) {
	if err := mask.Validate(); err != nil {
		return 0, err
	}
	offs, err := offsets(se)
	if err != nil {
		return 0, err
	}

	orig := firstFrame(mask)
	set := 0
	orig.ForEach(func(c volume.Coord) {
		if orig.At(c, 0) > 0 {
			return
		}
		highest := 0.0
		for _, d := range offs {
			n := c.Add(d)
			if !orig.Contains(n) {
				continue
			}
			if v := orig.At(n, 0); v > highest {
				highest = v
			}
		}
		if highest > 0 {
			mask.Set(c, 0, highest)
			set++
		}
	})
	return set, nil
}

// Conjunction replaces mask1 with the voxel-wise AND of mask1 and mask2:
// 1 where both are non-zero, 0 elsewhere.
func Conjunction(mask1, mask2 *volume.Grid) error {
	if err := mask1.Validate(); err != nil {
		return err
	}
	if err := mask2.Validate(); err != nil {
		return err
	}
	if !mask1.SameShape(mask2) {
		return fmt.Errorf("%w: %dx%dx%d and %dx%dx%d", volume.ErrShapeMismatch,
			mask1.Planes, mask1.Rows, mask1.Cols, mask2.Planes, mask2.Rows, mask2.Cols)
	}
	mask1.ForEach(func(c volume.Coord) {
		v := 0.0
		if math.Abs(mask1.At(c, 0)) > zeroTolerance && math.Abs(mask2.At(c, 0)) > zeroTolerance {
			v = 1
		}
		mask1.Set(c, 0, v)
	})
	return nil
}

// Invert turns zero voxels into 1 and everything else into 0.
func Invert(mask *volume.Grid) error {
	if err := mask.Validate(); err != nil {
		return err
	}
	mask.ForEach(func(c volume.Coord) {
		v := 0.0
		if math.Abs(mask.At(c, 0)) < zeroTolerance {
			v = 1
		}
		mask.Set(c, 0, v)
	})
	return nil
}

// Open applies n rounds of erosion followed by n rounds of dilation,
// removing structures thinner than the structuring element. It returns the
// total number of voxels changed.
func Open(mask, se *volume.Grid, n int) (int, error) {
	return compose(mask, se, n, Erode, Dilate)
}

// Close applies n rounds of dilation followed by n rounds of erosion,
// filling gaps narrower than the structuring element.
func Close(mask, se *volume.Grid, n int) (int, error) {
	return compose(mask, se, n, Dilate, Erode)
}

func compose(mask, se *volume.Grid, n int, first, second func(mask, se *volume.Grid) (int, error)) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative iteration count %d", volume.ErrInvalidDimensions, n)
	}
	total := 0
	for _, op := range []func(mask, se *volume.Grid) (int, error){first, second} {
		for i := 0; i < n; i++ {
			changed, err := op(mask, se)
			if err != nil {
				return total, err
			}
			total += changed
		}
	}
	return total, nil
}
