// Package smoothing implements a kinetics-aware neighbourhood filter for
// dynamic images: every voxel's TAC is replaced by the mean of the TACs in
// its neighbourhood that resemble it most.
package smoothing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"petsegm/pkg/similarity"
	"petsegm/pkg/volume"
)

// DefaultSmoothNr is the usual number of neighbours averaged per voxel.
const DefaultSmoothNr = 9

var (
	// ErrSmoothDim is returned for neighbourhood sizes other than 3 or 5.
	ErrSmoothDim = errors.New("smoothing: neighbourhood size must be 3 or 5")

	// ErrSmoothNr is returned when fewer than one neighbour is requested.
	ErrSmoothNr = errors.New("smoothing: neighbour count must be positive")
)

// candidate is one voxel of the neighbourhood under consideration.
type candidate struct {
	tac     []float64
	aucDiff float64
	mrl     int
	order   int
}

// Similar returns a new grid in which each voxel's TAC is the mean of the
// TACs of its smoothNr most similar neighbours inside a smoothDim³ cube
// (3 or 5) centred on it.
//
// Similarity is judged on two axes at once: the absolute difference of the
// areas under the curves and the maximum run length of the curve
// difference. Candidates are ranked on each axis separately and the two
// ranks are summed, so neither metric needs to share units with the other.
// No more than half of the candidates found inside the volume are averaged.
//
// The input grid is never modified and every output voxel is computed from
// input values only.
func Similar(g *volume.Grid, smoothDim, smoothNr int) (*volume.Grid, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if smoothDim != 3 && smoothDim != 5 {
		return nil, fmt.Errorf("%w: got %d", ErrSmoothDim, smoothDim)
	}
	if smoothNr < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrSmoothNr, smoothNr)
	}

	auc, err := volume.TotalIntegral(g)
	if err != nil {
		return nil, fmt.Errorf("integrating frames: %w", err)
	}

	out := g.Clone()
	cube := volume.Cube(smoothDim / 2)
	candidates := make([]candidate, 0, len(cube))

	g.ForEach(func(c volume.Coord) {
		centreTAC := g.TAC(c)
		centreAUC := auc.At(c, 0)

		candidates = candidates[:0]
		for _, d := range cube {
			n := c.Add(d)
			if !g.Contains(n) {
				continue
			}
			tac := g.TAC(n)
			candidates = append(candidates, candidate{
				tac:     tac,
				aucDiff: math.Abs(auc.At(n, 0) - centreAUC),
				mrl:     similarity.MaxRunLength(centreTAC, tac),
			})
		}

		rank(candidates)

		k := smoothNr
		if half := len(candidates) / 2; k > half {
			k = half
		}
		if k < 1 {
			k = 1
		}

		mean := out.TAC(c)
		for i := range mean {
			mean[i] = 0
		}
		for _, cand := range candidates[:k] {
			floats.Add(mean, cand.tac)
		}
		floats.Scale(1/float64(k), mean)
	})
	return out, nil
}

// rank sets each candidate's order to the number of other candidates that
// are strictly more similar in AUC plus the number strictly more similar in
// run length, then sorts ascending. Ties keep their enumeration order.
func rank(cands []candidate) {
	for i := range cands {
		order := 0
		for j := range cands {
			if j == i {
				continue
			}
			if cands[j].aucDiff < cands[i].aucDiff {
				order++
			}
			if cands[j].mrl < cands[i].mrl {
				order++
			}
		}
		cands[i].order = order
	}
	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].order < cands[b].order
	})
}
