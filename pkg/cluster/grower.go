// Package cluster implements kinetic region growing over dynamic PET
// volumes. Voxels are grouped when both their area under the curve and the
// shape of their time-activity curve resemble those of a seed voxel.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"petsegm/pkg/similarity"
	"petsegm/pkg/volume"
)

const (
	// Unassigned marks a voxel that still waits for a cluster. Any label
	// below unassignedLimit is treated as unassigned.
	Unassigned = -1.0

	unassignedLimit = -0.1

	// Background is the cluster id given to voxels outside the mask.
	Background = 0
)

// ErrInvalidClusterID is returned for negative cluster ids.
var ErrInvalidClusterID = errors.New("cluster: invalid cluster id")

// Outcome reports what happened to the voxel a cluster expansion started at.
type Outcome int

const (
	// Rejected means the voxel lies outside the grid, is already labelled,
	// or failed a similarity test against the seed.
	Rejected Outcome = iota

	// Accepted means the voxel joined the cluster.
	Accepted
)

func (o Outcome) String() string {
	if o == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Grower holds the state shared by every step of region growing: the
// dynamic image, its AUC image, the label grid being filled in and the two
// acceptance limits.
type Grower struct {
	// Dynamic is the 4-D image whose TACs are compared
	Dynamic *volume.Grid

	// AUC holds one area under the curve per voxel (Frames == 1)
	AUC *volume.Grid

	// Labels is the cluster label grid, updated in place (Frames == 1)
	Labels *volume.Grid

	// CVLimit is the largest AUC coefficient of variation accepted
	CVLimit float64

	// CCLimit is the smallest Pearson correlation accepted
	CCLimit float64
}

// NewGrower validates the grids and returns a Grower over them.
func NewGrower(dynamic, auc, labels *volume.Grid, cvLimit, ccLimit float64) (*Grower, error) {
	for name, g := range map[string]*volume.Grid{"dynamic": dynamic, "auc": auc, "labels": labels} {
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("%s grid: %w", name, err)
		}
	}
	if !dynamic.SameShape(auc) || !dynamic.SameShape(labels) {
		return nil, fmt.Errorf("%w: dynamic %dx%dx%d, auc %dx%dx%d, labels %dx%dx%d",
			volume.ErrShapeMismatch,
			dynamic.Planes, dynamic.Rows, dynamic.Cols,
			auc.Planes, auc.Rows, auc.Cols,
			labels.Planes, labels.Rows, labels.Cols)
	}
	if auc.Frames != 1 || labels.Frames != 1 {
		return nil, fmt.Errorf("%w: auc and label grids must have a single frame", volume.ErrInvalidDimensions)
	}
	return &Grower{
		Dynamic: dynamic,
		AUC:     auc,
		Labels:  labels,
		CVLimit: cvLimit,
		CCLimit: ccLimit,
	}, nil
}

// InitLabels builds a label grid from a mask: foreground voxels (> 0) start
// unassigned, everything else belongs to the background cluster.
func InitLabels(mask *volume.Grid) (*volume.Grid, error) {
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	labels, err := volume.NewLike(mask, 1)
	if err != nil {
		return nil, err
	}
	mask.ForEach(func(c volume.Coord) {
		if mask.At(c, 0) > 0 {
			labels.Set(c, 0, Unassigned)
		} else {
			labels.Set(c, 0, Background)
		}
	})
	return labels, nil
}

// IsUnassigned reports whether a label value is the unassigned sentinel.
func IsUnassigned(label float64) bool {
	return label < unassignedLimit
}

func (g *Grower) unassigned(c volume.Coord) bool {
	return IsUnassigned(g.Labels.At(c, 0))
}

// FindSeed scans in raster order for the unassigned voxel with the largest
// AUC. The first voxel encountered wins ties. ok is false once every voxel
// has a label.
func (g *Grower) FindSeed() (seed volume.Coord, ok bool) {
	best := math.Inf(-1)
	g.Labels.ForEach(func(c volume.Coord) {
		if !g.unassigned(c) {
			return
		}
		if v := g.seedKey(c); !ok || v > best {
			best, seed, ok = v, c, true
		}
	})
	return seed, ok
}

// seedKey is the AUC of c used to order seeds. NaN ranks below every
// number.
func (g *Grower) seedKey(c volume.Coord) float64 {
	v := g.AUC.At(c, 0)
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// seedOrder lists the unassigned voxels by decreasing AUC with raster order
// breaking ties. Labels only ever move from unassigned to assigned during a
// run, so walking this list and skipping labelled voxels yields the same
// seeds as calling FindSeed repeatedly.
func (g *Grower) seedOrder() []volume.Coord {
	type keyed struct {
		c   volume.Coord
		auc float64
	}
	var cands []keyed
	g.Labels.ForEach(func(c volume.Coord) {
		if g.unassigned(c) {
			cands = append(cands, keyed{c: c, auc: g.seedKey(c)})
		}
	})
	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].auc > cands[b].auc
	})
	seeds := make([]volume.Coord, len(cands))
	for i, k := range cands {
		seeds[i] = k.c
	}
	return seeds
}

// accepts applies the three acceptance tests of test against seed.
func (g *Grower) accepts(test, seed volume.Coord) bool {
	if !g.Labels.Contains(test) || !g.unassigned(test) {
		return false
	}
	cv := similarity.AUCCoefficientOfVariation(g.AUC.At(test, 0), g.AUC.At(seed, 0))
	if cv > g.CVLimit {
		return false
	}
	return similarity.Pearson(g.Dynamic.TAC(seed), g.Dynamic.TAC(test)) >= g.CCLimit
}

// Expand tries to add test to cluster clusterID and, when it is accepted,
// keeps growing through its 26-neighbours. Every candidate is compared with
// the original seed rather than with the voxel that reached it, so the
// cluster cannot drift away from the seed's kinetics.
//
// Growth uses an explicit work-list instead of recursion. The outcome refers
// to test itself; joined counts all voxels labelled by this call.
func (g *Grower) Expand(clusterID int, test, seed volume.Coord) (outcome Outcome, joined int, err error) {
	if clusterID < 0 {
		return Rejected, 0, fmt.Errorf("%w: %d", ErrInvalidClusterID, clusterID)
	}
	if !g.Labels.Contains(seed) {
		return Rejected, 0, fmt.Errorf("%w: seed %+v outside grid", volume.ErrInvalidDimensions, seed)
	}
	if !g.accepts(test, seed) {
		return Rejected, 0, nil
	}

	id := float64(clusterID)
	stack := volume.NewPixelStack(64)
	g.Labels.Set(test, 0, id)
	joined = 1
	stack.Push(test)

	for {
		c, more := stack.Pop()
		if !more {
			break
		}
		for _, d := range volume.Neighbours26 {
			n := c.Add(d)
			if !g.accepts(n, seed) {
				continue
			}
			g.Labels.Set(n, 0, id)
			joined++
			stack.Push(n)
		}
	}
	return Accepted, joined, nil
}

// AllNeighboursLabelled reports whether every in-bounds 26-neighbour of c
// already carries a cluster label.
func (g *Grower) AllNeighboursLabelled(c volume.Coord) bool {
	for _, d := range volume.Neighbours26 {
		n := c.Add(d)
		if g.Labels.Contains(n) && g.unassigned(n) {
			return false
		}
	}
	return true
}

// FindBestNeighbourCluster returns the label of the in-bounds 26-neighbour
// whose TAC correlates best with the TAC of c. The neighbour's label is
// returned whatever its value and no acceptance tests are re-run. ok is
// false when c has no neighbour inside the grid.
func (g *Grower) FindBestNeighbourCluster(c volume.Coord) (clusterID int, ok bool) {
	return g.bestNeighbour(c, math.Inf(-1))
}

// bestNeighbour is FindBestNeighbourCluster restricted to neighbours whose
// label is at least minLabel.
func (g *Grower) bestNeighbour(c volume.Coord, minLabel float64) (clusterID int, ok bool) {
	best := math.Inf(-1)
	tac := g.Dynamic.TAC(c)
	for _, d := range volume.Neighbours26 {
		n := c.Add(d)
		if !g.Labels.Contains(n) || g.Labels.At(n, 0) < minLabel {
			continue
		}
		if r := similarity.Pearson(g.Dynamic.TAC(n), tac); !ok || r > best {
			best = r
			clusterID = int(math.Round(g.Labels.At(n, 0)))
			ok = true
		}
	}
	return clusterID, ok
}

// ClusterMean returns the frame-by-frame mean TAC over every voxel labelled
// clusterID, and how many voxels contributed. A count of 0 means the
// cluster is empty or the id is negative.
func (g *Grower) ClusterMean(clusterID int) ([]float64, int) {
	return Mean(g.Dynamic, g.Labels, clusterID)
}

// Mean is ClusterMean over an arbitrary dynamic image and label grid.
func Mean(dynamic, labels *volume.Grid, clusterID int) ([]float64, int) {
	mean := make([]float64, dynamic.Frames)
	if clusterID < 0 {
		// negative labels are sentinels, not clusters
		return mean, 0
	}
	n := 0
	id := float64(clusterID)
	labels.ForEach(func(c volume.Coord) {
		if labels.At(c, 0) != id {
			return
		}
		for f, v := range dynamic.TAC(c) {
			mean[f] += v
		}
		n++
	})
	if n == 0 {
		return mean, 0
	}
	for f := range mean {
		mean[f] /= float64(n)
	}
	return mean, n
}

// ClusterMeans returns one row per cluster id with its mean TAC, together
// with the voxel count of each cluster.
func (g *Grower) ClusterMeans(ids []int) (*mat.Dense, []int) {
	if len(ids) == 0 {
		return nil, nil
	}
	means := mat.NewDense(len(ids), g.Dynamic.Frames, nil)
	counts := make([]int, len(ids))
	for i, id := range ids {
		row, n := g.ClusterMean(id)
		means.SetRow(i, row)
		counts[i] = n
	}
	return means, counts
}
