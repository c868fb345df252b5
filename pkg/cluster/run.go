package cluster

import (
	"fmt"

	"petsegm/pkg/volume"
)

// RunStats summarises one complete region-growing pass.
type RunStats struct {
	// Grown is the number of clusters started from a seed
	Grown int

	// Orphans counts voxels merged into a neighbouring cluster because they
	// were enclosed by labelled voxels when they came up as a seed
	Orphans int

	// Singletons counts seeds rejected by their own tests, which only
	// happens with degenerate limits (e.g. CCLimit > 1)
	Singletons int

	// NextID is the first cluster id not handed out
	NextID int
}

// IDs returns the cluster ids from firstID up to, not including, NextID.
func (s RunStats) IDs(firstID int) []int {
	if s.NextID <= firstID {
		return nil
	}
	ids := make([]int, 0, s.NextID-firstID)
	for id := firstID; id < s.NextID; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Run labels every unassigned voxel, handing out cluster ids from firstID.
//
// Seeds are taken in decreasing AUC order, the order FindSeed would return
// them in, from a list sorted once up front. Each seed is handled by place.
// Run returns once no unassigned voxel is left.
func (g *Grower) Run(firstID int) (RunStats, error) {
	if firstID < 0 {
		return RunStats{}, fmt.Errorf("%w: %d", ErrInvalidClusterID, firstID)
	}

	stats := RunStats{NextID: firstID}
	for _, seed := range g.seedOrder() {
		if !g.unassigned(seed) {
			continue
		}
		if err := g.place(seed, firstID, &stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// place labels one unassigned seed:
//  1. A seed already enclosed by labelled voxels could only ever form a
//     one-voxel cluster, so it joins its best-correlated neighbour instead.
//     Neighbours carrying a grown id (>= firstID) are preferred over the
//     background.
//  2. Otherwise the seed grows a new cluster with Expand and the id advances.
//  3. A seed that fails its own tests is labelled on its own so every call
//     makes progress.
func (g *Grower) place(seed volume.Coord, firstID int, stats *RunStats) error {
	if g.AllNeighboursLabelled(seed) {
		id, found := g.bestNeighbour(seed, float64(firstID))
		if !found {
			id, found = g.FindBestNeighbourCluster(seed)
		}
		if found && id >= 0 {
			g.Labels.Set(seed, 0, float64(id))
			stats.Orphans++
			return nil
		}
	}

	outcome, _, err := g.Expand(stats.NextID, seed, seed)
	if err != nil {
		return err
	}
	if outcome == Rejected {
		g.Labels.Set(seed, 0, float64(stats.NextID))
		stats.Singletons++
	} else {
		stats.Grown++
	}
	stats.NextID++
	return nil
}

// Unlabelled returns the coordinates still carrying the unassigned
// sentinel.
func (g *Grower) Unlabelled() []volume.Coord {
	var out []volume.Coord
	g.Labels.ForEach(func(c volume.Coord) {
		if g.unassigned(c) {
			out = append(out, c)
		}
	})
	return out
}
