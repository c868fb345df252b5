// Package pipeline chains smoothing, masking, morphology, connected
// component filtering and kinetic region growing into a single
// segmentation run over a dynamic volume.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"petsegm/internal/models"
	"petsegm/pkg/cluster"
	"petsegm/pkg/config"
	"petsegm/pkg/morphology"
	"petsegm/pkg/regions"
	"petsegm/pkg/similarity"
	"petsegm/pkg/smoothing"
	"petsegm/pkg/visualization"
	"petsegm/pkg/volume"
)

// FirstClusterID is the id given to the first grown cluster. Id 0 is the
// background.
const FirstClusterID = 1

// Params holds the segmentation parameters.
type Params struct {
	// Config carries every tunable of the run. It is validated by
	// NewSegmenter.
	Config *config.Config

	// Logger receives step progress. slog.Default() is used when nil.
	Logger *slog.Logger

	// IntermediaryDir is where intermediary slices are saved when
	// Config.Output.SaveIntermediaryResults is set. Defaults to
	// <Config.Output.Dir>/intermediary.
	IntermediaryDir string
}

// Result holds every grid produced by a run along with the summaries.
type Result struct {
	// Smoothed is the dynamic image the clustering ran on; it is the input
	// grid itself when smoothing is disabled
	Smoothed *volume.Grid

	// AUC is the area-under-the-curve image of Smoothed
	AUC *volume.Grid

	// Mask is the final foreground mask after opening and small-region removal
	Mask *volume.Grid

	// Regions labels the connected components of Mask from regions.FirstLabel
	Regions *volume.Grid

	// Labels is the cluster label grid; 0 is background
	Labels *volume.Grid

	// ClusterIDs lists the non-empty clusters, one per row of Means
	ClusterIDs []int

	// Means holds the mean TAC of every cluster in ClusterIDs
	Means *mat.Dense

	// Stats are the region-growing counters
	Stats cluster.RunStats

	// Report is the serialisable summary of the run
	Report *models.Report
}

// Segmenter runs the segmentation pipeline:
// 1. Kinetic neighbourhood smoothing (optional)
// 2. Frame integration to an AUC image
// 3. Thresholding the AUC image at a fraction of its maximum
// 4. Morphological opening of the mask
// 5. Connected component labelling and small-region removal
// 6. Region growing over the remaining foreground
// 7. Cluster summaries and quality metrics
type Segmenter struct {
	params *Params
	logger *slog.Logger
	se     *volume.Grid

	// metrics stores the quality figures of the last run
	metrics models.Metrics
}

// NewSegmenter validates the configuration and returns a segmenter.
func NewSegmenter(params *Params) (*Segmenter, error) {
	if params == nil || params.Config == nil {
		return nil, fmt.Errorf("segmenter: missing configuration")
	}
	if err := params.Config.Validate(); err != nil {
		return nil, err
	}
	kind, err := morphology.ParseKind(params.Config.Mask.StructuringElement)
	if err != nil {
		return nil, err
	}
	se, err := morphology.NewStructuringElement(kind)
	if err != nil {
		return nil, err
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if params.IntermediaryDir == "" {
		params.IntermediaryDir = filepath.Join(params.Config.Output.Dir, "intermediary")
	}
	return &Segmenter{params: params, logger: logger, se: se}, nil
}

// Process runs the complete segmentation pipeline on a dynamic volume. The
// input grid is not modified.
func (s *Segmenter) Process(dynamic *volume.Grid) (*Result, error) {
	if err := dynamic.Validate(); err != nil {
		return nil, fmt.Errorf("input volume: %w", err)
	}
	cfg := s.params.Config
	started := time.Now()
	res := &Result{Report: models.NewReport(started)}

	if cfg.Output.SaveIntermediaryResults {
		if err := os.MkdirAll(s.params.IntermediaryDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create intermediary directory: %w", err)
		}
	}

	// Step 1: Smoothing
	res.Smoothed = dynamic
	if cfg.Smoothing.Enabled {
		s.logger.Info("Step 1: Smoothing TACs with their most similar neighbours",
			"dim", cfg.Smoothing.Dim, "neighbours", cfg.Smoothing.Neighbours)
		smoothed, err := smoothing.Similar(dynamic, cfg.Smoothing.Dim, cfg.Smoothing.Neighbours)
		if err != nil {
			return nil, fmt.Errorf("failed to smooth volume: %w", err)
		}
		res.Smoothed = smoothed
		s.saveIntermediaryResult("01_smoothed", smoothed, smoothed.Frames-1)
	} else {
		s.logger.Info("Step 1: Smoothing disabled")
	}

	// Step 2: Area under the curve
	s.logger.Info("Step 2: Integrating frames")
	auc, err := volume.TotalIntegral(res.Smoothed)
	if err != nil {
		return nil, fmt.Errorf("failed to integrate frames: %w", err)
	}
	res.AUC = auc
	s.saveIntermediaryResult("02_auc", auc, 0)

	// Step 3: Threshold
	maxAUC := auc.Max()
	low := cfg.Mask.ThresholdFraction * maxAUC
	s.logger.Info("Step 3: Thresholding AUC image", "max", maxAUC, "threshold", low)
	var mask *volume.Grid
	if maxAUC > 0 {
		mask, err = volume.ThresholdMask(auc, low, math.Inf(1))
	} else {
		mask, err = volume.NewLike(auc, 1)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to threshold AUC image: %w", err)
	}
	s.logger.Debug("Threshold mask", "voxels", volume.CountAbove(mask, 0))
	s.saveIntermediaryResult("03_mask", mask, 0)

	// Step 4: Opening
	if n := cfg.Mask.OpenIterations; n > 0 {
		s.logger.Info("Step 4: Opening mask", "element", cfg.Mask.StructuringElement, "iterations", n)
		changed, err := morphology.Open(mask, s.se, n)
		if err != nil {
			return nil, fmt.Errorf("failed to open mask: %w", err)
		}
		s.logger.Debug("Opened mask", "changed", changed, "voxels", volume.CountAbove(mask, 0))
		s.saveIntermediaryResult("04_opened", mask, 0)
	} else {
		s.logger.Info("Step 4: Opening disabled")
	}

	// Step 5: Connected regions
	s.logger.Info("Step 5: Labelling connected regions", "minSize", cfg.Mask.MinRegionSize)
	regionGrid, count, err := regions.Label(mask)
	if err != nil {
		return nil, fmt.Errorf("failed to label regions: %w", err)
	}
	removed := regions.RemoveSmall(regionGrid, count, cfg.Mask.MinRegionSize)
	if removed > 0 {
		s.logger.Debug("Removed small regions", "removed", removed, "kept", count-removed)
	}
	if mask, err = volume.Binarize(regionGrid); err != nil {
		return nil, err
	}
	res.Regions = regionGrid
	res.Mask = mask
	s.saveIntermediaryResult("05_regions", regionGrid, 0)

	// Step 6: Region growing
	s.logger.Info("Step 6: Growing clusters",
		"cvLimit", cfg.Segmentation.CVLimit, "ccLimit", cfg.Segmentation.CCLimit)
	labels, err := cluster.InitLabels(mask)
	if err != nil {
		return nil, err
	}
	grower, err := cluster.NewGrower(res.Smoothed, auc, labels, cfg.Segmentation.CVLimit, cfg.Segmentation.CCLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to set up region growing: %w", err)
	}
	stats, err := grower.Run(FirstClusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to grow clusters: %w", err)
	}
	res.Labels = labels
	res.Stats = stats
	s.logger.Info("Region growing finished",
		"grown", stats.Grown, "orphans", stats.Orphans, "singletons", stats.Singletons)
	s.saveIntermediaryResult("06_clusters", labels, 0)

	// Step 7: Summaries and metrics
	s.logger.Info("Step 7: Summarising clusters")
	s.summarise(res, grower, count-removed)

	res.Report.Duration = time.Since(started)
	res.Report.Metrics = s.metrics
	return res, nil
}

// summarise fills the cluster means, report clusters and segmenter metrics.
func (s *Segmenter) summarise(res *Result, grower *cluster.Grower, maskRegions int) {
	dyn := grower.Dynamic
	durations := dyn.FrameDurations()

	allMeans, counts := grower.ClusterMeans(res.Stats.IDs(FirstClusterID))
	var (
		ids     []int
		rows    []float64
		corrs   []float64
		weights []float64
	)
	for i, id := range res.Stats.IDs(FirstClusterID) {
		if counts[i] == 0 {
			continue
		}
		mean := mat.Row(nil, i, allMeans)

		var memberCorr []float64
		res.Labels.ForEach(func(c volume.Coord) {
			if int(res.Labels.At(c, 0)) == id {
				memberCorr = append(memberCorr, similarity.Pearson(dyn.TAC(c), mean))
			}
		})
		corr := stat.Mean(memberCorr, nil)

		ids = append(ids, id)
		rows = append(rows, mean...)
		corrs = append(corrs, corr)
		weights = append(weights, float64(counts[i]))
		res.Report.Clusters = append(res.Report.Clusters, models.ClusterSummary{
			ID:              id,
			Voxels:          counts[i],
			AUC:             floats.Dot(mean, durations),
			MeanCorrelation: corr,
			MeanTAC:         mean,
		})
	}

	res.ClusterIDs = ids
	if len(ids) > 0 {
		res.Means = mat.NewDense(len(ids), dyn.Frames, rows)
	}

	foreground := volume.CountAbove(res.Mask, 0)
	s.metrics = models.Metrics{
		Clusters:         len(ids),
		ForegroundVoxels: foreground,
		Coverage:         float64(foreground) / float64(res.Mask.Voxels()),
		Orphans:          res.Stats.Orphans,
		Singletons:       res.Stats.Singletons,
		MaskRegions:      maskRegions,
	}
	if len(corrs) > 0 {
		s.metrics.MeanIntraCorrelation = stat.Mean(corrs, weights)
	}
}

// GetMetrics returns the quality metrics of the last run
func (s *Segmenter) GetMetrics() models.Metrics {
	return s.metrics
}

// saveIntermediaryResult writes every plane of one frame of g under the
// intermediary directory. Failures are logged and otherwise ignored.
func (s *Segmenter) saveIntermediaryResult(stage string, g *volume.Grid, frame int) {
	if !s.params.Config.Output.SaveIntermediaryResults {
		return
	}
	viewer, err := visualization.NewViewer(g)
	if err != nil {
		s.logger.Warn("Failed to save intermediary result", "stage", stage, "error", err)
		return
	}
	dir := filepath.Join(s.params.IntermediaryDir, stage)
	if _, err := viewer.SaveSliceSequence("z", frame, dir); err != nil {
		s.logger.Warn("Failed to save intermediary result", "stage", stage, "error", err)
	}
}
