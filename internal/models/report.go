// Package models holds the result types produced by a segmentation run.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ClusterSummary describes one cluster of the final label grid
type ClusterSummary struct {
	// ID is the cluster label
	ID int `yaml:"id"`

	// Voxels is the number of voxels carrying the label
	Voxels int `yaml:"voxels"`

	// AUC is the area under the cluster mean TAC
	AUC float64 `yaml:"auc"`

	// MeanCorrelation is the average Pearson correlation between the
	// member TACs and the cluster mean TAC
	MeanCorrelation float64 `yaml:"meanCorrelation"`

	// MeanTAC is the frame-by-frame cluster mean
	MeanTAC []float64 `yaml:"meanTAC,flow"`
}

// Metrics holds the quality figures of a segmentation
type Metrics struct {
	// Clusters is the number of non-empty foreground clusters
	Clusters int `yaml:"clusters"`

	// ForegroundVoxels is the size of the final mask
	ForegroundVoxels int `yaml:"foregroundVoxels"`

	// Coverage is the fraction of the volume inside the mask
	Coverage float64 `yaml:"coverage"`

	// MeanIntraCorrelation is the voxel-weighted mean of the per-cluster
	// MeanCorrelation values
	MeanIntraCorrelation float64 `yaml:"meanIntraCorrelation"`

	// Orphans and Singletons come straight from region growing
	Orphans    int `yaml:"orphans"`
	Singletons int `yaml:"singletons"`

	// MaskRegions is the number of connected mask regions kept
	MaskRegions int `yaml:"maskRegions"`
}

// Report is the document written at the end of a run
type Report struct {
	RunID    uuid.UUID        `yaml:"runID"`
	Started  time.Time        `yaml:"started"`
	Duration time.Duration    `yaml:"duration"`
	Metrics  Metrics          `yaml:"metrics"`
	Clusters []ClusterSummary `yaml:"clusters"`
}

// NewReport returns an empty report with a fresh run id
func NewReport(started time.Time) *Report {
	return &Report{
		RunID:   uuid.New(),
		Started: started,
	}
}
