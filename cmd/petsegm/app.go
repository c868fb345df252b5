package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"petsegm/pkg/config"
	"petsegm/pkg/phantom"
	"petsegm/pkg/pipeline"
	"petsegm/pkg/visualization"
)

type segmentOptions struct {
	ConfigPath string
	OutputDir  string
	LogLevel   string
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func runSegment(out io.Writer, opts segmentOptions) error {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.OutputDir != "" {
		cfg.Output.Dir = opts.OutputDir
	}
	if opts.LogLevel != "" {
		cfg.Output.LogLevel = strings.ToLower(opts.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.Output.LogLevel)}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	logger.Info("Generating phantom",
		"planes", cfg.Phantom.Planes, "rows", cfg.Phantom.Rows, "cols", cfg.Phantom.Cols,
		"frames", cfg.Phantom.Frames, "regions", len(cfg.Phantom.Regions))
	dynamic, _, err := phantom.Generate(phantom.FromConfig(cfg))
	if err != nil {
		return fmt.Errorf("generate phantom: %w", err)
	}

	seg, err := pipeline.NewSegmenter(&pipeline.Params{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	res, err := seg.Process(dynamic)
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}

	reportPath := filepath.Join(cfg.Output.Dir, "report.yaml")
	data, err := yaml.Marshal(res.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if res.Means != nil {
		plotPath := filepath.Join(cfg.Output.Dir, "clusters.png")
		if err := visualization.PlotClusterCurves(res.Means, res.Smoothed.FrameMidTimes(), res.ClusterIDs, plotPath); err != nil {
			logger.Warn("Failed to plot cluster curves", "error", err)
		}
	}

	viewer, err := visualization.NewViewer(res.Labels)
	if err != nil {
		return err
	}
	if _, err := viewer.SaveSliceSequence("z", 0, filepath.Join(cfg.Output.Dir, "labels")); err != nil {
		logger.Warn("Failed to save label slices", "error", err)
	}

	m := seg.GetMetrics()
	fmt.Fprintf(out, "\nSegmentation completed in %.2f seconds\n", res.Report.Duration.Seconds())
	fmt.Fprintf(out, "Run ID: %s\n", res.Report.RunID)
	fmt.Fprintf(out, "Clusters: %d (orphans %d, singletons %d)\n", m.Clusters, m.Orphans, m.Singletons)
	fmt.Fprintf(out, "Foreground voxels: %d (%.1f%% of volume, %d regions)\n", m.ForegroundVoxels, 100*m.Coverage, m.MaskRegions)
	fmt.Fprintf(out, "Mean intra-cluster correlation: %.3f\n", m.MeanIntraCorrelation)
	fmt.Fprintf(out, "Report saved to: %s\n", reportPath)
	return nil
}
