package visualization

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotClusterCurves draws one line per row of means (a cluster mean TAC)
// against the frame mid times and saves the chart to path. The image
// format follows the file extension (png, svg, pdf, ...).
func PlotClusterCurves(means *mat.Dense, times []float64, ids []int, path string) error {
	if means == nil {
		return fmt.Errorf("no cluster curves to plot")
	}
	rows, cols := means.Dims()
	if cols != len(times) {
		return fmt.Errorf("%d frame times for %d frames", len(times), cols)
	}
	if rows != len(ids) {
		return fmt.Errorf("%d cluster ids for %d curves", len(ids), rows)
	}

	p := plot.New()
	p.Title.Text = "Cluster mean time-activity curves"
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Activity"

	for i := 0; i < rows; i++ {
		pts := make(plotter.XYs, cols)
		for f := 0; f < cols; f++ {
			pts[f] = plotter.XY{X: times[f], Y: means.At(i, f)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("cluster %d: %w", ids[i], err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("cluster %d", ids[i]), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
