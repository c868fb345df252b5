package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"petsegm/internal/models"
	"petsegm/pkg/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "petsegm version "+Version)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "petsegm.yaml")
	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	_, err = execute(t, "config", "init")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("Debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("anything").String())
}

func TestSegmentCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Phantom.Planes, cfg.Phantom.Rows, cfg.Phantom.Cols = 8, 16, 16
	cfg.Phantom.Regions = []config.Region{
		{Name: "a", Centre: [3]int{4, 5, 5}, Radius: 2.5, Amplitude: 10, K1: 0.8, K2: 0.02},
		{Name: "b", Centre: [3]int{4, 11, 11}, Radius: 2.5, Amplitude: 40, K1: 1.5, K2: 0.4},
	}
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, configPath))

	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "segment", "--config", configPath, "--output", outDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Segmentation completed")

	data, err := os.ReadFile(filepath.Join(outDir, "report.yaml"))
	require.NoError(t, err)
	var report models.Report
	require.NoError(t, yaml.Unmarshal(data, &report))
	assert.GreaterOrEqual(t, report.Metrics.Clusters, 2)
	assert.Len(t, report.Clusters, report.Metrics.Clusters)

	for _, name := range []string{"clusters.png", filepath.Join("labels", "slice_z_000.jpg")} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestSegmentRejectsBadLogLevel(t *testing.T) {
	_, err := execute(t, "segment", "--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "loud")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
