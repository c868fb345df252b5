package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewReport(t *testing.T) {
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewReport(started)
	b := NewReport(started)

	assert.NotEqual(t, uuid.Nil, a.RunID)
	assert.NotEqual(t, a.RunID, b.RunID, "every run gets its own id")
	assert.Equal(t, started, a.Started)
}

func TestReportYAML(t *testing.T) {
	r := NewReport(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	r.Duration = 1500 * time.Millisecond
	r.Clusters = []ClusterSummary{{ID: 1, Voxels: 10, MeanTAC: []float64{1, 2}}}

	data, err := yaml.Marshal(r)
	require.NoError(t, err)
	out := string(data)

	assert.True(t, strings.Contains(out, "runID: "+r.RunID.String()), out)
	assert.Contains(t, out, "duration: 1.5s")
	assert.Contains(t, out, "meanTAC: [1, 2]")
}
