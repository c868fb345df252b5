package phantom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"petsegm/pkg/config"
	"petsegm/pkg/volume"
)

func testParams() Params {
	return Params{
		Planes: 6, Rows: 8, Cols: 8, Frames: 5,
		FrameDuration: 2,
		Spheres: []Sphere{
			{Name: "a", Centre: volume.Coord{Plane: 3, Row: 4, Col: 4}, Radius: 1, Amplitude: 10, K1: 1, K2: 0.1},
		},
	}
}

func TestUptake(t *testing.T) {
	s := Sphere{Amplitude: 10, K1: 1, K2: 0}
	assert.Equal(t, 0.0, s.Uptake(0))
	assert.InDelta(t, 10.0, s.Uptake(50), 1e-9)

	washout := Sphere{Amplitude: 10, K1: 5, K2: 0.5}
	assert.Greater(t, washout.Uptake(1), washout.Uptake(8))
}

func TestGenerateNoiseFree(t *testing.T) {
	p := testParams()
	dyn, truth, err := Generate(p)
	require.NoError(t, err)
	require.NoError(t, dyn.Validate())

	require.Len(t, dyn.FrameTimes, p.Frames)
	for f, ft := range dyn.FrameTimes {
		assert.Equal(t, volume.FrameTime{Start: float64(2 * f), End: float64(2*f + 2)}, ft)
	}

	// centre plus 6 face neighbours fit in radius 1
	assert.Equal(t, 7, volume.CountAbove(truth, 0))

	centre := p.Spheres[0].Centre
	want := make([]float64, p.Frames)
	for f, tm := range dyn.FrameMidTimes() {
		want[f] = p.Spheres[0].Uptake(tm)
	}
	assert.InDeltaSlice(t, want, dyn.TAC(centre), 1e-12)
	assert.Equal(t, make([]float64, p.Frames), dyn.TAC(volume.Coord{}))
}

func TestGenerateNoise(t *testing.T) {
	p := testParams()
	p.Noise = 0.5
	p.Seed = 7

	a, _, err := Generate(p)
	require.NoError(t, err)
	b, _, err := Generate(p)
	require.NoError(t, err)
	if diff := cmp.Diff(a.Data, b.Data); diff != "" {
		t.Errorf("same seed produced different volumes:\n%s", diff)
	}

	// background voxels hold pure noise
	var bg []float64
	_, truth, _ := Generate(testParams())
	truth.ForEach(func(c volume.Coord) {
		if truth.At(c, 0) == 0 {
			bg = append(bg, a.TAC(c)...)
		}
	})
	mean, std := stat.MeanStdDev(bg, nil)
	assert.InDelta(t, 0, mean, 0.1)
	assert.InDelta(t, 0.5, std, 0.1)

	p.Seed = 8
	c, _, err := Generate(p)
	require.NoError(t, err)
	assert.NotEqual(t, a.Data, c.Data)
}

func TestGenerateOverlapLaterWins(t *testing.T) {
	p := testParams()
	p.Spheres = append(p.Spheres, Sphere{Name: "b", Centre: volume.Coord{Plane: 3, Row: 4, Col: 5}, Radius: 1, Amplitude: 3, K1: 1})

	_, truth, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, 2.0, truth.At(volume.Coord{Plane: 3, Row: 4, Col: 4}, 0))
	assert.Equal(t, 1.0, truth.At(volume.Coord{Plane: 3, Row: 4, Col: 3}, 0))
}

func TestGenerateInvalid(t *testing.T) {
	p := testParams()
	p.FrameDuration = 0
	_, _, err := Generate(p)
	assert.ErrorIs(t, err, ErrInvalidParams)

	p = testParams()
	p.Frames = 0
	_, _, err = Generate(p)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	p := FromConfig(cfg)

	assert.Equal(t, cfg.Phantom.Planes, p.Planes)
	require.Len(t, p.Spheres, len(cfg.Phantom.Regions))
	r := cfg.Phantom.Regions[1]
	assert.Equal(t, volume.Coord{Plane: r.Centre[0], Row: r.Centre[1], Col: r.Centre[2]}, p.Spheres[1].Centre)
	assert.Equal(t, r.K2, p.Spheres[1].K2)

	_, truth, err := Generate(p)
	require.NoError(t, err)
	for i := range p.Spheres {
		assert.Equal(t, float64(i+1), truth.At(p.Spheres[i].Centre, 0))
	}
}
