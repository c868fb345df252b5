package smoothing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsegm/pkg/volume"
)

var fieldTAC = []float64{1, 2, 3, 4}

func newField(t *testing.T, planes, rows, cols int) *volume.Grid {
	t.Helper()
	g, err := volume.New(planes, rows, cols, len(fieldTAC))
	require.NoError(t, err)
	g.ForEach(func(c volume.Coord) {
		copy(g.TAC(c), fieldTAC)
	})
	return g
}

func TestSimilarValidation(t *testing.T) {
	g := newField(t, 2, 2, 2)

	_, err := Similar(g, 4, DefaultSmoothNr)
	assert.ErrorIs(t, err, ErrSmoothDim)
	_, err = Similar(g, 3, 0)
	assert.ErrorIs(t, err, ErrSmoothNr)
	_, err = Similar(nil, 3, DefaultSmoothNr)
	assert.ErrorIs(t, err, volume.ErrNilGrid)
}

func TestSimilarUniformVolumeIsUnchanged(t *testing.T) {
	for _, dim := range []int{3, 5} {
		g := newField(t, 4, 4, 4)
		out, err := Similar(g, dim, DefaultSmoothNr)
		require.NoError(t, err)
		if diff := cmp.Diff(g.Data, out.Data, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("dim %d: uniform volume changed (-want +got):\n%s", dim, diff)
		}
	}
}

func TestSimilarDoesNotMutateInput(t *testing.T) {
	g := newField(t, 3, 3, 3)
	centre := volume.Coord{Plane: 1, Row: 1, Col: 1}
	copy(g.TAC(centre), []float64{10, 2, 3, 4})
	g.FrameTimes = []volume.FrameTime{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 2, End: 3}, {Start: 3, End: 4}}
	before := g.Clone()

	out, err := Similar(g, 3, DefaultSmoothNr)
	require.NoError(t, err)
	if diff := cmp.Diff(before, g); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
	assert.Equal(t, g.FrameTimes, out.FrameTimes)
	assert.NotSame(t, g, out)
}

func TestSimilarSuppressesOutlier(t *testing.T) {
	g := newField(t, 3, 3, 3)
	centre := volume.Coord{Plane: 1, Row: 1, Col: 1}
	copy(g.TAC(centre), []float64{10, 2, 3, 4})

	out, err := Similar(g, 3, DefaultSmoothNr)
	require.NoError(t, err)

	// The outlier averages itself with eight field voxels.
	assert.InDeltaSlice(t, []float64{2, 2, 3, 4}, out.TAC(centre), 1e-12)

	// Field voxels never pick the outlier.
	out.ForEach(func(c volume.Coord) {
		if c == centre {
			return
		}
		assert.InDeltaSlice(t, fieldTAC, out.TAC(c), 1e-12, "%+v", c)
	})
}

func TestSimilarClipsNeighbourCountAtBoundary(t *testing.T) {
	// Single-frame 3x3x3 grid. The corner holds 0 and its seven in-bounds
	// neighbours hold 1..7 in enumeration order, so candidate v ranks v+1
	// places behind the corner itself. Everything else is far away.
	g, err := volume.New(3, 3, 3, 1)
	require.NoError(t, err)
	for i := range g.Data {
		g.Data[i] = 100
	}
	corner := volume.Coord{}
	v := 0.0
	for _, d := range volume.Cube(1) {
		n := corner.Add(d)
		if !g.Contains(n) {
			continue
		}
		g.Set(n, 0, v)
		v++
	}
	require.Equal(t, 8.0, v, "corner sees itself and seven neighbours")

	// 1000 requested, 8 candidates: only the best 4 (0, 1, 2, 3) are averaged.
	out, err := Similar(g, 3, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, out.At(corner, 0), 1e-12)

	// Asking for fewer than half keeps the requested count.
	out, err = Similar(g, 3, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, out.At(corner, 0), 1e-12)

	out, err = Similar(g, 5, 1000)
	require.NoError(t, err)
	require.Equal(t, g.Voxels()*g.Frames, len(out.Data))
}

func TestSimilarSingleVoxel(t *testing.T) {
	g := newField(t, 1, 1, 1)
	out, err := Similar(g, 3, DefaultSmoothNr)
	require.NoError(t, err)
	assert.Equal(t, fieldTAC, out.TAC(volume.Coord{}))
}

func TestRank(t *testing.T) {
	cands := []candidate{
		{aucDiff: 5, mrl: 3},
		{aucDiff: 0, mrl: 0},
		{aucDiff: 1, mrl: 4},
		{aucDiff: 1, mrl: 1},
	}
	rank(cands)

	got := make([]int, len(cands))
	for i, c := range cands {
		got[i] = c.order
	}
	// orders: {0,0}=0, {1,1}=1+1=2, {1,4}=1+3=4, {5,3}=3+2=5
	assert.Equal(t, []int{0, 2, 4, 5}, got)
	assert.Equal(t, 0.0, cands[0].aucDiff)
	assert.Equal(t, 1, cands[1].mrl)
}

func BenchmarkSimilar(b *testing.B) {
	g, _ := volume.New(12, 12, 12, 10)
	for i := range g.Data {
		g.Data[i] = float64(i % 17)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Similar(g, 3, DefaultSmoothNr); err != nil {
			b.Fatal(err)
		}
	}
}
