package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petsegm/pkg/volume"
)

// block fills the cube [from, from+size) on every axis with v.
func block(g *volume.Grid, from, size int, v float64) {
	g.ForEach(func(c volume.Coord) {
		in := func(x int) bool { return x >= from && x < from+size }
		if in(c.Plane) && in(c.Row) && in(c.Col) {
			g.Set(c, 0, v)
		}
	})
}

func TestLabelTwoDisjointBlocks(t *testing.T) {
	mask, err := volume.New(6, 6, 6, 1)
	require.NoError(t, err)
	block(mask, 0, 2, 1)
	block(mask, 4, 2, 3.5)
	before := mask.Clone()
	foreground := volume.CountAbove(mask, 0)

	labels, count, err := Label(mask)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, before.Data, mask.Data, "input mask must not change")

	sizes := Sizes(labels, count)
	assert.Equal(t, []int{8, 8}, sizes)
	assert.Equal(t, foreground, sizes[0]+sizes[1])

	assert.Equal(t, float64(FirstLabel), labels.At(volume.Coord{}, 0))
	assert.Equal(t, float64(FirstLabel+1), labels.At(volume.Coord{Plane: 5, Row: 5, Col: 5}, 0))
	assert.Equal(t, 0.0, labels.At(volume.Coord{Plane: 3, Row: 3, Col: 3}, 0))
}

func TestLabelDiagonalContact(t *testing.T) {
	mask, err := volume.New(2, 2, 2, 1)
	require.NoError(t, err)
	mask.Set(volume.Coord{}, 0, 1)
	mask.Set(volume.Coord{Plane: 1, Row: 1, Col: 1}, 0, 1)

	_, count, err := Label(mask)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "corner contact is 26-connected")
}

func TestLabelEmptyMask(t *testing.T) {
	mask, err := volume.New(3, 3, 3, 1)
	require.NoError(t, err)

	labels, count, err := Label(mask)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, volume.CountAbove(labels, 0))

	_, _, err = Label(nil)
	assert.ErrorIs(t, err, volume.ErrNilGrid)
}

func TestFloodFill(t *testing.T) {
	g, err := volume.New(4, 4, 4, 1)
	require.NoError(t, err)
	block(g, 1, 2, 1)

	tests := []struct {
		name  string
		seed  volume.Coord
		label float64
		want  int
	}{
		{"background seed", volume.Coord{}, 5, 0},
		{"outside seed", volume.Coord{Plane: -1}, 5, 0},
		{"fills block", volume.Coord{Plane: 1, Row: 1, Col: 1}, 5, 8},
		{"already filled", volume.Coord{Plane: 2, Row: 2, Col: 2}, 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := FloodFill(g, tt.seed, tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
	assert.Equal(t, 5.0, g.At(volume.Coord{Plane: 2, Row: 1, Col: 2}, 0))

	_, err = FloodFill(g, volume.Coord{}, 1)
	assert.ErrorIs(t, err, ErrReservedLabel)
	_, err = FloodFill(nil, volume.Coord{}, 2)
	assert.ErrorIs(t, err, volume.ErrNilGrid)
}

func TestFloodFillLargeRegion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large fill in short mode")
	}
	g, err := volume.New(40, 40, 40, 1)
	require.NoError(t, err)
	for i := range g.Data {
		g.Data[i] = 1
	}
	n, err := FloodFill(g, volume.Coord{Plane: 20, Row: 20, Col: 20}, 2)
	require.NoError(t, err)
	assert.Equal(t, 40*40*40, n)
}

func TestRemoveSmall(t *testing.T) {
	mask, err := volume.New(6, 6, 6, 1)
	require.NoError(t, err)
	block(mask, 0, 3, 1)
	mask.Set(volume.Coord{Plane: 5, Row: 5, Col: 5}, 0, 1)

	labels, count, err := Label(mask)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	assert.Zero(t, RemoveSmall(labels, count, 1))
	assert.Zero(t, RemoveSmall(labels, count, 0))

	removed := RemoveSmall(labels, count, 2)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []int{27, 0}, Sizes(labels, count))
	assert.Equal(t, 0.0, labels.At(volume.Coord{Plane: 5, Row: 5, Col: 5}, 0))
	assert.Equal(t, float64(FirstLabel), labels.At(volume.Coord{Plane: 1, Row: 1, Col: 1}, 0))
}

func BenchmarkLabel(b *testing.B) {
	mask, _ := volume.New(32, 32, 32, 1)
	for i := range mask.Data {
		if i%3 != 0 {
			mask.Data[i] = 1
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Label(mask); err != nil {
			b.Fatal(err)
		}
	}
}
