// Package morphology provides binary 3-D morphological operators on mask
// grids: erosion and dilation with a structuring element, mask conjunction
// and inversion, and the opening/closing composites built from them.
//
// Mask operations read and write the first frame of their grids.
package morphology

import (
	"errors"
	"fmt"
	"strings"

	"petsegm/pkg/volume"
)

// ErrStructuringElement is returned for structuring elements whose spatial
// dimensions are not all odd and at least 3.
var ErrStructuringElement = errors.New("morphology: invalid structuring element")

// Kind selects one of the predefined 3x3x3 structuring elements.
type Kind int

const (
	// Cube activates all 27 cells.
	Cube Kind = iota

	// Rounded activates the 19 cells that share a centre plane with the
	// origin on at least one axis, i.e. the cube without its corners.
	Rounded

	// Star activates the centre and its 6 face neighbours.
	Star
)

func (k Kind) String() string {
	switch k {
	case Cube:
		return "cube"
	case Rounded:
		return "rounded"
	case Star:
		return "star"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cube":
		return Cube, nil
	case "rounded":
		return Rounded, nil
	case "star":
		return Star, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrStructuringElement, s)
}

// NewStructuringElement builds a 3x3x3 structuring element of the given
// kind. Active cells hold 1.
func NewStructuringElement(kind Kind) (*volume.Grid, error) {
	se, err := volume.New(3, 3, 3, 1)
	if err != nil {
		return nil, err
	}
	active := 0
	se.ForEach(func(c volume.Coord) {
		// number of axes on which the cell is off-centre
		off := 0
		for _, v := range []int{c.Plane, c.Row, c.Col} {
			if v != 1 {
				off++
			}
		}
		var on bool
		switch kind {
		case Cube:
			on = true
		case Rounded:
			on = off < 3
		case Star:
			on = off <= 1
		}
		if on {
			se.Set(c, 0, 1)
			active++
		}
	})
	if active == 0 {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrStructuringElement, int(kind))
	}
	return se, nil
}

// offsets returns the active offsets of se relative to its centre.
func offsets(se *volume.Grid) ([]volume.Coord, error) {
	if err := se.Validate(); err != nil {
		return nil, fmt.Errorf("structuring element: %w", err)
	}
	for _, d := range []int{se.Planes, se.Rows, se.Cols} {
		if d < 3 || d%2 == 0 {
			return nil, fmt.Errorf("%w: dimensions %dx%dx%d", ErrStructuringElement, se.Planes, se.Rows, se.Cols)
		}
	}
	centre := volume.Coord{Plane: se.Planes / 2, Row: se.Rows / 2, Col: se.Cols / 2}
	var out []volume.Coord
	se.ForEach(func(c volume.Coord) {
		if se.At(c, 0) > 0 {
			out = append(out, volume.Coord{
				Plane: c.Plane - centre.Plane,
				Row:   c.Row - centre.Row,
				Col:   c.Col - centre.Col,
			})
		}
	})
	return out, nil
}
