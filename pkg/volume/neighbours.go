package volume

// Coord addresses one voxel of a grid.
type Coord struct {
	Plane, Row, Col int
}

// Add returns c shifted by offset d.
func (c Coord) Add(d Coord) Coord {
	return Coord{Plane: c.Plane + d.Plane, Row: c.Row + d.Row, Col: c.Col + d.Col}
}

// Neighbours26 lists the offsets of the full 3x3x3 Moore neighbourhood,
// centre excluded, in plane/row/column order.
var Neighbours26 []Coord

func init() {
	for _, dz := range []int{-1, 0, 1} {
		for _, dy := range []int{-1, 0, 1} {
			for _, dx := range []int{-1, 0, 1} {
				if dz == 0 && dy == 0 && dx == 0 {
					continue
				}
				Neighbours26 = append(Neighbours26, Coord{Plane: dz, Row: dy, Col: dx})
			}
		}
	}
}

// Cube returns every offset of a (2r+1)^3 cube centred on the origin,
// the centre included, in plane/row/column order.
func Cube(r int) []Coord {
	if r < 0 {
		return nil
	}
	side := 2*r + 1
	offsets := make([]Coord, 0, side*side*side)
	for dz := -r; dz <= r; dz++ {
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				offsets = append(offsets, Coord{Plane: dz, Row: dy, Col: dx})
			}
		}
	}
	return offsets
}

// PixelStack is a growable LIFO of coordinates used as an explicit frontier
// for fills, so traversal depth is bounded by memory rather than by the
// goroutine stack.
type PixelStack struct {
	items []Coord
}

// NewPixelStack returns an empty stack with room for capacity entries.
func NewPixelStack(capacity int) *PixelStack {
	return &PixelStack{items: make([]Coord, 0, capacity)}
}

// Push adds c on top of the stack.
func (s *PixelStack) Push(c Coord) {
	s.items = append(s.items, c)
}

// Pop removes and returns the top coordinate. ok is false when the stack is
// empty.
func (s *PixelStack) Pop() (c Coord, ok bool) {
	n := len(s.items)
	if n == 0 {
		return Coord{}, false
	}
	c = s.items[n-1]
	s.items = s.items[:n-1]
	return c, true
}

// Len returns the number of stacked coordinates.
func (s *PixelStack) Len() int {
	return len(s.items)
}
