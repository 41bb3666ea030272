package vdb

import (
	"fmt"
	"math"
)

// Coord is an integer voxel coordinate in index space.
type Coord struct {
	X, Y, Z int32
}

// Add returns c translated by o.
func (c Coord) Add(o Coord) Coord {
	return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z}
}

// Sub returns c - o.
func (c Coord) Sub(o Coord) Coord {
	return Coord{c.X - o.X, c.Y - o.Y, c.Z - o.Z}
}

// Less orders coordinates by Z, then Y, then X.
func (c Coord) Less(o Coord) bool {
	if c.Z != o.Z {
		return c.Z < o.Z
	}
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Mask returns c with the low bits of each component cleared.
// Mask(LeafDim) yields the origin of the leaf containing c.
func (c Coord) Mask(dim int32) Coord {
	m := ^(dim - 1)
	return Coord{c.X & m, c.Y & m, c.Z & m}
}

func (c Coord) String() string {
	return fmt.Sprintf("[%d, %d, %d]", c.X, c.Y, c.Z)
}

// CoordBBox is an inclusive integer bounding box in index space.
type CoordBBox struct {
	Min, Max Coord
}

// EmptyBBox returns a box that contains nothing and grows with Expand.
func EmptyBBox() CoordBBox {
	return CoordBBox{
		Min: Coord{math.MaxInt32, math.MaxInt32, math.MaxInt32},
		Max: Coord{math.MinInt32, math.MinInt32, math.MinInt32},
	}
}

// NewBBox returns the box spanning min..max inclusive.
func NewBBox(min, max Coord) CoordBBox {
	return CoordBBox{Min: min, Max: max}
}

// IsEmpty reports whether the box contains no coordinate.
func (b CoordBBox) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Expand grows the box to include c.
func (b *CoordBBox) Expand(c Coord) {
	b.Min.X = min(b.Min.X, c.X)
	b.Min.Y = min(b.Min.Y, c.Y)
	b.Min.Z = min(b.Min.Z, c.Z)
	b.Max.X = max(b.Max.X, c.X)
	b.Max.Y = max(b.Max.Y, c.Y)
	b.Max.Z = max(b.Max.Z, c.Z)
}

// ExpandBBox grows the box to include o. Empty boxes are ignored.
func (b *CoordBBox) ExpandBBox(o CoordBBox) {
	if o.IsEmpty() {
		return
	}
	b.Expand(o.Min)
	b.Expand(o.Max)
}

// Intersect returns the overlap of b and o, which may be empty.
func (b CoordBBox) Intersect(o CoordBBox) CoordBBox {
	return CoordBBox{
		Min: Coord{max(b.Min.X, o.Min.X), max(b.Min.Y, o.Min.Y), max(b.Min.Z, o.Min.Z)},
		Max: Coord{min(b.Max.X, o.Max.X), min(b.Max.Y, o.Max.Y), min(b.Max.Z, o.Max.Z)},
	}
}

// Contains reports whether c lies inside the box.
func (b CoordBBox) Contains(c Coord) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Dim returns the per-axis extent max - min + 1. An empty box has zero extent.
func (b CoordBBox) Dim() Coord {
	if b.IsEmpty() {
		return Coord{}
	}
	return Coord{b.Max.X - b.Min.X + 1, b.Max.Y - b.Min.Y + 1, b.Max.Z - b.Min.Z + 1}
}

// Volume returns the number of voxels in the box.
func (b CoordBBox) Volume() int64 {
	d := b.Dim()
	return int64(d.X) * int64(d.Y) * int64(d.Z)
}

func (b CoordBBox) String() string {
	return fmt.Sprintf("%v -> %v", b.Min, b.Max)
}

// Vec3f is a single-precision 3-component vector, the value type of
// vector grids.
type Vec3f struct {
	X, Y, Z float32
}

// Vec3d is a double-precision 3-component vector used for world-space
// positions and voxel sizes.
type Vec3d struct {
	X, Y, Z float64
}
