package vdb

// Node dimensions, as log2 of the per-axis voxel count.
const (
	LeafLog2Dim  = 3
	LowerLog2Dim = 4
	UpperLog2Dim = 5

	LeafDim  = 1 << LeafLog2Dim  // 8
	LowerDim = 1 << LowerLog2Dim // 16
	UpperDim = 1 << UpperLog2Dim // 32

	// Voxels spanned per axis by each node level.
	LeafTotalDim  = LeafDim
	LowerTotalDim = LowerDim * LeafTotalDim  // 128
	UpperTotalDim = UpperDim * LowerTotalDim // 4096

	LeafVoxels = LeafDim * LeafDim * LeafDim // 512
)

// LeafOffset returns the linear index of local coordinate (x, y, z),
// each in [0, LeafDim). Z varies fastest, matching OpenVDB leaf order.
func LeafOffset(x, y, z int) int {
	return x<<(2*LeafLog2Dim) | y<<LeafLog2Dim | z
}

// LeafLocal is the inverse of LeafOffset.
func LeafLocal(i int) (x, y, z int) {
	return i >> (2 * LeafLog2Dim), (i >> LeafLog2Dim) & (LeafDim - 1), i & (LeafDim - 1)
}

// LeafNode holds the values and active states of an 8³ block of voxels.
type LeafNode[T any] struct {
	origin Coord
	mask   Mask512
	values [LeafVoxels]T
}

func newLeaf[T any](origin Coord, background T) *LeafNode[T] {
	l := &LeafNode[T]{origin: origin}
	for i := range l.values {
		l.values[i] = background
	}
	return l
}

// Origin returns the index-space coordinate of local voxel (0, 0, 0).
func (l *LeafNode[T]) Origin() Coord { return l.origin }

// ValueMask returns the active-state mask. It must not be modified.
func (l *LeafNode[T]) ValueMask() *Mask512 { return &l.mask }

// Values returns the stored values, active or not, in LeafOffset order.
func (l *LeafNode[T]) Values() *[LeafVoxels]T { return &l.values }

// Value returns the value at linear offset i.
func (l *LeafNode[T]) Value(i int) T { return l.values[i] }

// IsOn reports whether the voxel at linear offset i is active.
func (l *LeafNode[T]) IsOn(i int) bool { return l.mask.IsOn(i) }

// ActiveCount returns the number of active voxels in the leaf.
func (l *LeafNode[T]) ActiveCount() int { return l.mask.CountOn() }

// OffsetToCoord returns the global coordinate of linear offset i.
func (l *LeafNode[T]) OffsetToCoord(i int) Coord {
	x, y, z := LeafLocal(i)
	return Coord{l.origin.X + int32(x), l.origin.Y + int32(y), l.origin.Z + int32(z)}
}

// CoordToOffset returns the linear offset of global coordinate c, which
// must lie inside the leaf.
func (l *LeafNode[T]) CoordToOffset(c Coord) int {
	return LeafOffset(int(c.X&(LeafDim-1)), int(c.Y&(LeafDim-1)), int(c.Z&(LeafDim-1)))
}

// BBox returns the full 8³ extent of the leaf.
func (l *LeafNode[T]) BBox() CoordBBox {
	return CoordBBox{
		Min: l.origin,
		Max: l.origin.Add(Coord{LeafDim - 1, LeafDim - 1, LeafDim - 1}),
	}
}

// ActiveBBox returns the bounding box of the active voxels, empty when the
// leaf has none.
func (l *LeafNode[T]) ActiveBBox() CoordBBox {
	b := EmptyBBox()
	l.mask.ForEachOn(func(i int) {
		b.Expand(l.OffsetToCoord(i))
	})
	return b
}
