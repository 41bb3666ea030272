package vdb

import "sort"

// Tree is the sparse voxel store of a grid: 8³ leaf nodes keyed by origin,
// with every voxel outside a leaf taking the background value.
//
// Tree is not safe for concurrent mutation; concurrent reads are fine.
type Tree[T any] struct {
	background T
	leaves     map[Coord]*LeafNode[T]
}

// NewTree creates an empty tree with the given background value.
func NewTree[T any](background T) *Tree[T] {
	return &Tree[T]{
		background: background,
		leaves:     make(map[Coord]*LeafNode[T]),
	}
}

// Background returns the value of voxels not stored in any leaf.
func (t *Tree[T]) Background() T { return t.background }

// leafFor returns the leaf containing c, creating it when create is set.
func (t *Tree[T]) leafFor(c Coord, create bool) *LeafNode[T] {
	origin := c.Mask(LeafDim)
	leaf, ok := t.leaves[origin]
	if !ok && create {
		leaf = newLeaf(origin, t.background)
		t.leaves[origin] = leaf
	}
	return leaf
}

// SetValueOn stores v at c and marks the voxel active.
func (t *Tree[T]) SetValueOn(c Coord, v T) {
	leaf := t.leafFor(c, true)
	i := leaf.CoordToOffset(c)
	leaf.values[i] = v
	leaf.mask.Set(i)
}

// SetValueOff stores v at c and marks the voxel inactive.
func (t *Tree[T]) SetValueOff(c Coord, v T) {
	leaf := t.leafFor(c, true)
	i := leaf.CoordToOffset(c)
	leaf.values[i] = v
	leaf.mask.Clear(i)
}

// SetActiveState changes the active state of c without touching its value.
func (t *Tree[T]) SetActiveState(c Coord, on bool) {
	leaf := t.leafFor(c, on)
	if leaf == nil {
		return
	}
	i := leaf.CoordToOffset(c)
	if on {
		leaf.mask.Set(i)
	} else {
		leaf.mask.Clear(i)
	}
}

// Fill sets every voxel of bbox to v with the given active state.
func (t *Tree[T]) Fill(bbox CoordBBox, v T, active bool) {
	if bbox.IsEmpty() {
		return
	}
	// Loops stop at Max before incrementing so a Max of math.MaxInt32
	// does not wrap.
	for z := bbox.Min.Z; ; z++ {
		for y := bbox.Min.Y; ; y++ {
			for x := bbox.Min.X; ; x++ {
				if active {
					t.SetValueOn(Coord{x, y, z}, v)
				} else {
					t.SetValueOff(Coord{x, y, z}, v)
				}
				if x == bbox.Max.X {
					break
				}
			}
			if y == bbox.Max.Y {
				break
			}
		}
		if z == bbox.Max.Z {
			break
		}
	}
}

// Value returns the value at c, active or not.
func (t *Tree[T]) Value(c Coord) T {
	leaf := t.leafFor(c, false)
	if leaf == nil {
		return t.background
	}
	return leaf.values[leaf.CoordToOffset(c)]
}

// IsValueOn reports whether the voxel at c is active.
func (t *Tree[T]) IsValueOn(c Coord) bool {
	leaf := t.leafFor(c, false)
	if leaf == nil {
		return false
	}
	return leaf.mask.IsOn(leaf.CoordToOffset(c))
}

// Leaf returns the leaf whose origin is origin, or nil.
func (t *Tree[T]) Leaf(origin Coord) *LeafNode[T] {
	return t.leaves[origin]
}

// LeafCount returns the number of allocated leaves.
func (t *Tree[T]) LeafCount() int { return len(t.leaves) }

// Leaves returns all leaves ordered by origin (Z, then Y, then X).
func (t *Tree[T]) Leaves() []*LeafNode[T] {
	out := make([]*LeafNode[T], 0, len(t.leaves))
	for _, l := range t.leaves {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].origin.Less(out[j].origin)
	})
	return out
}

// ActiveVoxelCount returns the total number of active voxels.
func (t *Tree[T]) ActiveVoxelCount() uint64 {
	var n uint64
	for _, l := range t.leaves {
		n += uint64(l.mask.CountOn())
	}
	return n
}

// EvalActiveVoxelBoundingBox returns the bounding box of all active voxels.
// The result is empty when the tree has no active voxel.
func (t *Tree[T]) EvalActiveVoxelBoundingBox() CoordBBox {
	b := EmptyBBox()
	for _, l := range t.leaves {
		if l.mask.IsOff() {
			continue
		}
		b.ExpandBBox(l.ActiveBBox())
	}
	return b
}

// PruneInactive drops leaves without active voxels. Their voxels revert to
// the background value.
func (t *Tree[T]) PruneInactive() int {
	n := 0
	for origin, l := range t.leaves {
		if l.mask.IsOff() {
			delete(t.leaves, origin)
			n++
		}
	}
	return n
}
