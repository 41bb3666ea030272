package vdb

// ValueType identifies the value representation of a grid.
type ValueType uint8

const (
	ValueTypeUnknown ValueType = iota
	ValueTypeFloat             // float32
	ValueTypeDouble            // float64
	ValueTypeInt32             // int32
	ValueTypeInt64             // int64
	ValueTypeVec3f             // Vec3f
	ValueTypeVec3d             // Vec3d
	ValueTypeMask              // bool, value mirrors the active state
)

var valueTypeNames = [...]string{
	ValueTypeUnknown: "unknown",
	ValueTypeFloat:   "float",
	ValueTypeDouble:  "double",
	ValueTypeInt32:   "int32",
	ValueTypeInt64:   "int64",
	ValueTypeVec3f:   "vec3s",
	ValueTypeVec3d:   "vec3d",
	ValueTypeMask:    "mask",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

func valueTypeOf[T any]() ValueType {
	var zero T
	switch any(zero).(type) {
	case float32:
		return ValueTypeFloat
	case float64:
		return ValueTypeDouble
	case int32:
		return ValueTypeInt32
	case int64:
		return ValueTypeInt64
	case Vec3f:
		return ValueTypeVec3f
	case Vec3d:
		return ValueTypeVec3d
	case bool:
		return ValueTypeMask
	default:
		return ValueTypeUnknown
	}
}

// GridClass is a semantic hint about what a grid's values mean.
type GridClass uint8

const (
	GridClassUnknown GridClass = iota
	GridClassLevelSet
	GridClassFogVolume
	GridClassStaggered
)

func (c GridClass) String() string {
	switch c {
	case GridClassLevelSet:
		return "level set"
	case GridClassFogVolume:
		return "fog volume"
	case GridClassStaggered:
		return "staggered"
	default:
		return "unknown"
	}
}

// GridBase is the type-erased view of a grid. Consumers that need the
// values type-switch on the concrete *Grid[T].
type GridBase interface {
	Name() string
	Class() GridClass
	ValueType() ValueType
	Transform() *Map
	ActiveVoxelCount() uint64
	EvalActiveVoxelBoundingBox() CoordBBox
}

// Grid couples a sparse tree with its name, class and index-to-world map.
type Grid[T any] struct {
	name      string
	class     GridClass
	transform *Map
	tree      *Tree[T]
}

// Grids of the value types voltex converts.
type (
	FloatGrid = Grid[float32]
	Vec3fGrid = Grid[Vec3f]
	MaskGrid  = Grid[bool]
)

// NewGrid creates an empty grid with an identity transform.
func NewGrid[T any](background T) *Grid[T] {
	return &Grid[T]{
		transform: IdentityMap(),
		tree:      NewTree(background),
	}
}

// NewFloatGrid creates an empty scalar grid.
func NewFloatGrid(background float32) *FloatGrid { return NewGrid(background) }

// NewVec3fGrid creates an empty vector grid.
func NewVec3fGrid(background Vec3f) *Vec3fGrid { return NewGrid(background) }

// NewMaskGrid creates an empty topology-only grid.
func NewMaskGrid() *MaskGrid { return NewGrid(false) }

// Name returns the grid name.
func (g *Grid[T]) Name() string { return g.name }

// Class returns the grid class.
func (g *Grid[T]) Class() GridClass { return g.class }

// Transform returns the index-to-world map.
func (g *Grid[T]) Transform() *Map { return g.transform }

// Tree returns the underlying voxel tree.
func (g *Grid[T]) Tree() *Tree[T] { return g.tree }

// Background returns the value of unstored voxels.
func (g *Grid[T]) Background() T { return g.tree.background }

// ValueType reports the value representation of T.
func (g *Grid[T]) ValueType() ValueType { return valueTypeOf[T]() }

// ActiveVoxelCount returns the number of active voxels.
func (g *Grid[T]) ActiveVoxelCount() uint64 { return g.tree.ActiveVoxelCount() }

// SetName sets the grid name, e.g. "density".
func (g *Grid[T]) SetName(name string) *Grid[T] {
	g.name = name
	return g
}

// SetClass sets the grid class.
func (g *Grid[T]) SetClass(c GridClass) *Grid[T] {
	g.class = c
	return g
}

// SetTransform replaces the index-to-world map. A nil map resets it to
// identity.
func (g *Grid[T]) SetTransform(m *Map) *Grid[T] {
	if m == nil {
		m = IdentityMap()
	}
	g.transform = m
	return g
}

// EvalActiveVoxelBoundingBox returns the bounding box of the active voxels.
func (g *Grid[T]) EvalActiveVoxelBoundingBox() CoordBBox {
	return g.tree.EvalActiveVoxelBoundingBox()
}
