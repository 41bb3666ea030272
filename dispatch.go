package voltex

import "github.com/gogpu/voltex/vdb"

// variant describes how a recognized grid value type maps to pixels.
type variant struct {
	valueType vdb.ValueType
	channels  int
	denseType ImageDataType
}

var (
	floatVariant = variant{valueType: vdb.ValueTypeFloat, channels: 1, denseType: DataTypeFloat}
	vec3Variant  = variant{valueType: vdb.ValueTypeVec3f, channels: 3, denseType: DataTypeFloat3}
	maskVariant  = variant{valueType: vdb.ValueTypeMask, channels: 1, denseType: DataTypeFloat}
)

// gridOp is an operation specialized per recognized grid value type.
// Each method reports success.
type gridOp interface {
	float(g *vdb.FloatGrid, v variant) bool
	vec3(g *vdb.Vec3fGrid, v variant) bool
	mask(g *vdb.MaskGrid, v variant) bool
}

// dispatch resolves the concrete value type of g and runs the matching
// method of op. Grids of any other value type, and nil grids, return false
// without calling op.
func dispatch(g vdb.GridBase, op gridOp) bool {
	switch g := g.(type) {
	case *vdb.FloatGrid:
		return g != nil && op.float(g, floatVariant)
	case *vdb.Vec3fGrid:
		return g != nil && op.vec3(g, vec3Variant)
	case *vdb.MaskGrid:
		return g != nil && op.mask(g, maskVariant)
	default:
		return false
	}
}

// variantOp records the variant of a grid.
type variantOp struct {
	v variant
}

func (o *variantOp) float(_ *vdb.FloatGrid, v variant) bool { o.v = v; return true }
func (o *variantOp) vec3(_ *vdb.Vec3fGrid, v variant) bool  { o.v = v; return true }
func (o *variantOp) mask(_ *vdb.MaskGrid, v variant) bool   { o.v = v; return true }

// NumChannels returns the channel count of g's value type: 1 for float and
// mask grids, 3 for vector grids. The second result is false for
// unrecognized value types.
func NumChannels(g vdb.GridBase) (int, bool) {
	var op variantOp
	if !dispatch(g, &op) {
		return 0, false
	}
	return op.v.channels, true
}
