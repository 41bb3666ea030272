package voltex

import (
	"github.com/gogpu/voltex/compact"
	"github.com/gogpu/voltex/vdb"
)

// cubeGrid returns a float grid whose voxels (0,0,0)-(n-1,n-1,n-1) are
// active with value v.
func cubeGrid(n int32, v float32) *vdb.FloatGrid {
	g := vdb.NewFloatGrid(0)
	g.Tree().Fill(vdb.NewBBox(vdb.Coord{}, vdb.Coord{X: n - 1, Y: n - 1, Z: n - 1}), v, true)
	return g
}

// stubEncoder is a configurable compact.Encoder.
type stubEncoder struct {
	name        string
	unavailable bool
	float       func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error)
	vec3        func(*vdb.Vec3fGrid) (*compact.Buffer, error)

	floatCalls int
	precision  compact.Precision
}

func (e *stubEncoder) Name() string {
	if e.name == "" {
		return "stub"
	}
	return e.name
}

func (e *stubEncoder) Available() bool { return !e.unavailable }

func (e *stubEncoder) EncodeFloat(g *vdb.FloatGrid, p compact.Precision) (*compact.Buffer, error) {
	e.floatCalls++
	e.precision = p
	if e.float == nil {
		return nil, compact.ErrUnavailable
	}
	return e.float(g, p)
}

func (e *stubEncoder) EncodeVec3(g *vdb.Vec3fGrid) (*compact.Buffer, error) {
	if e.vec3 == nil {
		return nil, compact.ErrUnavailable
	}
	return e.vec3(g)
}
