package vdb

import (
	"errors"
	"math"
)

// ErrNotAffine is returned when a matrix has a projective component.
var ErrNotAffine = errors.New("vdb: matrix is not affine")

// Map is the affine transform placing a grid's index space in world space.
//
// The matrix uses row-vector layout: a point transforms as
//
//	[x y z 1] · M
//
// so the translation sits in row 3 and column 3 is (0, 0, 0, 1).
type Map struct {
	mat [4][4]float64
}

// IdentityMap returns the map with unit voxels at the world origin.
func IdentityMap() *Map {
	return NewLinearMap(1)
}

// NewLinearMap returns a uniform scale map with the given voxel size.
func NewLinearMap(voxelSize float64) *Map {
	return NewScaleTranslateMap(Vec3d{voxelSize, voxelSize, voxelSize}, Vec3d{})
}

// NewScaleTranslateMap returns a map scaling index space by scale and then
// translating it by translate.
func NewScaleTranslateMap(scale, translate Vec3d) *Map {
	m := &Map{}
	m.mat[0][0] = scale.X
	m.mat[1][1] = scale.Y
	m.mat[2][2] = scale.Z
	m.mat[3] = [4]float64{translate.X, translate.Y, translate.Z, 1}
	return m
}

// NewAffineMap wraps an arbitrary row-vector affine matrix.
func NewAffineMap(mat [4][4]float64) (*Map, error) {
	const eps = 1e-12
	if math.Abs(mat[0][3]) > eps || math.Abs(mat[1][3]) > eps ||
		math.Abs(mat[2][3]) > eps || math.Abs(mat[3][3]-1) > eps {
		return nil, ErrNotAffine
	}
	return &Map{mat: mat}, nil
}

// Mat4 returns the 4×4 matrix in row-vector layout.
func (m *Map) Mat4() [4][4]float64 { return m.mat }

// IndexToWorld maps an index-space position to world space.
func (m *Map) IndexToWorld(p Vec3d) Vec3d {
	return Vec3d{
		X: p.X*m.mat[0][0] + p.Y*m.mat[1][0] + p.Z*m.mat[2][0] + m.mat[3][0],
		Y: p.X*m.mat[0][1] + p.Y*m.mat[1][1] + p.Z*m.mat[2][1] + m.mat[3][1],
		Z: p.X*m.mat[0][2] + p.Y*m.mat[1][2] + p.Z*m.mat[2][2] + m.mat[3][2],
	}
}

// CoordToWorld maps the center of voxel c to world space.
func (m *Map) CoordToWorld(c Coord) Vec3d {
	return m.IndexToWorld(Vec3d{float64(c.X), float64(c.Y), float64(c.Z)})
}

// VoxelSize returns the world-space length of one index step per axis.
func (m *Map) VoxelSize() Vec3d {
	row := func(r int) float64 {
		return math.Sqrt(m.mat[r][0]*m.mat[r][0] + m.mat[r][1]*m.mat[r][1] + m.mat[r][2]*m.mat[r][2])
	}
	return Vec3d{row(0), row(1), row(2)}
}

// PostTranslate returns a copy of m followed by a world-space translation.
func (m *Map) PostTranslate(t Vec3d) *Map {
	out := *m
	out.mat[3][0] += t.X
	out.mat[3][1] += t.Y
	out.mat[3][2] += t.Z
	return &out
}
