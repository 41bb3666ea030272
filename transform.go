package voltex

import (
	"fmt"

	"github.com/gogpu/voltex/vdb"
	"gonum.org/v1/gonum/mat"
)

// Transform is a 3×4 affine matrix in row-major order. Points are column
// vectors on the right:
//
//	p' = M · [x y z 1]ᵀ
//
// so the translation is column 3. Composition is matrix multiplication:
// a.Multiply(b) applies b first.
type Transform [3][4]float64

// IdentityTransform returns the identity transform.
func IdentityTransform() Transform {
	return Transform{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// TranslateTransform returns a translation by (x, y, z).
func TranslateTransform(x, y, z float64) Transform {
	return Transform{
		{1, 0, 0, x},
		{0, 1, 0, y},
		{0, 0, 1, z},
	}
}

// ScaleTransform returns a scale by (x, y, z).
func ScaleTransform(x, y, z float64) Transform {
	return Transform{
		{x, 0, 0, 0},
		{0, y, 0, 0},
		{0, 0, z, 0},
	}
}

// Multiply returns t · o.
func (t Transform) Multiply(o Transform) Transform {
	var r Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			v := t[i][0]*o[0][j] + t[i][1]*o[1][j] + t[i][2]*o[2][j]
			if j == 3 {
				v += t[i][3]
			}
			r[i][j] = v
		}
	}
	return r
}

// Apply transforms the point p.
func (t Transform) Apply(p vdb.Vec3d) vdb.Vec3d {
	return vdb.Vec3d{
		X: t[0][0]*p.X + t[0][1]*p.Y + t[0][2]*p.Z + t[0][3],
		Y: t[1][0]*p.X + t[1][1]*p.Y + t[1][2]*p.Z + t[1][3],
		Z: t[2][0]*p.X + t[2][1]*p.Y + t[2][2]*p.Z + t[2][3],
	}
}

// Inverse returns the inverse transform. It fails for singular or badly
// conditioned matrices.
func (t Transform) Inverse() (Transform, error) {
	m := mat.NewDense(4, 4, []float64{
		t[0][0], t[0][1], t[0][2], t[0][3],
		t[1][0], t[1][1], t[1][2], t[1][3],
		t[2][0], t[2][1], t[2][2], t[2][3],
		0, 0, 0, 1,
	})
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Transform{}, fmt.Errorf("voltex: invert transform: %w", err)
	}
	var r Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = inv.At(i, j)
		}
	}
	return r, nil
}

// indexToObject converts a grid map, which uses row-vector layout with the
// translation in row 3, into a column-vector Transform.
func indexToObject(m *vdb.Map) Transform {
	mat4 := m.Mat4()
	var r Transform
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			r[i][j] = mat4[j][i]
		}
	}
	return r
}

// denseTextureToIndex maps texture space [0,1]³ onto the voxel lattice of
// bbox: texture coordinate 0.5/dim lands on the center of bbox.Min.
func denseTextureToIndex(bbox vdb.CoordBBox) Transform {
	d := bbox.Dim()
	return TranslateTransform(float64(bbox.Min.X)-0.5, float64(bbox.Min.Y)-0.5, float64(bbox.Min.Z)-0.5).
		Multiply(ScaleTransform(float64(d.X), float64(d.Y), float64(d.Z)))
}
