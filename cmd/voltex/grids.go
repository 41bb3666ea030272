package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/gogpu/voltex/vdb"
)

// shapes maps -shape names to procedural grid builders. size is the voxel
// count across the shape, voxel the world-space voxel size.
var shapes = map[string]func(size int32, voxel float64) vdb.GridBase{
	"fog":      fogSphere,
	"sdf":      sdfSphere,
	"velocity": swirl,
	"mask":     shellMask,
}

func shapeNames() []string {
	names := make([]string, 0, len(shapes))
	for n := range shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func buildShape(name string, size int32, voxel float64) (vdb.GridBase, error) {
	build, ok := shapes[name]
	if !ok {
		return nil, fmt.Errorf("unknown shape %q (have %v)", name, shapeNames())
	}
	if size < 2 {
		return nil, fmt.Errorf("size %d too small", size)
	}
	return build(size, voxel), nil
}

// centered calls fn for every voxel of a size³ box centered on the origin,
// with the distance of the voxel center from the origin in voxels.
func centered(size int32, fn func(c vdb.Coord, r float64)) {
	lo := -size / 2
	hi := lo + size - 1
	for z := lo; z <= hi; z++ {
		for y := lo; y <= hi; y++ {
			for x := lo; x <= hi; x++ {
				r := math.Sqrt(float64(x)*float64(x) + float64(y)*float64(y) + float64(z)*float64(z))
				fn(vdb.Coord{X: x, Y: y, Z: z}, r)
			}
		}
	}
}

// fogSphere is a density ball falling off linearly from 1 at the center.
func fogSphere(size int32, voxel float64) vdb.GridBase {
	radius := float64(size) / 2
	g := vdb.NewFloatGrid(0).
		SetName("density").
		SetClass(vdb.GridClassFogVolume).
		SetTransform(vdb.NewLinearMap(voxel))
	centered(size, func(c vdb.Coord, r float64) {
		if r < radius {
			g.Tree().SetValueOn(c, float32(1-r/radius))
		}
	})
	return g
}

// sdfSphere is a narrow-band level set of a sphere, three voxels each side.
func sdfSphere(size int32, voxel float64) vdb.GridBase {
	const halfWidth = 3
	radius := float64(size)/2 - halfWidth
	g := vdb.NewFloatGrid(float32(halfWidth * voxel)).
		SetName("surface").
		SetClass(vdb.GridClassLevelSet).
		SetTransform(vdb.NewLinearMap(voxel))
	centered(size, func(c vdb.Coord, r float64) {
		if d := r - radius; math.Abs(d) < halfWidth {
			g.Tree().SetValueOn(c, float32(d*voxel))
		}
	})
	return g
}

// swirl is a velocity field rotating about the Z axis inside a ball.
func swirl(size int32, voxel float64) vdb.GridBase {
	radius := float64(size) / 2
	g := vdb.NewVec3fGrid(vdb.Vec3f{}).
		SetName("vel").
		SetClass(vdb.GridClassStaggered).
		SetTransform(vdb.NewLinearMap(voxel))
	centered(size, func(c vdb.Coord, r float64) {
		if r < radius {
			s := float32(1 - r/radius)
			g.Tree().SetValueOn(c, vdb.Vec3f{X: -float32(c.Y) * s, Y: float32(c.X) * s, Z: 0.1 * s})
		}
	})
	return g
}

// shellMask marks a one voxel thick spherical shell.
func shellMask(size int32, voxel float64) vdb.GridBase {
	radius := float64(size)/2 - 1
	g := vdb.NewMaskGrid().
		SetName("shell").
		SetTransform(vdb.NewLinearMap(voxel))
	centered(size, func(c vdb.Coord, r float64) {
		if math.Abs(r-radius) < 0.5 {
			g.Tree().SetValueOn(c, true)
		}
	})
	return g
}
