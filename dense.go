package voltex

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/voltex/vdb"
	"golang.org/x/sync/errgroup"
)

// slabDepth is the number of Z slices converted per task, one leaf deep.
const slabDepth = vdb.LeafDim

// denseOp writes the voxels of bbox into dst as little-endian float32,
// X fastest, then Y, then Z.
type denseOp struct {
	bbox    vdb.CoordBBox
	dst     []byte
	workers int
	err     error
}

func (o *denseOp) float(g *vdb.FloatGrid, v variant) bool {
	return o.run(convertDense(g, o.bbox, o.dst, v.channels, o.workers, func(p []byte, val float32, _ bool) {
		binary.LittleEndian.PutUint32(p, math.Float32bits(val))
	}))
}

func (o *denseOp) vec3(g *vdb.Vec3fGrid, v variant) bool {
	return o.run(convertDense(g, o.bbox, o.dst, v.channels, o.workers, func(p []byte, val vdb.Vec3f, _ bool) {
		binary.LittleEndian.PutUint32(p, math.Float32bits(val.X))
		binary.LittleEndian.PutUint32(p[4:], math.Float32bits(val.Y))
		binary.LittleEndian.PutUint32(p[8:], math.Float32bits(val.Z))
	}))
}

func (o *denseOp) mask(g *vdb.MaskGrid, v variant) bool {
	return o.run(convertDense(g, o.bbox, o.dst, v.channels, o.workers, func(p []byte, _ bool, on bool) {
		var f float32
		if on {
			f = 1
		}
		binary.LittleEndian.PutUint32(p, math.Float32bits(f))
	}))
}

func (o *denseOp) run(err error) bool {
	o.err = err
	return err == nil
}

// DenseSize returns the byte size of a dense texture over bbox.
func DenseSize(bbox vdb.CoordBBox, channels int) int64 {
	return bbox.Volume() * int64(channels) * 4
}

// convertDense fills dst with one sample per voxel of bbox. Voxels outside
// every leaf take the grid background. The destination length is checked
// before any write.
func convertDense[T any](g *vdb.Grid[T], bbox vdb.CoordBBox, dst []byte, channels, workers int, write func(p []byte, v T, on bool)) error {
	if bbox.IsEmpty() {
		return ErrEmptyGrid
	}
	need := DenseSize(bbox, channels)
	if int64(len(dst)) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(dst), need)
	}

	tree := g.Tree()
	bg := tree.Background()
	dim := bbox.Dim()
	stride := channels * 4
	rowBytes := int(dim.X) * stride
	sliceBytes := int(dim.Y) * rowBytes

	var eg errgroup.Group
	eg.SetLimit(max(workers, 1))
	for z0 := int64(bbox.Min.Z); z0 <= int64(bbox.Max.Z); z0 += slabDepth {
		z1 := min(z0+slabDepth-1, int64(bbox.Max.Z))
		eg.Go(func() error {
			var (
				leaf   *vdb.LeafNode[T]
				origin vdb.Coord
				cached bool
			)
			for z := int32(z0); ; z++ {
				for y := bbox.Min.Y; ; y++ {
					off := int(z-bbox.Min.Z)*sliceBytes + int(y-bbox.Min.Y)*rowBytes
					for x := bbox.Min.X; ; x++ {
						c := vdb.Coord{X: x, Y: y, Z: z}
						if o := c.Mask(vdb.LeafDim); !cached || o != origin {
							origin, cached = o, true
							leaf = tree.Leaf(o)
						}
						if leaf == nil {
							write(dst[off:off+stride], bg, false)
						} else {
							i := leaf.CoordToOffset(c)
							write(dst[off:off+stride], leaf.Value(i), leaf.IsOn(i))
						}
						off += stride
						if x == bbox.Max.X {
							break
						}
					}
					if y == bbox.Max.Y {
						break
					}
				}
				if int64(z) == z1 {
					break
				}
			}
			return nil
		})
	}
	return eg.Wait()
}
