package nanovdb

import (
	"fmt"
	"math"

	"github.com/gogpu/voltex/internal/bitpack"
	"github.com/gogpu/voltex/vdb"
	"github.com/x448/float16"
)

// RawLeafBits is the FpN bit width of a leaf stored as raw float32 values.
const RawLeafBits uint8 = 32

// leafBlock is a leaf ready for serialization.
type leafBlock struct {
	origin   vdb.Coord
	mask     vdb.Mask512
	bits     uint8
	minimum  float32
	quantum  float32
	statsMin float32
	statsMax float32
	payload  []byte
}

func (b *leafBlock) size() int {
	return AlignUp(LeafHeaderSize + len(b.payload))
}

// activeRange returns the min and max of f over the active voxels of l.
func activeRange[T any](l *vdb.LeafNode[T], f func(T) float32) (lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	l.ValueMask().ForEachOn(func(i int) {
		v := f(l.Value(i))
		lo = min(lo, v)
		hi = max(hi, v)
	})
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

func identity(v float32) float32 { return v }

func magnitude(v vdb.Vec3f) float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

func newBlock[T any](l *vdb.LeafNode[T], f func(T) float32) leafBlock {
	lo, hi := activeRange(l, f)
	return leafBlock{
		origin:   l.Origin(),
		mask:     *l.ValueMask(),
		statsMin: lo,
		statsMax: hi,
	}
}

func encodeFloatLeaf(l *vdb.LeafNode[float32]) (leafBlock, error) {
	b := newBlock(l, identity)
	b.payload = rawFloats(l.Values()[:])
	return b, nil
}

func rawFloats(values []float32) []byte {
	p := make([]byte, 4*len(values))
	for i, v := range values {
		ByteOrder.PutUint32(p[4*i:], math.Float32bits(v))
	}
	return p
}

func encodeHalfLeaf(l *vdb.LeafNode[float32]) (leafBlock, error) {
	b := newBlock(l, identity)
	b.payload = make([]byte, 2*vdb.LeafVoxels)
	for i, v := range l.Values() {
		ByteOrder.PutUint16(b.payload[2*i:], float16.Fromfloat32(v).Bits())
	}
	return b, nil
}

func encodeVec3Leaf(l *vdb.LeafNode[vdb.Vec3f]) (leafBlock, error) {
	b := newBlock(l, magnitude)
	b.payload = make([]byte, 12*vdb.LeafVoxels)
	for i, v := range l.Values() {
		p := b.payload[12*i:]
		ByteOrder.PutUint32(p, math.Float32bits(v.X))
		ByteOrder.PutUint32(p[4:], math.Float32bits(v.Y))
		ByteOrder.PutUint32(p[8:], math.Float32bits(v.Z))
	}
	return b, nil
}

// encodeFpNLeaf quantizes all 512 values of l against the leaf's value range
// with the smallest bit width whose worst-case decode error is within
// tolerance. Leaves that need more than 16 bits are stored at 16. Leaves
// holding a NaN or an infinity have no finite range and are stored as raw
// float32 values with bit width RawLeafBits.
func encodeFpNLeaf(l *vdb.LeafNode[float32], tolerance float32) (leafBlock, error) {
	b := newBlock(l, identity)
	values := l.Values()[:]

	if !allFinite(values) {
		b.bits = RawLeafBits
		b.payload = rawFloats(values)
		return b, nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	codes := make([]uint32, vdb.LeafVoxels)
	for _, w := range bitpack.Widths {
		quantum := float32(0)
		if hi > lo {
			quantum = (hi - lo) / float32(bitpack.MaxCode(w))
		}
		maxErr := float32(0)
		for i, v := range values {
			c := uint32(0)
			if quantum > 0 {
				c = min(uint32(math.Round(float64((v-lo)/quantum))), bitpack.MaxCode(w))
			}
			codes[i] = c
			maxErr = max(maxErr, float32(math.Abs(float64(decodeFpN(lo, quantum, c)-v))))
		}
		b.bits, b.minimum, b.quantum = w, lo, quantum
		if maxErr <= tolerance {
			break
		}
	}

	b.payload = make([]byte, bitpack.Size(vdb.LeafVoxels, b.bits))
	if err := bitpack.Pack(b.payload, codes, b.bits); err != nil {
		return leafBlock{}, fmt.Errorf("nanovdb: leaf %v: %w", l.Origin(), err)
	}
	return b, nil
}

func allFinite(values []float32) bool {
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

func decodeFpN(minimum, quantum float32, code uint32) float32 {
	return minimum + float32(code)*quantum
}
