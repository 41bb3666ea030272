package nanovdb

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"math/bits"

	"github.com/gogpu/voltex/internal/bitpack"
	"github.com/gogpu/voltex/vdb"
	"github.com/x448/float16"
)

var (
	// ErrBadMagic is returned when a buffer does not start with Magic.
	ErrBadMagic = errors.New("nanovdb: bad magic")

	// ErrVersion is returned for buffers of an unknown layout version.
	ErrVersion = errors.New("nanovdb: unsupported version")

	// ErrChecksum is returned when the stored checksum does not match.
	ErrChecksum = errors.New("nanovdb: checksum mismatch")

	// ErrTruncated is returned when a buffer is shorter than it claims.
	ErrTruncated = errors.New("nanovdb: truncated buffer")

	// ErrValueType is returned when reading values of the wrong kind.
	ErrValueType = errors.New("nanovdb: value type mismatch")
)

// Header is the decoded grid header of a buffer.
type Header struct {
	GridType         GridType
	Class            vdb.GridClass
	Name             string
	Size             uint64
	Map              [4][4]float64
	VoxelSize        vdb.Vec3d
	BBox             vdb.CoordBBox
	ActiveVoxelCount uint64
	Background       [3]float32
	Tolerance        float32
	LeafCount        uint32
	LowerCount       uint32
	UpperCount       uint32
	RootTiles        uint32

	nodeOffset [4]uint64
}

// View gives read access to a compact buffer without decoding it.
type View struct {
	data []byte
	hdr  Header
}

// Open validates data and returns a view over it. data is not copied.
func Open(data []byte) (*View, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[:len(Magic)], Magic[:]) {
		return nil, ErrBadMagic
	}
	if v := ByteOrder.Uint32(data[16:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}

	h := Header{
		GridType: GridType(ByteOrder.Uint32(data[20:])),
		Class:    vdb.GridClass(ByteOrder.Uint32(data[24:])),
		Size:     ByteOrder.Uint64(data[32:]),
		Name:     string(bytes.TrimRight(data[40:40+MaxNameSize], "\x00")),
	}
	if h.Size < HeaderSize || h.Size > uint64(len(data)) {
		return nil, ErrTruncated
	}
	data = data[:h.Size]
	if sum := crc32.ChecksumIEEE(data[checksumStart:]); sum != ByteOrder.Uint32(data[checksumOffset:]) {
		return nil, ErrChecksum
	}

	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			h.Map[r][c] = readFloat64(data, 104+8*(4*r+c))
		}
	}
	h.VoxelSize = vdb.Vec3d{X: readFloat64(data, 232), Y: readFloat64(data, 240), Z: readFloat64(data, 248)}
	h.BBox = readBBox(data, 256)
	h.ActiveVoxelCount = ByteOrder.Uint64(data[280:])
	for i := range h.Background {
		h.Background[i] = readFloat32(data, 288+4*i)
	}
	h.Tolerance = readFloat32(data, 300)
	for i := range h.nodeOffset {
		h.nodeOffset[i] = ByteOrder.Uint64(data[304+8*i:])
	}
	h.LeafCount = ByteOrder.Uint32(data[336:])
	h.LowerCount = ByteOrder.Uint32(data[340:])
	h.UpperCount = ByteOrder.Uint32(data[344:])
	h.RootTiles = ByteOrder.Uint32(data[348:])

	rootEnd := h.nodeOffset[3] + RootHeaderSize + uint64(h.RootTiles)*RootTileSize
	if rootEnd > h.Size {
		return nil, ErrTruncated
	}
	return &View{data: data, hdr: h}, nil
}

// Header returns the decoded header.
func (v *View) Header() Header { return v.hdr }

// Bytes returns the underlying buffer, trimmed to the grid size.
func (v *View) Bytes() []byte { return v.data }

// Float returns the scalar value at c and whether the voxel is active.
// Voxels outside every leaf return the background.
func (v *View) Float(c vdb.Coord) (float32, bool, error) {
	leaf, i, err := v.locate(c)
	if err != nil {
		return 0, false, err
	}
	if leaf < 0 {
		return v.hdr.Background[0], false, nil
	}
	payload := v.data[leaf+LeafHeaderSize:]
	var val float32
	switch v.hdr.GridType {
	case GridTypeFloat:
		val = readFloat32(payload, 4*i)
	case GridTypeFp16:
		val = float16.Frombits(ByteOrder.Uint16(payload[2*i:])).Float32()
	case GridTypeFpN:
		w := v.data[leaf+13]
		if w == RawLeafBits {
			val = readFloat32(payload, 4*i)
			break
		}
		if !bitpack.ValidWidth(w) {
			return 0, false, fmt.Errorf("nanovdb: leaf at %d has bit width %d", leaf, w)
		}
		val = decodeFpN(readFloat32(v.data, leaf+80), readFloat32(v.data, leaf+84), bitpack.Get(payload, i, w))
	default:
		return 0, false, fmt.Errorf("%w: %v is not scalar", ErrValueType, v.hdr.GridType)
	}
	return val, v.leafIsOn(leaf, i), nil
}

// Vec3 returns the vector value at c and whether the voxel is active.
func (v *View) Vec3(c vdb.Coord) (vdb.Vec3f, bool, error) {
	if v.hdr.GridType != GridTypeVec3f {
		return vdb.Vec3f{}, false, fmt.Errorf("%w: %v is not a vector type", ErrValueType, v.hdr.GridType)
	}
	leaf, i, err := v.locate(c)
	if err != nil {
		return vdb.Vec3f{}, false, err
	}
	if leaf < 0 {
		bg := v.hdr.Background
		return vdb.Vec3f{X: bg[0], Y: bg[1], Z: bg[2]}, false, nil
	}
	p := leaf + LeafHeaderSize + 12*i
	val := vdb.Vec3f{X: readFloat32(v.data, p), Y: readFloat32(v.data, p+4), Z: readFloat32(v.data, p+8)}
	return val, v.leafIsOn(leaf, i), nil
}

// LeafBitWidth returns the FpN bit width of the leaf containing c, or 0 when
// the buffer is not FpN or c is outside every leaf.
func (v *View) LeafBitWidth(c vdb.Coord) uint8 {
	if v.hdr.GridType != GridTypeFpN {
		return 0
	}
	leaf, _, err := v.locate(c)
	if err != nil || leaf < 0 {
		return 0
	}
	return v.data[leaf+13]
}

// locate walks root, upper and lower nodes down to the leaf holding c. It
// returns the leaf's offset and the voxel index inside it, or -1 when no
// leaf covers c.
func (v *View) locate(c vdb.Coord) (leaf, index int, err error) {
	root := int(v.hdr.nodeOffset[3])
	upperOrigin := c.Mask(vdb.UpperTotalDim)
	upper := -1
	for t := 0; t < int(v.hdr.RootTiles); t++ {
		p := root + RootHeaderSize + t*RootTileSize
		if readCoord(v.data, p) == upperOrigin {
			upper = int(ByteOrder.Uint64(v.data[p+16:]))
			break
		}
	}
	if upper < 0 {
		return -1, 0, nil
	}

	lower, err := v.child(upper, UpperMaskSize, upperChildIndex(c))
	if err != nil || lower < 0 {
		return -1, 0, err
	}
	leaf, err = v.child(lower, LowerMaskSize, lowerChildIndex(c))
	if err != nil || leaf < 0 {
		return -1, 0, err
	}
	l := c.Sub(readCoord(v.data, leaf))
	return leaf, vdb.LeafOffset(int(l.X), int(l.Y), int(l.Z)), nil
}

// child returns the offset of child n of the internal node at off, or -1.
func (v *View) child(off, maskSize, n int) (int, error) {
	if off+internalHeaderSize+maskSize > len(v.data) {
		return -1, ErrTruncated
	}
	mask := v.data[off+internalHeaderSize:]
	word := n >> 6
	bit := uint(n) & 63
	w := ByteOrder.Uint64(mask[8*word:])
	if w&(1<<bit) == 0 {
		return -1, nil
	}
	rank := bits.OnesCount64(w & (1<<bit - 1))
	for i := 0; i < word; i++ {
		rank += bits.OnesCount64(ByteOrder.Uint64(mask[8*i:]))
	}
	p := off + internalHeaderSize + maskSize + 8*rank
	if p+8 > len(v.data) {
		return -1, ErrTruncated
	}
	child := int(ByteOrder.Uint64(v.data[p:]))
	if child >= len(v.data) {
		return -1, ErrTruncated
	}
	return child, nil
}

func (v *View) leafIsOn(leaf, i int) bool {
	w := ByteOrder.Uint64(v.data[leaf+16+8*(i>>6):])
	return w&(1<<(uint(i)&63)) != 0
}

func readCoord(b []byte, off int) vdb.Coord {
	return vdb.Coord{
		X: int32(ByteOrder.Uint32(b[off:])),
		Y: int32(ByteOrder.Uint32(b[off+4:])),
		Z: int32(ByteOrder.Uint32(b[off+8:])),
	}
}

func readBBox(b []byte, off int) vdb.CoordBBox {
	return vdb.CoordBBox{Min: readCoord(b, off), Max: readCoord(b, off+12)}
}

func readFloat32(b []byte, off int) float32 {
	return math.Float32frombits(ByteOrder.Uint32(b[off:]))
}

func readFloat64(b []byte, off int) float64 {
	return math.Float64frombits(ByteOrder.Uint64(b[off:]))
}
