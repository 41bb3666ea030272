package nanovdb

import (
	"encoding/binary"

	"github.com/gogpu/voltex/vdb"
)

// ByteOrder is the byte order of every field in a buffer.
var ByteOrder = binary.LittleEndian

// Magic identifies a compact grid buffer.
var Magic = [8]byte{'V', 'T', 'X', 'N', 'V', 'D', 'B', '1'}

// Version is the layout version written into the header.
const Version uint32 = 1

// GridType tags the value encoding of a buffer. The numbering follows
// NanoVDB's GridType enum.
type GridType uint32

const (
	GridTypeUnknown GridType = 0
	GridTypeFloat   GridType = 1
	GridTypeVec3f   GridType = 6
	GridTypeFp16    GridType = 15
	GridTypeFpN     GridType = 16
)

func (t GridType) String() string {
	switch t {
	case GridTypeFloat:
		return "Float"
	case GridTypeVec3f:
		return "Vec3f"
	case GridTypeFp16:
		return "Fp16"
	case GridTypeFpN:
		return "FpN"
	default:
		return "Unknown"
	}
}

// Section sizes. Every node starts on a 32-byte boundary.
const (
	Alignment   = 32
	MaxNameSize = 64

	// Header layout:
	//
	//	  0 magic            [8]byte
	//	  8 checksum         uint32   crc32 (IEEE) of bytes [16, size)
	//	 12 flags            uint32
	//	 16 version          uint32
	//	 20 grid type        uint32
	//	 24 grid class       uint32
	//	 28 reserved         uint32
	//	 32 grid size        uint64
	//	 40 name             [64]byte
	//	104 map              [4][4]float64, row-vector layout
	//	232 voxel size       [3]float64
	//	256 index bbox       [6]int32
	//	280 active voxels    uint64
	//	288 background       [3]float32
	//	300 tolerance        float32
	//	304 node offsets     [4]uint64  leaf, lower, upper, root
	//	336 node counts      [3]uint32  leaf, lower, upper
	//	348 root tiles       uint32
	HeaderSize = 352

	checksumOffset = 8
	checksumStart  = 16

	// Root: index bbox [6]int32, then per tile origin [3]int32, pad uint32
	// and the absolute offset of its upper node.
	RootHeaderSize = 32
	RootTileSize   = 24

	// Internal nodes: origin [3]int32, child count uint32, child mask,
	// then one uint64 absolute offset per child in mask order.
	internalHeaderSize = 16
	UpperMaskSize      = (vdb.UpperDim * vdb.UpperDim * vdb.UpperDim) / 8 // 4096
	LowerMaskSize      = (vdb.LowerDim * vdb.LowerDim * vdb.LowerDim) / 8 // 512

	// Leaf header:
	//
	//	 0 origin    [3]int32
	//	12 flags     uint8
	//	13 bit width uint8   FpN only, RawLeafBits for raw float32
	//	14 pad       [2]byte
	//	16 value mask [8]uint64
	//	80 minimum   float32  FpN decode offset
	//	84 quantum   float32  FpN decode step
	//	88 stats min float32  over active values
	//	92 stats max float32
	LeafHeaderSize = 96
)

// AlignUp rounds n up to the next multiple of Alignment.
func AlignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

func rootSize(tiles int) int {
	return AlignUp(RootHeaderSize + tiles*RootTileSize)
}

func upperSize(children int) int {
	return AlignUp(internalHeaderSize + UpperMaskSize + 8*children)
}

func lowerSize(children int) int {
	return AlignUp(internalHeaderSize + LowerMaskSize + 8*children)
}

// upperChildIndex returns the position of the lower node containing c
// within its upper node.
func upperChildIndex(c vdb.Coord) int {
	const m = vdb.UpperTotalDim - 1
	x := int(c.X&m) >> (vdb.LowerLog2Dim + vdb.LeafLog2Dim)
	y := int(c.Y&m) >> (vdb.LowerLog2Dim + vdb.LeafLog2Dim)
	z := int(c.Z&m) >> (vdb.LowerLog2Dim + vdb.LeafLog2Dim)
	return x<<(2*vdb.UpperLog2Dim) | y<<vdb.UpperLog2Dim | z
}

// lowerChildIndex returns the position of the leaf containing c within its
// lower node.
func lowerChildIndex(c vdb.Coord) int {
	const m = vdb.LowerTotalDim - 1
	x := int(c.X&m) >> vdb.LeafLog2Dim
	y := int(c.Y&m) >> vdb.LeafLog2Dim
	z := int(c.Z&m) >> vdb.LeafLog2Dim
	return x<<(2*vdb.LowerLog2Dim) | y<<vdb.LowerLog2Dim | z
}
