package nanovdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"slices"

	"github.com/gogpu/voltex/vdb"
)

// gridInfo is the grid-level data written into the header.
type gridInfo struct {
	gridType   GridType
	class      vdb.GridClass
	name       string
	xform      *vdb.Map
	bbox       vdb.CoordBBox
	active     uint64
	background [3]float32
	tolerance  float32
}

// internalNode is an upper or lower node with its children in mask order.
type internalNode struct {
	origin   vdb.Coord
	mask     []uint64
	children []vdb.Coord
}

// layout holds the absolute offset of every node.
type layout struct {
	rootStart  int
	upperStart int
	lowerStart int
	leafStart  int
	total      int

	upperOffset map[vdb.Coord]int
	lowerOffset map[vdb.Coord]int
	leafOffset  map[vdb.Coord]int
}

// groupChildren collects children into parents of the given span, with the
// children of each parent ordered by their index within it.
func groupChildren(children []vdb.Coord, span int32, maskWords int, index func(vdb.Coord) int) []internalNode {
	byOrigin := make(map[vdb.Coord]*internalNode)
	for _, c := range children {
		o := c.Mask(span)
		n, ok := byOrigin[o]
		if !ok {
			n = &internalNode{origin: o, mask: make([]uint64, maskWords)}
			byOrigin[o] = n
		}
		i := index(c)
		n.mask[i>>6] |= 1 << (uint(i) & 63)
		n.children = append(n.children, c)
	}

	nodes := make([]internalNode, 0, len(byOrigin))
	for _, n := range byOrigin {
		slices.SortFunc(n.children, func(a, b vdb.Coord) int { return index(a) - index(b) })
		nodes = append(nodes, *n)
	}
	slices.SortFunc(nodes, func(a, b internalNode) int { return compareCoord(a.origin, b.origin) })
	return nodes
}

func compareCoord(a, b vdb.Coord) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}

// serialize writes a complete buffer from leaf blocks ordered by origin.
func serialize(info gridInfo, leaves []leafBlock) ([]byte, error) {
	if len(info.name) > MaxNameSize {
		return nil, fmt.Errorf("nanovdb: grid name exceeds %d bytes", MaxNameSize)
	}

	leafOrigins := make([]vdb.Coord, len(leaves))
	for i := range leaves {
		leafOrigins[i] = leaves[i].origin
	}
	lowers := groupChildren(leafOrigins, vdb.LowerTotalDim, LowerMaskSize/8, lowerChildIndex)
	lowerOrigins := make([]vdb.Coord, len(lowers))
	for i := range lowers {
		lowerOrigins[i] = lowers[i].origin
	}
	uppers := groupChildren(lowerOrigins, vdb.UpperTotalDim, UpperMaskSize/8, upperChildIndex)

	lay := &layout{
		upperOffset: make(map[vdb.Coord]int, len(uppers)),
		lowerOffset: make(map[vdb.Coord]int, len(lowers)),
		leafOffset:  make(map[vdb.Coord]int, len(leaves)),
	}
	lay.rootStart = HeaderSize
	off := lay.rootStart + rootSize(len(uppers))
	lay.upperStart = off
	for _, n := range uppers {
		lay.upperOffset[n.origin] = off
		off += upperSize(len(n.children))
	}
	lay.lowerStart = off
	for _, n := range lowers {
		lay.lowerOffset[n.origin] = off
		off += lowerSize(len(n.children))
	}
	lay.leafStart = off
	for i := range leaves {
		lay.leafOffset[leaves[i].origin] = off
		off += leaves[i].size()
	}
	lay.total = off

	buf := bytes.NewBuffer(make([]byte, 0, lay.total))
	writeHeader(buf, info, lay, len(leaves), len(lowers), len(uppers))
	writeRoot(buf, info.bbox, uppers, lay)
	for _, n := range uppers {
		writeInternal(buf, n, lay.lowerOffset)
	}
	for _, n := range lowers {
		writeInternal(buf, n, lay.leafOffset)
	}
	for i := range leaves {
		writeLeaf(buf, &leaves[i])
	}

	data := buf.Bytes()
	if len(data) != lay.total {
		return nil, fmt.Errorf("nanovdb: wrote %d bytes, layout expects %d", len(data), lay.total)
	}
	ByteOrder.PutUint32(data[checksumOffset:], crc32.ChecksumIEEE(data[checksumStart:]))
	return data, nil
}

func writeHeader(w *bytes.Buffer, info gridInfo, lay *layout, leaves, lowers, uppers int) {
	var name [MaxNameSize]byte
	copy(name[:], info.name)

	w.Write(Magic[:])
	binary.Write(w, ByteOrder, uint32(0)) // checksum, patched last
	binary.Write(w, ByteOrder, uint32(0)) // flags
	binary.Write(w, ByteOrder, Version)
	binary.Write(w, ByteOrder, uint32(info.gridType))
	binary.Write(w, ByteOrder, uint32(info.class))
	binary.Write(w, ByteOrder, uint32(0))
	binary.Write(w, ByteOrder, uint64(lay.total))
	w.Write(name[:])
	binary.Write(w, ByteOrder, info.xform.Mat4())
	vs := info.xform.VoxelSize()
	binary.Write(w, ByteOrder, [3]float64{vs.X, vs.Y, vs.Z})
	writeBBox(w, info.bbox)
	binary.Write(w, ByteOrder, info.active)
	binary.Write(w, ByteOrder, info.background)
	binary.Write(w, ByteOrder, info.tolerance)
	binary.Write(w, ByteOrder, [4]uint64{
		uint64(lay.leafStart), uint64(lay.lowerStart), uint64(lay.upperStart), uint64(lay.rootStart),
	})
	binary.Write(w, ByteOrder, [3]uint32{uint32(leaves), uint32(lowers), uint32(uppers)})
	binary.Write(w, ByteOrder, uint32(uppers))
}

func writeBBox(w *bytes.Buffer, b vdb.CoordBBox) {
	binary.Write(w, ByteOrder, [6]int32{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z})
}

func writeRoot(w *bytes.Buffer, bbox vdb.CoordBBox, uppers []internalNode, lay *layout) {
	writeBBox(w, bbox)
	binary.Write(w, ByteOrder, uint32(len(uppers)))
	binary.Write(w, ByteOrder, uint32(0))
	for _, n := range uppers {
		binary.Write(w, ByteOrder, [3]int32{n.origin.X, n.origin.Y, n.origin.Z})
		binary.Write(w, ByteOrder, uint32(0))
		binary.Write(w, ByteOrder, uint64(lay.upperOffset[n.origin]))
	}
	pad(w, rootSize(len(uppers))-RootHeaderSize-len(uppers)*RootTileSize)
}

func writeInternal(w *bytes.Buffer, n internalNode, childOffset map[vdb.Coord]int) {
	start := w.Len()
	binary.Write(w, ByteOrder, [3]int32{n.origin.X, n.origin.Y, n.origin.Z})
	binary.Write(w, ByteOrder, uint32(len(n.children)))
	binary.Write(w, ByteOrder, n.mask)
	for _, c := range n.children {
		binary.Write(w, ByteOrder, uint64(childOffset[c]))
	}
	pad(w, AlignUp(w.Len()-start)-(w.Len()-start))
}

func writeLeaf(w *bytes.Buffer, b *leafBlock) {
	binary.Write(w, ByteOrder, [3]int32{b.origin.X, b.origin.Y, b.origin.Z})
	w.WriteByte(0) // flags
	w.WriteByte(b.bits)
	w.Write([]byte{0, 0})
	binary.Write(w, ByteOrder, [8]uint64(b.mask))
	binary.Write(w, ByteOrder, [4]uint32{
		math.Float32bits(b.minimum),
		math.Float32bits(b.quantum),
		math.Float32bits(b.statsMin),
		math.Float32bits(b.statsMax),
	})
	w.Write(b.payload)
	pad(w, b.size()-LeafHeaderSize-len(b.payload))
}

func pad(w *bytes.Buffer, n int) {
	if n > 0 {
		w.Write(make([]byte, n))
	}
}
