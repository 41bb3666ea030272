// Package vdb provides the sparse volumetric grid consumed by voltex.
//
// # Overview
//
// A grid stores values only where voxels are active. Voxels are grouped into
// 8×8×8 leaf nodes keyed by their origin; everything without a leaf takes the
// grid's background value. This matches the leaf level of the OpenVDB and
// NanoVDB trees, so a grid can be serialized into the compact hierarchical
// layout (root → upper 32³ → lower 16³ → leaf 8³) without reshaping.
//
// # Value types
//
// Grids are generic over their value type. voltex recognizes three variants:
//
//	vdb.FloatGrid // Grid[float32], scalar density-like data
//	vdb.Vec3fGrid // Grid[Vec3f], velocity or color fields
//	vdb.MaskGrid  // Grid[bool], topology only
//
// Any other value type builds a perfectly valid grid that the texture
// conversion reports as unsupported.
//
// # Coordinate spaces
//
// Integer voxel coordinates live in index space. A grid's [Map] places index
// space in world (object) space. The map keeps the 4×4 matrix in row-vector
// layout with the translation in the last row, the layout volume files use.
//
// # Thread safety
//
// Building a grid is not safe for concurrent use. Once built, a grid can be
// read from any number of goroutines.
package vdb
