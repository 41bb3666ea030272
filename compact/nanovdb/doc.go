// Package nanovdb is the compact encoding backend for voltex.
//
// It serializes a sparse grid into one flat, 32-byte aligned buffer modeled
// on NanoVDB: a header, a root tile table, 32³ upper nodes, 16³ lower nodes
// and 8³ leaves. Internal nodes store a child mask followed by the absolute
// offsets of their children in mask order, so a sampler walks root → upper →
// lower → leaf with one popcount per level. The layout is not byte
// compatible with NanoVDB itself.
//
// Scalar grids can be stored at three precisions:
//
//   - Float: raw 32-bit floats
//   - Fp16: IEEE 754 half floats
//   - FpN: per-leaf quantization with 1, 2, 4, 8 or 16 bits, choosing the
//     smallest width whose error stays within the encoder tolerance
//
// Vector grids are always stored as three 32-bit floats per voxel.
//
// Importing the package registers the encoder with the compact registry
// under the name "nanovdb". [Open] gives read access to an encoded buffer.
package nanovdb
