// Package voltex turns sparse volumetric grids into renderer textures.
//
// # Overview
//
// A renderer's image pipeline works with flat textures: it wants a width,
// height and depth, a channel count, a data type and a transform from
// texture space into object space, and then a buffer of pixels. voltex
// derives all of that from a [vdb.GridBase] and fills the pixels either
// densely, one float per channel for every voxel of the active bounding box,
// or with a compact hierarchical encoding that a compute backend samples
// directly.
//
// # Quick Start
//
//	import "github.com/gogpu/voltex"
//
//	ld := voltex.NewLoader(grid, "density")
//
//	var meta voltex.ImageMetaData
//	if !ld.LoadMetadata(voltex.DeviceFeatures{}, &meta) {
//	    log.Fatal(ld.Err())
//	}
//
//	pixels := make([]byte, meta.PixelBytes())
//	if !ld.LoadPixels(meta, pixels, false) {
//	    log.Fatal(ld.Err())
//	}
//
// # Value Types
//
// Three grid value types are recognized:
//   - Float grids produce one channel
//   - Vec3f grids produce three channels
//   - Mask grids produce one channel, 1 for active and 0 for inactive voxels
//
// Any other value type is rejected by [Loader.LoadMetadata].
//
// # Compact Encoding
//
// When [DeviceFeatures].HasNanoVDB is set and a compact encoder is linked in,
// float and vector grids are encoded with the compact/nanovdb backend at the
// precision chosen with [WithPrecision]. Building with the voltex_nocompact
// tag leaves only the no-op encoder, and every load takes the dense path.
//
// # Coordinate Spaces
//
// Index space is the grid's integer voxel lattice, object space is where the
// grid's map places it, and texture space is the normalized [0,1]³ cube of
// the dense texture. [ImageMetaData].Transform maps texture space to object
// space.
package voltex

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
