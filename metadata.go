package voltex

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/voltex/compact"
)

// ImageDataType tags the pixel layout of a loaded volume.
type ImageDataType uint8

const (
	// DataTypeUnknown is the zero value; no load produces it.
	DataTypeUnknown ImageDataType = iota

	// DataTypeFloat is a dense texture with one float32 per voxel.
	DataTypeFloat

	// DataTypeFloat3 is a dense texture with three float32 per voxel.
	DataTypeFloat3

	// DataTypeNanoVDBFloat is a compact scalar grid with 32-bit values.
	DataTypeNanoVDBFloat

	// DataTypeNanoVDBFloat3 is a compact vector grid with 32-bit components.
	DataTypeNanoVDBFloat3

	// DataTypeNanoVDBFpN is a compact scalar grid with adaptive quantization.
	DataTypeNanoVDBFpN

	// DataTypeNanoVDBFp16 is a compact scalar grid with half floats.
	DataTypeNanoVDBFp16

	// dataTypeCount is the number of data types (for internal use).
	dataTypeCount
)

// DataTypeInfo contains metadata about an ImageDataType.
type DataTypeInfo struct {
	// Name is a short display name.
	Name string

	// Channels is the number of values per voxel.
	Channels int

	// BytesPerChannel is the size of one dense channel value. It is zero
	// for compact types, whose size is only known after encoding.
	BytesPerChannel int

	// IsCompact indicates a compact hierarchical encoding.
	IsCompact bool

	// Encoding is the compact value layout, EncodingUnknown for dense types.
	Encoding compact.Encoding
}

// dataTypeInfoTable contains metadata for each data type.
var dataTypeInfoTable = [dataTypeCount]DataTypeInfo{
	DataTypeUnknown: {Name: "unknown"},
	DataTypeFloat: {
		Name:            "float",
		Channels:        1,
		BytesPerChannel: 4,
	},
	DataTypeFloat3: {
		Name:            "float3",
		Channels:        3,
		BytesPerChannel: 4,
	},
	DataTypeNanoVDBFloat: {
		Name:      "nanovdb_float",
		Channels:  1,
		IsCompact: true,
		Encoding:  compact.EncodingFloat,
	},
	DataTypeNanoVDBFloat3: {
		Name:      "nanovdb_float3",
		Channels:  3,
		IsCompact: true,
		Encoding:  compact.EncodingVec3f,
	},
	DataTypeNanoVDBFpN: {
		Name:      "nanovdb_fpn",
		Channels:  1,
		IsCompact: true,
		Encoding:  compact.EncodingFpN,
	},
	DataTypeNanoVDBFp16: {
		Name:      "nanovdb_fp16",
		Channels:  1,
		IsCompact: true,
		Encoding:  compact.EncodingFp16,
	},
}

// Info returns metadata about the data type.
func (t ImageDataType) Info() DataTypeInfo {
	if t >= dataTypeCount {
		return dataTypeInfoTable[DataTypeUnknown]
	}
	return dataTypeInfoTable[t]
}

// IsCompact reports whether the type is a compact encoding.
func (t ImageDataType) IsCompact() bool { return t.Info().IsCompact }

func (t ImageDataType) String() string { return t.Info().Name }

// TextureFormat returns the GPU texture format for dense types. Three
// channel volumes upload as RGBA after ExpandRGB. Compact types are bound
// as storage buffers and report TextureFormatUndefined.
func (t ImageDataType) TextureFormat() gputypes.TextureFormat {
	switch t {
	case DataTypeFloat:
		return gputypes.TextureFormatR32Float
	case DataTypeFloat3:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatUndefined
	}
}

// compactDataType returns the data type tag of a compact encoding.
func compactDataType(e compact.Encoding) ImageDataType {
	for t := DataTypeUnknown; t < dataTypeCount; t++ {
		if info := dataTypeInfoTable[t]; info.IsCompact && info.Encoding == e {
			return t
		}
	}
	return DataTypeUnknown
}

// ImageMetaData describes a volume texture.
type ImageMetaData struct {
	// Width, Height and Depth are the per-axis voxel counts of the active
	// bounding box.
	Width, Height, Depth int

	// Channels is 1 for scalar and mask grids and 3 for vector grids.
	Channels int

	// Type is the pixel layout.
	Type ImageDataType

	// ByteSize is the size of the compact buffer; zero for dense types.
	ByteSize int

	// Transform maps texture space to object space.
	Transform Transform

	// UseTransform3D is set on every successful load.
	UseTransform3D bool
}

// IsCompact reports whether the pixels are a compact encoding.
func (m ImageMetaData) IsCompact() bool { return m.Type.IsCompact() }

// Voxels returns Width × Height × Depth.
func (m ImageMetaData) Voxels() int {
	return m.Width * m.Height * m.Depth
}

// PixelBytes returns the pixel buffer size LoadPixels needs.
func (m ImageMetaData) PixelBytes() int {
	if m.IsCompact() {
		return m.ByteSize
	}
	return m.Voxels() * m.Channels * m.Type.Info().BytesPerChannel
}

// UploadChannels returns the channel count of the GPU texture: three
// channel volumes are padded to four.
func (m ImageMetaData) UploadChannels() int {
	if m.Channels == 3 {
		return 4
	}
	return m.Channels
}

// ObjectToTexture returns the inverse of Transform.
func (m ImageMetaData) ObjectToTexture() (Transform, error) {
	return m.Transform.Inverse()
}

// TextureDescriptor returns a 3D texture descriptor for dense metadata. The
// second result is false for compact metadata.
func (m ImageMetaData) TextureDescriptor(label string) (gputypes.TextureDescriptor, bool) {
	if m.IsCompact() || m.Type == DataTypeUnknown {
		return gputypes.TextureDescriptor{}, false
	}
	return gputypes.TextureDescriptor{
		Label:         label,
		Size:          gputypes.NewExtent3D(uint32(m.Width), uint32(m.Height), uint32(m.Depth)),
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension3D,
		Format:        m.Type.TextureFormat(),
		Usage:         gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	}, true
}

// DataLayout returns the layout of expanded dense pixels for a texture
// upload. Rows are tightly packed; queue writes accept that, buffer copies
// need BytesPerRow padded to 256 by the caller.
func (m ImageMetaData) DataLayout() gputypes.TextureDataLayout {
	return gputypes.TextureDataLayout{
		BytesPerRow:  uint32(m.Width * m.UploadChannels() * 4),
		RowsPerImage: uint32(m.Height),
	}
}

// BufferDescriptor returns a storage buffer descriptor for compact
// metadata, with the size rounded up to 4 bytes. The second result is false
// for dense metadata.
func (m ImageMetaData) BufferDescriptor(label string) (gputypes.BufferDescriptor, bool) {
	if !m.IsCompact() {
		return gputypes.BufferDescriptor{}, false
	}
	return gputypes.BufferDescriptor{
		Label: label,
		Size:  uint64((m.ByteSize + 3) &^ 3),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	}, true
}

// ExpandRGB pads three-channel float32 pixels in src to RGBA in dst, with
// alpha 1. dst must hold len(src)/3*4 bytes.
func ExpandRGB(dst, src []byte) error {
	if len(src)%12 != 0 {
		return fmt.Errorf("voltex: RGB pixel data length %d is not a multiple of 12", len(src))
	}
	n := len(src) / 12
	if len(dst) < n*16 {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(dst), n*16)
	}
	one := math.Float32bits(1)
	for i := 0; i < n; i++ {
		copy(dst[16*i:16*i+12], src[12*i:12*i+12])
		binary.LittleEndian.PutUint32(dst[16*i+12:], one)
	}
	return nil
}
