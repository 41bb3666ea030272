// Package compact defines the contract for compact hierarchical grid
// encoders.
//
// A compact encoding serializes a sparse grid into a single flat buffer that
// a compute backend can sample directly, without densifying the volume.
// Backends register themselves by name (see [Register]); the package always
// provides the no-op backend "none", whose [Encoder.Available] reports false.
//
// The real encoder lives in the compact/nanovdb package and is linked in
// with a blank import:
//
//	import _ "github.com/gogpu/voltex/compact/nanovdb"
package compact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/voltex/vdb"
)

var (
	// ErrNotApplicable is returned when a grid's value type has no compact
	// representation, e.g. mask grids.
	ErrNotApplicable = errors.New("compact: encoding not applicable to grid type")

	// ErrUnavailable is returned by encoders that are not linked into the
	// build.
	ErrUnavailable = errors.New("compact: encoder unavailable")

	// ErrEmptyGrid is returned when the grid has no active voxels.
	ErrEmptyGrid = errors.New("compact: grid has no active voxels")
)

// Precision selects the value precision of compact scalar grids.
type Precision int

const (
	// PrecisionAdaptive quantizes each leaf with the smallest bit width
	// whose error stays within the encoder's tolerance.
	PrecisionAdaptive Precision = 0

	// PrecisionHalf stores IEEE 754 half-precision floats.
	PrecisionHalf Precision = 16

	// PrecisionFloat stores full 32-bit floats.
	PrecisionFloat Precision = 32
)

func (p Precision) String() string {
	switch p {
	case PrecisionAdaptive:
		return "adaptive"
	case PrecisionHalf:
		return "half"
	case PrecisionFloat:
		return "float"
	default:
		return fmt.Sprintf("Precision(%d)", int(p))
	}
}

// Valid reports whether p is one of the defined precisions.
func (p Precision) Valid() bool {
	return p == PrecisionAdaptive || p == PrecisionHalf || p == PrecisionFloat
}

// ParsePrecision parses a precision name or bit count: "adaptive"/"0",
// "half"/"16", "float"/"32".
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adaptive", "fpn", "0":
		return PrecisionAdaptive, nil
	case "half", "fp16", "16":
		return PrecisionHalf, nil
	case "float", "fp32", "32":
		return PrecisionFloat, nil
	}
	return 0, fmt.Errorf("compact: unknown precision %q", s)
}

// Encoding identifies the value layout of a compact buffer.
type Encoding uint8

const (
	EncodingUnknown Encoding = iota
	EncodingFpN              // variable bit width quantized float
	EncodingFp16             // half float
	EncodingFloat            // 32-bit float
	EncodingVec3f            // three 32-bit floats
)

func (e Encoding) String() string {
	switch e {
	case EncodingFpN:
		return "FpN"
	case EncodingFp16:
		return "Fp16"
	case EncodingFloat:
		return "Float"
	case EncodingVec3f:
		return "Vec3f"
	default:
		return "Unknown"
	}
}

// EncodingFor returns the scalar encoding produced for precision p.
func EncodingFor(p Precision) Encoding {
	switch p {
	case PrecisionAdaptive:
		return EncodingFpN
	case PrecisionHalf:
		return EncodingFp16
	case PrecisionFloat:
		return EncodingFloat
	default:
		return EncodingUnknown
	}
}

// Buffer is an owned compact encoding.
type Buffer struct {
	data []byte
	enc  Encoding
}

// NewBuffer wraps data, taking ownership of it.
func NewBuffer(data []byte, enc Encoding) *Buffer {
	return &Buffer{data: data, enc: enc}
}

// Bytes returns the encoded bytes. The slice must not be modified.
func (b *Buffer) Bytes() []byte { return b.data }

// Size returns the encoded length in bytes.
func (b *Buffer) Size() int { return len(b.data) }

// Encoding returns the value layout of the buffer.
func (b *Buffer) Encoding() Encoding { return b.enc }

// Encoder converts sparse grids into compact buffers.
//
// Implementations must be safe for concurrent use.
type Encoder interface {
	// Name returns the registry name of the encoder.
	Name() string

	// Available reports whether the encoder can produce buffers. A false
	// result means callers should use the dense path.
	Available() bool

	// EncodeFloat encodes a scalar grid at the given precision.
	EncodeFloat(g *vdb.FloatGrid, p Precision) (*Buffer, error)

	// EncodeVec3 encodes a vector grid with 32-bit components.
	EncodeVec3(g *vdb.Vec3fGrid) (*Buffer, error)
}
