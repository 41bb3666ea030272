package nanovdb

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/voltex/compact"
	"github.com/gogpu/voltex/vdb"
)

// DefaultTolerance is the absolute error bound of adaptive quantization.
const DefaultTolerance float32 = 0.001

func init() {
	compact.Register(compact.BackendNanoVDB, func() compact.Encoder { return New() })
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithTolerance sets the absolute error bound used by adaptive (FpN)
// quantization. Non-positive values keep the default.
func WithTolerance(tol float32) Option {
	return func(e *Encoder) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// WithGridName overrides the grid name written into the header.
func WithGridName(name string) Option {
	return func(e *Encoder) {
		e.gridName = name
	}
}

// Encoder writes grids in the compact NanoVDB-style layout: a root tile
// table over 32³ upper nodes, 16³ lower nodes and 8³ leaves, each node at a
// 32-byte aligned absolute offset. Encoder is safe for concurrent use.
type Encoder struct {
	tolerance float32
	gridName  string
	logger    atomic.Pointer[slog.Logger]
}

// New creates an encoder.
func New(opts ...Option) *Encoder {
	e := &Encoder{tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements compact.Encoder.
func (e *Encoder) Name() string { return compact.BackendNanoVDB }

// Available implements compact.Encoder.
func (e *Encoder) Available() bool { return true }

// SetLogger sets the logger used for per-grid encoding statistics. A nil
// logger disables them.
func (e *Encoder) SetLogger(l *slog.Logger) {
	e.logger.Store(l)
}

// Tolerance returns the adaptive quantization error bound.
func (e *Encoder) Tolerance() float32 { return e.tolerance }

// EncodeFloat implements compact.Encoder.
func (e *Encoder) EncodeFloat(g *vdb.FloatGrid, p compact.Precision) (*compact.Buffer, error) {
	if g == nil {
		return nil, fmt.Errorf("nanovdb: nil grid")
	}

	var (
		gt     GridType
		encode func(*vdb.LeafNode[float32]) (leafBlock, error)
	)
	switch p {
	case compact.PrecisionAdaptive:
		gt = GridTypeFpN
		tol := e.tolerance
		encode = func(l *vdb.LeafNode[float32]) (leafBlock, error) { return encodeFpNLeaf(l, tol) }
	case compact.PrecisionHalf:
		gt, encode = GridTypeFp16, encodeHalfLeaf
	case compact.PrecisionFloat:
		gt, encode = GridTypeFloat, encodeFloatLeaf
	default:
		return nil, fmt.Errorf("nanovdb: unsupported precision %v", p)
	}

	bg := g.Background()
	data, err := encodeGrid(e, g, gt, [3]float32{bg, 0, 0}, encode)
	if err != nil {
		return nil, err
	}
	return compact.NewBuffer(data, compact.EncodingFor(p)), nil
}

// EncodeVec3 implements compact.Encoder.
func (e *Encoder) EncodeVec3(g *vdb.Vec3fGrid) (*compact.Buffer, error) {
	if g == nil {
		return nil, fmt.Errorf("nanovdb: nil grid")
	}
	bg := g.Background()
	data, err := encodeGrid(e, g, GridTypeVec3f, [3]float32{bg.X, bg.Y, bg.Z}, encodeVec3Leaf)
	if err != nil {
		return nil, err
	}
	return compact.NewBuffer(data, compact.EncodingVec3f), nil
}

func encodeGrid[T any](e *Encoder, g *vdb.Grid[T], gt GridType, bg [3]float32, encode func(*vdb.LeafNode[T]) (leafBlock, error)) ([]byte, error) {
	bbox := g.EvalActiveVoxelBoundingBox()
	if bbox.IsEmpty() {
		return nil, compact.ErrEmptyGrid
	}

	var blocks []leafBlock
	for _, l := range g.Tree().Leaves() {
		if l.ValueMask().IsOff() {
			continue
		}
		b, err := encode(l)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	name := g.Name()
	if e.gridName != "" {
		name = e.gridName
	}
	info := gridInfo{
		gridType:   gt,
		class:      g.Class(),
		name:       name,
		xform:      g.Transform(),
		bbox:       bbox,
		active:     g.ActiveVoxelCount(),
		background: bg,
	}
	if gt == GridTypeFpN {
		info.tolerance = e.tolerance
	}
	data, err := serialize(info, blocks)
	if err != nil {
		return nil, err
	}
	if l := e.logger.Load(); l != nil {
		l.Debug("nanovdb: grid encoded",
			"name", name,
			"type", gt,
			"leaves", len(blocks),
			"bytes", len(data),
			"bits", bitWidthHistogram(blocks))
	}
	return data, nil
}

// bitWidthHistogram counts FpN leaves per bit width.
func bitWidthHistogram(blocks []leafBlock) map[uint8]int {
	h := make(map[uint8]int)
	for i := range blocks {
		if blocks[i].bits != 0 {
			h[blocks[i].bits]++
		}
	}
	return h
}
