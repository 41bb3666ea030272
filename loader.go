package voltex

import (
	"errors"
	"fmt"

	"github.com/gogpu/voltex/compact"
	"github.com/gogpu/voltex/vdb"
)

// ImageLoader is the method set an image manager drives to turn a source
// into texture memory.
type ImageLoader interface {
	// LoadMetadata fills meta and reports success.
	LoadMetadata(features DeviceFeatures, meta *ImageMetaData) bool

	// LoadPixels fills pixels for metadata returned by LoadMetadata.
	LoadPixels(meta ImageMetaData, pixels []byte, associateAlpha bool) bool

	// Name identifies the source for caching and deduplication.
	Name() string

	// Equals reports whether two loaders refer to the same source.
	Equals(other ImageLoader) bool

	// Cleanup releases everything the loader holds.
	Cleanup()

	// IsVolume reports whether the loader produces 3D textures.
	IsVolume() bool
}

// LoaderState is the lifecycle state of a Loader.
type LoaderState uint8

const (
	// StateUninitialized is the state before a successful LoadMetadata.
	StateUninitialized LoaderState = iota

	// StateMetadataReady follows a successful LoadMetadata.
	StateMetadataReady

	// StatePixelsLoaded follows a successful LoadPixels.
	StatePixelsLoaded

	// StateReleased follows Cleanup.
	StateReleased
)

func (s LoaderState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateMetadataReady:
		return "metadata ready"
	case StatePixelsLoaded:
		return "pixels loaded"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("LoaderState(%d)", uint8(s))
	}
}

// Loader converts one sparse grid into a volume texture.
//
// A Loader is driven by one caller at a time and is not safe for concurrent
// use. Distinct loaders may share a grid.
type Loader struct {
	name  string
	grid  vdb.GridBase
	opts  loaderOptions
	state LoaderState
	err   error

	// Valid from MetadataReady until Cleanup.
	bbox vdb.CoordBBox
	buf  *compact.Buffer
	meta ImageMetaData
}

var _ ImageLoader = (*Loader)(nil)

// NewLoader creates a loader for grid, identified by name.
func NewLoader(grid vdb.GridBase, name string, opts ...LoaderOption) *Loader {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader{
		name: name,
		grid: grid,
		opts: o,
		bbox: vdb.EmptyBBox(),
	}
}

// NewPlaceholderLoader creates a loader with no grid. Its loads always fail
// with ErrNoGrid; it stands in for volumes that could not be read.
func NewPlaceholderLoader(name string, opts ...LoaderOption) *Loader {
	return NewLoader(nil, name, opts...)
}

// Name returns the name the loader was created with.
func (l *Loader) Name() string { return l.name }

// Grid returns the bound grid, or nil after Cleanup.
func (l *Loader) Grid() vdb.GridBase { return l.grid }

// IsVolume always reports true.
func (l *Loader) IsVolume() bool { return true }

// State returns the lifecycle state.
func (l *Loader) State() LoaderState { return l.state }

// Err returns the reason of the most recent failed operation, or nil when
// the most recent LoadMetadata or LoadPixels succeeded.
func (l *Loader) Err() error { return l.err }

// Equals reports whether other is a Loader with the same name. Grid
// contents are not compared.
func (l *Loader) Equals(other ImageLoader) bool {
	o, ok := other.(*Loader)
	return ok && o != nil && o.name == l.name
}

// LoadMetadata derives the texture metadata of the grid and stores it in
// meta.
//
// When features.HasNanoVDB is set and the selected compact encoder is
// available, float and vector grids are encoded and meta describes the
// compact buffer. Mask grids fail with ErrNotApplicable in that case. An
// encoder error or panic is logged and the load continues on the dense path.
//
// On failure meta and the loader state are left unchanged; Err reports why.
func (l *Loader) LoadMetadata(features DeviceFeatures, meta *ImageMetaData) bool {
	if meta == nil {
		return l.fail(errors.New("voltex: nil metadata"))
	}
	if l.state == StateReleased {
		return l.fail(ErrReleased)
	}
	if l.grid == nil {
		return l.fail(ErrNoGrid)
	}

	var vo variantOp
	if !dispatch(l.grid, &vo) {
		return l.fail(fmt.Errorf("%w: %v", ErrUnsupportedType, l.grid.ValueType()))
	}
	bbox := l.grid.EvalActiveVoxelBoundingBox()
	if bbox.IsEmpty() {
		return l.fail(ErrEmptyGrid)
	}

	dim := bbox.Dim()
	next := ImageMetaData{
		Width:          int(dim.X),
		Height:         int(dim.Y),
		Depth:          int(dim.Z),
		Channels:       vo.v.channels,
		Type:           vo.v.denseType,
		UseTransform3D: true,
	}
	textureToIndex := denseTextureToIndex(bbox)

	var buf *compact.Buffer
	if features.HasNanoVDB {
		if enc := l.opts.resolveEncoder(); enc != nil && enc.Available() {
			propagateLogger(enc)
			op := compactOp{enc: enc, precision: l.opts.precision}
			switch {
			case dispatch(l.grid, &op):
				buf = op.buf
				next.Type = compactDataType(buf.Encoding())
				next.ByteSize = buf.Size()
				textureToIndex = IdentityTransform()
			case errors.Is(op.err, ErrNotApplicable):
				Logger().Warn("voltex: compact encoding not applicable",
					"name", l.name, "type", l.grid.ValueType())
				return l.fail(op.err)
			default:
				Logger().Warn("voltex: falling back to dense texture", "name", l.name, "err", op.err)
			}
		}
	}
	next.Transform = indexToObject(l.grid.Transform()).Multiply(textureToIndex)

	*meta = next
	l.bbox = bbox
	l.buf = buf
	l.meta = next
	l.state = StateMetadataReady
	l.err = nil

	Logger().Debug("voltex: metadata loaded",
		"name", l.name,
		"type", next.Type,
		"width", next.Width, "height", next.Height, "depth", next.Depth,
		"channels", next.Channels,
		"bytes", next.ByteSize)
	return true
}

// LoadPixels fills pixels for meta, which must be the metadata of the last
// successful LoadMetadata. Compact loads copy exactly meta.ByteSize bytes;
// dense loads write meta.PixelBytes bytes. associateAlpha is ignored.
func (l *Loader) LoadPixels(meta ImageMetaData, pixels []byte, associateAlpha bool) bool {
	switch l.state {
	case StateReleased:
		return l.fail(ErrReleased)
	case StateUninitialized:
		return l.fail(ErrMetadataNotLoaded)
	}
	if meta != l.meta {
		return l.fail(ErrMetadataMismatch)
	}

	if l.buf != nil {
		if len(pixels) < l.buf.Size() {
			return l.fail(fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(pixels), l.buf.Size()))
		}
		copy(pixels, l.buf.Bytes())
	} else {
		op := denseOp{bbox: l.bbox, dst: pixels, workers: l.opts.workers}
		if !dispatch(l.grid, &op) {
			if op.err == nil {
				op.err = ErrUnsupportedType
			}
			return l.fail(op.err)
		}
	}

	l.state = StatePixelsLoaded
	l.err = nil
	Logger().Debug("voltex: pixels loaded", "name", l.name, "bytes", meta.PixelBytes())
	return true
}

// Cleanup drops the grid and any compact buffer and moves the loader to
// StateReleased. It is safe to call more than once.
func (l *Loader) Cleanup() {
	l.grid = nil
	l.buf = nil
	l.bbox = vdb.EmptyBBox()
	l.meta = ImageMetaData{}
	l.state = StateReleased
}

// Compact returns the compact buffer of the current load, or nil on the
// dense path.
func (l *Loader) Compact() *compact.Buffer { return l.buf }

func (l *Loader) fail(err error) bool {
	l.err = err
	return false
}
