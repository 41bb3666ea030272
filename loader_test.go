package voltex

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/voltex/compact"
	"github.com/gogpu/voltex/vdb"
	"github.com/google/go-cmp/cmp"
)

// denseOnly selects the no-op encoder so compact requests take the dense
// path regardless of what the build links in.
var denseOnly = WithEncoder(compact.BackendNone)

// fixedEncoder returns an encoder that always produces payload.
func fixedEncoder(payload []byte, enc compact.Encoding) *stubEncoder {
	return &stubEncoder{
		float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
			return compact.NewBuffer(payload, enc), nil
		},
		vec3: func(*vdb.Vec3fGrid) (*compact.Buffer, error) {
			return compact.NewBuffer(payload, compact.EncodingVec3f), nil
		},
	}
}

func TestLoadMetadataDenseFloat(t *testing.T) {
	ld := NewLoader(cubeGrid(10, 1), "density")
	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}
	want := ImageMetaData{
		Width:    10,
		Height:   10,
		Depth:    10,
		Channels: 1,
		Type:     DataTypeFloat,
		Transform: Transform{
			{10, 0, 0, -0.5},
			{0, 10, 0, -0.5},
			{0, 0, 10, -0.5},
		},
		UseTransform3D: true,
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if ld.State() != StateMetadataReady {
		t.Errorf("State() = %v, want %v", ld.State(), StateMetadataReady)
	}
	if ld.Compact() != nil {
		t.Error("dense load holds a compact buffer")
	}
}

func TestLoadMetadataFailures(t *testing.T) {
	tests := []struct {
		name string
		ld   *Loader
		want error
	}{
		{"placeholder", NewPlaceholderLoader("missing"), ErrNoGrid},
		{"unsupported type", NewLoader(vdb.NewGrid[int64](0), "ids"), ErrUnsupportedType},
		{"empty grid", NewLoader(vdb.NewFloatGrid(0), "empty"), ErrEmptyGrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentinel := ImageMetaData{Width: -7, Type: DataTypeFloat3, ByteSize: 99}
			meta := sentinel
			if tt.ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
				t.Fatal("LoadMetadata() succeeded")
			}
			if !errors.Is(tt.ld.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", tt.ld.Err(), tt.want)
			}
			if diff := cmp.Diff(sentinel, meta); diff != "" {
				t.Errorf("failed load modified metadata (-want +got):\n%s", diff)
			}
			if tt.ld.State() != StateUninitialized {
				t.Errorf("State() = %v, want %v", tt.ld.State(), StateUninitialized)
			}
		})
	}
}

func TestLoadMetadataNilMeta(t *testing.T) {
	ld := NewLoader(cubeGrid(2, 1), "nil")
	if ld.LoadMetadata(DeviceFeatures{}, nil) {
		t.Fatal("LoadMetadata(nil) succeeded")
	}
	if ld.Err() == nil {
		t.Error("Err() = nil after a failed load")
	}
}

func TestLoadMetadataFailureKeepsPreviousLoad(t *testing.T) {
	g := cubeGrid(3, 2)
	ld := NewLoader(g, "refill")
	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}

	// Emptying the grid makes the next load fail without touching the
	// state of the first one.
	g.Tree().Fill(vdb.NewBBox(vdb.Coord{}, vdb.Coord{X: 2, Y: 2, Z: 2}), 0, false)
	var again ImageMetaData
	if ld.LoadMetadata(DeviceFeatures{}, &again) {
		t.Fatal("LoadMetadata() on an emptied grid succeeded")
	}
	if ld.State() != StateMetadataReady {
		t.Errorf("State() = %v, want %v", ld.State(), StateMetadataReady)
	}
	if !errors.Is(ld.Err(), ErrEmptyGrid) {
		t.Errorf("Err() = %v, want ErrEmptyGrid", ld.Err())
	}
}

func TestLoadMetadataChannelsAndTypes(t *testing.T) {
	vec := vdb.NewVec3fGrid(vdb.Vec3f{})
	vec.Tree().SetValueOn(vdb.Coord{X: 1, Y: 2, Z: 3}, vdb.Vec3f{X: 1})
	mask := vdb.NewMaskGrid()
	mask.Tree().SetValueOn(vdb.Coord{X: -5}, true)
	mask.Tree().SetValueOn(vdb.Coord{X: 5}, true)

	tests := []struct {
		name     string
		grid     vdb.GridBase
		channels int
		typ      ImageDataType
		dim      [3]int
	}{
		{"float", cubeGrid(4, 1), 1, DataTypeFloat, [3]int{4, 4, 4}},
		{"vec3", vec, 3, DataTypeFloat3, [3]int{1, 1, 1}},
		{"mask", mask, 1, DataTypeFloat, [3]int{11, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ld := NewLoader(tt.grid, tt.name)
			var meta ImageMetaData
			if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
				t.Fatalf("LoadMetadata() failed: %v", ld.Err())
			}
			if meta.Channels != tt.channels || meta.Type != tt.typ {
				t.Errorf("channels, type = %d, %v; want %d, %v", meta.Channels, meta.Type, tt.channels, tt.typ)
			}
			if got := [3]int{meta.Width, meta.Height, meta.Depth}; got != tt.dim {
				t.Errorf("dims = %v, want %v", got, tt.dim)
			}
			if !meta.UseTransform3D {
				t.Error("UseTransform3D = false")
			}
		})
	}
}

func TestLoadMetadataTransformRoundTrip(t *testing.T) {
	g := vdb.NewFloatGrid(0)
	g.Tree().Fill(vdb.NewBBox(vdb.Coord{X: -3, Y: 4, Z: 10}, vdb.Coord{X: 6, Y: 4, Z: 17}), 1, true)
	g.SetTransform(vdb.NewScaleTranslateMap(vdb.Vec3d{X: 0.5, Y: 2, Z: 0.25}, vdb.Vec3d{X: 100, Y: -50, Z: 7}))

	ld := NewLoader(g, "xform")
	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}
	first := vdb.Vec3d{
		X: 0.5 / float64(meta.Width),
		Y: 0.5 / float64(meta.Height),
		Z: 0.5 / float64(meta.Depth),
	}
	want := g.Transform().CoordToWorld(vdb.Coord{X: -3, Y: 4, Z: 10})
	if got := meta.Transform.Apply(first); !nearVec(got, want, 1e-9) {
		t.Errorf("first voxel center maps to %v, want %v", got, want)
	}

	inv, err := meta.ObjectToTexture()
	if err != nil {
		t.Fatalf("ObjectToTexture() error = %v", err)
	}
	if got := inv.Apply(want); !nearVec(got, first, 1e-9) {
		t.Errorf("inverse maps %v to %v, want %v", want, got, first)
	}
}

func TestLoadPixelsDense(t *testing.T) {
	g := vdb.NewFloatGrid(0)
	g.Tree().SetValueOn(vdb.Coord{X: 0}, 1)
	g.Tree().SetValueOn(vdb.Coord{X: 1, Y: 1}, 2)

	ld := NewLoader(g, "pixels", WithWorkers(2), denseOnly)
	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}
	if meta.Type != DataTypeFloat {
		t.Fatalf("Type = %v, want %v", meta.Type, DataTypeFloat)
	}

	pixels := make([]byte, meta.PixelBytes())
	if !ld.LoadPixels(meta, pixels, false) {
		t.Fatalf("LoadPixels() failed: %v", ld.Err())
	}
	want := []float32{1, 0, 0, 2}
	for i, w := range want {
		if got := f32At(pixels, i); got != w {
			t.Errorf("pixel %d = %v, want %v", i, got, w)
		}
	}
	if ld.State() != StatePixelsLoaded {
		t.Errorf("State() = %v, want %v", ld.State(), StatePixelsLoaded)
	}

	// A second upload of the same load is allowed.
	if !ld.LoadPixels(meta, pixels, true) {
		t.Errorf("repeated LoadPixels() failed: %v", ld.Err())
	}
}

func TestLoadPixelsPreconditions(t *testing.T) {
	t.Run("before metadata", func(t *testing.T) {
		ld := NewLoader(cubeGrid(2, 1), "early")
		if ld.LoadPixels(ImageMetaData{}, make([]byte, 64), false) {
			t.Fatal("LoadPixels() before LoadMetadata succeeded")
		}
		if !errors.Is(ld.Err(), ErrMetadataNotLoaded) {
			t.Errorf("Err() = %v, want ErrMetadataNotLoaded", ld.Err())
		}
	})

	t.Run("foreign metadata", func(t *testing.T) {
		ld := NewLoader(cubeGrid(2, 1), "foreign")
		var meta ImageMetaData
		if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
			t.Fatalf("LoadMetadata() failed: %v", ld.Err())
		}
		other := meta
		other.Width = 3
		if ld.LoadPixels(other, make([]byte, 1024), false) {
			t.Fatal("LoadPixels() with foreign metadata succeeded")
		}
		if !errors.Is(ld.Err(), ErrMetadataMismatch) {
			t.Errorf("Err() = %v, want ErrMetadataMismatch", ld.Err())
		}
	})

	t.Run("short buffer", func(t *testing.T) {
		ld := NewLoader(cubeGrid(2, 1), "short")
		var meta ImageMetaData
		if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
			t.Fatalf("LoadMetadata() failed: %v", ld.Err())
		}
		if ld.LoadPixels(meta, make([]byte, meta.PixelBytes()-4), false) {
			t.Fatal("LoadPixels() into a short buffer succeeded")
		}
		if !errors.Is(ld.Err(), ErrBufferTooSmall) {
			t.Errorf("Err() = %v, want ErrBufferTooSmall", ld.Err())
		}
		if ld.State() != StateMetadataReady {
			t.Errorf("State() = %v, want %v", ld.State(), StateMetadataReady)
		}
	})

	t.Run("after cleanup", func(t *testing.T) {
		ld := NewLoader(cubeGrid(2, 1), "released")
		var meta ImageMetaData
		if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
			t.Fatalf("LoadMetadata() failed: %v", ld.Err())
		}
		ld.Cleanup()
		if ld.LoadPixels(meta, make([]byte, meta.PixelBytes()), false) {
			t.Fatal("LoadPixels() after Cleanup succeeded")
		}
		if !errors.Is(ld.Err(), ErrReleased) {
			t.Errorf("Err() = %v, want ErrReleased", ld.Err())
		}
		if ld.LoadMetadata(DeviceFeatures{}, &meta) {
			t.Fatal("LoadMetadata() after Cleanup succeeded")
		}
	})
}

func TestLoadCompactWithEncoder(t *testing.T) {
	payload := []byte("compact payload bytes, any length will do")
	enc := fixedEncoder(payload, compact.EncodingFp16)
	ld := NewLoader(cubeGrid(10, 1), "compact",
		WithEncoderInstance(enc), WithPrecision(compact.PrecisionHalf))

	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}
	if enc.precision != compact.PrecisionHalf {
		t.Errorf("encoder precision = %v, want half", enc.precision)
	}
	want := ImageMetaData{
		Width:          10,
		Height:         10,
		Depth:          10,
		Channels:       1,
		Type:           DataTypeNanoVDBFp16,
		ByteSize:       len(payload),
		Transform:      IdentityTransform(),
		UseTransform3D: true,
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}
	if ld.Compact() == nil || ld.Compact().Size() != meta.ByteSize {
		t.Fatal("compact buffer size does not match ByteSize")
	}

	// Bytes beyond ByteSize stay untouched.
	pixels := bytes.Repeat([]byte{0xEE}, meta.ByteSize+8)
	if !ld.LoadPixels(meta, pixels, false) {
		t.Fatalf("LoadPixels() failed: %v", ld.Err())
	}
	if !bytes.Equal(pixels[:meta.ByteSize], payload) {
		t.Error("compact pixels differ from the encoder buffer")
	}
	if !bytes.Equal(pixels[meta.ByteSize:], bytes.Repeat([]byte{0xEE}, 8)) {
		t.Error("LoadPixels() wrote past ByteSize")
	}

	if ld.LoadPixels(meta, make([]byte, meta.ByteSize-1), false) {
		t.Error("LoadPixels() into a short compact buffer succeeded")
	}
}

func TestLoadCompactVec3(t *testing.T) {
	g := vdb.NewVec3fGrid(vdb.Vec3f{})
	g.Tree().SetValueOn(vdb.Coord{}, vdb.Vec3f{X: 1, Y: 2, Z: 3})
	ld := NewLoader(g, "velocity", WithEncoderInstance(fixedEncoder(make([]byte, 40), compact.EncodingFloat)))

	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}
	if meta.Type != DataTypeNanoVDBFloat3 || meta.Channels != 3 || meta.ByteSize != 40 {
		t.Errorf("type, channels, bytes = %v, %d, %d; want nanovdb_float3, 3, 40", meta.Type, meta.Channels, meta.ByteSize)
	}
}

func TestLoadCompactNotRequested(t *testing.T) {
	enc := fixedEncoder(make([]byte, 16), compact.EncodingFloat)
	ld := NewLoader(cubeGrid(2, 1), "dense", WithEncoderInstance(enc))
	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}
	if meta.IsCompact() || enc.floatCalls != 0 {
		t.Errorf("compact path taken without HasNanoVDB (type %v, %d encoder calls)", meta.Type, enc.floatCalls)
	}
}

func TestLoadCompactUnavailableEncoder(t *testing.T) {
	enc := fixedEncoder(make([]byte, 16), compact.EncodingFloat)
	enc.unavailable = true

	mask := vdb.NewMaskGrid()
	mask.Tree().SetValueOn(vdb.Coord{}, true)

	for _, g := range []vdb.GridBase{cubeGrid(2, 1), mask} {
		ld := NewLoader(g, "fallback", WithEncoderInstance(enc))
		var meta ImageMetaData
		if !ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
			t.Fatalf("%v: LoadMetadata() failed: %v", g.ValueType(), ld.Err())
		}
		if meta.IsCompact() {
			t.Errorf("%v: unavailable encoder produced type %v", g.ValueType(), meta.Type)
		}
	}
	if enc.floatCalls != 0 {
		t.Errorf("unavailable encoder was called %d times", enc.floatCalls)
	}
}

func TestLoadCompactMaskNotApplicable(t *testing.T) {
	mask := vdb.NewMaskGrid()
	mask.Tree().SetValueOn(vdb.Coord{X: 4}, true)
	ld := NewLoader(mask, "mask", WithEncoderInstance(&stubEncoder{}))

	meta := ImageMetaData{Width: 42}
	if ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
		t.Fatal("compact load of a mask grid succeeded")
	}
	if !errors.Is(ld.Err(), ErrNotApplicable) {
		t.Errorf("Err() = %v, want ErrNotApplicable", ld.Err())
	}
	if meta.Width != 42 {
		t.Error("failed load modified metadata")
	}
	if ld.Compact() != nil {
		t.Error("mask load produced a compact buffer")
	}

	// The same grid loads densely when compact encoding is not requested.
	if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
		t.Fatalf("dense LoadMetadata() failed: %v", ld.Err())
	}
}

func TestLoadCompactEncoderFaultFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		float func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error)
	}{
		{"error", func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
			return nil, errBoom
		}},
		{"panic", func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
			panic("out of memory")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ld := NewLoader(cubeGrid(3, 5), "faulty", WithEncoderInstance(&stubEncoder{float: tt.float}))
			var meta ImageMetaData
			if !ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
				t.Fatalf("LoadMetadata() failed: %v", ld.Err())
			}
			if meta.Type != DataTypeFloat || meta.ByteSize != 0 {
				t.Errorf("type, bytes = %v, %d; want dense float, 0", meta.Type, meta.ByteSize)
			}
			if ld.Compact() != nil {
				t.Error("fault left a compact buffer behind")
			}
			pixels := make([]byte, meta.PixelBytes())
			if !ld.LoadPixels(meta, pixels, false) {
				t.Fatalf("LoadPixels() failed: %v", ld.Err())
			}
			if got := f32At(pixels, 26); got != 5 {
				t.Errorf("last pixel = %v, want 5", got)
			}
		})
	}
}

func TestLoaderEquals(t *testing.T) {
	a := NewLoader(cubeGrid(2, 1), "shared")
	b := NewLoader(cubeGrid(5, 9), "shared")
	c := NewLoader(cubeGrid(2, 1), "other")

	if !a.Equals(b) || !b.Equals(a) {
		t.Error("loaders with the same name are not equal")
	}
	if a.Equals(c) {
		t.Error("loaders with different names are equal")
	}
	if a.Equals(nil) {
		t.Error("loader equals nil")
	}
	var typedNil *Loader
	if a.Equals(typedNil) {
		t.Error("loader equals a typed nil loader")
	}

	b.Cleanup()
	if !a.Equals(b) || b.Name() != "shared" {
		t.Error("Cleanup changed name or equality")
	}
}

func TestLoaderCleanup(t *testing.T) {
	ld := NewLoader(cubeGrid(2, 1), "cleanup", WithEncoderInstance(fixedEncoder(make([]byte, 8), compact.EncodingFloat)))
	var meta ImageMetaData
	if !ld.LoadMetadata(DeviceFeatures{HasNanoVDB: true}, &meta) {
		t.Fatalf("LoadMetadata() failed: %v", ld.Err())
	}
	if ld.Grid() == nil || ld.Compact() == nil {
		t.Fatal("loaded state missing grid or compact buffer")
	}

	ld.Cleanup()
	ld.Cleanup()
	if ld.Grid() != nil || ld.Compact() != nil {
		t.Error("Cleanup kept the grid or the compact buffer")
	}
	if ld.State() != StateReleased {
		t.Errorf("State() = %v, want %v", ld.State(), StateReleased)
	}

	failed := NewPlaceholderLoader("placeholder")
	failed.LoadMetadata(DeviceFeatures{}, &meta)
	failed.Cleanup()
	failed.Cleanup()
	if failed.State() != StateReleased {
		t.Errorf("State() = %v, want %v", failed.State(), StateReleased)
	}
}

func TestLoaderMetadataMatchesDenseSize(t *testing.T) {
	// PixelBytes agrees with DenseSize over the active bounding box for
	// every dense value type.
	vec := vdb.NewVec3fGrid(vdb.Vec3f{})
	vec.Tree().Fill(vdb.NewBBox(vdb.Coord{X: -2}, vdb.Coord{X: 3, Y: 1, Z: 2}), vdb.Vec3f{Y: 1}, true)

	for _, g := range []vdb.GridBase{cubeGrid(7, 1), vec} {
		ld := NewLoader(g, "size")
		var meta ImageMetaData
		if !ld.LoadMetadata(DeviceFeatures{}, &meta) {
			t.Fatalf("LoadMetadata() failed: %v", ld.Err())
		}
		n, _ := NumChannels(g)
		want := DenseSize(g.EvalActiveVoxelBoundingBox(), n)
		if got := int64(meta.PixelBytes()); got != want {
			t.Errorf("%v: PixelBytes() = %d, want %d", g.ValueType(), got, want)
		}
	}
}

func TestLoaderStateString(t *testing.T) {
	got := []string{
		StateUninitialized.String(),
		StateMetadataReady.String(),
		StatePixelsLoaded.String(),
		StateReleased.String(),
		LoaderState(9).String(),
	}
	want := []string{"uninitialized", "metadata ready", "pixels loaded", "released", "LoaderState(9)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("state names mismatch (-want +got):\n%s", diff)
	}
}
