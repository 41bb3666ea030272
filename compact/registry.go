package compact

import (
	"slices"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/voltex/vdb"
)

// Registered backend names.
const (
	BackendNanoVDB = "nanovdb"
	BackendNone    = "none"
)

// encoders holds the registered backends. NanoVDB wins when linked in.
var encoders = gpucontext.NewRegistry[Encoder](
	gpucontext.WithPriority(BackendNanoVDB, BackendNone),
)

func init() {
	Register(BackendNone, func() Encoder { return nopEncoder{} })
}

// Register registers an encoder factory under name. Backends call it from
// init. A factory registered under an existing name replaces it.
func Register(name string, factory func() Encoder) {
	encoders.Register(name, factory)
}

// Unregister removes a backend. Mostly useful in tests.
func Unregister(name string) {
	encoders.Unregister(name)
}

// Get returns the encoder registered under name, or nil.
func Get(name string) Encoder {
	return encoders.Get(name)
}

// Default returns the highest-priority registered encoder. When no other
// backend is linked in this is the no-op encoder.
func Default() Encoder {
	if e := encoders.Best(); e != nil {
		return e
	}
	return nopEncoder{}
}

// Available returns the sorted names of all registered backends.
func Available() []string {
	names := encoders.Available()
	slices.Sort(names)
	return names
}

// nopEncoder stands in when no compact backend is linked into the build.
type nopEncoder struct{}

func (nopEncoder) Name() string    { return BackendNone }
func (nopEncoder) Available() bool { return false }

func (nopEncoder) EncodeFloat(*vdb.FloatGrid, Precision) (*Buffer, error) {
	return nil, ErrUnavailable
}

func (nopEncoder) EncodeVec3(*vdb.Vec3fGrid) (*Buffer, error) {
	return nil, ErrUnavailable
}
