package voltex

import (
	"runtime"

	"github.com/gogpu/voltex/compact"
)

// LoaderOption configures a Loader during creation.
// Use functional options to customize Loader behavior.
//
// Example:
//
//	// Dense conversion, default adaptive precision for compact loads
//	ld := voltex.NewLoader(grid, "density")
//
//	// Half-precision compact encoding on four dense workers
//	ld := voltex.NewLoader(grid, "density",
//	    voltex.WithPrecision(compact.PrecisionHalf),
//	    voltex.WithWorkers(4))
type LoaderOption func(*loaderOptions)

// loaderOptions holds optional configuration for Loader creation.
type loaderOptions struct {
	precision   compact.Precision
	encoderName string
	encoder     compact.Encoder
	workers     int
}

// defaultOptions returns the default loader options.
func defaultOptions() loaderOptions {
	return loaderOptions{
		precision: compact.PrecisionAdaptive,
		workers:   runtime.GOMAXPROCS(0),
	}
}

// WithPrecision sets the precision of compact scalar encodings.
// Invalid precisions are ignored.
func WithPrecision(p compact.Precision) LoaderOption {
	return func(o *loaderOptions) {
		if p.Valid() {
			o.precision = p
		}
	}
}

// WithEncoder selects a registered compact encoder by name, e.g. "nanovdb"
// or "none". An unknown name resolves to the no-op encoder at load time.
func WithEncoder(name string) LoaderOption {
	return func(o *loaderOptions) {
		o.encoderName = name
		o.encoder = nil
	}
}

// WithEncoderInstance injects a compact encoder directly, bypassing the
// registry.
func WithEncoderInstance(e compact.Encoder) LoaderOption {
	return func(o *loaderOptions) {
		o.encoder = e
		o.encoderName = ""
	}
}

// WithWorkers sets the number of goroutines used for dense conversion.
// Values below 1 keep the default of GOMAXPROCS.
func WithWorkers(n int) LoaderOption {
	return func(o *loaderOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// resolveEncoder returns the encoder the options select.
func (o *loaderOptions) resolveEncoder() compact.Encoder {
	if o.encoder != nil {
		return o.encoder
	}
	if o.encoderName != "" {
		if e := compact.Get(o.encoderName); e != nil {
			return e
		}
		return compact.Get(compact.BackendNone)
	}
	return compact.Default()
}
