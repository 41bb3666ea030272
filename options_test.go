package voltex

import (
	"runtime"
	"testing"

	"github.com/gogpu/voltex/compact"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.precision != compact.PrecisionAdaptive {
		t.Errorf("precision = %v, want adaptive", o.precision)
	}
	if o.workers != runtime.GOMAXPROCS(0) {
		t.Errorf("workers = %d, want GOMAXPROCS", o.workers)
	}
	if o.encoder != nil || o.encoderName != "" {
		t.Error("default options should not select an encoder")
	}
}

func TestWithPrecision(t *testing.T) {
	tests := []struct {
		name string
		p    compact.Precision
		want compact.Precision
	}{
		{"half", compact.PrecisionHalf, compact.PrecisionHalf},
		{"float", compact.PrecisionFloat, compact.PrecisionFloat},
		{"adaptive", compact.PrecisionAdaptive, compact.PrecisionAdaptive},
		{"invalid keeps default", compact.Precision(7), compact.PrecisionAdaptive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			WithPrecision(tt.p)(&o)
			if o.precision != tt.want {
				t.Errorf("precision = %v, want %v", o.precision, tt.want)
			}
		})
	}
}

func TestWithWorkers(t *testing.T) {
	o := defaultOptions()
	WithWorkers(3)(&o)
	if o.workers != 3 {
		t.Errorf("workers = %d, want 3", o.workers)
	}
	WithWorkers(0)(&o)
	WithWorkers(-2)(&o)
	if o.workers != 3 {
		t.Errorf("non-positive WithWorkers changed workers to %d", o.workers)
	}
}

func TestResolveEncoder(t *testing.T) {
	stub := &stubEncoder{name: "injected"}

	t.Run("instance", func(t *testing.T) {
		o := defaultOptions()
		WithEncoderInstance(stub)(&o)
		if got := o.resolveEncoder(); got != compact.Encoder(stub) {
			t.Errorf("resolveEncoder() = %v, want injected stub", got)
		}
	})

	t.Run("last option wins", func(t *testing.T) {
		o := defaultOptions()
		WithEncoderInstance(stub)(&o)
		WithEncoder(compact.BackendNone)(&o)
		if got := o.resolveEncoder().Name(); got != compact.BackendNone {
			t.Errorf("resolveEncoder().Name() = %q, want %q", got, compact.BackendNone)
		}
	})

	t.Run("by name", func(t *testing.T) {
		compact.Register("options-test", func() compact.Encoder { return stub })
		t.Cleanup(func() { compact.Unregister("options-test") })

		o := defaultOptions()
		WithEncoder("options-test")(&o)
		if got := o.resolveEncoder(); got != compact.Encoder(stub) {
			t.Errorf("resolveEncoder() = %v, want registered stub", got)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		o := defaultOptions()
		WithEncoder("no-such-encoder")(&o)
		e := o.resolveEncoder()
		if e == nil {
			t.Fatal("resolveEncoder() = nil")
		}
		if e.Name() != compact.BackendNone || e.Available() {
			t.Errorf("unknown name resolved to %q (available=%v), want unavailable %q",
				e.Name(), e.Available(), compact.BackendNone)
		}
	})

	t.Run("default", func(t *testing.T) {
		o := defaultOptions()
		if got := o.resolveEncoder(); got == nil {
			t.Fatal("resolveEncoder() = nil")
		}
	})
}
