package voltex

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/voltex/compact"
	"github.com/gogpu/voltex/vdb"
)

var errBoom = errors.New("boom")

func TestCompactOpSuccess(t *testing.T) {
	want := compact.NewBuffer(make([]byte, 96), compact.EncodingFp16)
	enc := &stubEncoder{float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
		return want, nil
	}}
	op := compactOp{enc: enc, precision: compact.PrecisionHalf}
	if !dispatch(cubeGrid(2, 1), &op) {
		t.Fatalf("compact encoding failed: %v", op.err)
	}
	if op.buf != want || op.err != nil {
		t.Errorf("buf, err = %v, %v; want stub buffer, nil", op.buf, op.err)
	}
	if enc.precision != compact.PrecisionHalf {
		t.Errorf("encoder saw precision %v, want half", enc.precision)
	}
}

func TestCompactOpFaults(t *testing.T) {
	tests := []struct {
		name     string
		float    func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error)
		panicked bool
		inner    error
	}{
		{
			name: "error",
			float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
				return nil, errBoom
			},
			inner: errBoom,
		},
		{
			name: "panic with string",
			float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
				panic("kaboom")
			},
			panicked: true,
		},
		{
			name: "panic with error",
			float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
				panic(errBoom)
			},
			panicked: true,
			inner:    errBoom,
		},
		{
			name: "nil buffer",
			float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
				return nil, nil
			},
		},
		{
			name: "empty buffer",
			float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
				return compact.NewBuffer(nil, compact.EncodingFloat), nil
			},
		},
		{
			name: "unknown encoding",
			float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
				return compact.NewBuffer(make([]byte, 8), compact.EncodingUnknown), nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := compactOp{enc: &stubEncoder{name: "flaky", float: tt.float}}
			if dispatch(cubeGrid(2, 1), &op) {
				t.Fatal("compact encoding succeeded")
			}
			if op.buf != nil {
				t.Error("buf is set after a fault")
			}
			var ee *EncodeError
			if !errors.As(op.err, &ee) {
				t.Fatalf("err = %T %v, want *EncodeError", op.err, op.err)
			}
			if ee.Backend != "flaky" {
				t.Errorf("Backend = %q, want flaky", ee.Backend)
			}
			if ee.Panicked != tt.panicked {
				t.Errorf("Panicked = %v, want %v", ee.Panicked, tt.panicked)
			}
			if tt.inner != nil && !errors.Is(op.err, tt.inner) {
				t.Errorf("err = %v, want it to wrap %v", op.err, tt.inner)
			}
			if !strings.Contains(op.err.Error(), "flaky") {
				t.Errorf("Error() = %q, want backend name", op.err.Error())
			}
		})
	}
}

func TestCompactOpNotApplicable(t *testing.T) {
	t.Run("mask grid", func(t *testing.T) {
		enc := &stubEncoder{}
		op := compactOp{enc: enc}
		g := vdb.NewMaskGrid()
		g.Tree().SetValueOn(vdb.Coord{}, true)
		if dispatch(g, &op) {
			t.Fatal("compact encoding of a mask grid succeeded")
		}
		if !errors.Is(op.err, ErrNotApplicable) {
			t.Errorf("err = %v, want ErrNotApplicable", op.err)
		}
		if enc.floatCalls != 0 {
			t.Error("encoder was called for a mask grid")
		}
	})

	t.Run("encoder refuses", func(t *testing.T) {
		op := compactOp{enc: &stubEncoder{float: func(*vdb.FloatGrid, compact.Precision) (*compact.Buffer, error) {
			return nil, compact.ErrNotApplicable
		}}}
		if dispatch(cubeGrid(1, 1), &op) {
			t.Fatal("compact encoding succeeded")
		}
		if !errors.Is(op.err, ErrNotApplicable) {
			t.Errorf("err = %v, want ErrNotApplicable", op.err)
		}
		var ee *EncodeError
		if errors.As(op.err, &ee) {
			t.Error("not-applicable refusal reported as an encoder fault")
		}
	})
}

func TestErrNotApplicableWrapsCompact(t *testing.T) {
	if !errors.Is(ErrNotApplicable, compact.ErrNotApplicable) {
		t.Error("ErrNotApplicable does not wrap compact.ErrNotApplicable")
	}
}
