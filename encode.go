package voltex

import (
	"errors"
	"fmt"

	"github.com/gogpu/voltex/compact"
	"github.com/gogpu/voltex/vdb"
)

// compactOp encodes a grid with a compact encoder. On success buf holds the
// encoding; on failure err holds the reason and buf is nil.
type compactOp struct {
	enc       compact.Encoder
	precision compact.Precision
	buf       *compact.Buffer
	err       error
}

func (o *compactOp) float(g *vdb.FloatGrid, _ variant) bool {
	return o.encode(func() (*compact.Buffer, error) {
		return o.enc.EncodeFloat(g, o.precision)
	})
}

func (o *compactOp) vec3(g *vdb.Vec3fGrid, _ variant) bool {
	return o.encode(func() (*compact.Buffer, error) {
		return o.enc.EncodeVec3(g)
	})
}

func (o *compactOp) mask(*vdb.MaskGrid, variant) bool {
	o.buf, o.err = nil, ErrNotApplicable
	return false
}

// encode runs fn and turns any error or panic it raises into an
// *EncodeError. This is the only place voltex recovers from a panic.
func (o *compactOp) encode(fn func() (*compact.Buffer, error)) (ok bool) {
	name := o.enc.Name()
	defer func() {
		if r := recover(); r != nil {
			err, isErr := r.(error)
			if !isErr {
				err = fmt.Errorf("%v", r)
			}
			o.buf, o.err = nil, &EncodeError{Backend: name, Err: err, Panicked: true}
			Logger().Warn("voltex: compact encoder panicked", "backend", name, "panic", r)
			ok = false
		}
	}()

	buf, err := fn()
	switch {
	case errors.Is(err, compact.ErrNotApplicable):
		o.buf, o.err = nil, ErrNotApplicable
		return false
	case err != nil:
		o.buf, o.err = nil, &EncodeError{Backend: name, Err: err}
	case buf == nil || buf.Size() == 0:
		o.buf, o.err = nil, &EncodeError{Backend: name, Err: errors.New("empty buffer")}
	case compactDataType(buf.Encoding()) == DataTypeUnknown:
		o.buf, o.err = nil, &EncodeError{Backend: name, Err: fmt.Errorf("unknown encoding %v", buf.Encoding())}
	default:
		o.buf, o.err = buf, nil
		return true
	}
	Logger().Warn("voltex: compact encoding failed", "backend", name, "err", o.err)
	return false
}
