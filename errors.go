package voltex

import (
	"errors"
	"fmt"

	"github.com/gogpu/voltex/compact"
)

// Reasons a load fails, reported by Loader.Err.
var (
	// ErrNoGrid is returned when the loader has no grid bound.
	ErrNoGrid = errors.New("voltex: no grid bound")

	// ErrUnsupportedType is returned for grids of an unrecognized value type.
	ErrUnsupportedType = errors.New("voltex: unsupported grid value type")

	// ErrEmptyGrid is returned when the grid has no active voxels.
	ErrEmptyGrid = errors.New("voltex: grid has no active voxels")

	// ErrNotApplicable is returned when compact encoding was requested for
	// a grid type that has no compact representation.
	ErrNotApplicable = fmt.Errorf("voltex: %w", compact.ErrNotApplicable)

	// ErrReleased is returned by loaders after Cleanup.
	ErrReleased = errors.New("voltex: loader released")

	// ErrMetadataNotLoaded is returned by LoadPixels before a successful
	// LoadMetadata.
	ErrMetadataNotLoaded = errors.New("voltex: metadata not loaded")

	// ErrMetadataMismatch is returned by LoadPixels when the metadata does
	// not describe the loader's current load.
	ErrMetadataMismatch = errors.New("voltex: metadata does not match loaded state")

	// ErrBufferTooSmall is returned when the pixel buffer cannot hold the
	// texture.
	ErrBufferTooSmall = errors.New("voltex: pixel buffer too small")
)

// EncodeError reports a compact encoder fault: an error or a recovered
// panic. Loads that hit one fall back to the dense path.
type EncodeError struct {
	// Backend is the encoder's registry name.
	Backend string

	// Err is the encoder error, or the recovered panic value wrapped in an
	// error.
	Err error

	// Panicked is set when Err comes from a recovered panic.
	Panicked bool
}

func (e *EncodeError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("voltex: %s encoder panicked: %v", e.Backend, e.Err)
	}
	return fmt.Sprintf("voltex: %s encoder: %v", e.Backend, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
