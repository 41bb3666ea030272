// Package export stores loaded volume textures in a small cache file: the
// texture metadata followed by the pixel payload, optionally compressed
// with lz4 or zstd.
//
// A cache file lets a renderer skip grid traversal and compact encoding on
// the next run:
//
//	tex, err := export.Load(loader, voltex.DeviceFeatures{HasNanoVDB: true})
//	...
//	_, err = export.Write(f, tex, export.CodecZstd)
//
// All fields are little-endian. The payload checksum is CRC-32 (IEEE) of
// the uncompressed pixels.
package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/gogpu/voltex"
)

// Magic identifies a texture cache file.
var Magic = [8]byte{'V', 'T', 'X', 'T', 'E', 'X', '0', '1'}

// Version is the cache layout version written by Write.
const Version uint16 = 1

// MaxPayload bounds the payload size Read accepts.
const MaxPayload = 1 << 34

const flagTransform3D = 1 << 0

var (
	// ErrBadMagic is returned for input that is not a cache file.
	ErrBadMagic = errors.New("export: not a texture cache file")

	// ErrVersion is returned for cache files of an unknown version.
	ErrVersion = errors.New("export: unsupported cache version")

	// ErrChecksum is returned when the payload does not match its checksum.
	ErrChecksum = errors.New("export: payload checksum mismatch")

	// ErrInvalid is returned for inconsistent headers and textures.
	ErrInvalid = errors.New("export: invalid texture")
)

// Texture is a loaded volume texture.
type Texture struct {
	Meta   voltex.ImageMetaData
	Pixels []byte
}

// Stats describes a written cache file.
type Stats struct {
	// Codec is the codec actually used. Payloads that do not compress fall
	// back to CodecNone.
	Codec Codec

	// RawSize is the pixel payload size.
	RawSize int

	// StoredSize is the payload size on disk.
	StoredSize int
}

// Ratio returns StoredSize / RawSize.
func (s Stats) Ratio() float64 {
	if s.RawSize == 0 {
		return 1
	}
	return float64(s.StoredSize) / float64(s.RawSize)
}

// fileHeader is the fixed-size leading block of a cache file.
type fileHeader struct {
	Magic      [8]byte
	Version    uint16
	Codec      uint8
	Flags      uint8
	Type       uint8
	Channels   uint8
	_          [2]byte
	Width      uint32
	Height     uint32
	Depth      uint32
	ByteSize   uint64
	Transform  [12]float64
	RawSize    uint64
	StoredSize uint64
	Checksum   uint32
	_          uint32
}

// Load runs a full metadata and pixel load on ld and returns the result.
func Load(ld voltex.ImageLoader, features voltex.DeviceFeatures) (Texture, error) {
	var meta voltex.ImageMetaData
	if !ld.LoadMetadata(features, &meta) {
		return Texture{}, fmt.Errorf("export: load metadata of %q: %w", ld.Name(), loaderErr(ld))
	}
	pixels := make([]byte, meta.PixelBytes())
	if !ld.LoadPixels(meta, pixels, false) {
		return Texture{}, fmt.Errorf("export: load pixels of %q: %w", ld.Name(), loaderErr(ld))
	}
	return Texture{Meta: meta, Pixels: pixels}, nil
}

func loaderErr(ld voltex.ImageLoader) error {
	if e, ok := ld.(interface{ Err() error }); ok && e.Err() != nil {
		return e.Err()
	}
	return errors.New("load failed")
}

// Write writes t to w, compressing the payload with c.
func Write(w io.Writer, t Texture, c Codec) (Stats, error) {
	if err := validate(t.Meta, len(t.Pixels)); err != nil {
		return Stats{}, err
	}
	stored, used, err := compress(t.Pixels, c)
	if err != nil {
		return Stats{}, err
	}

	h := fileHeader{
		Magic:      Magic,
		Version:    Version,
		Codec:      uint8(used),
		Type:       uint8(t.Meta.Type),
		Channels:   uint8(t.Meta.Channels),
		Width:      uint32(t.Meta.Width),
		Height:     uint32(t.Meta.Height),
		Depth:      uint32(t.Meta.Depth),
		ByteSize:   uint64(t.Meta.ByteSize),
		RawSize:    uint64(len(t.Pixels)),
		StoredSize: uint64(len(stored)),
		Checksum:   crc32.ChecksumIEEE(t.Pixels),
	}
	if t.Meta.UseTransform3D {
		h.Flags |= flagTransform3D
	}
	for i := 0; i < 3; i++ {
		copy(h.Transform[4*i:4*i+4], t.Meta.Transform[i][:])
	}

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return Stats{}, fmt.Errorf("export: write header: %w", err)
	}
	if _, err := w.Write(stored); err != nil {
		return Stats{}, fmt.Errorf("export: write payload: %w", err)
	}
	return Stats{Codec: used, RawSize: len(t.Pixels), StoredSize: len(stored)}, nil
}

// Read reads a texture written by Write.
func Read(r io.Reader) (Texture, error) {
	var h fileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Texture{}, fmt.Errorf("export: read header: %w", err)
	}
	if h.Magic != Magic {
		return Texture{}, ErrBadMagic
	}
	if h.Version != Version {
		return Texture{}, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if h.RawSize > MaxPayload || h.StoredSize > MaxPayload {
		return Texture{}, fmt.Errorf("%w: payload of %d bytes", ErrInvalid, h.RawSize)
	}

	meta := voltex.ImageMetaData{
		Width:          int(h.Width),
		Height:         int(h.Height),
		Depth:          int(h.Depth),
		Channels:       int(h.Channels),
		Type:           voltex.ImageDataType(h.Type),
		ByteSize:       int(h.ByteSize),
		UseTransform3D: h.Flags&flagTransform3D != 0,
	}
	for i := 0; i < 3; i++ {
		copy(meta.Transform[i][:], h.Transform[4*i:4*i+4])
	}
	if err := validate(meta, int(h.RawSize)); err != nil {
		return Texture{}, err
	}

	stored := make([]byte, h.StoredSize)
	if _, err := io.ReadFull(r, stored); err != nil {
		return Texture{}, fmt.Errorf("export: read payload: %w", err)
	}
	pixels, err := decompress(stored, Codec(h.Codec), int(h.RawSize))
	if err != nil {
		return Texture{}, err
	}
	if crc32.ChecksumIEEE(pixels) != h.Checksum {
		return Texture{}, ErrChecksum
	}
	return Texture{Meta: meta, Pixels: pixels}, nil
}

// validate checks that meta describes a loadable texture of n bytes.
func validate(meta voltex.ImageMetaData, n int) error {
	info := meta.Type.Info()
	switch {
	case info.Channels == 0:
		return fmt.Errorf("%w: data type %v", ErrInvalid, meta.Type)
	case meta.Channels != info.Channels:
		return fmt.Errorf("%w: %d channels for %v", ErrInvalid, meta.Channels, meta.Type)
	case meta.Width <= 0 || meta.Height <= 0 || meta.Depth <= 0:
		return fmt.Errorf("%w: %d×%d×%d", ErrInvalid, meta.Width, meta.Height, meta.Depth)
	case meta.PixelBytes() != n:
		return fmt.Errorf("%w: payload of %d bytes, metadata needs %d", ErrInvalid, n, meta.PixelBytes())
	}
	return nil
}
