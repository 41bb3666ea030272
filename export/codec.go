package export

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is the compression applied to a texture payload.
type Codec uint8

const (
	// CodecNone stores the payload as is.
	CodecNone Codec = 0

	// CodecLZ4 is LZ4 block compression. Fast, suited to scratch caches.
	CodecLZ4 Codec = 1

	// CodecZstd is zstd compression. Better ratio for long-lived caches.
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ParseCodec parses a codec name.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd", "zst":
		return CodecZstd, nil
	}
	return CodecNone, fmt.Errorf("export: unknown codec %q", s)
}

// incompressibleRatio is the stored/raw ratio above which a payload is
// kept uncompressed.
const incompressibleRatio = 0.9

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
}

// compress returns the stored form of data and the codec actually used.
// Payloads that do not shrink enough fall back to CodecNone.
func compress(data []byte, c Codec) ([]byte, Codec, error) {
	if c == CodecNone || len(data) == 0 {
		return data, CodecNone, nil
	}

	var out []byte
	switch c {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, CodecNone, fmt.Errorf("export: lz4: %w", err)
		}
		out = buf[:n]
	case CodecZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, CodecNone, fmt.Errorf("export: zstd: %w", err)
		}
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, CodecNone, fmt.Errorf("export: unsupported codec %v", c)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*incompressibleRatio {
		return data, CodecNone, nil
	}
	return out, c, nil
}

// decompress restores rawSize bytes from stored.
func decompress(stored []byte, c Codec, rawSize int) ([]byte, error) {
	switch c {
	case CodecNone:
		if len(stored) != rawSize {
			return nil, errSizeMismatch
		}
		return stored, nil
	case CodecLZ4:
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("export: lz4: %w", err)
		}
		if n != rawSize {
			return nil, errSizeMismatch
		}
		return out, nil
	case CodecZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("export: zstd: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(stored, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("export: zstd: %w", err)
		}
		if len(out) != rawSize {
			return nil, errSizeMismatch
		}
		return out, nil
	default:
		return nil, fmt.Errorf("export: unsupported codec %v", c)
	}
}

var errSizeMismatch = errors.New("export: decompressed size mismatch")
