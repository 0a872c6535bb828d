package envelope

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/roach88/kvserde/internal/value"
)

// Marker bytes. These are protocol constants; changing them breaks every
// stored payload.
const (
	MarkerRaw  byte = 'R'
	MarkerZlib byte = 'Z'
	MarkerZstd byte = 'S'
	MarkerLZ4  byte = 'L'
)

// Compression selects the algorithm applied to text at or above the
// threshold.
type Compression uint8

const (
	// CompressionNone is reported by Inspect for raw payloads. It is not a
	// valid Config.Compression.
	CompressionNone Compression = iota
	CompressionZlib
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of a compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses an algorithm name as written by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "zlib":
		return CompressionZlib, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("unknown compression algorithm: %q", name)
	}
}

// Marker returns the payload marker for c.
func (c Compression) Marker() byte {
	switch c {
	case CompressionZlib:
		return MarkerZlib
	case CompressionZstd:
		return MarkerZstd
	case CompressionLZ4:
		return MarkerLZ4
	default:
		return MarkerRaw
	}
}

func compressionOf(marker byte) (Compression, bool) {
	switch marker {
	case MarkerRaw:
		return CompressionNone, true
	case MarkerZlib:
		return CompressionZlib, true
	case MarkerZstd:
		return CompressionZstd, true
	case MarkerLZ4:
		return CompressionLZ4, true
	default:
		return 0, false
	}
}

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("envelope: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxTextSizeLimit))
	if err != nil {
		panic("envelope: zstd decoder initialization failed: " + err.Error())
	}
}

// compress appends the compressed form of text to dst.
func compress(dst []byte, c Compression, text []byte) ([]byte, error) {
	switch c {
	case CompressionZlib:
		buf := bytes.NewBuffer(dst)
		w := zlib.NewWriter(buf)
		if _, err := w.Write(text); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zlib compress: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionZstd:
		return zstdEncoder.EncodeAll(text, dst), nil

	case CompressionLZ4:
		buf := bytes.NewBuffer(dst)
		w := lz4.NewWriter(buf)
		if _, err := w.Write(text); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported compression: %s", c)
	}
}

// decompress reverses compress, refusing text longer than limit bytes.
// Every failure wraps ErrMalformedPayload.
func decompress(c Compression, data []byte, limit int) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch c {
	case CompressionNone:
		out = data

	case CompressionZlib:
		var r io.ReadCloser
		r, err = zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			break
		}
		out, err = io.ReadAll(io.LimitReader(r, int64(limit)+1))
		r.Close()

	case CompressionZstd:
		out, err = zstdDecoder.DecodeAll(data, nil)

	case CompressionLZ4:
		out, err = io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(data)), int64(limit)+1))

	default:
		return nil, fmt.Errorf("%w: unsupported compression %s", value.ErrMalformedPayload, c)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", value.ErrMalformedPayload, c, err)
	}
	if len(out) > limit {
		return nil, fmt.Errorf("%w: text exceeds %d bytes", value.ErrMalformedPayload, limit)
	}
	return out, nil
}
