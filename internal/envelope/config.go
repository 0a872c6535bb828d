package envelope

import (
	"fmt"

	"github.com/roach88/kvserde/internal/codec"
)

// DefaultThreshold is the text size, in bytes, at which compression starts.
const DefaultThreshold = 1024

// MaxTextSizeLimit is the largest accepted MaxTextSize, and the memory
// ceiling of the shared zstd decoder.
const MaxTextSizeLimit = 256 << 20

// Config controls how payloads are framed.
type Config struct {
	// Threshold is the canonical text size in bytes at or above which the
	// text is compressed.
	Threshold int

	// Compression is the algorithm used above the threshold.
	Compression Compression

	// MaxDepth bounds value nesting on encode.
	MaxDepth int

	// MaxTextSize bounds the canonical text a payload may decompress to.
	MaxTextSize int
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Threshold:   DefaultThreshold,
		Compression: CompressionZlib,
		MaxDepth:    codec.DefaultMaxDepth,
		MaxTextSize: MaxTextSizeLimit,
	}
}

// Validate checks that c can be used to build an Engine.
func (c Config) Validate() error {
	if c.Threshold < 1 {
		return fmt.Errorf("threshold must be at least 1, got %d", c.Threshold)
	}
	switch c.Compression {
	case CompressionZlib, CompressionZstd, CompressionLZ4:
	default:
		return fmt.Errorf("compression must be zlib, zstd or lz4, got %s", c.Compression)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1, got %d", c.MaxDepth)
	}
	if c.MaxTextSize < 1 || c.MaxTextSize > MaxTextSizeLimit {
		return fmt.Errorf("max text size must be between 1 and %d, got %d", MaxTextSizeLimit, c.MaxTextSize)
	}
	return nil
}
