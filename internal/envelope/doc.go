// Package envelope is the public encode/decode surface: it runs the codec,
// writes the canonical text, and frames it behind a one-byte marker that
// says whether (and how) the text is compressed.
//
// Payload layout:
//
//	'R' <canonical text>
//	'Z' <zlib stream of the canonical text>
//	'S' <zstd frame of the canonical text>
//	'L' <lz4 frame of the canonical text>
//
// Text shorter than the configured threshold is always written raw. An
// empty payload decodes to nil, which callers use to represent a missing
// key.
package envelope
