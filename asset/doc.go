// Package asset decodes the palette-indexed, run-length encoded image format.
//
// # Record Layout
//
// Every record carries its own palette followed by a run stream:
//
//	u16be   palette entry count N
//	N * 4   palette entries, R G B A
//	runs    until the record ends:
//	          u8 length (0-254), or 0xFF followed by u16be length
//	          u8 palette index
//
// Expanding a record appends each run's palette color length times, giving
// RGBA-interleaved pixels. The byte 0xFF is always the escape sentinel, so a run
// of exactly 255 pixels must use the escaped form.
//
// # Framing
//
// An asset is shipped either as newline-separated uppercase hex records
// (FramingHex) or as one raw binary record (FramingBinary). Decode handles both
// and concatenates the records of a hex asset into one pixel buffer.
//
// Malformed input never yields a partial buffer: truncated records fail with a
// malformed frame error and runs that index past the palette fail with a
// palette index error, so nothing corrupt reaches foreign memory. A Decoder
// also caps the decoded pixel count, checked before a record is expanded.
package asset
