package asset

import (
	"fmt"

	"github.com/wippyai/pixelbridge/errors"
)

const (
	// EscapeByte introduces a run whose length follows as a big-endian u16.
	EscapeByte = 0xFF

	// MaxDirectRun is the longest run encodable in the single length byte.
	MaxDirectRun = EscapeByte - 1

	// MaxPaletteLen is the largest palette the u16 count prefix can declare.
	MaxPaletteLen = 0xFFFF

	// BytesPerPixel is the width of one RGBA pixel.
	BytesPerPixel = 4
)

// Color is one RGBA palette entry.
type Color struct {
	R, G, B, A uint8
}

// Palette is the ordered color table of a single record.
type Palette []Color

// Run repeats one palette color Length times.
type Run struct {
	Length uint16
	Index  uint8
}

// Record is a parsed, validated record: every run index is inside Palette.
type Record struct {
	Palette Palette
	Runs    []Run
}

// ParseRecord parses one record frame without expanding it.
func ParseRecord(frame []byte) (*Record, error) {
	c := cursor{data: frame}

	count, ok := c.u16()
	if !ok {
		return nil, errors.MalformedFrame(c.pos, "missing palette count")
	}
	if c.remaining() < int(count)*BytesPerPixel {
		return nil, errors.MalformedFrame(c.pos,
			fmt.Sprintf("palette declares %d entries but only %d bytes remain", count, c.remaining()))
	}

	rec := &Record{Palette: make(Palette, count)}
	for i := range rec.Palette {
		entry := c.take(BytesPerPixel)
		rec.Palette[i] = Color{R: entry[0], G: entry[1], B: entry[2], A: entry[3]}
	}

	for c.remaining() > 0 {
		start := c.pos
		run, err := readRun(&c)
		if err != nil {
			return nil, err
		}
		if int(run.Index) >= len(rec.Palette) {
			return nil, errors.PaletteIndex(int(run.Index), len(rec.Palette)).
				WithPath(fmt.Sprintf("run %d", len(rec.Runs)), fmt.Sprintf("offset %d", start))
		}
		rec.Runs = append(rec.Runs, run)
	}

	return rec, nil
}

func readRun(c *cursor) (Run, error) {
	start := c.pos
	r0, _ := c.u8()

	length := uint16(r0)
	if r0 == EscapeByte {
		ext, ok := c.u16()
		if !ok {
			return Run{}, errors.MalformedFrame(start, "escape run missing extended length")
		}
		length = ext
	}

	idx, ok := c.u8()
	if !ok {
		return Run{}, errors.MalformedFrame(start, "run missing palette index")
	}
	return Run{Length: length, Index: idx}, nil
}

// PixelCount returns the number of pixels the record expands to.
func (r *Record) PixelCount() int {
	n := 0
	for _, run := range r.Runs {
		n += int(run.Length)
	}
	return n
}

// AppendPixels appends the record's expanded RGBA pixels to dst.
func (r *Record) AppendPixels(dst []byte) []byte {
	dst = grow(dst, r.PixelCount()*BytesPerPixel)
	for _, run := range r.Runs {
		col := r.Palette[run.Index]
		for k := 0; k < int(run.Length); k++ {
			dst = append(dst, col.R, col.G, col.B, col.A)
		}
	}
	return dst
}

// MarshalBinary encodes the record in the wire layout, escaping every run
// longer than MaxDirectRun.
func (r *Record) MarshalBinary() ([]byte, error) {
	if len(r.Palette) > MaxPaletteLen {
		return nil, errors.InvalidData(errors.PhaseDecode,
			fmt.Sprintf("palette of %d entries exceeds %d", len(r.Palette), MaxPaletteLen))
	}

	out := make([]byte, 0, 2+len(r.Palette)*BytesPerPixel+len(r.Runs)*2)
	out = append(out, byte(len(r.Palette)>>8), byte(len(r.Palette)))
	for _, col := range r.Palette {
		out = append(out, col.R, col.G, col.B, col.A)
	}
	for i, run := range r.Runs {
		if int(run.Index) >= len(r.Palette) {
			return nil, errors.PaletteIndex(int(run.Index), len(r.Palette)).WithPath(fmt.Sprintf("run %d", i))
		}
		if run.Length > MaxDirectRun {
			out = append(out, EscapeByte, byte(run.Length>>8), byte(run.Length))
		} else {
			out = append(out, byte(run.Length))
		}
		out = append(out, run.Index)
	}
	return out, nil
}

func grow(b []byte, n int) []byte {
	if cap(b)-len(b) >= n {
		return b
	}
	nb := make([]byte, len(b), len(b)+n)
	copy(nb, b)
	return nb
}

// cursor consumes a frame from the front.
type cursor struct {
	data []byte
	pos  int
}

func (c *cursor) remaining() int { return len(c.data) - c.pos }

func (c *cursor) u8() (byte, bool) {
	if c.remaining() < 1 {
		return 0, false
	}
	b := c.data[c.pos]
	c.pos++
	return b, true
}

func (c *cursor) u16() (uint16, bool) {
	if c.remaining() < 2 {
		return 0, false
	}
	v := uint16(c.data[c.pos])<<8 | uint16(c.data[c.pos+1])
	c.pos += 2
	return v, true
}

// take returns the next n bytes; callers check remaining first.
func (c *cursor) take(n int) []byte {
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b
}
