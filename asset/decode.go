package asset

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"image"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/pixelbridge/base16"
	"github.com/wippyai/pixelbridge/errors"
)

// Image is a flat RGBA-interleaved pixel buffer. len(Pix) is always a
// multiple of BytesPerPixel.
type Image struct {
	Pix []byte
}

// Len returns the buffer length in bytes.
func (img *Image) Len() int { return len(img.Pix) }

// Pixels returns the number of RGBA pixels.
func (img *Image) Pixels() int { return len(img.Pix) / BytesPerPixel }

// Framing selects how records are laid out in an asset.
type Framing int

const (
	// FramingHex is newline-separated uppercase hex records.
	FramingHex Framing = iota
	// FramingBinary is one raw binary record.
	FramingBinary
)

func (f Framing) String() string {
	switch f {
	case FramingHex:
		return "hex"
	case FramingBinary:
		return "binary"
	default:
		return fmt.Sprintf("framing(%d)", int(f))
	}
}

// ParseFraming parses "hex" or "binary".
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hex", "text":
		return FramingHex, nil
	case "binary", "bin", "raw":
		return FramingBinary, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown asset framing %q", s))
	}
}

// DefaultMaxPixels bounds the pixels of one decoded asset, 64 MiB of RGBA.
const DefaultMaxPixels = 1 << 24

// Decoder expands assets under a pixel budget. The zero value decodes hex
// framing with DefaultMaxPixels.
type Decoder struct {
	Framing Framing
	// MaxPixels caps the pixels of the whole asset. 0 selects
	// DefaultMaxPixels and a negative value disables the cap.
	MaxPixels int
}

func (d Decoder) limit() int {
	switch {
	case d.MaxPixels == 0:
		return DefaultMaxPixels
	case d.MaxPixels < 0:
		return -1
	default:
		return d.MaxPixels
	}
}

// DecodeRecord expands a single binary record.
func DecodeRecord(frame []byte) (*Image, error) {
	pix, err := AppendRecord(make([]byte, 0), frame)
	if err != nil {
		return nil, err
	}
	return &Image{Pix: pix}, nil
}

// AppendRecord expands a binary record and appends its pixels to dst. The
// pixels already in dst count against DefaultMaxPixels. On error dst is
// returned unchanged.
func AppendRecord(dst, frame []byte) ([]byte, error) {
	return appendRecord(dst, frame, DefaultMaxPixels)
}

// appendRecord checks the run total against limit before expanding, so an
// escaped run cannot allocate past the budget. A negative limit is no cap.
func appendRecord(dst, frame []byte, limit int) ([]byte, error) {
	rec, err := ParseRecord(frame)
	if err != nil {
		return dst, err
	}
	if limit >= 0 {
		have, add := len(dst)/BytesPerPixel, rec.PixelCount()
		if add > limit-have {
			return dst, errors.MalformedFrame(len(frame),
				fmt.Sprintf("expands to %d pixels, over the limit of %d", have+add, limit))
		}
	}
	start := len(dst)
	out := rec.AppendPixels(dst)
	if n := len(out) - start; n%BytesPerPixel != 0 {
		return dst, errors.MalformedFrame(len(frame), fmt.Sprintf("expanded %d bytes, not a whole number of pixels", n))
	}
	return out, nil
}

// Decode expands a complete asset in the given framing with
// DefaultMaxPixels.
func Decode(data []byte, framing Framing) (*Image, error) {
	return Decoder{Framing: framing}.Decode(data)
}

// Decode expands a complete asset.
func (d Decoder) Decode(data []byte) (*Image, error) {
	switch d.Framing {
	case FramingBinary:
		pix, err := appendRecord(make([]byte, 0), data, d.limit())
		if err != nil {
			return nil, err
		}
		img := &Image{Pix: pix}
		Logger().Debug("decoded binary asset",
			zap.Int("bytes", len(data)),
			zap.Int("pixels", img.Pixels()))
		return img, nil

	case FramingHex:
		return decodeHex(data, d.limit())

	default:
		return nil, errors.InvalidInput(errors.PhaseDecode, "unsupported framing "+d.Framing.String())
	}
}

// DecodeReader reads r to the end and decodes it.
func DecodeReader(r io.Reader, framing Framing) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "read asset")
	}
	return Decode(data, framing)
}

func decodeHex(data []byte, limit int) (*Image, error) {
	var pix []byte
	records := 0

	for i, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}

		frame, err := base16.Decode(line)
		if err != nil {
			return nil, atRecord(err, i+1)
		}
		pix, err = appendRecord(pix, frame, limit)
		if err != nil {
			return nil, atRecord(err, i+1)
		}
		records++
	}

	if pix == nil {
		pix = []byte{}
	}
	Logger().Debug("decoded hex asset",
		zap.Int("records", records),
		zap.Int("pixels", len(pix)/BytesPerPixel))
	return &Image{Pix: pix}, nil
}

func atRecord(err error, line int) error {
	var e *errors.Error
	if stderrors.As(err, &e) {
		return e.WithPath(fmt.Sprintf("record %d", line))
	}
	return err
}

// Textures splits an atlas into consecutive textures of texels pixels each.
// The returned images share storage with img.
func (img *Image) Textures(texels int) ([]*Image, error) {
	if texels <= 0 {
		return nil, errors.InvalidInput(errors.PhaseDecode, fmt.Sprintf("texture size %d must be positive", texels))
	}
	size := texels * BytesPerPixel
	if len(img.Pix)%size != 0 {
		return nil, errors.InvalidData(errors.PhaseDecode,
			fmt.Sprintf("atlas of %d pixels is not a whole number of %d-pixel textures", img.Pixels(), texels))
	}

	out := make([]*Image, 0, len(img.Pix)/size)
	for off := 0; off < len(img.Pix); off += size {
		out = append(out, &Image{Pix: img.Pix[off : off+size : off+size]})
	}
	return out, nil
}

// NRGBA copies the buffer into a non-premultiplied image of the given width.
func (img *Image) NRGBA(width int) (*image.NRGBA, error) {
	if width <= 0 || img.Pixels()%width != 0 {
		return nil, errors.InvalidInput(errors.PhaseDecode,
			fmt.Sprintf("%d pixels do not form rows of width %d", img.Pixels(), width))
	}
	height := img.Pixels() / width
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	copy(out.Pix, img.Pix)
	return out, nil
}
