package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

const halfBlock = "▀"

// squareWidth picks the smallest row width of at least sqrt(pixels) that
// divides pixels evenly.
func squareWidth(pixels int) int {
	if pixels <= 1 {
		return 1
	}
	for w := int(math.Ceil(math.Sqrt(float64(pixels)))); w < pixels; w++ {
		if pixels%w == 0 {
			return w
		}
	}
	return pixels
}

// scaleTo resamples src to w x h with nearest-neighbor sampling. Sampling
// goes through premultiplied color, so a pixel with zero alpha comes out as
// transparent black.
func scaleTo(src image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

func writePNG(path string, img *image.NRGBA, scale int) error {
	if scale < 1 {
		return fmt.Errorf("scale %d must be at least 1", scale)
	}
	var out image.Image = img
	if scale > 1 {
		b := img.Bounds()
		out = scaleTo(img, b.Dx()*scale, b.Dy()*scale)
	}
	return writeFile(path, func(w io.Writer) error {
		return png.Encode(w, out)
	})
}

// opaque sets the alpha of every RGBA pixel in pix to 0xFF.
func opaque(pix []byte) {
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xFF
	}
}

// halfBlocks renders img as terminal cells, two pixel rows per cell: the
// foreground paints the upper pixel and the background the lower one. Only
// RGB is drawn, so callers that want alpha ignored make img opaque before
// scaling it. An odd last row is painted over black.
func halfBlocks(img *image.NRGBA) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(img, x, y))
			if y+1 < b.Max.Y {
				style = style.Background(hexColor(img, x, y+1))
			} else {
				style = style.Background(lipgloss.Color("#000000"))
			}
			sb.WriteString(style.Render(halfBlock))
		}
	}
	return sb.String()
}

func hexColor(img *image.NRGBA, x, y int) lipgloss.Color {
	c := img.NRGBAAt(x, y)
	return lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B))
}
