package game

// Viewport sizing: the canvas is at most AspectRatio times wider than tall
// and renders at RenderScale of its display size.
const (
	AspectRatio = 2
	RenderScale = 0.66
)

// Viewport returns the render width and height for a display area.
func Viewport(displayWidth, displayHeight int) (width, height int) {
	w := displayWidth
	h := displayHeight
	if limit := displayWidth / AspectRatio; h > limit {
		h = limit
	}
	width = int(float64(w) * RenderScale)
	height = int(float64(h) * RenderScale)
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
