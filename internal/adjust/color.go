package adjust

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"focal/internal/imagecodec"
)

// applyVibrance boosts saturation selectively: muted colors move more than
// already-saturated ones. Range -100..+100.
func applyVibrance(buf *imagecodec.PixelBuffer, vibrance float64) {
	norm := vibrance / 100.0
	mapSaturation(buf, func(s float64) float64 {
		return s * (1 + norm*(1-s))
	})
}

// applySaturation scales saturation uniformly. Range -100..+100.
func applySaturation(buf *imagecodec.PixelBuffer, saturation float64) {
	norm := saturation / 100.0
	mapSaturation(buf, func(s float64) float64 {
		return s * (1 + norm)
	})
}

func mapSaturation(buf *imagecodec.PixelBuffer, fn func(float64) float64) {
	for i := range buf.R {
		c := colorful.Color{R: float64(buf.R[i]), G: float64(buf.G[i]), B: float64(buf.B[i])}
		h, s, v := c.Hsv()
		s = fn(s)
		if s < 0 {
			s = 0
		} else if s > 1 {
			s = 1
		}
		out := colorful.Hsv(h, s, v)
		buf.R[i] = clamp01(float32(out.R))
		buf.G[i] = clamp01(float32(out.G))
		buf.B[i] = clamp01(float32(out.B))
	}
}
