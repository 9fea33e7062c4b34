package adjust

import "focal/internal/imagecodec"

// applyClarity enhances local contrast with an unsharp mask built from a 3x3
// box blur. The detail layer is scaled by clarity/100 and added back.
func applyClarity(buf *imagecodec.PixelBuffer, clarity float64) {
	norm := float32(clarity / 100.0)
	width, height := buf.Width, buf.Height

	eachPlane(buf, func(plane []float32) {
		blurred := boxBlur3(plane, width, height)
		for i, v := range plane {
			detail := v - blurred[i]
			plane[i] = clamp01(v + detail*norm)
		}
	})
}

// boxBlur3 averages each sample with its 3x3 neighborhood, clamping
// coordinates at the edges.
func boxBlur3(plane []float32, width, height int) []float32 {
	blurred := make([]float32, len(plane))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float32
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 {
						nx = 0
					} else if nx >= width {
						nx = width - 1
					}
					if ny < 0 {
						ny = 0
					} else if ny >= height {
						ny = height - 1
					}
					sum += plane[ny*width+nx]
				}
			}
			blurred[y*width+x] = sum / 9
		}
	}
	return blurred
}
