package adjust

import (
	"math"

	"focal/internal/imagecodec"
)

// applyExposure scales by 2^stops.
func applyExposure(buf *imagecodec.PixelBuffer, stops float64) {
	multiplier := float32(math.Pow(2, stops))
	eachPlane(buf, func(plane []float32) {
		for i, v := range plane {
			plane[i] = clamp01(v * multiplier)
		}
	})
}

// applyContrast applies an S-curve around middle gray. Range -100..+100.
func applyContrast(buf *imagecodec.PixelBuffer, contrast float64) {
	norm := contrast / 100.0
	factor := float32((259 * (norm + 255)) / (255 * (259 - norm)))
	eachPlane(buf, func(plane []float32) {
		for i, v := range plane {
			plane[i] = clamp01(factor*(v-0.5) + 0.5)
		}
	})
}

// applyHighlights compresses or expands values above middle gray. Range -100..+100.
func applyHighlights(buf *imagecodec.PixelBuffer, highlights float64) {
	norm := float32(highlights / 100.0)
	eachPlane(buf, func(plane []float32) {
		for i, v := range plane {
			if v > 0.5 {
				plane[i] = clamp01(0.5 + (v-0.5)*(1-norm*0.5))
			}
		}
	})
}

// applyShadows lifts or deepens values below middle gray. Range -100..+100.
func applyShadows(buf *imagecodec.PixelBuffer, shadows float64) {
	norm := float32(shadows / 100.0)
	eachPlane(buf, func(plane []float32) {
		for i, v := range plane {
			if v < 0.5 {
				plane[i] = clamp01(v * (1 + norm))
			}
		}
	})
}

// applyWhites moves the white point. Range -100..+100 maps to a 10% swing.
func applyWhites(buf *imagecodec.PixelBuffer, whites float64) {
	whitePoint := float32(1.0 - whites/100.0*0.1)
	eachPlane(buf, func(plane []float32) {
		for i, v := range plane {
			plane[i] = clamp01(v / whitePoint)
		}
	})
}

// applyBlacks moves the black point. Range -100..+100 maps to a 10% swing.
func applyBlacks(buf *imagecodec.PixelBuffer, blacks float64) {
	blackPoint := float32(blacks / 100.0 * 0.1)
	eachPlane(buf, func(plane []float32) {
		for i, v := range plane {
			plane[i] = clamp01((v - blackPoint) / (1 - blackPoint))
		}
	})
}
