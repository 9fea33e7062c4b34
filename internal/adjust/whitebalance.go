package adjust

import "focal/internal/imagecodec"

// applyWhiteBalance shifts the channel balance. Temperature runs -100 (cool)
// to +100 (warm); tint runs -150 (green) to +150 (magenta).
func applyWhiteBalance(buf *imagecodec.PixelBuffer, temperature, tint float64) {
	tempFactor := float32(temperature / 100.0)
	tintFactor := float32(tint / 150.0)

	redGain := 1 + tempFactor*0.1
	greenGain := 1 - tintFactor*0.05
	blueGain := 1 - tempFactor*0.1 + tintFactor*0.05

	for i := range buf.R {
		buf.R[i] = clamp01(buf.R[i] * redGain)
		buf.G[i] = clamp01(buf.G[i] * greenGain)
		buf.B[i] = clamp01(buf.B[i] * blueGain)
	}
}
