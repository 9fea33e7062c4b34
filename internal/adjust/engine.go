package adjust

import (
	"log/slog"

	"focal/internal/imagecodec"
	"focal/internal/logging"
	"focal/internal/preset"
)

// Engine applies preset adjustments to pixel buffers in canonical order:
// white balance, exposure, contrast, highlights, shadows, whites, blacks,
// clarity, vibrance, saturation. Every step treats zero as identity and
// clamps its output to [0,1].
type Engine struct {
	preset *preset.Preset
	logger *slog.Logger
}

// NewEngine builds an engine bound to a parsed preset.
func NewEngine(p *preset.Preset, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{preset: p, logger: logger}
}

// Apply runs every non-identity adjustment against buf in place.
func (e *Engine) Apply(buf *imagecodec.PixelBuffer) {
	if e.preset == nil || e.preset.IsIdentity() {
		return
	}

	temperature := e.preset.Value(preset.KindTemperature)
	tint := e.preset.Value(preset.KindTint)
	if temperature != 0 || tint != 0 {
		applyWhiteBalance(buf, temperature, tint)
	}

	steps := []struct {
		kind  preset.Kind
		apply func(*imagecodec.PixelBuffer, float64)
	}{
		{preset.KindExposure, applyExposure},
		{preset.KindContrast, applyContrast},
		{preset.KindHighlights, applyHighlights},
		{preset.KindShadows, applyShadows},
		{preset.KindWhites, applyWhites},
		{preset.KindBlacks, applyBlacks},
		{preset.KindClarity, applyClarity},
		{preset.KindVibrance, applyVibrance},
		{preset.KindSaturation, applySaturation},
	}
	for _, step := range steps {
		value := e.preset.Value(step.kind)
		if value == 0 {
			continue
		}
		e.logger.Debug("applying adjustment", logging.String("adjustment", string(step.kind)), logging.Float64("value", value))
		step.apply(buf, value)
	}
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func eachPlane(buf *imagecodec.PixelBuffer, fn func(plane []float32)) {
	fn(buf.R)
	fn(buf.G)
	fn(buf.B)
}
