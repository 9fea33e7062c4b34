package preset

import "strings"

// Kind identifies a tone or color adjustment carried by a preset.
type Kind string

const (
	KindTemperature Kind = "Temperature"
	KindTint        Kind = "Tint"
	KindExposure    Kind = "Exposure"
	KindContrast    Kind = "Contrast"
	KindHighlights  Kind = "Highlights"
	KindShadows     Kind = "Shadows"
	KindWhites      Kind = "Whites"
	KindBlacks      Kind = "Blacks"
	KindClarity     Kind = "Clarity"
	KindVibrance    Kind = "Vibrance"
	KindSaturation  Kind = "Saturation"
)

// Kinds returns the adjustment kinds in canonical application order.
// Ordering matters: the engine applies white balance before tone, tone before
// local contrast, and color last.
func Kinds() []Kind {
	return []Kind{
		KindTemperature,
		KindTint,
		KindExposure,
		KindContrast,
		KindHighlights,
		KindShadows,
		KindWhites,
		KindBlacks,
		KindClarity,
		KindVibrance,
		KindSaturation,
	}
}

var kindSet = func() map[Kind]struct{} {
	set := make(map[Kind]struct{})
	for _, kind := range Kinds() {
		set[kind] = struct{}{}
	}
	return set
}()

// ParseKind converts an attribute name into a known Kind.
func ParseKind(name string) (Kind, bool) {
	kind := Kind(strings.TrimSpace(name))
	_, ok := kindSet[kind]
	return kind, ok
}

// Preset captures the adjustment values extracted from a Lightroom XMP file.
// Values holds numeric adjustments keyed by Kind; Extras keeps every other
// camera-raw attribute the file carried, for inspection and round-tripping.
type Preset struct {
	Name   string
	Values map[Kind]float64
	Extras map[string]string
}

// Value returns the adjustment value for kind, or zero when absent.
// Zero is the identity for every adjustment.
func (p *Preset) Value(kind Kind) float64 {
	if p == nil || p.Values == nil {
		return 0
	}
	return p.Values[kind]
}

// Has reports whether the preset carries an explicit value for kind.
func (p *Preset) Has(kind Kind) bool {
	if p == nil || p.Values == nil {
		return false
	}
	_, ok := p.Values[kind]
	return ok
}

// IsIdentity reports whether applying the preset would leave images unchanged.
func (p *Preset) IsIdentity() bool {
	if p == nil {
		return true
	}
	for _, value := range p.Values {
		if value != 0 {
			return false
		}
	}
	return true
}
