package imagecodec

// Profile tags the working color space of a decoded image.
type Profile string

const (
	ProfileSRGB        Profile = "sRGB"
	ProfileAdobeRGB    Profile = "AdobeRGB"
	ProfileProPhotoRGB Profile = "ProPhotoRGB"
	ProfilePreserve    Profile = "preserve"
)

// ParseProfile maps a configuration value onto a known Profile.
func ParseProfile(value string) Profile {
	switch Profile(value) {
	case ProfileAdobeRGB:
		return ProfileAdobeRGB
	case ProfileProPhotoRGB:
		return ProfileProPhotoRGB
	case ProfilePreserve:
		return ProfilePreserve
	default:
		return ProfileSRGB
	}
}

// PixelBuffer holds a decoded image as planar float32 channels normalized to
// the [0,1] range. BitDepth records the source precision so encoders can
// write output at matching depth.
type PixelBuffer struct {
	Width    int
	Height   int
	BitDepth int
	Profile  Profile
	R        []float32
	G        []float32
	B        []float32
}

// NewPixelBuffer allocates a zeroed buffer of the given dimensions.
func NewPixelBuffer(width, height, bitDepth int) *PixelBuffer {
	n := width * height
	return &PixelBuffer{
		Width:    width,
		Height:   height,
		BitDepth: bitDepth,
		Profile:  ProfileSRGB,
		R:        make([]float32, n),
		G:        make([]float32, n),
		B:        make([]float32, n),
	}
}

// Index returns the plane offset for pixel (x, y).
func (p *PixelBuffer) Index(x, y int) int {
	return y*p.Width + x
}

// At returns the RGB triple at (x, y).
func (p *PixelBuffer) At(x, y int) (r, g, b float32) {
	i := p.Index(x, y)
	return p.R[i], p.G[i], p.B[i]
}

// Set stores the RGB triple at (x, y).
func (p *PixelBuffer) Set(x, y int, r, g, b float32) {
	i := p.Index(x, y)
	p.R[i], p.G[i], p.B[i] = r, g, b
}

// Clone returns a deep copy of the buffer.
func (p *PixelBuffer) Clone() *PixelBuffer {
	cp := &PixelBuffer{
		Width:    p.Width,
		Height:   p.Height,
		BitDepth: p.BitDepth,
		Profile:  p.Profile,
		R:        make([]float32, len(p.R)),
		G:        make([]float32, len(p.G)),
		B:        make([]float32, len(p.B)),
	}
	copy(cp.R, p.R)
	copy(cp.G, p.G)
	copy(cp.B, p.B)
	return cp
}

// Clamp bounds every sample to the [0,1] range in place.
func (p *PixelBuffer) Clamp() {
	for _, plane := range [][]float32{p.R, p.G, p.B} {
		for i, v := range plane {
			if v < 0 {
				plane[i] = 0
			} else if v > 1 {
				plane[i] = 1
			}
		}
	}
}
