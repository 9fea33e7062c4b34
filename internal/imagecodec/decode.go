package imagecodec

import (
	"errors"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"focal/internal/services"
)

var rawExtensions = map[string]struct{}{
	".dng": {},
	".raw": {},
	".pgm": {},
}

// IsRawPath reports whether the file extension names a RAW mosaic format.
func IsRawPath(path string) bool {
	_, ok := rawExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Decode reads an image file into a linear PixelBuffer. RAW mosaics are
// demosaiced; standard formats are normalized from their native bit depth.
func Decode(path string) (*PixelBuffer, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "decode", "stat", "image file not found", err)
		}
		return nil, services.Wrap(services.ErrDecode, "decode", "stat", "access image file", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case IsRawPath(path):
		return decodeRaw(path, ext)
	case ext == ".tif" || ext == ".tiff":
		return decodeTIFF(path)
	case ext == ".jpg" || ext == ".jpeg" || ext == ".png":
		return decodeStandard(path)
	default:
		return nil, services.Wrap(services.ErrUnsupportedFormat, "decode", "dispatch",
			"unsupported image format "+ext, nil)
	}
}

// decodeTIFF keeps 16-bit sources at full precision.
func decodeTIFF(path string) (*PixelBuffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "decode", "open", "open tiff", err)
	}
	defer file.Close()

	img, err := tiff.Decode(file)
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "decode", "tiff", "decode tiff data", err)
	}
	return fromImage(img), nil
}

// decodeStandard handles 8-bit formats, honoring EXIF orientation.
func decodeStandard(path string) (*PixelBuffer, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "decode", "open", "decode image data", err)
	}
	return fromImage(img), nil
}

// fromImage converts any image.Image into a normalized PixelBuffer.
// Transparency is composited over a white background.
func fromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	buf := NewPixelBuffer(width, height, detectBitDepth(img))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns premultiplied samples, so white fills the
			// missing alpha directly.
			white := 0xFFFF - a
			buf.Set(x, y,
				float32(r+white)/0xFFFF,
				float32(g+white)/0xFFFF,
				float32(b+white)/0xFFFF,
			)
		}
	}
	return buf
}

func detectBitDepth(img image.Image) int {
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		return 16
	default:
		return 8
	}
}
