package imagecodec

import (
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"focal/internal/services"
)

// EncodeOptions controls processed image output.
type EncodeOptions struct {
	Format      string // "tiff" or "jpg"
	JPEGQuality int
}

// Encode writes a PixelBuffer to disk, creating parent directories as needed.
// TIFF output preserves the source bit depth; JPEG output reduces to 8 bits
// with round-half-up quantization.
func Encode(buf *PixelBuffer, path string, opts EncodeOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrEncode, "encode", "mkdir", "create output directory", err)
	}

	switch opts.Format {
	case "tiff", "":
		return encodeTIFF(buf, path)
	case "jpg", "jpeg":
		return encodeJPEG(buf, path, opts.JPEGQuality)
	default:
		return services.Wrap(services.ErrUnsupportedFormat, "encode", "dispatch",
			"unsupported output format "+opts.Format, nil)
	}
}

func encodeTIFF(buf *PixelBuffer, path string) error {
	var img image.Image
	if buf.BitDepth == 16 {
		img = toRGBA64(buf)
	} else {
		img = toNRGBA(buf)
	}

	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrEncode, "encode", "create", "create output file", err)
	}
	defer file.Close()

	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return services.Wrap(services.ErrEncode, "encode", "tiff", "encode tiff data", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrEncode, "encode", "close", "flush output file", err)
	}
	return nil
}

func encodeJPEG(buf *PixelBuffer, path string, quality int) error {
	if quality <= 0 {
		quality = 95
	}

	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrEncode, "encode", "create", "create output file", err)
	}
	defer file.Close()

	if err := imaging.Encode(file, toNRGBA(buf), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return services.Wrap(services.ErrEncode, "encode", "jpeg", "encode jpeg data", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrEncode, "encode", "close", "flush output file", err)
	}
	return nil
}

func toRGBA64(buf *PixelBuffer) *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b := buf.At(x, y)
			img.SetRGBA64(x, y, color.RGBA64{
				R: quantize16(r),
				G: quantize16(g),
				B: quantize16(b),
				A: 0xFFFF,
			})
		}
	}
	return img
}

func toNRGBA(buf *PixelBuffer) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			r, g, b := buf.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i+0] = quantize8(r)
			img.Pix[i+1] = quantize8(g)
			img.Pix[i+2] = quantize8(b)
			img.Pix[i+3] = 0xFF
		}
	}
	return img
}

// quantize8 rounds half up so 16-bit detail collapses deterministically.
func quantize8(v float32) uint8 {
	scaled := v*255 + 0.5
	if scaled <= 0 {
		return 0
	}
	if scaled >= 255 {
		return 255
	}
	return uint8(scaled)
}

func quantize16(v float32) uint16 {
	scaled := float64(v)*65535 + 0.5
	if scaled <= 0 {
		return 0
	}
	if scaled >= 65535 {
		return 65535
	}
	return uint16(scaled)
}
