package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
)

// WriteJPEG writes a small solid-color JPEG test image.
func WriteJPEG(t testing.TB, path string, width, height int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill(img, c)
	writeImage(t, path, func(buf *bytes.Buffer) error {
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 95})
	})
}

// WritePNG writes a small solid-color PNG test image.
func WritePNG(t testing.TB, path string, width, height int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill(img, c)
	writeImage(t, path, func(buf *bytes.Buffer) error {
		return png.Encode(buf, img)
	})
}

// WriteTIFF16 writes a 16-bit RGBA64 TIFF filled with one color.
func WriteTIFF16(t testing.TB, path string, width, height int, c color.RGBA64) {
	t.Helper()
	img := image.NewRGBA64(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA64(x, y, c)
		}
	}
	writeImage(t, path, func(buf *bytes.Buffer) error {
		return tiff.Encode(buf, img, nil)
	})
}

// WriteMosaicPGM writes a 16-bit binary PGM carrying a uniform RGGB mosaic
// with the provided per-site values.
func WriteMosaicPGM(t testing.TB, path string, width, height int, r, g, b uint16) {
	t.Helper()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "P5\n%d %d\n65535\n", width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var v uint16
			switch {
			case y%2 == 0 && x%2 == 0:
				v = r
			case y%2 == 1 && x%2 == 1:
				v = b
			default:
				v = g
			}
			if err := binary.Write(&buf, binary.BigEndian, v); err != nil {
				t.Fatalf("write pgm sample: %v", err)
			}
		}
	}
	mustWriteFile(t, path, buf.Bytes())
}

// WriteMosaicTIFF writes a 16-bit grayscale TIFF carrying a uniform RGGB mosaic.
func WriteMosaicTIFF(t testing.TB, path string, width, height int, r, g, b uint16) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var v uint16
			switch {
			case y%2 == 0 && x%2 == 0:
				v = r
			case y%2 == 1 && x%2 == 1:
				v = b
			default:
				v = g
			}
			img.SetGray16(x, y, color.Gray16{Y: v})
		}
	}
	writeImage(t, path, func(buf *bytes.Buffer) error {
		return tiff.Encode(buf, img, nil)
	})
}

func fill(img *image.NRGBA, c color.Color) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func writeImage(t testing.TB, path string, encode func(*bytes.Buffer) error) {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	mustWriteFile(t, path, buf.Bytes())
}

func mustWriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for test image: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test image: %v", err)
	}
}
