package imagecodec

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/image/tiff"

	"focal/internal/services"
)

// decodeRaw reads a Bayer-mosaic capture and demosaics it into RGB. DNG and
// raw containers carry the mosaic as a single-channel TIFF image; PGM files
// carry it as a binary grayscale map.
func decodeRaw(path, ext string) (*PixelBuffer, error) {
	var (
		mosaic   []float32
		width    int
		height   int
		bitDepth int
		err      error
	)
	if ext == ".pgm" {
		mosaic, width, height, bitDepth, err = readPGM(path)
	} else {
		mosaic, width, height, bitDepth, err = readMosaicTIFF(path)
	}
	if err != nil {
		return nil, err
	}
	return demosaicRGGB(mosaic, width, height, bitDepth), nil
}

func readMosaicTIFF(path string) ([]float32, int, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "open", "open raw container", err)
	}
	defer file.Close()

	img, err := tiff.Decode(file)
	if err != nil {
		return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "raw", "decode raw mosaic", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	mosaic := make([]float32, width*height)
	bitDepth := 8

	switch typed := img.(type) {
	case *image.Gray16:
		bitDepth = 16
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				mosaic[y*width+x] = float32(typed.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y) / 0xFFFF
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				mosaic[y*width+x] = float32(typed.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) / 0xFF
			}
		}
	default:
		return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "raw",
			"raw container is not a single-channel mosaic", nil)
	}

	return mosaic, width, height, bitDepth, nil
}

// readPGM parses a binary (P5) PGM file. Samples above 8 bits are big-endian
// per the netpbm format.
func readPGM(path string) ([]float32, int, int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "open", "open pgm", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)

	magic, err := readPGMToken(reader)
	if err != nil || magic != "P5" {
		return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "pgm", "not a binary PGM file", err)
	}

	var width, height, maxVal int
	for _, field := range []*int{&width, &height, &maxVal} {
		token, err := readPGMToken(reader)
		if err != nil {
			return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "pgm", "truncated pgm header", err)
		}
		if _, err := fmt.Sscanf(token, "%d", field); err != nil {
			return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "pgm", "invalid pgm header", err)
		}
	}
	if width <= 0 || height <= 0 || maxVal <= 0 || maxVal > 0xFFFF {
		return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "pgm",
			fmt.Sprintf("invalid pgm dimensions %dx%d maxval %d", width, height, maxVal), nil)
	}

	wide := maxVal > 0xFF
	bytesPerSample := 1
	if wide {
		bytesPerSample = 2
	}
	data := make([]byte, width*height*bytesPerSample)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, 0, 0, 0, services.Wrap(services.ErrDecode, "decode", "pgm", "truncated pgm data", err)
	}

	mosaic := make([]float32, width*height)
	scale := float32(maxVal)
	for i := range mosaic {
		if wide {
			mosaic[i] = float32(uint16(data[2*i])<<8|uint16(data[2*i+1])) / scale
		} else {
			mosaic[i] = float32(data[i]) / scale
		}
	}

	bitDepth := 8
	if wide {
		bitDepth = 16
	}
	return mosaic, width, height, bitDepth, nil
}

// readPGMToken returns the next whitespace-delimited header token, skipping
// netpbm comments.
func readPGMToken(reader *bufio.Reader) (string, error) {
	var token []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			if len(token) > 0 {
				return string(token), nil
			}
			return "", err
		}
		switch {
		case b == '#':
			if _, err := reader.ReadString('\n'); err != nil {
				return "", err
			}
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			if len(token) > 0 {
				return string(token), nil
			}
		default:
			token = append(token, b)
		}
	}
}

// demosaicRGGB reconstructs RGB from an RGGB Bayer mosaic with bilinear
// interpolation. Even rows alternate R,G; odd rows alternate G,B.
func demosaicRGGB(mosaic []float32, width, height, bitDepth int) *PixelBuffer {
	buf := NewPixelBuffer(width, height, bitDepth)

	sample := func(x, y int) (float32, bool) {
		if x < 0 || x >= width || y < 0 || y >= height {
			return 0, false
		}
		return mosaic[y*width+x], true
	}

	averageAt := func(x, y int, offsets [][2]int) float32 {
		var sum float32
		var count int
		for _, off := range offsets {
			if v, ok := sample(x+off[0], y+off[1]); ok {
				sum += v
				count++
			}
		}
		if count == 0 {
			return 0
		}
		return sum / float32(count)
	}

	cross := [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagonal := [][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	horizontal := [][2]int{{-1, 0}, {1, 0}}
	vertical := [][2]int{{0, -1}, {0, 1}}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			own := mosaic[y*width+x]
			evenRow := y%2 == 0
			evenCol := x%2 == 0

			var r, g, b float32
			switch {
			case evenRow && evenCol: // red site
				r = own
				g = averageAt(x, y, cross)
				b = averageAt(x, y, diagonal)
			case evenRow && !evenCol: // green site on red row
				r = averageAt(x, y, horizontal)
				g = own
				b = averageAt(x, y, vertical)
			case !evenRow && evenCol: // green site on blue row
				r = averageAt(x, y, vertical)
				g = own
				b = averageAt(x, y, horizontal)
			default: // blue site
				r = averageAt(x, y, diagonal)
				g = averageAt(x, y, cross)
				b = own
			}
			buf.Set(x, y, r, g, b)
		}
	}
	return buf
}
