package preprocess

import (
	"bytes"
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

type Layout string

const (
	LayoutNHWC Layout = "nhwc"
	LayoutNCHW Layout = "nchw"
)

// Normalize decodes buf, resizes it to size×size with bilinear interpolation
// and returns a batch of one image as float32 values in [0,1]. Callers are
// expected to have run Validate first.
func Normalize(buf []byte, size int, layout Layout) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return tensor(img, size, layout), nil
}

// tensor converts an already decoded image into the model input tensor.
func tensor(img image.Image, size int, layout Layout) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	const channels = 3
	data := make([]float32, channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [channels]float32{
				float32(r>>8) / 255.0,
				float32(g>>8) / 255.0,
				float32(b>>8) / 255.0,
			}

			pixel := y*width + x
			for c, v := range rgb {
				if layout == LayoutNCHW {
					data[c*plane+pixel] = v
				} else {
					data[pixel*channels+c] = v
				}
			}
		}
	}
	return data
}
