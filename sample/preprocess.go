// Package sample - Turns images and pixel-space annotations into the inputs the
// box regressor trains on.
package sample

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Config describes the network input.
type Config struct {
	// Side is the width and height of the square network input.
	Side int `json:"side" yaml:"side"`
	// Mean is subtracted per channel, in B, G, R order, on the 0-255 scale.
	Mean [3]float32 `json:"mean" yaml:"mean"`
	// Scale multiplies each value after the mean is removed.
	Scale float32 `json:"scale" yaml:"scale"`
}

// DefaultConfig returns the 144x144 input with ImageNet BGR means the
// regressor was trained with.
func DefaultConfig() Config {
	return Config{
		Side:  144,
		Mean:  [3]float32{103.939, 116.779, 123.68},
		Scale: 1.0 / 255.0,
	}
}

// Preprocess resizes img to Side x Side and returns it as height-width-channel
// float32 data in B, G, R order, mean subtracted and scaled.
//
// Arguments:
//   - img: The source image.
//   - config: The network input description.
//
// Returns:
//   - Side*Side*3 values.
//   - An error if the image or config is unusable.
//
// @example
// data, err := Preprocess(frame, DefaultConfig())
// // len(data) == 144 * 144 * 3
func Preprocess(img image.Image, config Config) ([]float32, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if img.Bounds().Empty() {
		return nil, errors.New("image is empty")
	}
	if config.Side <= 0 {
		return nil, errors.Errorf("input side must be positive, got %d", config.Side)
	}

	side := config.Side
	resized := resize.Resize(uint(side), uint(side), img, resize.Bilinear)
	bounds := resized.Bounds()

	data := make([]float32, side*side*3)
	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+side; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+side; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			data[i] = (float32(b>>8) - config.Mean[0]) * config.Scale
			data[i+1] = (float32(g>>8) - config.Mean[1]) * config.Scale
			data[i+2] = (float32(r>>8) - config.Mean[2]) * config.Scale
			i += 3
		}
	}

	return data, nil
}
