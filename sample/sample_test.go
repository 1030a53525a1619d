package sample

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-iou/overlap"
)

func uniformImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestPreprocess(t *testing.T) {
	config := DefaultConfig()
	img := uniformImage(300, 200, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	data, err := Preprocess(img, config)
	require.NoError(t, err)
	require.Len(t, data, config.Side*config.Side*3)

	// Channels come out as B, G, R.
	want := [3]float32{
		(50 - config.Mean[0]) / 255,
		(100 - config.Mean[1]) / 255,
		(200 - config.Mean[2]) / 255,
	}
	for i := 0; i < len(data); i += 3 {
		for c := 0; c < 3; c++ {
			if !assert.InDelta(t, want[c], data[i+c], 2.0/255, "pixel %d channel %d", i/3, c) {
				return
			}
		}
	}
}

func TestPreprocess_Errors(t *testing.T) {
	_, err := Preprocess(nil, DefaultConfig())
	assert.Error(t, err)

	_, err = Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0)), DefaultConfig())
	assert.Error(t, err)

	config := DefaultConfig()
	config.Side = 0
	_, err = Preprocess(uniformImage(4, 4, color.Black), config)
	assert.Error(t, err)
}

func TestNormalizeBox(t *testing.T) {
	tests := []struct {
		name   string
		box    image.Rectangle
		bounds image.Rectangle
		want   overlap.Rect
	}{
		{"origin bounds", image.Rect(50, 25, 150, 75), image.Rect(0, 0, 200, 100), overlap.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}},
		{"offset bounds", image.Rect(60, 35, 160, 85), image.Rect(10, 10, 210, 110), overlap.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}},
		{"whole image", image.Rect(0, 0, 640, 480), image.Rect(0, 0, 640, 480), overlap.Rect{X: 0, Y: 0, W: 1, H: 1}},
		{"swapped corners", image.Rect(150, 75, 50, 25), image.Rect(0, 0, 200, 100), overlap.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBox(tt.box, tt.bounds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.box.Canon(), DenormalizeBox(got, tt.bounds))
		})
	}

	_, err := NormalizeBox(image.Rect(0, 0, 1, 1), image.Rectangle{})
	assert.Error(t, err)
}

func TestLabels(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	batch, err := Labels([]image.Rectangle{image.Rect(0, 0, 50, 50), image.Rect(25, 25, 75, 75)}, bounds)
	require.NoError(t, err)
	assert.Equal(t, overlap.Batch{{X: 0, Y: 0, W: 0.5, H: 0.5}, {X: 0.25, Y: 0.25, W: 0.5, H: 0.5}}, batch)

	_, err = Labels([]image.Rectangle{image.Rect(0, 0, 1, 1)}, image.Rectangle{})
	assert.ErrorContains(t, err, "label 0")
}
