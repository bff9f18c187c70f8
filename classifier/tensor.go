package classifier

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

// ErrUnsupportedChannels is returned for source images that do not carry
// three direct color channels (indexed/palette and grayscale images).
// The builder fails closed rather than reinterpret channel data.
var ErrUnsupportedChannels = errors.New("source image does not have 3 color channels")

// A NormalizedTensorPair holds one crop's pixels in both candidate memory
// layouts, each of length 3*Size*Size and normalized to [-1, 1]. It is owned
// by the crop-processing step that built it and discarded once inference for
// that crop completes.
type NormalizedTensorPair struct {
	NHWC []float32 // channels-last:  [height][width][channel]
	NCHW []float32 // channels-first: [channel][height][width]
	Size int
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// BuildTensorPair crops (if win != nil), resizes to size x size with a linear
// filter, flattens alpha onto white, and normalizes each channel value from
// [0,255] to [-1,1] via (v/255 - 0.5) / 0.5. Both layouts are filled from the
// single decoded image in one pass. Stateless and safe to call concurrently
// for independent crops.
func BuildTensorPair(img image.Image, win *CropWindow, size int) (*NormalizedTensorPair, error) {
	switch img.(type) {
	case *image.Paletted, *image.Gray, *image.Gray16, *image.CMYK:
		return nil, ErrUnsupportedChannels
	}

	if win != nil {
		img = imaging.Crop(img, image.Rect(win.X, win.Y, win.X+win.W, win.Y+win.H))
	}
	resized := imaging.Resize(img, size, size, imaging.Linear)

	// white canvas strips alpha
	flat := imaging.New(size, size, color.White)
	flat = imaging.Overlay(flat, resized, image.Pt(0, 0), 1.0)

	plane := size * size
	nhwc := make([]float32, 3*plane)
	nchw := make([]float32, 3*plane)

	i := 0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := flat.NRGBAAt(x, y)
			r := (float32(c.R)/255.0 - 0.5) / 0.5
			g := (float32(c.G)/255.0 - 0.5) / 0.5
			b := (float32(c.B)/255.0 - 0.5) / 0.5

			nhwc[i*3] = r
			nhwc[i*3+1] = g
			nhwc[i*3+2] = b

			nchw[i] = r
			nchw[plane+i] = g
			nchw[2*plane+i] = b
			i++
		}
	}

	return &NormalizedTensorPair{NHWC: nhwc, NCHW: nchw, Size: size}, nil
}
