package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropWindowsSquareImage(t *testing.T) {
	wins := CropWindows(512, 512, 448)
	require.Len(t, wins, 5)

	assert.Equal(t, CropWindow{X: 32, Y: 32, W: 448, H: 448}, wins[0]) // center first
	assert.Equal(t, CropWindow{X: 0, Y: 0, W: 448, H: 448}, wins[1])
	assert.Equal(t, CropWindow{X: 64, Y: 0, W: 448, H: 448}, wins[2])
	assert.Equal(t, CropWindow{X: 0, Y: 64, W: 448, H: 448}, wins[3])
	assert.Equal(t, CropWindow{X: 64, Y: 64, W: 448, H: 448}, wins[4])
}

func TestCropWindowsBounds(t *testing.T) {
	for _, dims := range [][2]int{{512, 512}, {300, 200}, {64, 900}, {448, 448}, {1000, 1000}} {
		w, h := dims[0], dims[1]
		wins := CropWindows(w, h, 448)
		require.Len(t, wins, 5)
		for _, win := range wins {
			assert.GreaterOrEqual(t, win.X, 0)
			assert.GreaterOrEqual(t, win.Y, 0)
			assert.LessOrEqual(t, win.X+win.W, w)
			assert.LessOrEqual(t, win.Y+win.H, h)
			assert.Equal(t, win.W, win.H)
		}
	}
}

func TestCropWindowsSmallImageUsesShortSide(t *testing.T) {
	wins := CropWindows(100, 80, 448)
	for _, win := range wins {
		assert.Equal(t, 80, win.W)
		assert.Equal(t, 80, win.H)
	}
}

func TestCropWindowsDeterministic(t *testing.T) {
	a := CropWindows(640, 480, 448)
	b := CropWindows(640, 480, 448)
	assert.Equal(t, a, b)
}

func TestCropWindowsDegenerateDimensions(t *testing.T) {
	assert.Nil(t, CropWindows(0, 100, 448))
	assert.Nil(t, CropWindows(100, 0, 448))
	assert.Nil(t, CropWindows(-1, -1, 448))
}
