package classifier

// A CropWindow is a square sub-region of the source image that is sampled
// independently for classification.
type CropWindow struct {
	X int
	Y int
	W int
	H int
}

// CropWindows returns the five sampling windows for an image of the given
// dimensions: one centered, then four corner-anchored (top-left, top-right,
// bottom-left, bottom-right), each a square of side min(width, height,
// inputSize). Identical dimensions always produce identical windows.
//
// Avatars are frequently off-center, so sampling the corners as well as the
// center raises the chance that content anywhere in the frame lands inside
// at least one window, at a cost of at most five forward passes.
func CropWindows(width, height, inputSize int) []CropWindow {
	if width <= 0 || height <= 0 {
		return nil
	}
	side := width
	if height < side {
		side = height
	}
	if inputSize > 0 && inputSize < side {
		side = inputSize
	}

	cx := (width - side) / 2
	cy := (height - side) / 2
	rx := width - side
	by := height - side

	return []CropWindow{
		{X: cx, Y: cy, W: side, H: side},
		{X: 0, Y: 0, W: side, H: side},
		{X: rx, Y: 0, W: side, H: side},
		{X: 0, Y: by, W: side, H: side},
		{X: rx, Y: by, W: side, H: side},
	}
}
