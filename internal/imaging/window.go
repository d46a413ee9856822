package imaging

import (
	"fmt"
)

// DefaultWindowSize is the spatial unit the SCUNet graph requires input
// dimensions to be multiples of.
const DefaultWindowSize = 256

// PadAmounts returns how many rows and columns must be appended so that
// height and width become multiples of window. Both results are in
// [0, window).
func PadAmounts(height, width, window int) (padH, padW int) {
	padH = (window - height%window) % window
	padW = (window - width%window) % window
	return padH, padW
}

// Pad extends buf on the bottom and right edges until both spatial
// dimensions are multiples of window.
//
// Parameters:
//   - buf: The source buffer. It is never modified.
//   - window: The window size in pixels. Must be positive.
//
// Returns:
//   - *PixelBuffer: A new buffer whose height and width are multiples of
//     window. When no padding is needed this is still a fresh copy.
//   - int, int: The original height and width, to be passed to Crop.
//   - error: Non-nil if window is not positive or buf is malformed.
//
// # Boundary Extension
//
// New samples mirror the interior across the last row/column without
// repeating the edge sample itself (reflect mode: ... c b | a b c | b a ...).
// When the pad is longer than the image the reflection keeps bouncing
// between both edges, and a one-pixel extent is replicated.
func Pad(buf *PixelBuffer, window int) (*PixelBuffer, int, int, error) {
	if window <= 0 {
		return nil, 0, 0, fmt.Errorf("window size must be positive, got %d", window)
	}
	if err := buf.Validate(); err != nil {
		return nil, 0, 0, err
	}

	h, w := buf.Height, buf.Width
	padH, padW := PadAmounts(h, w, window)
	if padH == 0 && padW == 0 {
		return buf.Clone(), h, w, nil
	}

	outH, outW := h+padH, w+padW
	out := NewPixelBuffer(buf.Channels, outH, outW)

	cols := make([]int, outW)
	for x := range cols {
		cols[x] = reflectIndex(x, w)
	}

	for c := 0; c < buf.Channels; c++ {
		for y := 0; y < outH; y++ {
			srcRow := buf.Data[buf.Index(c, reflectIndex(y, h), 0):][:w]
			dstRow := out.Data[out.Index(c, y, 0):][:outW]
			copy(dstRow, srcRow)
			for x := w; x < outW; x++ {
				dstRow[x] = srcRow[cols[x]]
			}
		}
	}

	return out, h, w, nil
}

// Crop returns the top-left height x width region of buf as a new buffer.
//
// Used after inference to undo Pad: the retained samples are copied
// bit-for-bit. Returns an error if the requested region is empty or larger
// than buf.
func Crop(buf *PixelBuffer, height, width int) (*PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid crop size %dx%d", width, height)
	}
	if height > buf.Height || width > buf.Width {
		return nil, fmt.Errorf("crop size %dx%d exceeds buffer size %dx%d",
			width, height, buf.Width, buf.Height)
	}

	out := NewPixelBuffer(buf.Channels, height, width)
	for c := 0; c < buf.Channels; c++ {
		for y := 0; y < height; y++ {
			copy(out.Data[out.Index(c, y, 0):][:width], buf.Data[buf.Index(c, y, 0):][:width])
		}
	}
	return out, nil
}

// reflectIndex maps a coordinate i >= 0 into [0, n) by mirroring about the
// edges without repeating them.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i >= n {
		i = period - i
	}
	return i
}
