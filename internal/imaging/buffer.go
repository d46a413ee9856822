package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// RGBChannels is the channel count of every PixelBuffer built from an image.
const RGBChannels = 3

// PixelBuffer is a planar (channel, height, width) float image.
//
// Samples are normalized to [0,1] in RGB order. The zero value is an empty
// buffer; use NewPixelBuffer or FromImage to get a usable one.
type PixelBuffer struct {
	// Channels is the number of planes (3 for RGB).
	Channels int

	// Height is the number of rows per plane.
	Height int

	// Width is the number of columns per plane.
	Width int

	// Data holds Channels*Height*Width samples, plane after plane.
	Data []float32
}

// NewPixelBuffer allocates a zeroed buffer of the given shape.
func NewPixelBuffer(channels, height, width int) *PixelBuffer {
	return &PixelBuffer{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// Index returns the offset of sample (c, y, x) in Data.
func (b *PixelBuffer) Index(c, y, x int) int {
	return (c*b.Height+y)*b.Width + x
}

// At returns the sample at channel c, row y, column x.
func (b *PixelBuffer) At(c, y, x int) float32 {
	return b.Data[b.Index(c, y, x)]
}

// Set stores v at channel c, row y, column x.
func (b *PixelBuffer) Set(c, y, x int, v float32) {
	b.Data[b.Index(c, y, x)] = v
}

// Shape returns the buffer dimensions as (channels, height, width).
func (b *PixelBuffer) Shape() (int, int, int) {
	return b.Channels, b.Height, b.Width
}

// Validate reports whether Data matches the declared shape.
func (b *PixelBuffer) Validate() error {
	if b.Channels <= 0 || b.Height <= 0 || b.Width <= 0 {
		return fmt.Errorf("invalid buffer shape %dx%dx%d", b.Channels, b.Height, b.Width)
	}
	if want := b.Channels * b.Height * b.Width; len(b.Data) != want {
		return fmt.Errorf("buffer holds %d samples, shape %dx%dx%d needs %d",
			len(b.Data), b.Channels, b.Height, b.Width, want)
	}
	return nil
}

// Clone returns a deep copy of the buffer.
func (b *PixelBuffer) Clone() *PixelBuffer {
	out := NewPixelBuffer(b.Channels, b.Height, b.Width)
	copy(out.Data, b.Data)
	return out
}

// Clamp limits every sample to [0,1] in place. NaN samples become 0.
func (b *PixelBuffer) Clamp() {
	for i, v := range b.Data {
		switch {
		case math.IsNaN(float64(v)):
			b.Data[i] = 0
		case v < 0:
			b.Data[i] = 0
		case v > 1:
			b.Data[i] = 1
		}
	}
}

// FromImage converts any image into an RGB PixelBuffer.
//
// The image is first normalized to non-premultiplied 8-bit RGBA, so the alpha
// channel is dropped rather than composited over a background. Grayscale and
// paletted images expand to three equal channels.
func FromImage(img image.Image) *PixelBuffer {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	buf := NewPixelBuffer(RGBChannels, h, w)
	plane := h * w

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			i := y*w + x
			buf.Data[i] = float32(row[x*4]) / 255
			buf.Data[plane+i] = float32(row[x*4+1]) / 255
			buf.Data[2*plane+i] = float32(row[x*4+2]) / 255
		}
	}
	return buf
}

// ToImage converts an RGB buffer back to an opaque 8-bit image.
//
// Samples are clamped to [0,1], scaled by 255 and rounded half away from zero.
// A single-channel buffer is rendered as gray. The receiver is not modified.
func (b *PixelBuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	plane := b.Height * b.Width

	for y := 0; y < b.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Width*4]
		for x := 0; x < b.Width; x++ {
			i := y*b.Width + x
			r := toUint8(b.Data[i])
			g, bl := r, r
			if b.Channels >= RGBChannels {
				g = toUint8(b.Data[plane+i])
				bl = toUint8(b.Data[2*plane+i])
			}
			row[x*4] = r
			row[x*4+1] = g
			row[x*4+2] = bl
			row[x*4+3] = 0xff
		}
	}
	return img
}

func toUint8(v float32) uint8 {
	if math.IsNaN(float64(v)) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}
