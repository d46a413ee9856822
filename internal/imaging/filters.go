package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
)

// Factor-style enhancement: a factor of 1 leaves the image unchanged, 1.1
// strengthens the effect by 10%, values below 1 weaken it.

// Opaque returns an 8-bit copy of img with the alpha channel forced to fully
// opaque. Color values are kept as stored, not composited.
func Opaque(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

// GaussianBlur blurs img with a Gaussian of the given radius (sigma) in pixels.
// A non-positive radius returns an unmodified copy.
func GaussianBlur(img image.Image, radius float64) image.Image {
	if radius <= 0 {
		return imaging.Clone(img)
	}
	return imaging.Blur(img, radius)
}

// Sharpness adjusts edge crispness by extrapolating away from (factor > 1) or
// towards (factor < 1) a smoothed copy of img.
func Sharpness(img image.Image, factor float64) image.Image {
	smoothed := convolution.Convolve(img, smoothKernel(), &convolution.Options{
		Bias:      0,
		Wrap:      false,
		KeepAlpha: true,
	})
	return blend(smoothed, img, factor)
}

// Upscale enlarges img by factor using Lanczos3 resampling. The target size
// is truncated to whole pixels and never drops below 1x1.
func Upscale(img image.Image, factor float64) image.Image {
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return resize.Resize(uint(w), uint(h), img, resize.Lanczos3)
}

// Contrast scales every channel away from (or towards) a fixed mid-gray
// pivot, not the image mean.
func Contrast(img image.Image, factor float64) image.Image {
	return adjust.Contrast(img, factor-1)
}

// Brightness multiplies every channel by factor.
func Brightness(img image.Image, factor float64) image.Image {
	return adjust.Brightness(img, factor-1)
}

// Saturation multiplies the HSL saturation of every pixel by factor.
// Hue and HSL lightness are preserved (not luma) and alpha is copied through.
func Saturation(img image.Image, factor float64) image.Image {
	out := imaging.Clone(img)
	if factor == 1 {
		return out
	}

	for i := 0; i+3 < len(out.Pix); i += 4 {
		c := colorful.Color{
			R: float64(out.Pix[i]) / 255,
			G: float64(out.Pix[i+1]) / 255,
			B: float64(out.Pix[i+2]) / 255,
		}
		h, s, l := c.Hsl()
		s = math.Min(math.Max(s*factor, 0), 1)
		r, g, b := colorful.Hsl(h, s, l).Clamped().RGB255()
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = r, g, b
	}
	return out
}

// smoothKernel is the 3x3 smoothing filter sharpness is measured against.
func smoothKernel() convolution.Matrix {
	k := convolution.NewKernel(3, 3)
	weights := []float64{
		1, 1, 1,
		1, 5, 1,
		1, 1, 1,
	}
	copy(k.Matrix, weights)
	return k.Normalized()
}

// blend returns base + factor*(top - base) per channel, clamped to 8 bits.
// Alpha is taken from top.
func blend(base, top image.Image, factor float64) *image.NRGBA {
	a := imaging.Clone(base)
	b := imaging.Clone(top)
	out := image.NewNRGBA(b.Bounds())

	for i := 0; i+3 < len(out.Pix) && i+3 < len(a.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(a.Pix[i+c]) + factor*(float64(b.Pix[i+c])-float64(a.Pix[i+c]))
			out.Pix[i+c] = clampByte(v)
		}
		out.Pix[i+3] = b.Pix[i+3]
	}
	return out
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
