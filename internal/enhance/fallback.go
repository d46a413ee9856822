package enhance

import (
	"image"

	"github.com/ironsheep/image-enhancer/internal/imaging"
)

// Filter transforms one image into another.
type Filter func(image.Image) image.Image

// Profile is the task-specific part of the fallback path.
type Profile struct {
	Name    string
	Filters []Filter
}

var (
	denoiseProfile = Profile{Name: "denoise", Filters: []Filter{
		blur(0.5),
		sharpen(1.2),
	}}

	superResolutionProfile = Profile{Name: "upscale", Filters: []Filter{
		upscale(1.25),
		sharpen(1.3),
	}}

	artifactProfile = Profile{Name: "deblock", Filters: []Filter{
		blur(0.3),
	}}

	identityProfile = Profile{Name: "identity"}
)

// globalAdjustments run after every profile, in order.
var globalAdjustments = []Filter{
	func(img image.Image) image.Image { return imaging.Contrast(img, 1.1) },
	func(img image.Image) image.Image { return imaging.Saturation(img, 1.15) },
	func(img image.Image) image.Image { return imaging.Brightness(img, 1.05) },
}

// ProfileFor returns the fallback profile for task. Unknown tasks get the
// identity profile.
func ProfileFor(task Task) Profile {
	switch task {
	case RealDenoising, ColorDenoising:
		return denoiseProfile
	case SuperResolution:
		return superResolutionProfile
	case JPEGArtifactReduction:
		return artifactProfile
	default:
		return identityProfile
	}
}

// ApplyFallback runs the task profile and the global adjustments over img.
// Alpha is discarded first, so the result is always opaque RGB.
func ApplyFallback(img image.Image, task Task) image.Image {
	var out image.Image = imaging.Opaque(img)
	for _, f := range ProfileFor(task).Filters {
		out = f(out)
	}
	for _, f := range globalAdjustments {
		out = f(out)
	}
	return out
}

func blur(radius float64) Filter {
	return func(img image.Image) image.Image { return imaging.GaussianBlur(img, radius) }
}

func sharpen(factor float64) Filter {
	return func(img image.Image) image.Image { return imaging.Sharpness(img, factor) }
}

func upscale(factor float64) Filter {
	return func(img image.Image) image.Image { return imaging.Upscale(img, factor) }
}
