package model

import (
	"fmt"
	"sort"
)

// Published SCUNet checkpoints.
const (
	// WeightsPSNR is trained for fidelity; used by every denoising task.
	WeightsPSNR = "scunet_color_real_psnr.pth"

	// WeightsGAN is trained for perceptual quality.
	WeightsGAN = "scunet_color_real_gan.pth"
)

// DefaultFamily is the model family the service runs.
const DefaultFamily = "SCUNet"

// Weights names one downloadable checkpoint.
type Weights struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

var catalog = map[string][]Weights{
	DefaultFamily: {
		{Name: WeightsPSNR, URL: "https://github.com/cszn/KAIR/releases/download/v1.0/scunet_color_real_psnr.pth"},
		{Name: WeightsGAN, URL: "https://github.com/cszn/KAIR/releases/download/v1.0/scunet_color_real_gan.pth"},
	},
}

// Catalog returns the checkpoints published for family.
func Catalog(family string) ([]Weights, error) {
	weights, ok := catalog[family]
	if !ok {
		return nil, fmt.Errorf("unknown model family: %s", family)
	}
	out := make([]Weights, len(weights))
	copy(out, weights)
	return out, nil
}

// Families lists the known model families in sorted order.
func Families() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
