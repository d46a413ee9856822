package enhance

import (
	"strings"

	"github.com/ironsheep/image-enhancer/internal/model"
)

// Task selects an enhancement profile. Values outside the known set are
// allowed and run the identity fallback profile.
type Task string

const (
	RealDenoising         Task = "Real_Denoising"
	ColorDenoising        Task = "Color_Denoising"
	SuperResolution       Task = "Super_Resolution"
	JPEGArtifactReduction Task = "JPEG_Artifact_Reduction"
)

// DefaultTask is used when a request names no task.
const DefaultTask = RealDenoising

// KnownTasks lists the recognized tasks in a stable order.
func KnownTasks() []Task {
	return []Task{RealDenoising, ColorDenoising, SuperResolution, JPEGArtifactReduction}
}

// ParseTask maps request text to a Task. Empty text (after trimming) yields
// DefaultTask; anything else is taken verbatim.
func ParseTask(s string) Task {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTask
	}
	return Task(s)
}

// Known reports whether t is one of KnownTasks.
func (t Task) Known() bool {
	switch t {
	case RealDenoising, ColorDenoising, SuperResolution, JPEGArtifactReduction:
		return true
	}
	return false
}

// Weights names the checkpoint associated with the task. The service loads
// a single network regardless; GET /status reports the mapping.
func (t Task) Weights() string {
	if t == SuperResolution {
		return model.WeightsGAN
	}
	return model.WeightsPSNR
}

func (t Task) String() string { return string(t) }
