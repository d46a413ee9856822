package model

import (
	"context"

	"github.com/ironsheep/image-enhancer/internal/imaging"
)

// Restorer runs a restoration network over a padded pixel buffer.
//
// Implementations must be safe for concurrent use and must not retain or
// modify the input buffer. The returned buffer has the same shape as the
// input; its samples are not guaranteed to lie in [0,1].
type Restorer interface {
	// Restore runs one forward pass. ctx is checked before the pass starts;
	// a pass that has started runs to completion.
	Restore(ctx context.Context, in *imaging.PixelBuffer) (*imaging.PixelBuffer, error)

	// Name identifies the loaded network, e.g. the weights file name.
	Name() string

	// Close releases native resources. Restore must not be called afterwards.
	Close() error
}
