package enhance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ironsheep/image-enhancer/internal/imaging"
	"github.com/ironsheep/image-enhancer/internal/model"
	"github.com/sirupsen/logrus"
)

// Path identifies which pipeline processed a request.
type Path int

const (
	// PathFallback runs classic filters; used when no network is loaded.
	PathFallback Path = iota

	// PathNeural runs the restoration network.
	PathNeural
)

func (p Path) String() string {
	if p == PathNeural {
		return "neural"
	}
	return "fallback"
}

// MarshalText renders the path as "neural" or "fallback".
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ModelSource yields the loaded restorer, or nil when none is available.
// *model.Loader satisfies it.
type ModelSource interface {
	Load() model.Restorer
}

// Backend is the outcome of the model availability check: the path to run
// and, for PathNeural, the restorer to run it with.
type Backend struct {
	Path     Path
	Restorer model.Restorer
}

// Options tunes the pipeline. Zero values take the package defaults.
type Options struct {
	// WindowSize is the padding unit for the neural path.
	WindowSize int

	// JPEGQuality is the output encoding quality.
	JPEGQuality int

	// MaxPixels caps the decoded image size on both paths.
	MaxPixels int

	// MaxNeuralPixels caps the padded buffer fed to the network. Each pixel
	// costs 12 bytes per float32 RGB buffer.
	MaxNeuralPixels int
}

// DefaultMaxNeuralPixels admits padded inputs up to 4096x4096.
const DefaultMaxNeuralPixels = 4096 * 4096

// Result is one successfully enhanced image.
type Result struct {
	// Image is the base64 JPEG output.
	Image string

	// Path is the pipeline that produced Image.
	Path Path

	// Task is the task the request asked for.
	Task Task

	// Width and Height are the output dimensions.
	Width  int
	Height int

	// Input describes the decoded request image.
	Input *imaging.ImageInfo

	// Elapsed is the wall time spent in the pipeline.
	Elapsed time.Duration
}

// Enhancer dispatches requests to the neural or fallback path. It holds no
// per-request state and is safe for concurrent use.
type Enhancer struct {
	models    ModelSource
	window    int
	quality   int
	maxPixels int
	maxPadded int
	log       logrus.FieldLogger
}

// New creates an Enhancer. models may be nil, in which case every request
// takes the fallback path.
func New(models ModelSource, opts Options, log logrus.FieldLogger) *Enhancer {
	if opts.WindowSize <= 0 {
		opts.WindowSize = imaging.DefaultWindowSize
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = imaging.DefaultJPEGQuality
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = imaging.DefaultMaxPixels
	}
	if opts.MaxNeuralPixels <= 0 {
		opts.MaxNeuralPixels = DefaultMaxNeuralPixels
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Enhancer{
		models:    models,
		window:    opts.WindowSize,
		quality:   opts.JPEGQuality,
		maxPixels: opts.MaxPixels,
		maxPadded: opts.MaxNeuralPixels,
		log:       log,
	}
}

// Select checks model availability. The first call may trigger the one-time
// model load.
func (e *Enhancer) Select() Backend {
	if e.models == nil {
		return Backend{Path: PathFallback}
	}
	if r := e.models.Load(); r != nil {
		return Backend{Path: PathNeural, Restorer: r}
	}
	return Backend{Path: PathFallback}
}

// Enhance selects a backend and runs encoded through it.
func (e *Enhancer) Enhance(ctx context.Context, encoded string, task Task) (*Result, error) {
	return e.Run(ctx, e.Select(), encoded, task)
}

// Run processes encoded on the given backend. All failures, including
// panics raised by image libraries, are returned as *ProcessingError.
func (e *Enhancer) Run(ctx context.Context, backend Backend, encoded string, task Task) (res *Result, err error) {
	start := time.Now()
	log := e.log.WithFields(logrus.Fields{
		"task": task.String(),
		"path": backend.Path.String(),
	})
	if !task.Known() {
		log.Warn("Unknown task, applying identity profile")
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fail(backend.Path, "panic", fmt.Errorf("%v", r))
		}
		if err != nil {
			log.WithError(err).Error("Enhancement failed")
			return
		}
		res.Elapsed = time.Since(start)
		log.WithFields(logrus.Fields{
			"width":   res.Width,
			"height":  res.Height,
			"elapsed": res.Elapsed,
		}).Debug("Enhancement completed")
	}()

	switch backend.Path {
	case PathNeural:
		res, err = e.runNeural(ctx, backend.Restorer, encoded)
	default:
		res, err = e.runFallback(ctx, encoded, task)
	}
	if err != nil {
		return nil, err
	}
	res.Task = task
	return res, nil
}

func (e *Enhancer) runNeural(ctx context.Context, restorer model.Restorer, encoded string) (*Result, error) {
	if restorer == nil {
		return nil, fail(PathNeural, "select", errors.New("no restorer loaded"))
	}

	buf, info, err := imaging.Decode(encoded, e.maxPixels)
	if err != nil {
		return nil, fail(PathNeural, "decode", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(PathNeural, "decode", err)
	}

	padH, padW := imaging.PadAmounts(buf.Height, buf.Width, e.window)
	if h, w := buf.Height+padH, buf.Width+padW; int64(h)*int64(w) > int64(e.maxPadded) {
		return nil, fail(PathNeural, "pad", fmt.Errorf(
			"padded size %dx%d exceeds the %d pixel inference limit: %w",
			w, h, e.maxPadded, imaging.ErrTooLarge))
	}

	padded, origH, origW, err := imaging.Pad(buf, e.window)
	if err != nil {
		return nil, fail(PathNeural, "pad", err)
	}

	restored, err := restorer.Restore(ctx, padded)
	if err != nil {
		return nil, fail(PathNeural, "inference", err)
	}
	gotC, gotH, gotW := restored.Shape()
	wantC, wantH, wantW := padded.Shape()
	if gotC != wantC || gotH != wantH || gotW != wantW {
		return nil, fail(PathNeural, "inference", fmt.Errorf(
			"output shape %dx%dx%d does not match input %dx%dx%d",
			gotC, gotH, gotW, wantC, wantH, wantW))
	}

	out, err := imaging.Crop(restored, origH, origW)
	if err != nil {
		return nil, fail(PathNeural, "crop", err)
	}
	out.Clamp()

	encodedOut, err := imaging.Encode(out, e.quality)
	if err != nil {
		return nil, fail(PathNeural, "encode", err)
	}

	return &Result{
		Image:  encodedOut,
		Path:   PathNeural,
		Width:  out.Width,
		Height: out.Height,
		Input:  info,
	}, nil
}

func (e *Enhancer) runFallback(ctx context.Context, encoded string, task Task) (*Result, error) {
	img, info, err := imaging.DecodeImage(encoded, e.maxPixels)
	if err != nil {
		return nil, fail(PathFallback, "decode", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(PathFallback, "decode", err)
	}

	enhanced := ApplyFallback(img, task)

	encodedOut, err := imaging.EncodeImage(enhanced, e.quality)
	if err != nil {
		return nil, fail(PathFallback, "encode", err)
	}

	bounds := enhanced.Bounds()
	return &Result{
		Image:  encodedOut,
		Path:   PathFallback,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Input:  info,
	}, nil
}
