package model

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ironsheep/image-enhancer/internal/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXOptions configures how the ONNX graph is opened.
type ONNXOptions struct {
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default search path.
	LibraryPath string

	// InputName and OutputName are the graph's tensor names. They default to
	// "input" and "output".
	InputName  string
	OutputName string

	// IntraOpThreads limits the threads used inside one inference.
	// Zero leaves the runtime default.
	IntraOpThreads int
}

// ONNXRestorer runs an exported SCUNet graph with dynamic NCHW input shape.
//
// Tensors are created per call, so concurrent requests never share buffers.
type ONNXRestorer struct {
	name    string
	session *ort.DynamicAdvancedSession

	closeOnce sync.Once
	closeErr  error
}

// OpenONNX initializes the onnxruntime environment (once per process) and
// opens the graph at modelPath.
func OpenONNX(modelPath string, opts ONNXOptions) (*ONNXRestorer, error) {
	if opts.InputName == "" {
		opts.InputName = "input"
	}
	if opts.OutputName == "" {
		opts.OutputName = "output"
	}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	var sessionOpts *ort.SessionOptions
	if opts.IntraOpThreads > 0 {
		so, err := ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to create session options: %w", err)
		}
		defer so.Destroy()
		if err := so.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
		sessionOpts = so
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{opts.InputName}, []string{opts.OutputName}, sessionOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXRestorer{
		name:    filepath.Base(modelPath),
		session: session,
	}, nil
}

// Name returns the weights file name the session was opened from.
func (r *ONNXRestorer) Name() string {
	return r.name
}

// Restore runs one forward pass over in (shape 1xCxHxW). No gradients are
// tracked; the runtime is inference-only.
func (r *ONNXRestorer) Restore(ctx context.Context, in *imaging.PixelBuffer) (*imaging.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input buffer: %w", err)
	}

	shape := ort.NewShape(1, int64(in.Channels), int64(in.Height), int64(in.Width))

	input, err := ort.NewTensor(shape, in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](shape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := r.session.Run([]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := imaging.NewPixelBuffer(in.Channels, in.Height, in.Width)
	copy(out.Data, output.GetData())
	return out, nil
}

// Close destroys the session and the process-wide onnxruntime environment.
// Only one ONNXRestorer exists per process; calling Close twice is a no-op.
func (r *ONNXRestorer) Close() error {
	r.closeOnce.Do(func() {
		if r.session != nil {
			r.closeErr = r.session.Destroy()
		}
		if err := ort.DestroyEnvironment(); err != nil && r.closeErr == nil {
			r.closeErr = err
		}
	})
	return r.closeErr
}
