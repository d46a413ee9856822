// Package imaging provides the image plumbing around the restoration network.
//
// This package converts between encoded images (base64 text carrying a JPEG,
// PNG, GIF, WebP, BMP or TIFF container) and PixelBuffer, the planar float
// layout the network consumes. It also adapts arbitrary image sizes to the
// network's fixed window and provides the classic filters used when no
// network is available.
//
// # Pixel Layout
//
// A PixelBuffer stores samples as (channel, height, width):
//   - Channel order is always RGB, three channels
//   - Samples are float32 normalized to [0,1]
//   - Index(c, y, x) = c*Height*Width + y*Width + x
//   - (0,0) is the top-left pixel, X increases rightward, Y downward
//
// # Window Padding
//
// Pad extends the bottom and right edges by reflection until both dimensions
// are multiples of the window size; Crop restores the original top-left region
// unchanged. Pad followed by Crop is the identity on buffer contents.
//
// # Thread Safety
//
// Nothing in this package holds shared state. Every call allocates its own
// buffers, so concurrent requests never observe each other's pixels. A single
// PixelBuffer must not be mutated from multiple goroutines without external
// synchronization.
//
// # Error Handling
//
// Decoding failures (bad base64, unknown or corrupt container) are reported
// as *DecodeError and encoding failures as *EncodeError, so callers can tell
// bad input apart from internal faults with errors.As.
package imaging
