// Package model acquires and runs the pretrained SCUNet restoration network.
//
// The network is executed through onnxruntime from an ONNX export of the
// SCUNet checkpoint. Everything the rest of the service needs is expressed by
// the Restorer interface, so handlers and tests never touch the runtime
// directly.
//
// # Loading
//
// Loader performs a one-time, process-wide acquisition of the weights. The
// first call to Load opens the session; concurrent first calls block until
// that single attempt finishes and then share its result. A missing weights
// file is not an error: Load returns nil and callers switch to the classic
// filter path.
//
// # Weights
//
// Catalog lists the published checkpoints by model family and Download
// fetches them. Downloads are written to a temporary file in the target
// directory and renamed into place, so a partially downloaded file is never
// picked up by a running service.
package model
