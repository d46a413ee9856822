// Package server exposes the enhancer over HTTP using gin.
//
// # Endpoints
//
//   - POST /enhance: body {"input": {"image": <base64>, "task": <optional>}},
//     response {"image": <base64 JPEG>}. The pipeline that ran is reported in
//     the X-Enhancement-Path response header.
//   - GET /health: liveness, {"status": "healthy", "message": ...}.
//   - GET /status: model loader state, active path and known tasks.
//
// # Errors
//
// Every failure is rendered as {"error": <message>}. Request validation
// failures (malformed JSON, oversized body, missing input or image) are 400;
// decode, inference and encode failures are 500. Panics are recovered and
// rendered as 500.
//
// # Middleware
//
// Requests pass through, in order: request id assignment (X-Request-ID is
// honoured and echoed), access logging, panic recovery, CORS for any origin,
// a per-request context deadline and a body size limit.
package server
