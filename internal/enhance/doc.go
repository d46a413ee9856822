// Package enhance selects and runs the enhancement pipeline for one image.
//
// Every request goes through the same state machine:
//
//	Start -> Select
//	Select -> Neural   (a restorer is loaded)
//	Select -> Fallback (no restorer)
//	Neural:   decode -> pad -> restore -> crop -> clamp -> encode -> Done
//	Fallback: decode -> task profile -> global adjustments -> encode -> Done
//	any error -> Failed (terminal, not retried)
//
// The choice between the two paths is made once per request by Select and
// returned as an explicit Backend value, so each path can be exercised on
// its own.
//
// # Tasks
//
// The task only shapes the fallback path. The neural path always runs the
// single loaded network; several tasks also share one fallback profile.
package enhance
