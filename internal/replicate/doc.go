// Package replicate is a thin client for the Replicate HTTP API.
//
// The service can forward browser requests to a hosted deployment of the
// enhancement model so the API token stays on the server. Upstream replies
// are returned as-is, including error statuses, for the HTTP layer to relay.
//
// # Identifiers
//
// Deployments are addressed as "owner/name" and predictions by a single id.
// Each path segment is validated before a request is built; anything else
// fails with ErrInvalidID and never reaches the network.
package replicate
