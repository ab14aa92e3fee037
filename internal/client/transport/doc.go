// Package transport delivers SubmissionRecords to the remote endpoint.
//
// One Submit issues exactly one HTTP POST; retries belong to the sweeper.
// The endpoint answers either with a JSON object carrying a boolean
// "success" (StructuredResponse) or with an opaque body where only the
// status code matters (OpaqueResponse). Both reduce to a models.Outcome.
//
// Failures that produce no usable answer (network errors, context errors,
// non-2xx opaque replies, requests that cannot be built) are returned as
// *TransportError, which matches common.ErrTransport:
//
//	out, err := c.Submit(ctx, rec)
//	if err != nil || !out.OK {
//	    // queue for later
//	}
//
// Probers answer "is the endpoint reachable right now" for the online
// watcher: HTTPProbe issues a HEAD against the endpoint, GRPCHealthProbe asks
// the collector's grpc_health_v1 service.
package transport
