// Package client talks to the fintrack server on behalf of the CLI.
//
// # Overview
//
// HTTPClient wraps the REST API: registration and login, expense batch
// sync and the single-record calls used when replaying the offline queue,
// chat posts and history, support tickets and receipt uploads through
// presigned URLs. HealthProbe checks reachability through the server's
// gRPC health service and backs the connectivity monitor.
//
// # Error Handling
//
// Every failure is classified into one of the sentinel errors so callers
// can decide between retrying later and giving up:
//
//   - ErrUnavailable: transport failure or timeout, retry later
//   - ErrUnauthorized: the credential was rejected, sign in again
//   - ErrServerFault: the server answered 5xx, retry later
//   - ErrNotFound: the target does not exist
//   - ErrRejected: any other 4xx, the request will never succeed as is
//
// Rejections carry the server's message and field errors in *APIError.
//
// Every remote call is bounded by the request timeout given to New.
package client
