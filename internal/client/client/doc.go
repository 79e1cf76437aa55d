// Package client is the application-facing API client.
//
// # Overview
//
// New wires the pieces of the token refresh machinery around one storage
// backend:
//  1. tokens.Store, the typed view of the persisted token pair.
//  2. auth.Coordinator, which runs at most one refresh at a time.
//  3. auth.Invalidator, which ends the local session when a refresh fails.
//  4. transport.Transport and transport.UnaryClientInterceptor, which attach
//     the access token to HTTP and gRPC calls and replay a rejected call once
//     with a fresh token.
//
// The refresh endpoint is called through a plain http.Client, so a failing
// refresh never triggers another one.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized. Errors caused by a failed
// refresh also match auth.ErrRefreshFailed and, depending on the cause,
// auth.ErrSessionExpired or auth.ErrUnavailable.
//
// Concurrency & Contexts
//
// Client is safe for concurrent use. All operations accept context.Context;
// cancelling it stops the caller from waiting but never aborts a refresh that
// other calls share.
package client
