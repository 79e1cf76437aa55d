// Package auth keeps a short-lived access token valid for many concurrent
// callers.
//
// # Overview
//
// The Coordinator is a single-flight engine. The first caller that finds its
// access token stale starts one refresh; every caller that arrives while it is
// outstanding joins the same flight and receives the same outcome. A refresh
// that fails clears the session through the Invalidator before anyone is
// woken.
//
// The Authenticator is the policy shared by the HTTP and gRPC transports: it
// picks the token to attach, decides whether an unauthorized answer may be
// recovered, and performs that recovery at most once per request. The
// per-request bookkeeping lives in an immutable Attempt carried by the
// request context.
//
// # Errors
//
// Refresh failures match ErrRefreshFailed and, depending on the cause,
// ErrSessionExpired (the server rejected the refresh token, or there was none)
// or ErrUnavailable (the refresh endpoint could not be reached in time).
package auth
