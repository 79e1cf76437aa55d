// Package transport attaches access tokens to outgoing calls and runs the
// refresh-and-retry cycle when the server rejects them.
//
// Two adapters share one auth.Authenticator:
//
//   - Transport, an http.RoundTripper that answers 401 Unauthorized by
//     obtaining a fresh token and replaying the request once.
//   - UnaryClientInterceptor, the gRPC equivalent keyed on
//     codes.Unauthenticated.
//
// Refresh endpoints are exempt from both: their failures are returned as-is.
package transport
