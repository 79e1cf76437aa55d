// Package devserver is a small token-issuing API server for trying the
// client locally and for end-to-end tests.
//
// It serves:
//
//	POST /auth/refresh   exchanges a refresh token for a new pair (rotating)
//	GET  /api/items      a protected resource, requires Authorization: Bearer
//	gRPC health          protected by the same bearer check
//
// Access tokens are HS256 JWTs with a short lifetime; refresh tokens are
// opaque random strings kept in a storage.Backend and rotated on every use.
// There is no login endpoint: IssuePair mints the first pair, which the
// client imports.
package devserver
