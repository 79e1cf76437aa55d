// Package common contains shared constants and sentinel errors used across
// the tokenrefresh packages.
package common

const (
	// AuthorizationHeaderName is the HTTP header that carries the access token.
	AuthorizationHeaderName = "Authorization"

	// AuthorizationMetadataKey is the gRPC metadata key that carries the
	// access token. gRPC metadata keys are lower-case.
	AuthorizationMetadataKey = "authorization"

	// BearerPrefix precedes the access token in the authorization value.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName is attached to every API request for log correlation.
	RequestIDHeaderName = "X-Request-ID"

	// DefaultRefreshPath is the path of the refresh endpoint relative to the
	// server base URL.
	DefaultRefreshPath = "/auth/refresh"
)

// BearerValue formats an access token as an authorization value.
func BearerValue(token string) string {
	return BearerPrefix + token
}
