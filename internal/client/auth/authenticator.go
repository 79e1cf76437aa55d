package auth

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
)

// TokenSource reads the current token pair, one token at a time.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
}

// Refresher hands out fresh access tokens. *Coordinator implements it.
type Refresher interface {
	ObtainFreshToken(ctx context.Context) (string, error)
}

// Authenticator holds the request/response interception policy shared by
// the HTTP and gRPC transports.
type Authenticator struct {
	tokens    TokenSource
	refresher Refresher
	skew      time.Duration
	now       func() time.Time
	log       logging.Logger
}

// NewAuthenticator builds the policy. With a positive skew, JWT access tokens
// that expire within skew are refreshed before the request is sent.
func NewAuthenticator(src TokenSource, refresher Refresher, skew time.Duration, log logging.Logger) *Authenticator {
	return &Authenticator{
		tokens:    src,
		refresher: refresher,
		skew:      skew,
		now:       time.Now,
		log:       logging.OrNop(log).With("component", "authenticator"),
	}
}

// Prepare picks the access token to attach to an outgoing request. It returns
// "" when no token is stored or the store cannot be read; such requests go
// out unauthenticated. The returned context must be used for the request.
func (a *Authenticator) Prepare(ctx context.Context) (context.Context, string, error) {
	token, err := a.tokens.AccessToken(ctx)
	if err != nil {
		a.log.Warn(ctx, "access token unreadable, sending request without it", "error", err)
		return ctx, "", nil
	}

	attempt := AttemptFrom(ctx)
	if token == "" || a.skew <= 0 || attempt.Retried || !tokens.ExpiresWithin(token, a.skew, a.now()) {
		return ctx, token, nil
	}

	a.log.Debug(ctx, "access token about to expire, refreshing before send")
	fresh, err := a.refresher.ObtainFreshToken(ctx)
	if err != nil {
		return ctx, "", err
	}
	return WithAttempt(ctx, Attempt{Retried: true, Proactive: true}), fresh, nil
}

// ShouldRecover reports whether an answer may start a refresh-and-retry
// cycle: it must be unauthorized and the request must not have had its cycle
// yet. A request sent without a token while no refresh token is stored has
// no session to recover, so its answer is returned as is. Transports exempt
// the refresh endpoint before asking.
func (a *Authenticator) ShouldRecover(ctx context.Context, sent string, unauthorized bool) bool {
	if !unauthorized || AttemptFrom(ctx).Retried {
		return false
	}
	if sent != "" {
		return true
	}
	refresh, err := a.tokens.RefreshToken(ctx)
	if err == nil && refresh == "" {
		a.log.Debug(ctx, "unauthorized without a session, not refreshing")
		return false
	}
	return true
}

// Recover obtains the token to replay a request with, given the token it was
// sent with. If another request already replaced the stored token, that one
// is reused without a new refresh. The returned context marks the request as
// retried.
func (a *Authenticator) Recover(ctx context.Context, sent string) (context.Context, string, error) {
	ctx = WithAttempt(ctx, Attempt{Retried: true})

	if current, err := a.tokens.AccessToken(ctx); err == nil && current != "" && current != sent {
		a.log.Debug(ctx, "access token already replaced, replaying without refresh")
		return ctx, current, nil
	}

	fresh, err := a.refresher.ObtainFreshToken(ctx)
	if err != nil {
		return ctx, "", err
	}
	return ctx, fresh, nil
}
