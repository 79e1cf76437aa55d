package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	token   string
	refresh string
	err     error
}

func (s *stubSource) AccessToken(context.Context) (string, error)  { return s.token, s.err }
func (s *stubSource) RefreshToken(context.Context) (string, error) { return s.refresh, s.err }

type stubRefresher struct {
	calls int
	token string
	err   error
}

func (s *stubRefresher) ObtainFreshToken(context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestAuthenticator_Prepare(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		token     func(t *testing.T) string
		readErr   error
		skew      time.Duration
		retried   bool
		want      string
		refreshes int
		proactive bool
	}{
		{name: "no token", token: func(*testing.T) string { return "" }, want: ""},
		{name: "opaque token", token: func(*testing.T) string { return "T1" }, skew: time.Minute, want: "T1"},
		{name: "read error", token: func(*testing.T) string { return "T1" }, readErr: errors.New("io"), want: ""},
		{
			name:  "jwt far from expiry",
			token: func(t *testing.T) string { return signedJWT(t, now.Add(time.Hour)) },
			skew:  time.Minute,
			want:  "keep",
		},
		{
			name:      "jwt about to expire",
			token:     func(t *testing.T) string { return signedJWT(t, now.Add(10*time.Second)) },
			skew:      time.Minute,
			want:      "FRESH",
			refreshes: 1,
			proactive: true,
		},
		{
			name:  "jwt about to expire without skew",
			token: func(t *testing.T) string { return signedJWT(t, now.Add(10*time.Second)) },
			want:  "keep",
		},
		{
			name:    "jwt about to expire on retried request",
			token:   func(t *testing.T) string { return signedJWT(t, now.Add(10*time.Second)) },
			skew:    time.Minute,
			retried: true,
			want:    "keep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := tt.token(t)
			src := &stubSource{token: stored, err: tt.readErr}
			ref := &stubRefresher{token: "FRESH"}
			a := NewAuthenticator(src, ref, tt.skew, nil)
			a.now = func() time.Time { return now }

			ctx := context.Background()
			if tt.retried {
				ctx = WithAttempt(ctx, Attempt{Retried: true})
			}

			ctx, got, err := a.Prepare(ctx)
			require.NoError(t, err)

			want := tt.want
			if want == "keep" {
				want = stored
			}
			assert.Equal(t, want, got)
			assert.Equal(t, tt.refreshes, ref.calls)
			assert.Equal(t, tt.proactive, AttemptFrom(ctx).Proactive)
			if tt.proactive {
				assert.True(t, AttemptFrom(ctx).Retried)
			}
		})
	}
}

func TestAuthenticator_PrepareRefreshFailure(t *testing.T) {
	now := time.Now()
	failure := &RefreshError{Kind: FailureRejected, StatusCode: 401, Err: ErrSessionExpired}
	a := NewAuthenticator(&stubSource{token: signedJWT(t, now.Add(time.Second))}, &stubRefresher{err: failure}, time.Minute, nil)

	_, token, err := a.Prepare(context.Background())
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, token)
}

func TestAuthenticator_ShouldRecover(t *testing.T) {
	fresh := context.Background()
	retried := WithAttempt(fresh, Attempt{Retried: true})
	readErr := errors.New("disk")

	tests := []struct {
		name         string
		src          *stubSource
		ctx          context.Context
		sent         string
		unauthorized bool
		want         bool
	}{
		{name: "unauthorized with token", src: &stubSource{}, ctx: fresh, sent: "T1", unauthorized: true, want: true},
		{name: "authorized", src: &stubSource{}, ctx: fresh, sent: "T1", want: false},
		{name: "already retried", src: &stubSource{}, ctx: retried, sent: "T1", unauthorized: true, want: false},
		{name: "retried and authorized", src: &stubSource{}, ctx: retried, sent: "T1", want: false},
		{name: "no token sent but refresh stored", src: &stubSource{refresh: "R1"}, ctx: fresh, unauthorized: true, want: true},
		{name: "no session at all", src: &stubSource{}, ctx: fresh, unauthorized: true, want: false},
		{name: "no token sent and store unreadable", src: &stubSource{err: readErr}, ctx: fresh, unauthorized: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthenticator(tt.src, &stubRefresher{}, 0, nil)
			assert.Equal(t, tt.want, a.ShouldRecover(tt.ctx, tt.sent, tt.unauthorized))
		})
	}
}

func TestAuthenticator_Recover(t *testing.T) {
	t.Run("refreshes when the sent token is still current", func(t *testing.T) {
		ref := &stubRefresher{token: "T2"}
		a := NewAuthenticator(&stubSource{token: "T1"}, ref, 0, nil)

		ctx, token, err := a.Recover(context.Background(), "T1")
		require.NoError(t, err)
		assert.Equal(t, "T2", token)
		assert.Equal(t, 1, ref.calls)
		assert.True(t, AttemptFrom(ctx).Retried)
		assert.False(t, a.ShouldRecover(ctx, "T2", true))
	})

	t.Run("reuses a token another request already obtained", func(t *testing.T) {
		ref := &stubRefresher{token: "T3"}
		a := NewAuthenticator(&stubSource{token: "T2"}, ref, 0, nil)

		ctx, token, err := a.Recover(context.Background(), "T1")
		require.NoError(t, err)
		assert.Equal(t, "T2", token)
		assert.Zero(t, ref.calls)
		assert.True(t, AttemptFrom(ctx).Retried)
	})

	t.Run("refreshes when the request went out without a token", func(t *testing.T) {
		ref := &stubRefresher{token: "T2"}
		a := NewAuthenticator(&stubSource{}, ref, 0, nil)

		_, token, err := a.Recover(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "T2", token)
		assert.Equal(t, 1, ref.calls)
	})

	t.Run("propagates refresh failure", func(t *testing.T) {
		failure := &RefreshError{Kind: FailureTransport, Err: errors.New("dial")}
		a := NewAuthenticator(&stubSource{token: "T1"}, &stubRefresher{err: failure}, 0, nil)

		_, token, err := a.Recover(context.Background(), "T1")
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Empty(t, token)
	})
}
