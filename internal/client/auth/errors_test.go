package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefreshError_Is(t *testing.T) {
	tests := []struct {
		kind        FailureKind
		expired     bool
		unavailable bool
	}{
		{kind: FailureRejected, expired: true},
		{kind: FailureNoToken, expired: true},
		{kind: FailureTransport, unavailable: true},
		{kind: FailureMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("get /items: %w", &RefreshError{Kind: tt.kind, Err: errors.New("x")})

			assert.True(t, errors.Is(err, ErrRefreshFailed))
			assert.Equal(t, tt.expired, errors.Is(err, ErrSessionExpired))
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrUnavailable))
		})
	}
}

func TestRefreshError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &RefreshError{Kind: FailureTransport, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "unknown", FailureKind(0).String())
}
