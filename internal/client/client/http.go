package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/auth"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
	"github.com/google/uuid"
)

// maxResponseBody caps what Get reads into memory.
const maxResponseBody = 8 << 20

// Response is a fully read API answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Do sends req through the authenticating transport. It adds an X-Request-ID
// header to a copy of req when the caller did not set one. Refresh failures come back matching
// both ErrUnauthorized or ErrUnavailable and the auth package sentinels.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get(common.RequestIDHeaderName) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}

	c.log.Debug(req.Context(), "api call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"request_id", req.Header.Get(common.RequestIDHeaderName),
	)
	return resp, nil
}

// Get fetches path relative to the server base URL. The Response is returned
// whenever the server answered, together with an error for non-2xx statuses.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	return out, mapStatus(resp.StatusCode)
}

func mapStatus(code int) error {
	switch {
	case code >= 200 && code <= 299:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code == http.StatusBadGateway, code == http.StatusServiceUnavailable, code == http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return fmt.Errorf("server answered %d %s", code, http.StatusText(code))
	}
}

func mapTransportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, auth.ErrSessionExpired):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case errors.Is(err, auth.ErrRefreshFailed) && !errors.Is(err, auth.ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
}
