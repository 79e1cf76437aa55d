package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/auth"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
)

// maxDrain is how much of a rejected response body is read before the
// connection is reused.
const maxDrain = 4 << 10

// Transport is an http.RoundTripper that authenticates requests.
type Transport struct {
	base        http.RoundTripper
	auth        *auth.Authenticator
	exemptPaths map[string]struct{}
	log         logging.Logger
}

// NewTransport wraps base (http.DefaultTransport when nil). Requests whose URL
// path is one of exemptPaths are passed through untouched.
func NewTransport(base http.RoundTripper, a *auth.Authenticator, log logging.Logger, exemptPaths ...string) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	return &Transport{
		base:        base,
		auth:        a,
		exemptPaths: exempt,
		log:         logging.OrNop(log).With("component", "http_transport"),
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := t.exemptPaths[req.URL.Path]; ok {
		return t.base.RoundTrip(req)
	}

	getBody, err := rewindable(req)
	if err != nil {
		return nil, err
	}

	ctx, token, err := t.auth.Prepare(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := t.send(ctx, req, getBody, token)
	if err != nil {
		return nil, err
	}
	if !t.auth.ShouldRecover(ctx, token, resp.StatusCode == http.StatusUnauthorized) {
		return resp, nil
	}
	discard(resp)

	t.log.Info(ctx, "request unauthorized, obtaining fresh access token",
		"method", req.Method, "path", req.URL.Path)

	ctx, fresh, err := t.auth.Recover(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return t.send(ctx, req, getBody, fresh)
}

func (t *Transport) send(ctx context.Context, req *http.Request, getBody func() (io.ReadCloser, error), token string) (*http.Response, error) {
	r := req.Clone(ctx)
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		r.Body = body
		r.GetBody = getBody
	}

	r.Header.Del(common.AuthorizationHeaderName)
	if token != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerValue(token))
	}
	return t.base.RoundTrip(r)
}

// rewindable makes the request body readable more than once. The original
// body is always closed.
func rewindable(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}

	b, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()
}
