package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
)

// RefreshClient exchanges a refresh token for a new token pair. It performs no
// persistence.
type RefreshClient interface {
	Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// maxRefreshBody caps how much of a refresh answer is read.
const maxRefreshBody = 1 << 20

// HTTPRefreshClient calls POST <base><path> with a JSON body. Its http.Client
// must not be wrapped by this package's transports, so a failing refresh can
// never trigger another refresh.
type HTTPRefreshClient struct {
	httpClient *http.Client
	url        string
}

// NewHTTPRefreshClient builds a client for baseURL+path. A nil httpClient
// means http.DefaultClient; the caller bounds the call through ctx.
func NewHTTPRefreshClient(httpClient *http.Client, baseURL, path string) *HTTPRefreshClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if path == "" {
		path = common.DefaultRefreshPath
	}
	return &HTTPRefreshClient{
		httpClient: httpClient,
		url:        strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/"),
	}
}

// URL returns the refresh endpoint this client calls.
func (c *HTTPRefreshClient) URL() string { return c.url }

func (c *HTTPRefreshClient) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return tokens.Pair{}, &RefreshError{Kind: FailureMalformed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return tokens.Pair{}, &RefreshError{Kind: FailureTransport, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tokens.Pair{}, &RefreshError{Kind: FailureTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return tokens.Pair{}, &RefreshError{
			Kind:       FailureRejected,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b))),
		}
	}

	var out refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRefreshBody)).Decode(&out); err != nil {
		return tokens.Pair{}, &RefreshError{Kind: FailureMalformed, StatusCode: resp.StatusCode, Err: err}
	}
	if out.AccessToken == "" {
		return tokens.Pair{}, &RefreshError{Kind: FailureMalformed, StatusCode: resp.StatusCode, Err: ErrMalformedResponse}
	}

	return tokens.Pair{Access: out.AccessToken, Refresh: out.RefreshToken}, nil
}
