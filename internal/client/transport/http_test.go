package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/auth"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiServer accepts "Bearer <validToken>" on /api/items and issues validToken
// from /auth/refresh in exchange for R1.
type apiServer struct {
	srv *httptest.Server

	validToken    string
	alwaysReject  bool
	refreshStatus int
	// refreshGate, when set, runs before /auth/refresh answers.
	refreshGate func()

	refreshCalls atomic.Int32
	apiCalls     atomic.Int32

	mu     sync.Mutex
	seen   []string
	bodies []string
}

func startAPIServer(t *testing.T, s *apiServer) *apiServer {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(common.DefaultRefreshPath, s.refresh)
	mux.HandleFunc("/api/items", s.items)
	mux.HandleFunc("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		s.apiCalls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *apiServer) items(w http.ResponseWriter, r *http.Request) {
	s.apiCalls.Add(1)
	body, _ := io.ReadAll(r.Body)
	got := r.Header.Get(common.AuthorizationHeaderName)

	s.mu.Lock()
	s.seen = append(s.seen, got)
	s.bodies = append(s.bodies, string(body))
	s.mu.Unlock()

	if s.alwaysReject || got != common.BearerValue(s.validToken) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	_, _ = w.Write([]byte("ok"))
}

func (s *apiServer) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if s.refreshGate != nil {
		s.refreshGate()
	}
	if s.refreshStatus != 0 {
		http.Error(w, `{"error":"invalid_grant"}`, s.refreshStatus)
		return
	}

	var in struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.RefreshToken != "R1" {
		http.Error(w, "unknown refresh token", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"access_token":%q,"refresh_token":"R2","token_type":"Bearer"}`, s.validToken)
}

func (s *apiServer) authorizations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}

func (s *apiServer) harness(t *testing.T, p tokens.Pair, skew time.Duration) (*harness, *http.Client) {
	t.Helper()
	h := newHarness(t, auth.NewHTTPRefreshClient(s.srv.Client(), s.srv.URL, ""), p, skew)
	return h, h.httpClient(s.srv.Client().Transport, common.DefaultRefreshPath)
}

// waitJoined blocks the refresh until n callers share the running episode.
func waitJoined(t *testing.T, h *harness, n int) func() {
	return func() {
		assert.Eventually(t, func() bool { return h.coord.Stats().Joined == n }, 5*time.Second, time.Millisecond)
	}
}

func TestTransport_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	const n = 5
	s := startAPIServer(t, &apiServer{validToken: "T2"})
	h, c := s.harness(t, tokens.Pair{Access: "T1", Refresh: "R1"}, 0)
	s.refreshGate = waitJoined(t, h, n-1)

	var wg sync.WaitGroup
	statuses := make([]int, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.Get(s.srv.URL + "/api/items")
			errs[i] = err
			if err == nil {
				statuses[i] = resp.StatusCode
				_ = resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()

	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
	}
	assert.EqualValues(t, 1, s.refreshCalls.Load())
	assert.EqualValues(t, 2*n, s.apiCalls.Load())

	var replayed int
	for _, a := range s.authorizations() {
		if a == "Bearer T2" {
			replayed++
		}
	}
	assert.Equal(t, n, replayed)
	assert.Equal(t, tokens.Pair{Access: "T2", Refresh: "R2"}, h.pair(t))
	assert.Equal(t, auth.StateIdle, h.coord.State())
}

func TestTransport_RefreshFailureSurfacesToEveryCaller(t *testing.T) {
	const n = 3
	s := startAPIServer(t, &apiServer{validToken: "T2", refreshStatus: http.StatusUnauthorized})
	h, c := s.harness(t, tokens.Pair{Access: "T1", Refresh: "R1"}, 0)
	s.refreshGate = waitJoined(t, h, n-1)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := c.Get(s.srv.URL + "/api/items")
			if err == nil {
				_ = resp.Body.Close()
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrRefreshFailed)
		assert.ErrorIs(t, err, auth.ErrSessionExpired)

		var rerr *auth.RefreshError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)
	}
	assert.EqualValues(t, 1, s.refreshCalls.Load())
	assert.EqualValues(t, n, s.apiCalls.Load())
	assert.Equal(t, tokens.Pair{}, h.pair(t))
	assert.Equal(t, 1, h.coord.Stats().Failures)
}

func TestTransport_SecondUnauthorizedIsReturned(t *testing.T) {
	s := startAPIServer(t, &apiServer{validToken: "T2", alwaysReject: true})
	h, c := s.harness(t, tokens.Pair{Access: "T1", Refresh: "R1"}, 0)

	resp, err := c.Get(s.srv.URL + "/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, s.refreshCalls.Load())
	assert.EqualValues(t, 2, s.apiCalls.Load())
	assert.Equal(t, []string{"Bearer T1", "Bearer T2"}, s.authorizations())
	assert.Equal(t, tokens.Pair{Access: "T2", Refresh: "R2"}, h.pair(t))
}

func TestTransport_RefreshEndpointIsExempt(t *testing.T) {
	s := startAPIServer(t, &apiServer{validToken: "T2", refreshStatus: http.StatusUnauthorized})
	h, c := s.harness(t, tokens.Pair{Access: "T1", Refresh: "R1"}, 0)

	resp, err := c.Post(s.srv.URL+common.DefaultRefreshPath, "application/json", strings.NewReader(`{"refresh_token":"R1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, s.refreshCalls.Load())
	assert.Zero(t, h.coord.Stats().Refreshes)
	assert.Equal(t, tokens.Pair{Access: "T1", Refresh: "R1"}, h.pair(t))
}

func TestTransport_WithoutSessionReturnsUnauthorized(t *testing.T) {
	s := startAPIServer(t, &apiServer{validToken: "T2"})
	h, c := s.harness(t, tokens.Pair{}, 0)

	var ended int
	h.invalidator.OnInvalidate(func(context.Context) { ended++ })

	resp, err := c.Get(s.srv.URL + "/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []string{""}, s.authorizations())
	assert.Zero(t, s.refreshCalls.Load())
	assert.Zero(t, h.coord.Stats().Refreshes)
	assert.Zero(t, ended, "nothing to invalidate")
}

func TestTransport_WithoutAccessTokenRefreshes(t *testing.T) {
	s := startAPIServer(t, &apiServer{validToken: "T2"})
	h, c := s.harness(t, tokens.Pair{Refresh: "R1"}, 0)

	resp, err := c.Get(s.srv.URL + "/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"", "Bearer T2"}, s.authorizations())
	assert.EqualValues(t, 1, h.coord.Stats().Refreshes)
}

func TestTransport_OtherFailuresPassThrough(t *testing.T) {
	s := startAPIServer(t, &apiServer{validToken: "T1"})
	h, c := s.harness(t, tokens.Pair{Access: "T1", Refresh: "R1"}, 0)

	resp, err := c.Get(s.srv.URL + "/api/broken")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Zero(t, s.refreshCalls.Load())
	assert.Zero(t, h.coord.Stats().Refreshes)
}

func TestTransport_ReplaysRequestBody(t *testing.T) {
	tests := []struct {
		name    string
		getBody bool
	}{
		{name: "rewindable body", getBody: true},
		{name: "one-shot body", getBody: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startAPIServer(t, &apiServer{validToken: "T2"})
			_, c := s.harness(t, tokens.Pair{Access: "T1", Refresh: "R1"}, 0)

			req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/api/items", strings.NewReader(`{"name":"x"}`))
			require.NoError(t, err)
			if !tt.getBody {
				req.Body = io.NopCloser(strings.NewReader(`{"name":"x"}`))
				req.GetBody = nil
			}

			resp, err := c.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			s.mu.Lock()
			defer s.mu.Unlock()
			assert.Equal(t, []string{`{"name":"x"}`, `{"name":"x"}`}, s.bodies)
		})
	}
}

func TestTransport_ProactiveRefresh(t *testing.T) {
	expiring, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Second)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	s := startAPIServer(t, &apiServer{validToken: "T2", alwaysReject: false})
	h, c := s.harness(t, tokens.Pair{Access: expiring, Refresh: "R1"}, time.Minute)

	resp, err := c.Get(s.srv.URL + "/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"Bearer T2"}, s.authorizations())
	assert.EqualValues(t, 1, s.refreshCalls.Load())
	assert.Equal(t, "T2", h.pair(t).Access)
}

func TestTransport_ProactiveRefreshDoesNotRetryAgain(t *testing.T) {
	expiring, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Second)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	s := startAPIServer(t, &apiServer{validToken: "T2", alwaysReject: true})
	_, c := s.harness(t, tokens.Pair{Access: expiring, Refresh: "R1"}, time.Minute)

	resp, err := c.Get(s.srv.URL + "/api/items")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, s.refreshCalls.Load())
	assert.EqualValues(t, 1, s.apiCalls.Load())
}

type failingRoundTripper struct{ err error }

func (f failingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) { return nil, f.err }

func TestTransport_BaseErrorIsReturned(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	rc := &countingRefresher{}
	h := newHarness(t, rc, tokens.Pair{Access: "T1", Refresh: "R1"}, 0)

	_, err := h.httpClient(failingRoundTripper{err: boom}).Get("http://api.invalid/api/items")
	require.ErrorIs(t, err, boom)
	assert.Zero(t, rc.calls.Load())
}
