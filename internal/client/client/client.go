package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/auth"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/config"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/tokens"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/transport"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// API is what the CLI needs from the client.
type API interface {
	Get(ctx context.Context, path string) (*Response, error)
	Ping(ctx context.Context) error
	ImportTokens(ctx context.Context, pair tokens.Pair, user string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
	Close() error
}

// Status describes the local session.
type Status struct {
	User            string
	HasAccessToken  bool
	HasRefreshToken bool
	// AccessExpiresAt is zero unless the access token is a JWT with exp.
	AccessExpiresAt time.Time
	Refreshing      bool
	Stats           auth.Stats
}

// Option customises New.
type Option func(*options)

type options struct {
	base     http.RoundTripper
	grpcOpts []grpc.DialOption
}

// WithHTTPTransport sets the round tripper under the authenticating
// transport and the refresh client.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithGRPCDialOptions appends dial options for the gRPC connection.
func WithGRPCDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.grpcOpts = append(o.grpcOpts, opts...) }
}

// Client calls the API over HTTP and gRPC and keeps the access token fresh.
// It is safe for concurrent use.
type Client struct {
	baseURL     string
	http        *http.Client
	probe       *http.Client
	backend     storage.Backend
	store       *tokens.Store
	invalidator *auth.Invalidator
	coordinator *auth.Coordinator

	conn   *grpc.ClientConn
	health healthpb.HealthClient

	log logging.Logger
}

var _ API = (*Client)(nil)

// New wires the token store, refresh coordinator and transports around
// backend. The Client owns backend and closes it in Close.
func New(cfg *config.Config, backend storage.Backend, log logging.Logger, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.base == nil {
		o.base = http.DefaultTransport.(*http.Transport).Clone()
	}
	log = logging.OrNop(log)

	store := tokens.NewStore(backend)
	invalidator := auth.NewInvalidator(store, log)
	refresher := auth.NewHTTPRefreshClient(&http.Client{Transport: o.base}, cfg.ServerBaseURL, cfg.RefreshPath)
	coordinator := auth.NewCoordinator(refresher, store, invalidator, cfg.RefreshTimeout, log)
	authenticator := auth.NewAuthenticator(store, coordinator, cfg.ProactiveRefreshSkew, log)

	refreshURL, err := url.Parse(refresher.URL())
	if err != nil {
		return nil, fmt.Errorf("refresh url: %w", err)
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.ServerBaseURL, "/"),
		http:        &http.Client{Transport: transport.NewTransport(o.base, authenticator, log, refreshURL.Path)},
		probe:       &http.Client{Transport: o.base},
		backend:     backend,
		store:       store,
		invalidator: invalidator,
		coordinator: coordinator,
		log:         log.With("component", "api_client"),
	}

	if cfg.GRPCEndpointAddr != "" {
		conn, err := dialGRPC(cfg.GRPCEndpointAddr, authenticator, log, o.grpcOpts...)
		if err != nil {
			return nil, err
		}
		c.conn = conn
		c.health = healthpb.NewHealthClient(conn)
	}

	return c, nil
}

// GRPCConn returns the authenticated gRPC connection, or nil when no gRPC
// endpoint is configured. Service stubs built on it share the token refresh.
func (c *Client) GRPCConn() *grpc.ClientConn { return c.conn }

// OnSessionEnded registers fn to run whenever the session is invalidated,
// either by a failed refresh or by Logout.
func (c *Client) OnSessionEnded(fn func(ctx context.Context)) {
	c.invalidator.OnInvalidate(fn)
}

// ImportTokens stores a token pair issued by an external login flow.
func (c *Client) ImportTokens(ctx context.Context, pair tokens.Pair, user string) error {
	if pair.Access == "" {
		return ErrNoAccessToken
	}
	if err := c.store.Save(ctx, pair); err != nil {
		return err
	}
	if user == "" {
		return nil
	}
	return c.store.SaveUser(ctx, []byte(user))
}

// Logout forgets the session locally.
func (c *Client) Logout(ctx context.Context) error {
	return c.invalidator.Invalidate(ctx)
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	pair, err := c.store.Load(ctx)
	if err != nil {
		return Status{}, err
	}
	user, err := c.store.User(ctx)
	if err != nil {
		return Status{}, err
	}

	s := Status{
		User:            string(user),
		HasAccessToken:  pair.Access != "",
		HasRefreshToken: pair.Refresh != "",
		Refreshing:      c.coordinator.State() == auth.StateRefreshing,
		Stats:           c.coordinator.Stats(),
	}
	if exp, ok := tokens.ExpiresAt(pair.Access); ok {
		s.AccessExpiresAt = exp
	}
	return s, nil
}

func (c *Client) Close() error {
	var errs []error
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	errs = append(errs, c.backend.Close())
	return errors.Join(errs...)
}
