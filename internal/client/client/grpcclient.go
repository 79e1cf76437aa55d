package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/auth"
	"github.com/dmitrijs2005/tokenrefresh/internal/client/transport"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func dialGRPC(addr string, a *auth.Authenticator, log logging.Logger, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		// Health checks probe reachability and never carry or refresh tokens.
		grpc.WithUnaryInterceptor(transport.UnaryClientInterceptor(a, log, healthpb.Health_Check_FullMethodName)),
	}
	conn, err := grpc.NewClient(addr, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("grpc client for %s: %w", addr, err)
	}
	return conn, nil
}

// Ping checks that the server is reachable and serving. It uses the gRPC
// health service when a gRPC endpoint is configured, and a plain HTTP request
// to the base URL otherwise. A server that demands credentials for the health
// check has answered, so it counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.health == nil {
		return c.pingHTTP(ctx)
	}

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	switch status.Code(err) {
	case codes.OK:
	case codes.Unauthenticated, codes.PermissionDenied:
		return nil
	default:
		return c.mapError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return ErrUnavailable
	}
	return nil
}

// pingHTTP treats any HTTP answer as reachable. It goes around the
// authenticating transport so probing never starts a refresh.
func (c *Client) pingHTTP(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.probe.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return resp.Body.Close()
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return mapTransportError(err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
