package transport

import (
	"context"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/auth"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AuthorizationMetadataKey)
	if token != "" {
		md.Set(common.AuthorizationMetadataKey, common.BearerValue(token))
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryClientInterceptor authenticates unary calls and replays a call once
// with a fresh token when it fails with codes.Unauthenticated. Calls to
// exemptMethods (full method names) are passed through untouched.
func UnaryClientInterceptor(a *auth.Authenticator, log logging.Logger, exemptMethods ...string) grpc.UnaryClientInterceptor {
	log = logging.OrNop(log).With("component", "grpc_interceptor")
	exempt := make(map[string]struct{}, len(exemptMethods))
	for _, m := range exemptMethods {
		exempt[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		if _, ok := exempt[method]; ok {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		ctx, token, err := a.Prepare(ctx)
		if err != nil {
			return err
		}

		err = invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
		if err == nil || !a.ShouldRecover(ctx, token, status.Code(err) == codes.Unauthenticated) {
			return err
		}

		log.Info(ctx, "call unauthenticated, obtaining fresh access token", "method", method)

		ctx, fresh, rerr := a.Recover(ctx, token)
		if rerr != nil {
			return rerr
		}
		return invoker(withAccessToken(ctx, fresh), method, req, reply, cc, opts...)
	}
}
