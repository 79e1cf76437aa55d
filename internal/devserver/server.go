package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/logging"
)

// Server issues and refreshes tokens.
type Server struct {
	config        *Config
	logger        logging.Logger
	secret        []byte
	refreshTokens *RefreshTokens
	refreshes     atomic.Int64
}

func New(c *Config, backend storage.Backend, l logging.Logger) *Server {
	return &Server{
		config:        c,
		logger:        logging.OrNop(l).With("module", "devserver"),
		secret:        []byte(c.SecretKey),
		refreshTokens: NewRefreshTokens(backend, c.RefreshTokenValidityDuration),
	}
}

// Pair is a freshly minted token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// IssuePair mints a token pair for userID, standing in for a login endpoint.
func (s *Server) IssuePair(ctx context.Context, userID string) (Pair, error) {
	access, err := GenerateToken(userID, s.secret, s.config.AccessTokenValidityDuration)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.refreshTokens.Create(ctx, userID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refreshes counts calls to the refresh endpoint.
func (s *Server) Refreshes() int64 { return s.refreshes.Load() }

// Run serves HTTP and, when configured, gRPC until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg   sync.WaitGroup
		errs = make(chan error, 2)
	)

	httpSrv := &http.Server{Addr: s.config.HTTPAddr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Info(ctx, "Starting HTTP server", "address", s.config.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("http server: %w", err)
			cancel()
		}
	}()

	if s.config.GRPCAddr != "" {
		listen, err := net.Listen("tcp", s.config.GRPCAddr)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		grpcSrv := s.NewGRPCServer()

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info(ctx, "Starting gRPC server", "address", s.config.GRPCAddr)
			if err := grpcSrv.Serve(listen); err != nil {
				errs <- fmt.Errorf("grpc server: %w", err)
				cancel()
			}
		}()

		go func() {
			<-ctx.Done()
			s.logger.Info(ctx, "Stopping gRPC server...")
			grpcSrv.GracefulStop()
		}()
	}

	<-ctx.Done()
	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = httpSrv.Shutdown(shutdownCtx)

	wg.Wait()
	close(errs)
	return <-errs
}
