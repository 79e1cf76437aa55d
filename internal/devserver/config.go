package devserver

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/flagx"
)

// Config holds runtime settings for the dev server.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses; an empty GRPCAddr disables gRPC.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - StoreDSN: where refresh tokens live, any DSN storage.Open accepts.
//   - User: the user IssuePair mints the startup pair for.
type Config struct {
	HTTPAddr                     string
	GRPCAddr                     string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	StoreDSN                     string
	User                         string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = "127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 1 * time.Minute
	c.RefreshTokenValidityDuration = 24 * time.Hour
	c.StoreDSN = "memory:"
	c.User = "demo"
}

// LoadConfig applies defaults and then the flags found in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-h string     HTTP bind address
//	-a string     gRPC bind address
//	-s string     JWT HMAC secret key
//	-t duration   access token validity
//	-r duration   refresh token validity
//	-d string     refresh token store DSN
//	-u string     user to issue the startup pair for
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-h", "-a", "-s", "-t", "-r", "-d", "-u"})

	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "h", cfg.HTTPAddr, "HTTP bind address")
	fs.StringVar(&cfg.GRPCAddr, "a", cfg.GRPCAddr, "gRPC bind address")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "JWT secret key")
	fs.DurationVar(&cfg.AccessTokenValidityDuration, "t", cfg.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&cfg.RefreshTokenValidityDuration, "r", cfg.RefreshTokenValidityDuration, "refresh token validity")
	fs.StringVar(&cfg.StoreDSN, "d", cfg.StoreDSN, "refresh token store DSN")
	fs.StringVar(&cfg.User, "u", cfg.User, "user for the startup token pair")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
