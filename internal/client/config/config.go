package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/client/storage"
	"github.com/dmitrijs2005/tokenrefresh/internal/common"
)

// Config holds runtime settings for the client.
//
// Units: RefreshTimeout, ProactiveRefreshSkew and OnlineCheckInterval are
// time.Duration values.
type Config struct {
	// ServerBaseURL is the HTTP API root, e.g. http://127.0.0.1:8080.
	ServerBaseURL string
	// GRPCEndpointAddr is host:port of the gRPC endpoint; empty disables gRPC.
	GRPCEndpointAddr string
	// RefreshPath is appended to ServerBaseURL to reach the refresh endpoint.
	RefreshPath string
	// RefreshTimeout bounds one refresh episode.
	RefreshTimeout time.Duration
	// StoreDSN selects the token store: memory:, sqlite:<path>,
	// postgres://... or redis://...
	StoreDSN string
	// StorePassphrase, when set, encrypts stored values.
	StorePassphrase string
	// ProactiveRefreshSkew refreshes JWT access tokens this long before they
	// expire. Zero disables proactive refresh.
	ProactiveRefreshSkew time.Duration
	// OnlineCheckInterval is how often the CLI probes server reachability.
	OnlineCheckInterval time.Duration
	LogFormat           string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.GRPCEndpointAddr = "127.0.0.1:50051"
	c.RefreshPath = common.DefaultRefreshPath
	c.RefreshTimeout = 10 * time.Second
	c.StoreDSN = "sqlite:tokenrefresh.db"
	c.StorePassphrase = ""
	c.ProactiveRefreshSkew = 0
	c.OnlineCheckInterval = 3 * time.Second
	c.LogFormat = "text"
	c.LogLevel = "info"
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerBaseURL)
	if err != nil {
		return fmt.Errorf("server base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("server base url %q: must be an absolute http(s) url", c.ServerBaseURL)
	}
	if c.RefreshTimeout <= 0 {
		return errors.New("refresh timeout must be positive")
	}
	if c.ProactiveRefreshSkew < 0 {
		return errors.New("proactive refresh skew must not be negative")
	}
	if c.OnlineCheckInterval <= 0 {
		return errors.New("online check interval must be positive")
	}
	if storage.Kind(c.StoreDSN) == "" {
		return fmt.Errorf("%w: %q", common.ErrUnsupportedDSN, c.StoreDSN)
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
