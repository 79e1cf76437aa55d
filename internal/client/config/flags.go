package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/flagx"
)

var knownFlags = []string{"-a", "-g", "-r", "-t", "-s", "-k", "-w", "-i", "-f", "-l"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP API base url
//	-g string     gRPC endpoint address
//	-r string     refresh endpoint path
//	-t duration   refresh timeout
//	-s string     token store DSN
//	-k string     token store passphrase
//	-w duration   proactive refresh skew
//	-i int        online check interval in seconds
//	-f string     log format (text, json, console)
//	-l string     log level
//
// Only these flags are taken from args, using flagx.FilterArgs, so other
// components can define their own.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "HTTP API base url")
	fs.StringVar(&cfg.GRPCEndpointAddr, "g", cfg.GRPCEndpointAddr, "gRPC endpoint address")
	fs.StringVar(&cfg.RefreshPath, "r", cfg.RefreshPath, "refresh endpoint path")
	fs.DurationVar(&cfg.RefreshTimeout, "t", cfg.RefreshTimeout, "refresh timeout")
	fs.StringVar(&cfg.StoreDSN, "s", cfg.StoreDSN, "token store DSN")
	fs.StringVar(&cfg.StorePassphrase, "k", cfg.StorePassphrase, "token store passphrase")
	fs.DurationVar(&cfg.ProactiveRefreshSkew, "w", cfg.ProactiveRefreshSkew, "proactive refresh skew")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
