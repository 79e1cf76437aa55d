package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/tokenrefresh/internal/flagx"
	"github.com/dmitrijs2005/tokenrefresh/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. Zero values mean "not set".
type JsonConfig struct {
	ServerBaseURL        string         `json:"server_base_url"`
	GRPCEndpointAddr     string         `json:"grpc_endpoint_addr"`
	RefreshPath          string         `json:"refresh_path"`
	RefreshTimeout       timex.Duration `json:"refresh_timeout"`
	StoreDSN             string         `json:"store_dsn"`
	StorePassphrase      string         `json:"store_passphrase"`
	ProactiveRefreshSkew timex.Duration `json:"proactive_refresh_skew"`
	OnlineCheckInterval  timex.Duration `json:"online_check_interval"`
	LogFormat            string         `json:"log_format"`
	LogLevel             string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file.
//
// The file path comes from -c/-config in args, or $TOKENREFRESH_CONFIG (see
// flagx.ConfigPath). Without one, cfg is left untouched.
func parseJson(cfg *Config, args []string) error {
	jsonConfigFile := flagx.ConfigPath(args)
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	jc.apply(cfg)
	return nil
}

func (jc JsonConfig) apply(cfg *Config) {
	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setString(&cfg.GRPCEndpointAddr, jc.GRPCEndpointAddr)
	setString(&cfg.RefreshPath, jc.RefreshPath)
	setString(&cfg.StoreDSN, jc.StoreDSN)
	setString(&cfg.StorePassphrase, jc.StorePassphrase)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.RefreshTimeout.Duration != 0 {
		cfg.RefreshTimeout = jc.RefreshTimeout.Duration
	}
	if jc.ProactiveRefreshSkew.Duration != 0 {
		cfg.ProactiveRefreshSkew = jc.ProactiveRefreshSkew.Duration
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
