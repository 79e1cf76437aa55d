// Package config loads runtime configuration for the tokenrefresh client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c/-config or the
//     TOKENREFRESH_CONFIG environment variable.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// The result is checked by (*Config).Validate before LoadConfig returns.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8080",
//	  "grpc_endpoint_addr": "127.0.0.1:50051",
//	  "refresh_path": "/auth/refresh",
//	  "refresh_timeout": "10s",
//	  "store_dsn": "sqlite:/var/lib/tokenrefresh/tokens.db",
//	  "store_passphrase": "",
//	  "proactive_refresh_skew": "30s",
//	  "online_check_interval": "3s",
//	  "log_format": "console",
//	  "log_level": "debug"
//	}
package config
