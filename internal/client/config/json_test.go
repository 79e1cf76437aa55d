package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenrefresh/internal/flagx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"server_base_url":       "http://www.example:9000",
		"online_check_interval": "10s",
		"refresh_timeout":       int64(5 * time.Second),
	})
	pathEnv := writeTempJSON(t, dir, "env.json", map[string]any{
		"store_dsn": "memory:",
	})

	t.Run("loads from flags", func(t *testing.T) {
		t.Setenv(flagx.ConfigEnvVar, pathEnv)

		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"-config", pathFlag}))

		assert.Equal(t, "http://www.example:9000", cfg.ServerBaseURL)
		assert.Equal(t, 10*time.Second, cfg.OnlineCheckInterval)
		assert.Equal(t, 5*time.Second, cfg.RefreshTimeout)
		assert.Empty(t, cfg.StoreDSN)
	})

	t.Run("loads from environment", func(t *testing.T) {
		t.Setenv(flagx.ConfigEnvVar, pathEnv)

		cfg := &Config{ServerBaseURL: "http://defaults:1234"}
		require.NoError(t, parseJson(cfg, nil))

		assert.Equal(t, "memory:", cfg.StoreDSN)
		assert.Equal(t, "http://defaults:1234", cfg.ServerBaseURL)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		t.Setenv(flagx.ConfigEnvVar, "")

		cfg := &Config{
			ServerBaseURL:       "http://defaults:1234",
			OnlineCheckInterval: 42 * time.Second,
		}
		require.NoError(t, parseJson(cfg, nil))

		assert.Equal(t, "http://defaults:1234", cfg.ServerBaseURL)
		assert.Equal(t, 42*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		err := parseJson(&Config{}, []string{"-config", bad})
		require.ErrorContains(t, err, "parse config file")
	})

	t.Run("missing file → error", func(t *testing.T) {
		err := parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")})
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
