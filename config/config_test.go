package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsRoundTrip(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	d := Defaults()
	assert.Equal(t, d, *cfg)
	assert.Equal(t, "localhost:9999", cfg.Address())
	assert.Equal(t, time.Second, cfg.HandshakeConfig().CookieTimeout)
	assert.Equal(t, 3*time.Second, cfg.HandshakeConfig().RoundTimeout)
	assert.Equal(t, "server_pub_key.txt", cfg.KeyPaths().ServerPublic)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secureim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: 10.0.0.5
  port: 4242
keys:
  private: /etc/secureim/bob_priv.txt
timeouts:
  round: 5s
log:
  format: json
`), 0o600))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:4242", cfg.Address())
	assert.Equal(t, "/etc/secureim/bob_priv.txt", cfg.Keys.Private)
	assert.Equal(t, "alice_pub.txt", cfg.Keys.Public)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Round)
	assert.Equal(t, time.Second, cfg.Timeouts.Cookie)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SECUREIM_SERVER_PORT", "7000")
	t.Setenv("SECUREIM_TIMEOUTS_COOKIE", "250ms")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeouts.Cookie)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty host", func(c *Config) { c.Server.Host = "" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"missing key", func(c *Config) { c.Keys.ServerPublic = "" }},
		{"zero timeout", func(c *Config) { c.Timeouts.Round = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEncodeIsLoadable(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Host = "login.example.net"
	cfg.Timeouts.Cookie = 1500 * time.Millisecond
	cfg.Keys.ServerPublic = "/etc/secureim/server.pub"

	path := filepath.Join(t.TempDir(), "out.yaml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Encode(f))
	require.NoError(t, f.Close())

	loaded, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}
