// Package config loads client settings from a YAML file, SECUREIM_*
// environment variables, and built-in defaults, in that order of precedence
// after command-line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/opd-ai/secureim/handshake"
	"github.com/opd-ai/secureim/keys"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SECUREIM_SERVER_HOST.
const EnvPrefix = "SECUREIM"

// Config holds every client setting.
type Config struct {
	Server   ServerConfig
	Keys     KeysConfig
	Timeouts TimeoutsConfig
	Log      LogConfig
}

// ServerConfig locates the login server.
type ServerConfig struct {
	Host string
	Port int
}

// KeysConfig names the key files.
type KeysConfig struct {
	Private      string
	Public       string
	ServerPublic string
}

// TimeoutsConfig bounds each wait for a server reply.
type TimeoutsConfig struct {
	Cookie time.Duration
	Round  time.Duration
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string
	Format string
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Host: "localhost", Port: 9999},
		Keys: KeysConfig{
			Private:      "alice_priv.txt",
			Public:       "alice_pub.txt",
			ServerPublic: "server_pub_key.txt",
		},
		Timeouts: TimeoutsConfig{
			Cookie: handshake.DefaultCookieTimeout,
			Round:  handshake.DefaultRoundTimeout,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("keys.private", d.Keys.Private)
	v.SetDefault("keys.public", d.Keys.Public)
	v.SetDefault("keys.server_public", d.Keys.ServerPublic)
	v.SetDefault("timeouts.cookie", d.Timeouts.Cookie)
	v.SetDefault("timeouts.round", d.Timeouts.Round)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads path into v, if path is non-empty, and returns the resulting
// settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, oops.Wrapf(err, "read config %s", path)
		}
		logrus.WithFields(logrus.Fields{
			"function": "config.Load",
			"file":     v.ConfigFileUsed(),
		}).Debug("Using config file")
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromViper reads the current settings out of v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Keys: KeysConfig{
			Private:      v.GetString("keys.private"),
			Public:       v.GetString("keys.public"),
			ServerPublic: v.GetString("keys.server_public"),
		},
		Timeouts: TimeoutsConfig{
			Cookie: v.GetDuration("timeouts.cookie"),
			Round:  v.GetDuration("timeouts.round"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
}

// Validate checks every field.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Host == "" {
		errs = append(errs, errors.New("server.host is empty"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Keys.Private == "" || c.Keys.Public == "" || c.Keys.ServerPublic == "" {
		errs = append(errs, errors.New("all three key paths are required"))
	}
	if err := c.HandshakeConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return oops.Wrapf(errors.Join(errs...), "invalid configuration")
	}
	return nil
}

// Address returns host:port of the server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// HandshakeConfig returns the handshake timing parameters.
func (c *Config) HandshakeConfig() handshake.Config {
	return handshake.Config{CookieTimeout: c.Timeouts.Cookie, RoundTimeout: c.Timeouts.Round}
}

// KeyPaths returns the key file locations.
func (c *Config) KeyPaths() keys.Paths {
	return keys.Paths{Private: c.Keys.Private, Public: c.Keys.Public, ServerPublic: c.Keys.ServerPublic}
}

// ConfigureLogging applies the log settings to the standard logrus logger.
func (c *Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	if c.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
