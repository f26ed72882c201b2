package config

import (
	"io"

	"gopkg.in/yaml.v3"
)

// fileLayout mirrors the YAML config file.
type fileLayout struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Keys struct {
		Private      string `yaml:"private"`
		Public       string `yaml:"public"`
		ServerPublic string `yaml:"server_public"`
	} `yaml:"keys"`
	Timeouts struct {
		Cookie string `yaml:"cookie"`
		Round  string `yaml:"round"`
	} `yaml:"timeouts"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Encode writes c as a YAML config file that Load accepts.
func (c *Config) Encode(w io.Writer) error {
	var f fileLayout
	f.Server.Host = c.Server.Host
	f.Server.Port = c.Server.Port
	f.Keys.Private = c.Keys.Private
	f.Keys.Public = c.Keys.Public
	f.Keys.ServerPublic = c.Keys.ServerPublic
	f.Timeouts.Cookie = c.Timeouts.Cookie.String()
	f.Timeouts.Round = c.Timeouts.Round.String()
	f.Log.Level = c.Log.Level
	f.Log.Format = c.Log.Format

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return err
	}
	return enc.Close()
}
