// Package config loads the aqua-stored daemon configuration.
//
// Example:
//
//	listen: 127.0.0.1:7777
//	log_level: info
//	log_format: json
//	backend:
//	  name: sqlite
//	  config:
//	    sqlite-path: /var/lib/aqua/aqua.db
//
// Backend config keys are the backend's flag names (see storage/registry).
// Callers still need to link the backends they name via blank imports.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"xdao.co/aqua/storage"
	"xdao.co/aqua/storage/registry"
)

const (
	DefaultListen    = "127.0.0.1:7777"
	DefaultBackend   = "localfs"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

type Config struct {
	Listen    string  `yaml:"listen"`
	LogLevel  string  `yaml:"log_level"`
	LogFormat string  `yaml:"log_format"`
	Backend   Backend `yaml:"backend"`
}

type Backend struct {
	// Name is the registry backend to open (e.g. "localfs", "sqlite").
	Name   string            `yaml:"name"`
	Config map[string]string `yaml:"config,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:    DefaultListen,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Backend:   Backend{Name: DefaultBackend},
	}
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config: empty config path")
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	cfg, err := Load(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Load decodes YAML from r over the defaults. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	b, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}
	if len(bytes.TrimSpace(b)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("config: invalid listen address %q: %w", c.Listen, err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: invalid log_format %q", c.LogFormat)
	}
	if c.Backend.Name == "" {
		return errors.New("config: backend name is required")
	}
	return nil
}

// OpenStorage opens the configured backend.
func (c Config) OpenStorage(usage registry.Usage) (storage.Storage[string], func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	return registry.OpenWithConfig(c.Backend.Name, usage, c.Backend.Config)
}

// Logger builds the slog logger described by c, writing to w.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("config: invalid log_level %q", s)
	}
	return l, nil
}
