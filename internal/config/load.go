package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfig      = "FILESENTRY_CONFIG"
	EnvLogLevel    = "FILESENTRY_LOG_LEVEL"
	EnvLogFormat   = "FILESENTRY_LOG_FORMAT"
	EnvMatrixURL   = "FILESENTRY_MATRIX_URL"
	EnvMatrixToken = "FILESENTRY_MATRIX_TOKEN"
	EnvMatrixRoom  = "FILESENTRY_MATRIX_ROOM"
	EnvListen      = "FILESENTRY_LISTEN"
	EnvToken       = "FILESENTRY_TOKEN"
)

// Load returns the defaults overlaid with the file at path. An empty path
// returns the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Decode(path, payload, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays payload onto cfg, choosing the format from the file
// extension.
func Decode(path string, payload []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return decodeYAML(path, payload, cfg)
	case ".toml":
		return decodeTOML(path, payload, cfg)
	default:
		return fmt.Errorf("%w: %s: unsupported config format (want .yaml, .yml or .toml)", ErrInvalid, path)
	}
}

func decodeYAML(path string, payload []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return nil
}

func decodeTOML(path string, payload []byte, cfg *Config) error {
	meta, err := toml.Decode(string(payload), cfg)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overlays FILESENTRY_* variables. Setting any Matrix variable
// enables the Matrix sink.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		if !ok {
			return "", false
		}
		value = strings.TrimSpace(value)
		return value, value != ""
	}

	if value, ok := get(EnvLogLevel); ok {
		c.Log.Level = value
	}
	if value, ok := get(EnvLogFormat); ok {
		c.Log.Format = value
	}
	if value, ok := get(EnvListen); ok {
		c.Server.Addr = value
	}
	if value, ok := get(EnvToken); ok {
		c.Server.Token = value
	}
	if value, ok := get(EnvMatrixURL); ok {
		c.Notify.Matrix.HomeserverURL = value
		c.Notify.Matrix.Enabled = true
	}
	if value, ok := get(EnvMatrixToken); ok {
		c.Notify.Matrix.AccessToken = value
		c.Notify.Matrix.Enabled = true
	}
	if value, ok := get(EnvMatrixRoom); ok {
		c.Notify.Matrix.RoomID = value
		c.Notify.Matrix.Enabled = true
	}
}
