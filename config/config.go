// Package config loads config.yml.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MinLimit = 1
	MaxLimit = 50
)

//go:embed config.yml
var defaultFile []byte

type Config struct {
	// Limit is the number of rows shown per ranking. Values outside MinLimit..MaxLimit are kept as they are and
	// rejected when the command runs.
	Limit                int    `yaml:"limit"`
	Command              string `yaml:"command"`
	WorldTeleportCommand string `yaml:"world_teleport_command"`
}

func Default() Config {
	return Config{Limit: 10, Command: "chunka", WorldTeleportCommand: "mvtp"}
}

// LimitValid reports whether Limit is within MinLimit..MaxLimit.
func (c Config) LimitValid() bool {
	return c.Limit >= MinLimit && c.Limit <= MaxLimit
}

// Load reads the config at path. If there is no file yet, the default config is written there first.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeDefault(path); err != nil {
			return cfg, err
		}
		raw = defaultFile
	} else if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config.yml: %w", err)
	}
	cfg.Command = strings.TrimPrefix(strings.TrimSpace(cfg.Command), "/")
	cfg.WorldTeleportCommand = strings.TrimPrefix(strings.TrimSpace(cfg.WorldTeleportCommand), "/")
	if cfg.Command == "" {
		cfg.Command = Default().Command
	}
	if cfg.WorldTeleportCommand == "" {
		cfg.WorldTeleportCommand = Default().WorldTeleportCommand
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, defaultFile, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
