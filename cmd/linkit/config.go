package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/rgonek/linkit/linkit"
	"github.com/rgonek/linkit/template"
)

const (
	presetDefault = "default"
	presetPlain   = "plain"
	presetStrict  = "strict"
)

// fileConfig is the YAML configuration file layout.
type fileConfig struct {
	Preset  string        `yaml:"preset,omitempty"`
	Engine  linkit.Config `yaml:"engine"`
	Logging loggingConfig `yaml:"logging"`
}

type loggingConfig struct {
	Level string `yaml:"level"`
}

func presetConfig(preset string) (linkit.Config, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case "", presetDefault:
		return linkit.Config{}, nil
	case presetPlain:
		return linkit.Config{
			Templates: []template.ElementInfo{
				{Name: template.TypeButton, Type: template.TypeButton, Config: map[string]any{"plain": true}},
			},
		}, nil
	case presetStrict:
		return linkit.Config{
			DisallowLinkIn: []string{"heading", "blockquote"},
			Templates: []template.ElementInfo{
				{Name: template.TypeButton, Type: template.TypeButton, Config: map[string]any{"plain": true}},
			},
		}, nil
	default:
		return linkit.Config{}, fmt.Errorf("unknown preset %q (allowed: default, plain, strict)", preset)
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := fileConfig{Preset: presetDefault, Logging: loggingConfig{Level: "normal"}}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fileConfig{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeConfig(data, &cfg); err != nil {
			return fileConfig{}, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}

	preset, err := presetConfig(cfg.Preset)
	if err != nil {
		return fileConfig{}, err
	}
	cfg.Engine = mergeConfig(preset, cfg.Engine)
	if err := cfg.Engine.WithDefaults().Validate(); err != nil {
		return fileConfig{}, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *fileConfig) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// mergeConfig overlays the values set in override on base.
func mergeConfig(base, override linkit.Config) linkit.Config {
	if len(override.NormalizedTypes) > 0 {
		base.NormalizedTypes = override.NormalizedTypes
	}
	if override.DefaultHref != "" {
		base.DefaultHref = override.DefaultHref
	}
	if override.MaxPostfixPasses != 0 {
		base.MaxPostfixPasses = override.MaxPostfixPasses
	}
	if len(override.DisallowLinkIn) > 0 {
		base.DisallowLinkIn = override.DisallowLinkIn
	}
	if override.Templates != nil {
		base.Templates = override.Templates
	}
	return base
}

func dumpConfig(cfg fileConfig) ([]byte, error) {
	cfg.Engine = cfg.Engine.WithDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

// newLogger returns a console logger writing to w. Output goes to stderr in
// the CLI so that stdout only carries documents.
func newLogger(w io.Writer, level string, debug bool) (*zap.Logger, error) {
	if debug {
		level = "debug"
	}
	var enabler zapcore.LevelEnabler
	switch level {
	case "none":
		return zap.NewNop(), nil
	case "", "normal":
		enabler = zapcore.InfoLevel
	case "debug":
		enabler = zapcore.DebugLevel
	default:
		return nil, fmt.Errorf("unknown logging level %q (allowed: none, normal, debug)", level)
	}

	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.TimeKey = zapcore.OmitKey
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(w), enabler)
	return zap.New(core), nil
}
