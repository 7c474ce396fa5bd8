// Package config loads application settings from pagemark.yaml and the
// PAGEMARK_* environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultDPI   = 300
	WindowWidth  = 1200
	WindowHeight = 800
)

type Config struct {
	DPI    int          `mapstructure:"dpi"`
	Window WindowConfig `mapstructure:"window"`
	// Colors overrides the label color cycle with hex values
	// ("#rrggbb"). Empty keeps the built-in cycle.
	Colors   []string      `mapstructure:"colors"`
	LogLevel string        `mapstructure:"log_level"`
	Suggest  SuggestConfig `mapstructure:"suggest"`
}

type WindowConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// SuggestConfig tunes the region proposal pass.
type SuggestConfig struct {
	// MinArea drops proposed regions smaller than this fraction of the
	// page area.
	MinArea float64 `mapstructure:"min_area"`
	// MaxArea drops proposed regions covering more than this fraction
	// of the page area.
	MaxArea float64 `mapstructure:"max_area"`
	// CloseKernel is the morphology kernel size joining nearby marks
	// into one region.
	CloseKernel int `mapstructure:"close_kernel"`
}

// Load reads pagemark.yaml from the working directory or
// ~/.config/pagemark, applying defaults when no file exists.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("dpi", DefaultDPI)
	v.SetDefault("window.width", WindowWidth)
	v.SetDefault("window.height", WindowHeight)
	v.SetDefault("log_level", "info")
	v.SetDefault("suggest.min_area", 0.0005)
	v.SetDefault("suggest.max_area", 0.9)
	v.SetDefault("suggest.close_kernel", 15)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pagemark")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pagemark"))
		}
	}

	v.SetEnvPrefix("PAGEMARK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.DPI <= 0 {
		return nil, fmt.Errorf("invalid dpi %d", cfg.DPI)
	}
	return &cfg, nil
}
