/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config covers process level configuration read from environment variables,
// optionally overlaid on a YAML file named by SKALD_CONFIG.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string // Advertised base URL for relay links (e.g., http://127.0.0.1:3000)
	MetricsBind string

	DataDir   string // Station database and generated playlist files live here
	FFmpegBin string // Path to the ffmpeg binary; empty means autodetect

	// Radio catalog (signed region-scoped station API)
	RadioCatalogURL string
	RadioCatalogKey string

	// Content catalog backing the virtual station
	ContentCatalogURL string
	ProgramKeyword    string // Search keyword seeding the virtual program
	VirtualEnabled    bool

	CatalogTimeout time.Duration
}

// fileConfig mirrors Config for the optional YAML overlay.
type fileConfig struct {
	Environment       string `yaml:"environment"`
	HTTPBind          string `yaml:"http_bind"`
	HTTPPort          int    `yaml:"http_port"`
	BaseURL           string `yaml:"base_url"`
	MetricsBind       string `yaml:"metrics_bind"`
	DataDir           string `yaml:"data_dir"`
	FFmpegBin         string `yaml:"ffmpeg_bin"`
	RadioCatalogURL   string `yaml:"radio_catalog_url"`
	RadioCatalogKey   string `yaml:"radio_catalog_key"`
	ContentCatalogURL string `yaml:"content_catalog_url"`
	ProgramKeyword    string `yaml:"program_keyword"`
	VirtualEnabled    *bool  `yaml:"virtual_enabled"`
	CatalogTimeoutSec int    `yaml:"catalog_timeout_seconds"`
}

// Load reads the optional YAML file, applies environment variables on top of
// it, fills defaults, and validates the result. Environment always wins.
func Load() (*Config, error) {
	var file fileConfig
	if path := os.Getenv("SKALD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	virtualDefault := true
	if file.VirtualEnabled != nil {
		virtualDefault = *file.VirtualEnabled
	}

	cfg := &Config{
		Environment: getEnv("SKALD_ENV", orDefault(file.Environment, "development")),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", orDefault(file.HTTPBind, "127.0.0.1")),
		HTTPPort:    getEnvInt("SKALD_HTTP_PORT", orDefaultInt(file.HTTPPort, 3000)),
		BaseURL:     getEnv("SKALD_BASE_URL", file.BaseURL),
		MetricsBind: getEnv("SKALD_METRICS_BIND", orDefault(file.MetricsBind, "127.0.0.1:9100")),

		DataDir:   getEnv("SKALD_DATA_DIR", orDefault(file.DataDir, "./data")),
		FFmpegBin: getEnv("SKALD_FFMPEG_BIN", file.FFmpegBin),

		RadioCatalogURL: getEnv("SKALD_RADIO_CATALOG_URL", orDefault(file.RadioCatalogURL, "https://ytmsout.radio.cn")),
		RadioCatalogKey: getEnv("SKALD_RADIO_CATALOG_KEY", orDefault(file.RadioCatalogKey, "f0fc4c668392f9f9a447e48584c214ee")),

		ContentCatalogURL: getEnv("SKALD_CONTENT_CATALOG_URL", orDefault(file.ContentCatalogURL, "https://api.bilibili.com")),
		ProgramKeyword:    getEnv("SKALD_PROGRAM_KEYWORD", orDefault(file.ProgramKeyword, "音乐电台")),
		VirtualEnabled:    getEnvBool("SKALD_VIRTUAL_ENABLED", virtualDefault),

		CatalogTimeout: time.Duration(getEnvInt("SKALD_CATALOG_TIMEOUT_SECONDS", orDefaultInt(file.CatalogTimeoutSec, 30))) * time.Second,
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid SKALD_HTTP_PORT %d", cfg.HTTPPort)
	}

	if cfg.VirtualEnabled && cfg.ProgramKeyword == "" {
		return nil, fmt.Errorf("SKALD_PROGRAM_KEYWORD must be set when the virtual station is enabled")
	}

	return cfg, nil
}

// StationDBPath returns the sqlite database location under the data dir.
func (c *Config) StationDBPath() string {
	return filepath.Join(c.DataDir, "stations.db")
}

// PlaylistPath returns the default location for generated playlist files.
func (c *Config) PlaylistPath() string {
	return filepath.Join(c.DataDir, "live_streams.sii")
}

// ListenAddr returns the bind address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// AdvertisedBaseURL returns the base URL clients should use to reach the
// relay. Falls back to the loopback listen address when unset.
func (c *Config) AdvertisedBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	host := c.HTTPBind
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, c.HTTPPort)
}

func orDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}

func orDefaultInt(val, def int) int {
	if val != 0 {
		return val
	}
	return def
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}
