/*
 * Copyright (c) 2025 by the DM Session Hub authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user scope.
// Environment variables (optionally sourced from a .env file) are read-only overrides.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type ServerConfig struct {
	Addr string `yaml:"addr"`
	Mode string `yaml:"mode"` // gin mode: "release" | "debug" | "test"
}

type ExportConfig struct {
	Dir      string   `yaml:"dir"`
	Formats  []string `yaml:"formats"`
	PageSize string   `yaml:"page_size"` // "A4" | "Letter"
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Server        ServerConfig  `yaml:"server"`
	Export        ExportConfig  `yaml:"export"`
	Archive       ArchiveConfig `yaml:"archive"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Server:        ServerConfig{Addr: "127.0.0.1:8787", Mode: "release"},
		Export:        ExportConfig{Dir: "exports", Formats: []string{"pdf"}, PageSize: "A4"},
		Archive:       ArchiveConfig{Enabled: false, Path: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile     = "DMH_CONFIG"
	EnvServerAddr     = "DMH_SERVER_ADDR"
	EnvServerMode     = "DMH_SERVER_MODE"
	EnvExportDir      = "DMH_EXPORT_DIR"
	EnvExportFormats  = "DMH_EXPORT_FORMATS"
	EnvExportPageSize = "DMH_EXPORT_PAGE_SIZE"
	EnvArchiveEnabled = "DMH_ARCHIVE_ENABLED"
	EnvArchivePath    = "DMH_ARCHIVE_PATH"
	EnvLogLevel       = "DMH_LOG_LEVEL"
	EnvLogFormat      = "DMH_LOG_FORMAT"
	EnvLogSource      = "DMH_LOG_SOURCE"
	EnvLogFile        = "DMH_LOG_FILE"
)

// envKeys maps dotted config keys to their overriding env var.
var envKeys = map[string]string{
	"server.addr":      EnvServerAddr,
	"server.mode":      EnvServerMode,
	"export.dir":       EnvExportDir,
	"export.formats":   EnvExportFormats,
	"export.page_size": EnvExportPageSize,
	"archive.enabled":  EnvArchiveEnabled,
	"archive.path":     EnvArchivePath,
	"logging.level":    EnvLogLevel,
	"logging.format":   EnvLogFormat,
	"logging.source":   EnvLogSource,
	"logging.file":     EnvLogFile,
}

// configDir returns the per-user dmhub directory.
func configDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "DMSessionHub")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "DMSessionHub")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "dmhub")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "dmhub")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path. DMH_CONFIG takes precedence.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultArchivePath is used when archiving is enabled without an explicit path.
func DefaultArchivePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "archive.sqlite"), nil
}

// Load reads the user config file (if present), applies defaults, loads .env
// from the working directory (if present) and merges environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, err
		}
		mergeInto(&cfg, &fileCfg)
	}
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	applyEnvOverrides(&cfg)
	if cfg.Archive.Enabled && cfg.Archive.Path == "" {
		if p, err := DefaultArchivePath(); err == nil {
			cfg.Archive.Path = p
		}
	}
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	if v := strings.TrimSpace(src.Server.Mode); v != "" {
		dst.Server.Mode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Export.Dir); v != "" {
		dst.Export.Dir = v
	}
	if len(src.Export.Formats) > 0 {
		dst.Export.Formats = normalizeFormats(src.Export.Formats)
	}
	if v := strings.TrimSpace(src.Export.PageSize); v != "" {
		dst.Export.PageSize = v
	}
	// booleans: copy directly from the file so user preferences persist
	dst.Archive.Enabled = src.Archive.Enabled
	if v := strings.TrimSpace(src.Archive.Path); v != "" {
		dst.Archive.Path = v
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := env(EnvServerAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := env(EnvServerMode); v != "" {
		cfg.Server.Mode = strings.ToLower(v)
	}
	if v := env(EnvExportDir); v != "" {
		cfg.Export.Dir = v
	}
	if v := env(EnvExportFormats); v != "" {
		cfg.Export.Formats = normalizeFormats(strings.Split(v, ","))
	}
	if v := env(EnvExportPageSize); v != "" {
		cfg.Export.PageSize = v
	}
	if v := env(EnvArchiveEnabled); v != "" {
		cfg.Archive.Enabled = parseBool(v)
	}
	if v := env(EnvArchivePath); v != "" {
		cfg.Archive.Path = v
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func normalizeFormats(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
