// Package config loads the settings an embedding application passes to the
// orchestrator: where the layout lives, where templates are searched, and the
// runtime globals every page sees. Files may be YAML, TOML or JSON with
// comments (JSONC).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pageview/pkg/orchestrator"
	"github.com/goliatone/go-pageview/pkg/resolver"
)

// DefaultLayout is the layout path used when a config omits one.
const DefaultLayout = "layouts/base.tpl"

// ThemeConfig selects a go-theme theme and variant.
type ThemeConfig struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Variant string `json:"variant" yaml:"variant" toml:"variant"`
}

// Config holds the orchestrator settings.
type Config struct {
	Layout      string         `json:"layout" yaml:"layout" toml:"layout"`
	TemplateDir string         `json:"template_dir" yaml:"template_dir" toml:"template_dir"`
	Extension   string         `json:"extension" yaml:"extension" toml:"extension"`
	LayoutName  string         `json:"layout_name" yaml:"layout_name" toml:"layout_name"`
	BasePath    string         `json:"base_path" yaml:"base_path" toml:"base_path"`
	Debug       bool           `json:"debug" yaml:"debug" toml:"debug"`
	Globals     map[string]any `json:"globals" yaml:"globals" toml:"globals"`
	Theme       ThemeConfig    `json:"theme" yaml:"theme" toml:"theme"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Layout:      DefaultLayout,
		TemplateDir: orchestrator.DefaultTemplateDir,
		Extension:   resolver.DefaultExtension,
		LayoutName:  orchestrator.DefaultLayoutName,
	}
}

// Load reads a config file, choosing the decoder by extension. Keys missing
// from the file keep their defaults. When the file sets no base path,
// relative template directories resolve against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode yaml %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode json %s: %w", path, err)
		}
	case ".toml":
		if err := decodeTOML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode toml %s: %w", path, err)
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported format %q", ext)
	}

	if strings.TrimSpace(cfg.BasePath) == "" {
		abs, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return Config{}, fmt.Errorf("config: resolve base path: %w", err)
		}
		cfg.BasePath = abs
	}
	return cfg, nil
}

type tomlConfig struct {
	Layout      string         `toml:"layout"`
	TemplateDir string         `toml:"template_dir"`
	Extension   string         `toml:"extension"`
	LayoutName  string         `toml:"layout_name"`
	BasePath    string         `toml:"base_path"`
	Debug       bool           `toml:"debug"`
	Globals     map[string]any `toml:"globals"`
	Theme       ThemeConfig    `toml:"theme"`
}

func decodeTOML(data []byte, cfg *Config) error {
	var raw tomlConfig
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return err
	}

	if meta.IsDefined("layout") {
		cfg.Layout = strings.TrimSpace(raw.Layout)
	}
	if meta.IsDefined("template_dir") {
		cfg.TemplateDir = strings.TrimSpace(raw.TemplateDir)
	}
	if meta.IsDefined("extension") {
		cfg.Extension = strings.TrimSpace(raw.Extension)
	}
	if meta.IsDefined("layout_name") {
		cfg.LayoutName = strings.TrimSpace(raw.LayoutName)
	}
	if meta.IsDefined("base_path") {
		cfg.BasePath = strings.TrimSpace(raw.BasePath)
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("globals") {
		cfg.Globals = raw.Globals
	}
	if meta.IsDefined("theme", "name") {
		cfg.Theme.Name = strings.TrimSpace(raw.Theme.Name)
	}
	if meta.IsDefined("theme", "variant") {
		cfg.Theme.Variant = strings.TrimSpace(raw.Theme.Variant)
	}
	return nil
}

// TemplatePath returns the template directory, resolved against BasePath
// when relative.
func (c Config) TemplatePath() string {
	if filepath.IsAbs(c.TemplateDir) || c.BasePath == "" {
		return c.TemplateDir
	}
	return filepath.Join(c.BasePath, c.TemplateDir)
}

// Options converts the config into orchestrator options.
func (c Config) Options() []orchestrator.Option {
	opts := []orchestrator.Option{
		orchestrator.WithTemplateDir(c.TemplateDir),
		orchestrator.WithExtension(c.Extension),
		orchestrator.WithLayoutName(c.LayoutName),
	}
	if c.BasePath != "" {
		opts = append(opts, orchestrator.WithBasePath(c.BasePath))
	}
	if len(c.Globals) > 0 {
		opts = append(opts, orchestrator.WithRuntimeGlobals(c.Globals))
	}
	return opts
}

// LoadVars reads per-call template variables from a YAML, TOML or JSON(C)
// file.
func LoadVars(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read vars %s: %w", path, err)
	}

	vars := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &vars)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &vars)
	case ".toml":
		_, err = toml.Decode(string(data), &vars)
	default:
		return nil, fmt.Errorf("config: unsupported vars format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode vars %s: %w", path, err)
	}
	return vars, nil
}
