// Package config resolves tool configuration from JSONC files and flags.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".unsafe-docs.json"

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	ErrFileNotFound = errors.New("config file not found")
	ErrFileRead     = errors.New("cannot read config file")
	ErrInvalid      = errors.New("invalid config file")
	ErrUnknownKey   = errors.New("unknown config key")
	ErrEmptyValue   = errors.New("value cannot be empty")
	ErrBadColor     = errors.New("color must be auto, always or never")
	ErrBadDuration  = errors.New("duration must be positive")
)

var knownKeys = []string{"root", "watch_interval", "exclude_dirs", "color", "lock_timeout", "spec_file"}

// Config holds all configuration options.
type Config struct {
	Root          string
	WatchInterval time.Duration
	ExcludeDirs   []string
	Color         string
	LockTimeout   time.Duration
	SpecFile      string

	// Resolved, not read from files.
	EffectiveCwd string
	RootAbs      string

	Sources Sources
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Root:          ".",
		WatchInterval: 2 * time.Second,
		ExcludeDirs:   []string{"node_modules", "__pycache__", ".venv", "venv", ".git"},
		Color:         ColorAuto,
		LockTimeout:   5 * time.Second,
		SpecFile:      "spec.yml",
	}
}

// fileConfig is one config file; nil means "not set".
type fileConfig struct {
	Root          *string   `json:"root"`
	WatchInterval *string   `json:"watch_interval"`
	ExcludeDirs   *[]string `json:"exclude_dirs"`
	Color         *string   `json:"color"`
	LockTimeout   *string   `json:"lock_timeout"`
	SpecFile      *string   `json:"spec_file"`
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string // -C/--cwd; os.Getwd() when empty
	ConfigPath      string // -c/--config
	RootOverride    string // --root
	ColorOverride   string // --color
	Env             map[string]string
}

// GlobalPath returns $XDG_CONFIG_HOME/unsafe-docs/config.json, falling back
// to ~/.config. Empty when neither variable is set.
func GlobalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "unsafe-docs", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "unsafe-docs", "config.json")
	}

	return ""
}

// Load resolves configuration with the following precedence (highest wins):
// defaults, global config, project config (.unsafe-docs.json), an explicit
// --config file, CLI overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()

	if globalPath := GlobalPath(input.Env); globalPath != "" {
		loaded, err := applyFile(&cfg, globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = globalPath
		}
	}

	projectPath := filepath.Join(workDir, FileName)
	mustExist := false

	if input.ConfigPath != "" {
		projectPath = input.ConfigPath
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}

		mustExist = true
	}

	loaded, err := applyFile(&cfg, projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
	}

	if input.RootOverride != "" {
		cfg.Root = input.RootOverride
	}

	if input.ColorOverride != "" {
		cfg.Color = input.ColorOverride
	}

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	cfg.RootAbs = cfg.Root
	if !filepath.IsAbs(cfg.RootAbs) {
		cfg.RootAbs = filepath.Join(workDir, cfg.RootAbs)
	}

	cfg.RootAbs = filepath.Clean(cfg.RootAbs)

	return cfg, nil
}

func applyFile(cfg *Config, path string, mustExist bool) (bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user supplied config path
	if err != nil {
		if !mustExist {
			return false, nil
		}

		if os.IsNotExist(err) {
			return false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return false, fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	fc, err := parse(data)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	err = merge(cfg, fc)
	if err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return true, nil
}

func parse(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var raw map[string]json.RawMessage

	err = json.Unmarshal(standardized, &raw)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	var unknown []string

	for key := range raw {
		if !slices.Contains(knownKeys, key) {
			unknown = append(unknown, key)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)

		return fileConfig{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(unknown, ", "))
	}

	var fc fileConfig

	dec := json.NewDecoder(bytes.NewReader(standardized))

	err = dec.Decode(&fc)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return fc, nil
}

func merge(cfg *Config, fc fileConfig) error {
	if fc.Root != nil {
		if *fc.Root == "" {
			return fmt.Errorf("root: %w", ErrEmptyValue)
		}

		cfg.Root = *fc.Root
	}

	if fc.WatchInterval != nil {
		d, err := parseDuration("watch_interval", *fc.WatchInterval)
		if err != nil {
			return err
		}

		cfg.WatchInterval = d
	}

	if fc.ExcludeDirs != nil {
		cfg.ExcludeDirs = slices.Clone(*fc.ExcludeDirs)
	}

	if fc.Color != nil {
		cfg.Color = *fc.Color
	}

	if fc.LockTimeout != nil {
		d, err := parseDuration("lock_timeout", *fc.LockTimeout)
		if err != nil {
			return err
		}

		cfg.LockTimeout = d
	}

	if fc.SpecFile != nil {
		if *fc.SpecFile == "" {
			return fmt.Errorf("spec_file: %w", ErrEmptyValue)
		}

		cfg.SpecFile = *fc.SpecFile
	}

	return nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%s: %w", key, ErrBadDuration)
	}

	return d, nil
}

func validate(cfg Config) error {
	switch cfg.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: %q", ErrBadColor, cfg.Color)
	}

	if cfg.Root == "" {
		return fmt.Errorf("root: %w", ErrEmptyValue)
	}

	return nil
}

// Lines renders the resolved configuration as key=value lines.
func (c Config) Lines() []string {
	lines := []string{
		"effective_cwd=" + c.EffectiveCwd,
		"root=" + c.RootAbs,
		"watch_interval=" + c.WatchInterval.String(),
		"exclude_dirs=" + strings.Join(c.ExcludeDirs, ","),
		"color=" + c.Color,
		"lock_timeout=" + c.LockTimeout.String(),
		"spec_file=" + c.SpecFile,
		"",
		"# sources",
	}

	if c.Sources.Global == "" && c.Sources.Project == "" {
		return append(lines, "(defaults only)")
	}

	if c.Sources.Global != "" {
		lines = append(lines, "global_config="+c.Sources.Global)
	}

	if c.Sources.Project != "" {
		lines = append(lines, "project_config="+c.Sources.Project)
	}

	return lines
}
