// Package config loads potluck settings.
//
// Settings are layered, later layers overriding earlier ones:
//
//	defaults < config file (TOML or YAML) < POTLUCK_* environment variables
//
// Watch reloads the file when it changes on disk.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/dshills/potluck/internal/config/loader"
	"github.com/dshills/potluck/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POTLUCK_"

// Config holds every setting.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Editor   EditorConfig   `yaml:"editor"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Plugins  PluginsConfig  `yaml:"plugins"`
	Timer    TimerConfig    `yaml:"timer"`
	Render   RenderConfig   `yaml:"render"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EditorConfig configures documents.
type EditorConfig struct {
	// Delimiter is the one-character paragraph delimiter.
	Delimiter string `yaml:"delimiter"`
	// Actor names the local replica. Empty picks a random id.
	Actor string `yaml:"actor"`
}

// PipelineConfig configures plugin transforms.
type PipelineConfig struct {
	FailFast    bool `yaml:"failFast"`
	RerunOnEdit bool `yaml:"rerunOnEdit"`
}

// PluginsConfig selects plugins.
type PluginsConfig struct {
	// Enabled lists built-in plugins in load order. Nil enables all.
	Enabled    []string      `yaml:"enabled"`
	LuaDir     string        `yaml:"luaDir"`
	LuaTimeout time.Duration `yaml:"luaTimeout"`
}

// TimerConfig configures countdown timers.
type TimerConfig struct {
	TickInterval time.Duration `yaml:"tickInterval"`
}

// RenderConfig configures highlight colors.
type RenderConfig struct {
	ActiveOpacity float64 `yaml:"activeOpacity"`
	IdleOpacity   float64 `yaml:"idleOpacity"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Editor:   EditorConfig{Delimiter: "\n"},
		Pipeline: PipelineConfig{},
		Plugins:  PluginsConfig{LuaTimeout: 2 * time.Second},
		Timer:    TimerConfig{TickInterval: time.Second},
		Render:   RenderConfig{ActiveOpacity: 0.6, IdleOpacity: 0.25},
	}
}

// DelimiterRune returns the paragraph delimiter.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Editor.Delimiter)
	return r
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logging.LoggerConfig {
	lc := logging.DefaultLoggerConfig()
	lc.Level = logging.ParseLogLevel(c.Logging.Level)
	lc.Format = logging.Format(c.Logging.Format)
	return lc
}

// Options control where Load reads from.
type Options struct {
	// FS defaults to the OS file system.
	FS loader.FileSystem
	// Environ defaults to the process environment.
	Environ []string
}

// Load reads path (optional) and the environment over the defaults.
func Load(path string) (*Config, error) {
	return LoadWith(path, Options{})
}

// LoadWith is Load with explicit sources.
func LoadWith(path string, opts Options) (*Config, error) {
	if opts.FS == nil {
		opts.FS = loader.OSFS{}
	}

	merged := map[string]any{}
	if path != "" {
		l, err := loader.ForPath(opts.FS, path)
		if err != nil {
			return nil, err
		}
		fileMap, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, fileMap)
	}

	env := loader.NewEnvLoader(EnvPrefix)
	if opts.Environ != nil {
		env = loader.NewEnvLoaderFrom(EnvPrefix, opts.Environ)
	}
	env.Lists("plugins.enabled")
	envMap, err := env.Load()
	if err != nil {
		return nil, err
	}
	merged = loader.DeepMerge(merged, envMap)

	cfg, err := decode(merged)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies m over the defaults. Unknown keys are rejected.
func decode(m map[string]any) (*Config, error) {
	cfg := Default()
	if len(m) == 0 {
		return cfg, nil
	}
	raw, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return cfg, nil
}

// ParseError reports a file or environment value that could not be decoded.
type ParseError = loader.ParseError

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("invalid configuration")

// Problem is one invalid setting.
type Problem struct {
	Path    string
	Message string
	Value   any
}

// ValidationError lists every invalid setting.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	var b bytes.Buffer
	b.WriteString("invalid configuration:")
	for _, p := range e.Problems {
		fmt.Fprintf(&b, " %s: %s (value: %v);", p.Path, p.Message, p.Value)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// Validate checks every setting.
func (c *Config) Validate() error {
	var probs []Problem
	add := func(path, msg string, v any) {
		probs = append(probs, Problem{Path: path, Message: msg, Value: v})
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	switch logging.Format(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		add("logging.format", "must be text or json", c.Logging.Format)
	}
	if utf8.RuneCountInString(c.Editor.Delimiter) != 1 {
		add("editor.delimiter", "must be exactly one character", c.Editor.Delimiter)
	}
	if c.Plugins.LuaTimeout <= 0 {
		add("plugins.luaTimeout", "must be positive", c.Plugins.LuaTimeout)
	}
	if c.Timer.TickInterval <= 0 {
		add("timer.tickInterval", "must be positive", c.Timer.TickInterval)
	}
	for path, v := range map[string]float64{
		"render.activeOpacity": c.Render.ActiveOpacity,
		"render.idleOpacity":   c.Render.IdleOpacity,
	} {
		if v < 0 || v > 1 {
			add(path, "must be between 0 and 1", v)
		}
	}

	if len(probs) == 0 {
		return nil
	}
	sortProblems(probs)
	return &ValidationError{Problems: probs}
}

func sortProblems(probs []Problem) {
	sort.Slice(probs, func(i, j int) bool {
		return probs[i].Path < probs[j].Path
	})
}
