package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/arraytrie/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "ARRAYTRIE_"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config holds all settings.
type Config struct {
	Logging LoggingConfig
	Script  ScriptConfig
	History HistoryConfig
	Watch   WatchConfig
	Output  OutputConfig
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string
}

// ScriptConfig limits Lua script execution.
type ScriptConfig struct {
	// Timeout bounds a single script run. Zero disables the timeout.
	Timeout time.Duration
	// OpLimit bounds the number of vector operations a script may perform.
	// Zero disables it.
	OpLimit int64
}

// HistoryConfig configures version history.
type HistoryConfig struct {
	// MaxEntries is the number of undo steps kept.
	MaxEntries int
}

// WatchConfig configures script re-execution on change.
type WatchConfig struct {
	// Debounce coalesces bursts of file events.
	Debounce time.Duration
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	// Format is "text" or "json".
	Format string
	// Color enables ANSI colors in text output.
	Color bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Script: ScriptConfig{
			Timeout: 5 * time.Second,
			OpLimit: 1_000_000,
		},
		History: HistoryConfig{MaxEntries: 1000},
		Watch:   WatchConfig{Debounce: 100 * time.Millisecond},
		Output:  OutputConfig{Format: FormatText, Color: true},
	}
}

// Load builds a configuration from defaults, the TOML file at path (if any)
// and ARRAYTRIE_* environment variables.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(loader.NewTOMLLoader(path), loader.NewEnvLoader(EnvPrefix))
}

// LoadWith builds a configuration from defaults and the given loaders,
// applied in order so later loaders override earlier ones.
func LoadWith(loaders ...loader.Loader) (*Config, error) {
	merged := make(map[string]any)
	for _, l := range loaders {
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg := Default()
	if err := cfg.Apply(merged); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply overrides settings present in m and validates the result.
// Unknown keys are ignored.
func (c *Config) Apply(m map[string]any) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(setString(m, "logging.level", &c.Logging.Level))
	collect(setDuration(m, "script.timeout", &c.Script.Timeout))
	collect(setInt64(m, "script.opLimit", &c.Script.OpLimit))

	maxEntries := int64(c.History.MaxEntries)
	collect(setInt64(m, "history.maxEntries", &maxEntries))
	c.History.MaxEntries = int(maxEntries)

	collect(setDuration(m, "watch.debounce", &c.Watch.Debounce))
	collect(setString(m, "output.format", &c.Output.Format))
	collect(setBool(m, "output.color", &c.Output.Color))

	if len(errs) == 0 {
		collect(c.Validate())
	}
	return errors.Join(errs...)
}

// Validate checks that every setting is within its allowed range.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(path string, v any) {
		errs = append(errs, &SettingError{Path: path, Value: v, Err: ErrValidationFailed})
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		invalid("logging.level", c.Logging.Level)
	}
	if c.Script.Timeout < 0 {
		invalid("script.timeout", c.Script.Timeout)
	}
	if c.Script.OpLimit < 0 {
		invalid("script.opLimit", c.Script.OpLimit)
	}
	if c.History.MaxEntries <= 0 {
		invalid("history.maxEntries", c.History.MaxEntries)
	}
	if c.Watch.Debounce < 0 {
		invalid("watch.debounce", c.Watch.Debounce)
	}
	switch c.Output.Format {
	case FormatText, FormatJSON:
	default:
		invalid("output.format", c.Output.Format)
	}

	return errors.Join(errs...)
}

// lookup returns the value at a dotted path in a nested map.
func lookup(m map[string]any, path string) (any, bool) {
	section, key, ok := strings.Cut(path, ".")
	if !ok {
		v, found := m[path]
		return v, found
	}
	sub, isMap := m[section].(map[string]any)
	if !isMap {
		return nil, false
	}
	return lookup(sub, key)
}

func mismatch(path string, v any) error {
	return &SettingError{Path: path, Value: v, Err: fmt.Errorf("%w: got %T", ErrTypeMismatch, v)}
}

func setString(m map[string]any, path string, dst *string) error {
	v, ok := lookup(m, path)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return mismatch(path, v)
	}
	*dst = s
	return nil
}

func setBool(m map[string]any, path string, dst *bool) error {
	v, ok := lookup(m, path)
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return mismatch(path, v)
	}
	*dst = b
	return nil
}

func setInt64(m map[string]any, path string, dst *int64) error {
	v, ok := lookup(m, path)
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case int64:
		*dst = n
	case int:
		*dst = int64(n)
	case float64:
		if n != float64(int64(n)) {
			return mismatch(path, v)
		}
		*dst = int64(n)
	default:
		return mismatch(path, v)
	}
	return nil
}

func setDuration(m map[string]any, path string, dst *time.Duration) error {
	v, ok := lookup(m, path)
	if !ok {
		return nil
	}
	switch d := v.(type) {
	case time.Duration:
		*dst = d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return &SettingError{Path: path, Value: v, Err: fmt.Errorf("%w: %v", ErrTypeMismatch, err)}
		}
		*dst = parsed
	case int64:
		// Bare integers are milliseconds.
		*dst = time.Duration(d) * time.Millisecond
	default:
		return mismatch(path, v)
	}
	return nil
}
