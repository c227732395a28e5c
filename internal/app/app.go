// Package app wires configuration, logging, history and the script runtime
// into the arraytrie commands.
package app

import (
	"io"
	"os"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/arraytrie/internal/config"
	"github.com/dshills/arraytrie/internal/config/loader"
	"github.com/dshills/arraytrie/internal/engine/history"
	"github.com/dshills/arraytrie/internal/plugin/lua"
)

// Application holds the state shared by every command of one invocation.
type Application struct {
	cfg     *config.Config
	log     *Logger
	out     *Printer
	stdin   io.Reader
	history *lua.History
	metrics *Metrics

	// state is created on first use and shared by every command so that
	// vectors in history keep working in later scripts.
	state *lua.State
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the TOML configuration file.
	ConfigPath string

	// LogLevel overrides logging.level when set.
	LogLevel string

	// Format overrides output.format when set.
	Format string

	// NoColor disables colored text output.
	NoColor bool

	// Environ replaces os.Environ as the source of ARRAYTRIE_* settings.
	Environ []string

	// Stdin, Stdout and Stderr default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// New loads configuration and creates an Application.
// Settings are layered as defaults, then the config file, then the
// environment, then the options.
func New(opts Options) (*Application, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	env := loader.NewEnvLoader(config.EnvPrefix)
	if opts.Environ != nil {
		env = loader.NewEnvLoaderFrom(config.EnvPrefix, opts.Environ)
	}

	cfg, err := config.LoadWith(
		loader.NewTOMLLoader(opts.ConfigPath),
		env,
		overrides(opts),
	)
	if err != nil {
		return nil, NewOperationError("load config", opts.ConfigPath, err)
	}

	log := NewLogger(LoggerConfig{
		Level:  ParseLogLevel(cfg.Logging.Level),
		Output: opts.Stderr,
		Prefix: "arraytrie",
	})

	hist, err := history.New[glua.LValue](cfg.History.MaxEntries, history.WithEncoder[glua.LValue](lua.EncodeValue))
	if err != nil {
		return nil, NewOperationError("create history", "", err)
	}

	log.Debug("configuration loaded from %q", opts.ConfigPath)

	return &Application{
		cfg:     cfg,
		log:     log,
		out:     NewPrinter(opts.Stdout, cfg.Output.Format, cfg.Output.Color),
		stdin:   opts.Stdin,
		history: hist,
		metrics: NewMetrics(),
	}, nil
}

// overrides turns command-line options into the highest-precedence
// configuration layer.
func overrides(opts Options) loader.MapLoader {
	m := loader.MapLoader{}
	if opts.LogLevel != "" {
		m["logging"] = map[string]any{"level": opts.LogLevel}
	}
	output := map[string]any{}
	if opts.Format != "" {
		output["format"] = opts.Format
	}
	if opts.NoColor {
		output["color"] = false
	}
	if len(output) > 0 {
		m["output"] = output
	}
	return m
}

// Config returns the effective configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *Application) Logger() *Logger {
	return a.log
}

// History returns the version history of results produced in this session.
// Versions hold Lua values so scripts and history share vector nodes.
func (a *Application) History() *lua.History {
	return a.history
}

// Metrics returns the session metrics.
func (a *Application) Metrics() *Metrics {
	return a.metrics
}

// Close releases the Lua state and flushes buffered log output.
func (a *Application) Close() error {
	var err error
	if a.state != nil {
		err = a.state.Close()
	}
	// Sync reports EINVAL for terminals on Linux.
	_ = a.log.Sync()
	return err
}
