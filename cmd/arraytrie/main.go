// Package main is the entry point for the arraytrie command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dshills/arraytrie/internal/app"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	app.Options
	showVersion bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, rest, err := parseGlobal(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "arraytrie %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	if len(rest) == 0 {
		fmt.Fprintln(stderr, "Error: missing command")
		usage(stderr)
		return 2
	}

	opts.Stdin, opts.Stdout, opts.Stderr = stdin, stdout, stderr
	application, err := app.New(opts.Options)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}
	defer application.Close()

	err = dispatch(ctx, application, rest[0], rest[1:], stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return app.ExitCode(err)
}

func parseGlobal(args []string, stderr io.Writer) (globalOptions, []string, error) {
	var opts globalOptions

	fs := flag.NewFlagSet("arraytrie", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.Format, "format", "", "Output format (text, json)")
	fs.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")
	fs.Usage = func() { usage(stderr); fs.PrintDefaults() }

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	return opts, fs.Args(), nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "arraytrie - persistent vectors from Lua scripts and JSON\n\n")
	fmt.Fprintf(w, "Usage: arraytrie [options] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  run [-watch] script.lua [args...]   Run a script and print the vector it returns\n")
	fmt.Fprintf(w, "  load [-path P] file.json            Build a vector from a JSON array (- reads stdin)\n")
	fmt.Fprintf(w, "  bench [-n N]                        Time push, get, iterate, branch and pop\n\n")
	fmt.Fprintf(w, "Options:\n")
}

// dispatch runs one command. Usage problems are wrapped in app.ErrUsage.
func dispatch(ctx context.Context, a *app.Application, cmd string, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("arraytrie "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)

	parse := func() error {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return err
			}
			return fmt.Errorf("%w: %v", app.ErrUsage, err)
		}
		return nil
	}

	switch cmd {
	case "run":
		watch := fs.Bool("watch", false, "Rerun the script whenever it changes")
		fs.BoolVar(watch, "w", false, "Rerun the script whenever it changes (shorthand)")
		if err := parse(); err != nil {
			return err
		}
		if fs.NArg() == 0 {
			return fmt.Errorf("%w: run needs a script path", app.ErrUsage)
		}
		script, scriptArgs := fs.Arg(0), fs.Args()[1:]
		if *watch {
			return a.WatchScript(ctx, script, scriptArgs)
		}
		return a.RunScript(ctx, script, scriptArgs)

	case "load":
		path := fs.String("path", "", "gjson path selecting the array inside the document")
		fs.StringVar(path, "p", "", "gjson path selecting the array (shorthand)")
		if err := parse(); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("%w: load needs exactly one file", app.ErrUsage)
		}
		return a.LoadFile(ctx, fs.Arg(0), *path)

	case "bench":
		n := fs.Int("n", app.DefaultBenchSize, "Number of elements")
		if err := parse(); err != nil {
			return err
		}
		if fs.NArg() == 1 {
			// Accept "bench 5000" as well as "bench -n 5000".
			parsed, err := strconv.Atoi(fs.Arg(0))
			if err != nil {
				return fmt.Errorf("%w: bench size %q is not a number", app.ErrUsage, fs.Arg(0))
			}
			*n = parsed
		} else if fs.NArg() > 1 {
			return fmt.Errorf("%w: too many arguments to bench", app.ErrUsage)
		}
		return a.Bench(ctx, *n)

	default:
		return fmt.Errorf("%w: unknown command %q", app.ErrUsage, cmd)
	}
}
