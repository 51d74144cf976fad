package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"filesentry/internal/cli"
	"filesentry/internal/config"
)

var errUsage = errors.New("usage")

// Options is the parsed command line. Overrides only apply for flags that
// were given explicitly so the config file and env stay authoritative
// otherwise.
type Options struct {
	ConfigPath    string
	Roots         []string
	Debounce      time.Duration
	NoRecursive   bool
	IncludeDirs   bool
	QueueCapacity int
	MinLevel      string
	JSON          bool
	NoColor       bool
	Listen        string
	LogLevel      string
	LogFormat     string
	Help          bool
	Version       bool

	set map[string]bool
}

func parseArgs(args []string, errOut io.Writer) (Options, error) {
	fs := flag.NewFlagSet("filesentry", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var options Options
	fs.StringVar(&options.ConfigPath, "config", "", "Config file (.yaml, .yml or .toml)")
	fs.DurationVar(&options.Debounce, "debounce", 0, "Debounce window")
	fs.BoolVar(&options.NoRecursive, "no-recursive", false, "Watch only the top-level directories")
	fs.BoolVar(&options.IncludeDirs, "include-dirs", false, "Report events on directories")
	fs.IntVar(&options.QueueCapacity, "queue-capacity", 0, "Queue capacity")
	fs.StringVar(&options.MinLevel, "min-level", "", "Default minimum notification level")
	fs.BoolVar(&options.JSON, "json", false, "Print event JSON after each line")
	fs.BoolVar(&options.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&options.Listen, "listen", "", "HTTP listen address")
	fs.StringVar(&options.LogLevel, "log-level", "", "Log level")
	fs.StringVar(&options.LogFormat, "log-format", "", "Log format")
	helpVersion := cli.AddHelpVersionFlags(fs, "Show help", "Print version and exit")

	roots, err := cli.ParseInterspersed(fs, args)
	if err != nil {
		fmt.Fprintf(errOut, "filesentry: %v\n", err)
		printHelp(errOut)
		return Options{}, errUsage
	}
	options.Help = helpVersion.Help
	options.Version = helpVersion.Version
	options.set = cli.SetFlags(fs)
	if options.Help || options.Version {
		return options, nil
	}

	for _, root := range roots {
		if strings.TrimSpace(root) != "" {
			options.Roots = append(options.Roots, root)
		}
	}
	if len(options.Roots) == 0 {
		fmt.Fprintln(errOut, "filesentry: at least one directory is required")
		printHelp(errOut)
		return Options{}, errUsage
	}
	if options.set["debounce"] && options.Debounce < 0 {
		fmt.Fprintln(errOut, "filesentry: --debounce must be >= 0")
		return Options{}, errUsage
	}
	if options.set["queue-capacity"] && options.QueueCapacity < 0 {
		fmt.Fprintln(errOut, "filesentry: --queue-capacity must be >= 0")
		return Options{}, errUsage
	}
	return options, nil
}

// Apply overlays explicitly set flags onto cfg.
func (o Options) Apply(cfg *config.Config) {
	if o.set["debounce"] {
		cfg.Watch.DebounceSeconds = o.Debounce.Seconds()
	}
	if o.set["no-recursive"] && o.NoRecursive {
		cfg.Watch.Recursive = false
	}
	if o.set["include-dirs"] && o.IncludeDirs {
		cfg.Watch.IgnoreDirectories = false
	}
	if o.set["queue-capacity"] {
		cfg.Watch.QueueCapacity = o.QueueCapacity
	}
	if o.set["min-level"] {
		cfg.Notify.MinimumLevel = o.MinLevel
	}
	if o.set["json"] && o.JSON {
		cfg.Notify.Console.IncludeJSON = true
	}
	if o.set["no-color"] && o.NoColor {
		cfg.Notify.Console.Color = false
	}
	if o.set["listen"] {
		cfg.Server.Addr = o.Listen
	}
	if o.set["log-level"] {
		cfg.Log.Level = o.LogLevel
	}
	if o.set["log-format"] {
		cfg.Log.Format = o.LogFormat
	}
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: filesentry [options] <dir> [<dir>...]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Watch directories, score every file change and notify configured sinks.")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	cli.WriteOption(out, "--config PATH", "Config file, YAML (.yaml/.yml) or TOML (.toml) [env: "+config.EnvConfig+"]")
	cli.WriteOption(out, "--debounce DURATION", "Suppress repeats of the same path and action (default 150ms, 0 disables)")
	cli.WriteOption(out, "--no-recursive", "Watch only the given directories, not their subdirectories")
	cli.WriteOption(out, "--include-dirs", "Report events on directories as well as files")
	cli.WriteOption(out, "--queue-capacity N", "Bound the event queue (default 0, unbounded)")
	cli.WriteOption(out, "--min-level LEVEL", "Default minimum level: Info, Warning or Critical")
	cli.WriteOption(out, "--json", "Print each event as JSON after the console line")
	cli.WriteOption(out, "--no-color", "Disable colored console output")
	cli.WriteOption(out, "--listen ADDR", "Serve /healthz, /metrics and /events [env: "+config.EnvListen+"]")
	cli.WriteOption(out, "--log-level LEVEL", "debug, info, warning or error [env: "+config.EnvLogLevel+"]")
	cli.WriteOption(out, "--log-format FORMAT", "text or json, written to stderr [env: "+config.EnvLogFormat+"]")
	cli.WriteOption(out, "-h, --help", "Show help")
	cli.WriteOption(out, "-v, --version", "Print version and exit")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Matrix notifications:")
	fmt.Fprintln(out, "  Set "+config.EnvMatrixURL+", "+config.EnvMatrixToken+" and "+config.EnvMatrixRoom+",")
	fmt.Fprintln(out, "  or the notify.matrix section of the config file.")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Exit codes:")
	fmt.Fprintln(out, "  0  Clean shutdown")
	fmt.Fprintln(out, "  1  Usage error")
	fmt.Fprintln(out, "  2  Configuration error")
	fmt.Fprintln(out, "  3  Runtime failure")
}
