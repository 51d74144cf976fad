package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"filesentry/internal/config"
	"filesentry/internal/logging"
	"filesentry/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 2)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	return runWithSignals(ctx, cancel, signalCh, args, out, errOut)
}

func runWithSignals(ctx context.Context, cancel context.CancelFunc, signalCh <-chan os.Signal, args []string, out, errOut io.Writer) int {
	options, err := parseArgs(args, errOut)
	if err != nil {
		return exitCodeUsage
	}
	if options.Help {
		printHelp(out)
		return exitCodeSuccess
	}
	if options.Version {
		fmt.Fprintln(out, version.Get().String())
		return exitCodeSuccess
	}

	cfg, err := loadConfig(options, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(errOut, "filesentry: %v\n", err)
		return exitCodeConfig
	}

	logger := logging.New(logging.Options{
		Output: errOut,
		Level:  cfg.LogLevel(),
		Format: cfg.LogFormat(),
	}).With(map[string]string{logging.CategoryKey: "filesentry"})
	stopSignals := watchShutdownSignals(logger, cancel, signalCh)
	defer stopSignals()

	application, err := newApp(cfg, options.Roots, out, logger)
	if err != nil {
		fmt.Fprintf(errOut, "filesentry: %v\n", err)
		return exitCodeConfig
	}
	if err := application.Run(ctx); err != nil {
		logger.Error("filesentry stopped with error", map[string]string{"error": err.Error()})
		return exitCodeRuntime
	}
	logger.Info("filesentry stopped", nil)
	return exitCodeSuccess
}

// loadConfig layers defaults, the config file, FILESENTRY_* env and flags,
// then validates the result.
func loadConfig(options Options, lookup func(string) (string, bool)) (config.Config, error) {
	path := options.ConfigPath
	if path == "" {
		if value, ok := lookup(config.EnvConfig); ok {
			path = strings.TrimSpace(value)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	cfg.ApplyEnv(lookup)
	options.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
